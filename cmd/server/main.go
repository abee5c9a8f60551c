package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"janus/internal/adapter"
	"janus/internal/content"
	"janus/internal/filestore"
	"janus/internal/graphstore"
	"janus/internal/resolver"
	"janus/internal/store"
	"janus/pkg/config"
	apperrors "janus/pkg/errors"
	"janus/pkg/logger"
)

func main() {
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting janus server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	backend, cleanup, err := openBackend(cfg)
	if err != nil {
		log.Fatal("Failed to open backend", zap.String("backend", cfg.Backend), zap.Error(err))
	}
	defer cleanup()

	engine := resolver.New(backend)
	llm := adapter.New(cfg.LiteLLMURL, cfg.OpenRouterAPIKey, cfg.ModelID)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, backend, engine, llm, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("backend", cfg.Backend),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// setupRouter wires the middleware stack and every API route.
func setupRouter(cfg *config.Config, backend store.Store, engine *resolver.Engine, llm *adapter.LLMAdapter, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": cfg.Backend})
	})

	api := router.Group("/api")
	{
		api.GET("/nodes", func(c *gin.Context) {
			nodes, err := backend.ListNodes(c.Request.Context())
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, nodes)
		})

		api.POST("/nodes", func(c *gin.Context) {
			var req struct {
				Name        string `json:"name" binding:"required"`
				Description string `json:"description"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			node, err := backend.CreateNode(c.Request.Context(), req.Name, req.Description)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusCreated, node)
		})

		api.GET("/nodes/:name", func(c *gin.Context) {
			node, err := backend.FindNodeByName(c.Request.Context(), c.Param("name"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, node)
		})

		api.POST("/nodes/:name/versions", func(c *gin.Context) {
			var req struct {
				Content       *string `json:"content"`
				CommitMessage string  `json:"commit_message" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			ctx := c.Request.Context()
			node, err := backend.FindNodeByName(ctx, c.Param("name"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			version, err := backend.AddVersion(ctx, node.ID, req.Content, req.CommitMessage)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusCreated, version)
		})

		api.GET("/nodes/:name/versions/latest", func(c *gin.Context) {
			ctx := c.Request.Context()
			node, err := backend.FindNodeByName(ctx, c.Param("name"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			version, err := backend.GetLatestVersion(ctx, node.ID)
			if err != nil {
				respondError(c, log, err)
				return
			}
			if version == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "node has no versions"})
				return
			}
			c.JSON(http.StatusOK, version)
		})

		api.GET("/tags", func(c *gin.Context) {
			tags, err := backend.ListTags(c.Request.Context())
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, tags)
		})

		api.POST("/tags", func(c *gin.Context) {
			var req struct {
				Name        string `json:"name" binding:"required"`
				Description string `json:"description"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			tag, err := backend.CreateTag(c.Request.Context(), req.Name, req.Description)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusCreated, tag)
		})

		api.POST("/nodes/:name/tags/:tag", func(c *gin.Context) {
			ctx := c.Request.Context()
			node, err := backend.FindNodeByName(ctx, c.Param("name"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			tag, err := backend.FindTagByName(ctx, c.Param("tag"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			if err := backend.TagNode(ctx, node.ID, tag.ID); err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "tagged"})
		})

		api.POST("/includes", func(c *gin.Context) {
			var req struct {
				ParentVersionID string `json:"parent_version_id" binding:"required"`
				ChildVersionID  string `json:"child_version_id" binding:"required"`
				Operation       string `json:"operation" binding:"required"`
				Key             string `json:"key"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			writer, ok := backend.(store.EdgeWriter)
			if !ok {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "backend does not support include edges"})
				return
			}
			edge := content.Edge{Operation: content.Operation(req.Operation), Key: req.Key}
			if err := writer.AddInclude(c.Request.Context(), req.ParentVersionID, req.ChildVersionID, edge); err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"status": "created"})
		})

		api.POST("/resolve", func(c *gin.Context) {
			var req struct {
				VersionID         string            `json:"version_id" binding:"required"`
				Context           map[string]string `json:"context"`
				ExcludeVersionIDs []string          `json:"exclude_version_ids"`
				IncludeTags       []string          `json:"include_tags"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			text, err := engine.Resolve(c.Request.Context(), req.VersionID, req.Context, resolver.Options{
				ExcludeVersionIDs: req.ExcludeVersionIDs,
				IncludeTags:       req.IncludeTags,
			})
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"text": text})
		})

		api.POST("/preview", func(c *gin.Context) {
			var req struct {
				VersionID string            `json:"version_id" binding:"required"`
				Context   map[string]string `json:"context"`
				Message   string            `json:"message"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			ctx := c.Request.Context()
			prompt, err := engine.Resolve(ctx, req.VersionID, req.Context, resolver.Options{})
			if err != nil {
				respondError(c, log, err)
				return
			}
			message := req.Message
			if message == "" {
				message = "Hello"
			}
			completion, err := llm.Complete(ctx, prompt, message)
			if err != nil {
				log.Error("Preview completion failed", zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "completion failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"prompt": prompt, "completion": completion})
		})
	}

	return router
}

// openBackend builds the configured store implementation and a cleanup func.
func openBackend(cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendGraph:
		driver, err := neo4j.NewDriverWithContext(
			cfg.Neo4jURI,
			neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("create Neo4j driver: %w", err)
		}
		if err := driver.VerifyConnectivity(context.Background()); err != nil {
			_ = driver.Close(context.Background())
			return nil, nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
		}
		gs := graphstore.New(driver)
		return gs, func() { _ = gs.Close() }, nil
	default:
		fs, err := filestore.New(cfg.ContentRoot)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		return fs, func() {}, nil
	}
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsCycle(err), apperrors.IsUnsupported(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
