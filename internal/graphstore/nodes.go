package graphstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"janus/internal/content"
	apperrors "janus/pkg/errors"
)

// FindNodeByName returns the node with the given name.
func (s *Store) FindNodeByName(ctx context.Context, name string) (*content.Node, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (n:ContentNode {name: $name})
		RETURN n.id as id, n.name as name, n.description as description
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"name": name,
	})
	if err != nil {
		return nil, apperrors.NewQueryFailed("FindNodeByName", query, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, apperrors.NewQueryFailed("FindNodeByName", query, err)
		}
		return nil, apperrors.NewNotFound("node", name)
	}

	record := result.Record()
	return &content.Node{
		ID:          getString(record, "id", ""),
		Name:        getString(record, "name", ""),
		Description: getString(record, "description", ""),
	}, nil
}

// CreateNode creates a node, failing when the name already exists. The
// existence check and the create run in one statement so the conflict test
// sees the same graph state as the write.
func (s *Store) CreateNode(ctx context.Context, name, description string) (*content.Node, error) {
	if err := content.ValidateSlug(name); err != nil {
		return nil, apperrors.NewValidation("name", err.Error())
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		OPTIONAL MATCH (existing:ContentNode {name: $name})
		WITH existing
		WHERE existing IS NULL
		CREATE (n:ContentNode {id: $id, name: $name, description: $description})
		RETURN n.id as id
	`

	id := uuid.NewString()
	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":          id,
		"name":        name,
		"description": description,
	})
	if err != nil {
		return nil, apperrors.NewQueryFailed("CreateNode", query, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, apperrors.NewQueryFailed("CreateNode", query, err)
		}
		return nil, apperrors.NewConflict("node", name)
	}

	s.logger.Info("Node created",
		zap.String("name", name),
		zap.String("id", id),
	)
	return &content.Node{ID: id, Name: name, Description: description}, nil
}

// AddVersion appends an immutable version snapshot to a node.
func (s *Store) AddVersion(ctx context.Context, nodeID string, contentText *string, commitMessage string) (*content.Version, error) {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (n:ContentNode {id: $nodeID})
		CREATE (v:ContentNodeVersion {
			id: $id,
			content: $content,
			created_at: datetime($now),
			commit_message: $commitMessage
		})
		CREATE (n)-[:HAS_VERSION]->(v)
		RETURN v.id as id
	`

	id := uuid.NewString()
	now := time.Now().UTC()
	params := map[string]interface{}{
		"id":            id,
		"nodeID":        nodeID,
		"commitMessage": commitMessage,
		"now":           now.Format(time.RFC3339Nano),
		"content":       nil,
	}
	if contentText != nil {
		params["content"] = *contentText
	}

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, apperrors.NewQueryFailed("AddVersion", query, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, apperrors.NewQueryFailed("AddVersion", query, err)
		}
		return nil, apperrors.NewNotFound("node", nodeID)
	}

	s.logger.Info("Version added",
		zap.String("node_id", nodeID),
		zap.String("version_id", id),
		zap.String("commit_message", commitMessage),
	)
	return &content.Version{
		ID:            id,
		Content:       contentText,
		CreatedAt:     now,
		CommitMessage: commitMessage,
	}, nil
}

// GetVersion returns a version by id.
func (s *Store) GetVersion(ctx context.Context, versionID string) (*content.Version, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (v:ContentNodeVersion {id: $id})
		RETURN v.id as id, v.content as content,
		       v.created_at as created_at, v.commit_message as commit_message
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id": versionID,
	})
	if err != nil {
		return nil, apperrors.NewQueryFailed("GetVersion", query, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, apperrors.NewQueryFailed("GetVersion", query, err)
		}
		return nil, apperrors.NewNotFound("version", versionID)
	}

	return versionFromRecord(result.Record()), nil
}

// GetLatestVersion returns the newest version by created_at, or (nil, nil)
// when the node exists but has no versions yet.
func (s *Store) GetLatestVersion(ctx context.Context, nodeID string) (*content.Version, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (n:ContentNode {id: $nodeID})
		OPTIONAL MATCH (n)-[:HAS_VERSION]->(v:ContentNodeVersion)
		RETURN v.id as id, v.content as content,
		       v.created_at as created_at, v.commit_message as commit_message
		ORDER BY v.created_at DESC
		LIMIT 1
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"nodeID": nodeID,
	})
	if err != nil {
		return nil, apperrors.NewQueryFailed("GetLatestVersion", query, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, apperrors.NewQueryFailed("GetLatestVersion", query, err)
		}
		return nil, apperrors.NewNotFound("node", nodeID)
	}

	record := result.Record()
	if getString(record, "id", "") == "" {
		return nil, nil
	}
	return versionFromRecord(record), nil
}

// ListNodes returns all nodes in stable order by name.
func (s *Store) ListNodes(ctx context.Context) ([]*content.Node, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (n:ContentNode)
		RETURN n.id as id, n.name as name, n.description as description
		ORDER BY n.name
	`

	result, err := session.Run(ctx, query, map[string]interface{}{})
	if err != nil {
		return nil, apperrors.NewQueryFailed("ListNodes", query, err)
	}

	var nodes []*content.Node
	for result.Next(ctx) {
		record := result.Record()
		nodes = append(nodes, &content.Node{
			ID:          getString(record, "id", ""),
			Name:        getString(record, "name", ""),
			Description: getString(record, "description", ""),
		})
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewQueryFailed("ListNodes", query, err)
	}
	return nodes, nil
}

func versionFromRecord(record *neo4j.Record) *content.Version {
	return &content.Version{
		ID:            getString(record, "id", ""),
		Content:       getStringPtr(record, "content"),
		CreatedAt:     getTime(record, "created_at"),
		CommitMessage: getString(record, "commit_message", ""),
	}
}
