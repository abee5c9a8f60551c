package graphstore

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"janus/internal/content"
	apperrors "janus/pkg/errors"
)

// CreateTag creates a tag, failing when the name already exists.
func (s *Store) CreateTag(ctx context.Context, name, description string) (*content.Tag, error) {
	if err := content.ValidateSlug(name); err != nil {
		return nil, apperrors.NewValidation("name", err.Error())
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		OPTIONAL MATCH (existing:Tag {name: $name})
		WITH existing
		WHERE existing IS NULL
		CREATE (t:Tag {id: $id, name: $name, description: $description})
		RETURN t.id as id
	`

	id := uuid.NewString()
	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":          id,
		"name":        name,
		"description": description,
	})
	if err != nil {
		return nil, apperrors.NewQueryFailed("CreateTag", query, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, apperrors.NewQueryFailed("CreateTag", query, err)
		}
		return nil, apperrors.NewConflict("tag", name)
	}

	s.logger.Info("Tag created", zap.String("name", name), zap.String("id", id))
	return &content.Tag{ID: id, Name: name, Description: description}, nil
}

// FindTagByName returns the tag with the given name.
func (s *Store) FindTagByName(ctx context.Context, name string) (*content.Tag, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (t:Tag {name: $name})
		RETURN t.id as id, t.name as name, t.description as description
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"name": name,
	})
	if err != nil {
		return nil, apperrors.NewQueryFailed("FindTagByName", query, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, apperrors.NewQueryFailed("FindTagByName", query, err)
		}
		return nil, apperrors.NewNotFound("tag", name)
	}

	record := result.Record()
	return &content.Tag{
		ID:          getString(record, "id", ""),
		Name:        getString(record, "name", ""),
		Description: getString(record, "description", ""),
	}, nil
}

// ListTags returns all tags in stable order by name.
func (s *Store) ListTags(ctx context.Context) ([]*content.Tag, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (t:Tag)
		RETURN t.id as id, t.name as name, t.description as description
		ORDER BY t.name
	`

	result, err := session.Run(ctx, query, map[string]interface{}{})
	if err != nil {
		return nil, apperrors.NewQueryFailed("ListTags", query, err)
	}

	var tags []*content.Tag
	for result.Next(ctx) {
		record := result.Record()
		tags = append(tags, &content.Tag{
			ID:          getString(record, "id", ""),
			Name:        getString(record, "name", ""),
			Description: getString(record, "description", ""),
		})
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewQueryFailed("ListTags", query, err)
	}
	return tags, nil
}

// TagNode attaches a tag to a node. Repeated calls are no-ops (MERGE).
func (s *Store) TagNode(ctx context.Context, nodeID, tagID string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (n:ContentNode {id: $nodeID})
		MATCH (t:Tag {id: $tagID})
		MERGE (n)-[:HAS_TAG]->(t)
		RETURN t.id as id
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"nodeID": nodeID,
		"tagID":  tagID,
	})
	if err != nil {
		return apperrors.NewQueryFailed("TagNode", query, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return apperrors.NewQueryFailed("TagNode", query, err)
		}
		return apperrors.NewNotFound("node or tag", nodeID+"/"+tagID)
	}
	return nil
}
