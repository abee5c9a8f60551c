package graphstore

import (
	"context"

	"go.uber.org/zap"

	"janus/internal/content"
	apperrors "janus/pkg/errors"
)

// ListIncludes returns the outgoing INCLUDES edges of a version, each paired
// with the child version, its owning node name and that node's tag names.
func (s *Store) ListIncludes(ctx context.Context, versionID string) ([]content.Include, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (v:ContentNodeVersion {id: $id})-[e:INCLUDES]->(c:ContentNodeVersion)
		MATCH (owner:ContentNode)-[:HAS_VERSION]->(c)
		OPTIONAL MATCH (owner)-[:HAS_TAG]->(t:Tag)
		RETURN e.operation as operation, e.key as key,
		       c.id as id, c.content as content,
		       c.created_at as created_at, c.commit_message as commit_message,
		       owner.name as node_name,
		       collect(t.name) as tags
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id": versionID,
	})
	if err != nil {
		return nil, apperrors.NewQueryFailed("ListIncludes", query, err)
	}

	var includes []content.Include
	for result.Next(ctx) {
		record := result.Record()
		includes = append(includes, content.Include{
			Edge: content.Edge{
				Operation: content.Operation(getString(record, "operation", "")),
				Key:       getString(record, "key", ""),
			},
			Child:     versionFromRecord(record),
			ChildNode: getString(record, "node_name", ""),
			ChildTags: getStringSlice(record, "tags"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewQueryFailed("ListIncludes", query, err)
	}
	return includes, nil
}

// AddInclude creates an INCLUDES edge between two versions. Edges are
// append-only; there is no update or delete.
func (s *Store) AddInclude(ctx context.Context, parentVersionID, childVersionID string, edge content.Edge) error {
	if err := edge.Validate(); err != nil {
		return apperrors.NewValidation("edge", err.Error())
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (p:ContentNodeVersion {id: $parentID})
		MATCH (c:ContentNodeVersion {id: $childID})
		CREATE (p)-[:INCLUDES {operation: $operation, key: $key}]->(c)
		RETURN c.id as id
	`

	params := map[string]interface{}{
		"parentID":  parentVersionID,
		"childID":   childVersionID,
		"operation": string(edge.Operation),
		"key":       nil,
	}
	if edge.Operation == content.OperationInsert {
		params["key"] = edge.Key
	}

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return apperrors.NewQueryFailed("AddInclude", query, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return apperrors.NewQueryFailed("AddInclude", query, err)
		}
		return apperrors.NewNotFound("version", parentVersionID+" -> "+childVersionID)
	}

	s.logger.Info("Include edge created",
		zap.String("parent", parentVersionID),
		zap.String("child", childVersionID),
		zap.String("operation", string(edge.Operation)),
	)
	return nil
}
