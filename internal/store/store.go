// Package store declares the persistence contract shared by the graph and
// file backends. The resolution engine and the HTTP layer depend only on
// these interfaces, never on a concrete backend.
package store

import (
	"context"

	"janus/internal/content"
)

// Store is the capability set any backend must provide.
type Store interface {
	// FindNodeByName returns the node with the given name, or a
	// NotFoundError when absent.
	FindNodeByName(ctx context.Context, name string) (*content.Node, error)

	// CreateNode creates a node. It fails with a ConflictError when the
	// name is taken and a ValidationError when the name is not a slug.
	CreateNode(ctx context.Context, name, description string) (*content.Node, error)

	// AddVersion appends an immutable version to a node. Fails with a
	// NotFoundError when the node does not exist.
	AddVersion(ctx context.Context, nodeID string, contentText *string, commitMessage string) (*content.Version, error)

	// GetVersion returns a version by id, or a NotFoundError.
	GetVersion(ctx context.Context, versionID string) (*content.Version, error)

	// GetLatestVersion returns the node's newest version by CreatedAt, or
	// (nil, nil) when the node has no versions.
	GetLatestVersion(ctx context.Context, nodeID string) (*content.Version, error)

	// ListNodes returns all nodes in stable order by name.
	ListNodes(ctx context.Context) ([]*content.Node, error)

	// ListIncludes returns the outgoing INCLUDES edges of a version, each
	// paired with the child version, its owning-node name and tag names.
	ListIncludes(ctx context.Context, versionID string) ([]content.Include, error)

	CreateTag(ctx context.Context, name, description string) (*content.Tag, error)
	FindTagByName(ctx context.Context, name string) (*content.Tag, error)
	ListTags(ctx context.Context) ([]*content.Tag, error)
	TagNode(ctx context.Context, nodeID, tagID string) error
}

// EdgeWriter is implemented by backends that can represent explicit include
// edges (the graph backend). The file backend composes through directory
// layout and insert definitions instead.
type EdgeWriter interface {
	AddInclude(ctx context.Context, parentVersionID, childVersionID string, edge content.Edge) error
}
