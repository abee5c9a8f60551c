// Package content defines the shared data model both persistence backends
// operate on: nodes, immutable versions, typed include edges and tags.
package content

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Operation is the kind of an include edge.
type Operation string

const (
	// OperationInsert substitutes the child's resolved text into a
	// {{key}} placeholder in the parent's content.
	OperationInsert Operation = "insert"
	// OperationConcatenate appends the child's resolved text after the
	// parent's own content, ordered by owning node name.
	OperationConcatenate Operation = "concatenate"
)

// NodeType distinguishes the two file-backed node shapes.
type NodeType string

const (
	NodeTypeContent     NodeType = "content"
	NodeTypeConcatenate NodeType = "concatenate"
)

var (
	slugRe      = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	insertKeyRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
)

// Node is a named, versioned prompt fragment. Identity is immutable once
// assigned; only the description changes (via reconciliation from file
// metadata).
type Node struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Version is an immutable snapshot of a node's content. Versions are only
// appended; the latest version is the one with the greatest CreatedAt.
type Version struct {
	ID            string    `json:"id"`
	Content       *string   `json:"content,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CommitMessage string    `json:"commit_message"`
}

// Body returns the version content, treating missing content as empty.
func (v *Version) Body() string {
	if v == nil || v.Content == nil {
		return ""
	}
	return *v.Content
}

// Edge is a directed INCLUDES relationship from a parent version to a child
// version. Key is set only for insert edges. Edges are append-only.
type Edge struct {
	Operation Operation `json:"operation"`
	Key       string    `json:"key,omitempty"`
}

// Tag groups nodes. Tags may be created explicitly or derived from a node
// file's frontmatter; both reconcile to the same observable set.
type Tag struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Include pairs an edge with the child it points at, plus the child's
// owning-node name (concatenate ordering) and tag names (include-tag
// filtering).
type Include struct {
	Edge      Edge
	Child     *Version
	ChildNode string
	ChildTags []string
}

// ValidateSlug checks a node or tag name: lowercase, hyphen-delimited,
// 1-100 chars, no leading/trailing/double hyphen.
func ValidateSlug(name string) error {
	return validation.Validate(name,
		validation.Required,
		validation.Length(1, 100),
		validation.Match(slugRe),
	)
}

// ValidateInsertKey checks an insert-edge key against the placeholder
// grammar.
func ValidateInsertKey(key string) error {
	return validation.Validate(key,
		validation.Required,
		validation.Match(insertKeyRe),
	)
}

// Validate checks operation and key shape for a new include edge.
func (e Edge) Validate() error {
	switch e.Operation {
	case OperationInsert:
		return ValidateInsertKey(e.Key)
	case OperationConcatenate:
		return nil
	default:
		return validation.NewError("validation_operation", "operation must be insert or concatenate")
	}
}
