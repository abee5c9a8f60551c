// Package filestore implements the persistence contract over a directory of
// hand-editable markdown files plus a derived JSON index. The index is
// rebuilt and repaired by reconciliation; the markdown files stay the source
// of truth for content, descriptions and tag membership.
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"janus/internal/content"
	"janus/internal/parser"
	"janus/internal/store"
	apperrors "janus/pkg/errors"
	"janus/pkg/logger"
)

const (
	nodesDir    = "content/nodes"
	insertsFile = "content/inserts/inserts.yaml"
	mdExt       = ".md"
)

// FileStore is the file-backed implementation of store.Store. Versioning is
// latest-only: a node's addressable version id equals its node id and the
// version content is materialized from the file's current body. Commit
// messages are logged; git plumbing sits outside this package.
type FileStore struct {
	root   string
	index  *indexDoc
	mu     sync.Mutex
	logger *zap.Logger
}

var _ store.Store = (*FileStore)(nil)

// New opens the store rooted at the given directory and eagerly reconciles
// the index against the markdown tree.
func New(root string) (*FileStore, error) {
	log := logger.Get()
	s := &FileStore{
		root:   root,
		index:  loadIndex(root, log),
		logger: log,
	}
	if err := s.Reconcile(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) abs(rel string) string {
	return filepath.Join(s.root, rel)
}

// FindNodeByName returns the indexed node, with its description re-read from
// the file's frontmatter.
func (s *FileStore) FindNodeByName(ctx context.Context, name string) (*content.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.index.Nodes[name]
	if !ok {
		return nil, apperrors.NewNotFound("node", name)
	}
	return s.nodeFromEntry(name, entry), nil
}

func (s *FileStore) nodeFromEntry(name string, entry *nodeEntry) *content.Node {
	node := &content.Node{ID: entry.ID, Name: name}
	if entry.Type == content.NodeTypeContent {
		if data, err := os.ReadFile(s.abs(entry.Path)); err == nil {
			node.Description = parser.Parse(data).Description
		}
	}
	return node
}

// CreateNode writes a fresh markdown file and registers it in the index.
func (s *FileStore) CreateNode(ctx context.Context, name, description string) (*content.Node, error) {
	if err := content.ValidateSlug(name); err != nil {
		return nil, apperrors.NewValidation("name", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index.Nodes[name]; ok {
		return nil, apperrors.NewConflict("node", name)
	}

	rel := filepath.Join(nodesDir, name+mdExt)
	path := s.abs(rel)
	if _, err := os.Stat(path); err == nil {
		// File exists but is not indexed yet; creating over it would
		// destroy an operator edit.
		return nil, apperrors.NewConflict("node", name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.NewWriteFailed("CreateNode", path, err)
	}

	var buf bytes.Buffer
	if description != "" {
		fmt.Fprintf(&buf, "---\ndescription: %s\n---\n", description)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return nil, apperrors.NewWriteFailed("CreateNode", path, err)
	}

	entry := &nodeEntry{ID: uuid.NewString(), Path: rel, Type: content.NodeTypeContent}
	s.index.Nodes[name] = entry
	if err := saveIndex(s.root, s.index); err != nil {
		return nil, err
	}

	s.logger.Info("Node created",
		zap.String("name", name),
		zap.String("id", entry.ID),
	)
	return &content.Node{ID: entry.ID, Name: name, Description: description}, nil
}

// AddVersion replaces the node file's body, preserving its frontmatter. The
// commit message is logged only; the file body is the single addressable
// version.
func (s *FileStore) AddVersion(ctx context.Context, nodeID string, contentText *string, commitMessage string) (*content.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, entry, ok := s.index.nodeNameByID(nodeID)
	if !ok {
		return nil, apperrors.NewNotFound("node", nodeID)
	}
	if entry.Type == content.NodeTypeConcatenate {
		return nil, apperrors.NewUnsupported("AddVersion", "concatenate nodes derive content from their directory")
	}

	body := ""
	if contentText != nil {
		body = *contentText
	}

	path := s.abs(entry.Path)
	front := ""
	if data, err := os.ReadFile(path); err == nil {
		front = frontmatterBlock(data)
	}
	if err := atomic.WriteFile(path, strings.NewReader(front+body)); err != nil {
		return nil, apperrors.NewWriteFailed("AddVersion", path, err)
	}

	s.logger.Info("Version written",
		zap.String("node", name),
		zap.String("commit_message", commitMessage),
	)
	return &content.Version{
		ID:            entry.ID,
		Content:       contentText,
		CreatedAt:     time.Now(),
		CommitMessage: commitMessage,
	}, nil
}

// GetVersion materializes the version addressed by id. In the file backend
// version ids equal node ids.
func (s *FileStore) GetVersion(ctx context.Context, versionID string) (*content.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, entry, ok := s.index.nodeNameByID(versionID)
	if !ok {
		return nil, apperrors.NewNotFound("version", versionID)
	}
	return s.materialize(name, entry)
}

// GetLatestVersion returns the node's current file body as its only version.
func (s *FileStore) GetLatestVersion(ctx context.Context, nodeID string) (*content.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, entry, ok := s.index.nodeNameByID(nodeID)
	if !ok {
		return nil, apperrors.NewNotFound("node", nodeID)
	}
	return s.materialize(name, entry)
}

// materialize builds a Version from the node's current on-disk state:
// frontmatter stripped, directory nodes joined on demand, insert definitions
// applied.
func (s *FileStore) materialize(name string, entry *nodeEntry) (*content.Version, error) {
	var body string
	var modified time.Time

	switch entry.Type {
	case content.NodeTypeConcatenate:
		joined, mtime, err := s.concatenateBody(entry.Path)
		if err != nil {
			return nil, err
		}
		body, modified = joined, mtime
	default:
		path := s.abs(entry.Path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.NewReadFailed("GetVersion", path, err)
		}
		body = parser.Body(data)
		if info, err := os.Stat(path); err == nil {
			modified = info.ModTime()
		}
	}

	body = s.applyInserts(name, body)
	return &content.Version{
		ID:        entry.ID,
		Content:   &body,
		CreatedAt: modified,
	}, nil
}

// concatenateBody joins the direct *.md files of a directory node, sorted by
// filename, each stripped of frontmatter, separated by a blank line. Nested
// subdirectories are never flattened in; they index as their own nodes.
func (s *FileStore) concatenateBody(rel string) (string, time.Time, error) {
	dir := s.abs(rel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", time.Time{}, apperrors.NewReadFailed("concatenate", dir, err)
	}

	var modified time.Time
	var parts []string
	for _, entry := range entries { // ReadDir returns sorted filenames
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), mdExt) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("Skipping unreadable member", zap.String("path", path), zap.Error(err))
			continue
		}
		if info, err := entry.Info(); err == nil && info.ModTime().After(modified) {
			modified = info.ModTime()
		}
		if body := strings.TrimSpace(parser.Body(data)); body != "" {
			parts = append(parts, body)
		}
	}
	return strings.Join(parts, "\n\n"), modified, nil
}

// ListNodes returns all indexed nodes ordered by name.
func (s *FileStore) ListNodes(ctx context.Context) ([]*content.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.index.Nodes))
	for name := range s.index.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	nodes := make([]*content.Node, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, s.nodeFromEntry(name, s.index.Nodes[name]))
	}
	return nodes, nil
}

// ListIncludes always returns an empty list: the file backend has no
// explicit edges. Composition happens through concatenate directories and
// insert definitions, both folded into materialized content.
func (s *FileStore) ListIncludes(ctx context.Context, versionID string) ([]content.Include, error) {
	return nil, nil
}

// CreateTag registers an explicit tag in the index.
func (s *FileStore) CreateTag(ctx context.Context, name, description string) (*content.Tag, error) {
	if err := content.ValidateSlug(name); err != nil {
		return nil, apperrors.NewValidation("name", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index.Tags[name]; ok {
		return nil, apperrors.NewConflict("tag", name)
	}

	entry := &tagEntry{ID: uuid.NewString(), Description: description, Nodes: []string{}}
	s.index.Tags[name] = entry
	if err := saveIndex(s.root, s.index); err != nil {
		return nil, err
	}
	return &content.Tag{ID: entry.ID, Name: name, Description: description}, nil
}

func (s *FileStore) FindTagByName(ctx context.Context, name string) (*content.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.index.Tags[name]
	if !ok {
		return nil, apperrors.NewNotFound("tag", name)
	}
	return &content.Tag{ID: entry.ID, Name: name, Description: entry.Description}, nil
}

func (s *FileStore) ListTags(ctx context.Context) ([]*content.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.index.Tags))
	for name := range s.index.Tags {
		names = append(names, name)
	}
	sort.Strings(names)

	tags := make([]*content.Tag, 0, len(names))
	for _, name := range names {
		entry := s.index.Tags[name]
		tags = append(tags, &content.Tag{ID: entry.ID, Name: name, Description: entry.Description})
	}
	return tags, nil
}

// TagNode adds the node to the tag's membership list. For content nodes the
// tag is also written into the file's frontmatter, otherwise the next
// reconciliation pass would heal the membership right back out.
func (s *FileStore) TagNode(ctx context.Context, nodeID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodeName, nodeEnt, ok := s.index.nodeNameByID(nodeID)
	if !ok {
		return apperrors.NewNotFound("node", nodeID)
	}
	tagName, tagEnt, ok := s.index.tagNameByID(tagID)
	if !ok {
		return apperrors.NewNotFound("tag", tagID)
	}

	changed := tagEnt.addMember(nodeName)

	if nodeEnt.Type == content.NodeTypeContent {
		if err := s.addFrontmatterTag(nodeEnt.Path, tagName); err != nil {
			return err
		}
	}

	if changed {
		if err := saveIndex(s.root, s.index); err != nil {
			return err
		}
	}
	return nil
}

// addFrontmatterTag inserts the tag into the file's frontmatter tags list,
// preserving any unrecognized frontmatter keys.
func (s *FileStore) addFrontmatterTag(rel, tag string) error {
	path := s.abs(rel)
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewReadFailed("TagNode", path, err)
	}

	meta, body := rawFrontmatter(data)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	tags := existingTags(meta)
	for _, t := range tags {
		if t == tag {
			return nil
		}
	}
	meta["tags"] = append(tags, tag)

	encoded, err := yaml.Marshal(meta)
	if err != nil {
		return apperrors.NewWriteFailed("TagNode", path, err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(encoded)
	buf.WriteString("---\n")
	buf.WriteString(body)
	if err := atomic.WriteFile(path, &buf); err != nil {
		return apperrors.NewWriteFailed("TagNode", path, err)
	}
	return nil
}

func existingTags(meta map[string]interface{}) []string {
	raw, ok := meta["tags"].([]interface{})
	if !ok {
		return nil
	}
	var tags []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

// rawFrontmatter decodes the file's frontmatter into a generic map and
// returns it with the remaining body. Missing or malformed frontmatter
// yields a nil map and the full input as body.
func rawFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}
	var meta map[string]interface{}
	if err := yaml.Unmarshal(rest[:idx], &meta); err != nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return meta, body
}

// frontmatterBlock returns the raw frontmatter fence (including both ---
// lines) or "" when the file has none.
func frontmatterBlock(data []byte) string {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return ""
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return ""
	}
	end := idx + 1 + len(delim)
	// include the trailing newline of the closing fence when present
	if end < len(rest) && rest[end] == '\n' {
		end++
	}
	return delim + string(rest[:end])
}
