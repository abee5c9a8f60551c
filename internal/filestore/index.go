package filestore

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"janus/internal/content"
	apperrors "janus/pkg/errors"
)

const (
	indexDir  = ".janus"
	indexFile = "indexes.json"
)

// indexDoc is the single derived document the file backend persists. It is
// read, modified in memory, and written back whole; concurrent writers from
// other processes can clobber each other (single-writer assumption).
type indexDoc struct {
	Nodes map[string]*nodeEntry `json:"nodes"`
	Tags  map[string]*tagEntry  `json:"tags"`
}

type nodeEntry struct {
	ID   string           `json:"id"`
	Path string           `json:"path"`
	Type content.NodeType `json:"type"`
}

type tagEntry struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Nodes       []string `json:"nodes"`
}

func newIndexDoc() *indexDoc {
	return &indexDoc{
		Nodes: make(map[string]*nodeEntry),
		Tags:  make(map[string]*tagEntry),
	}
}

// nodeNameByID does a reverse lookup over the nodes map.
func (d *indexDoc) nodeNameByID(id string) (string, *nodeEntry, bool) {
	for name, entry := range d.Nodes {
		if entry.ID == id {
			return name, entry, true
		}
	}
	return "", nil, false
}

func (d *indexDoc) tagNameByID(id string) (string, *tagEntry, bool) {
	for name, entry := range d.Tags {
		if entry.ID == id {
			return name, entry, true
		}
	}
	return "", nil, false
}

// addMember inserts the node name into the tag's membership list, keeping it
// sorted and deduplicated. Reports whether the list changed.
func (t *tagEntry) addMember(name string) bool {
	for _, n := range t.Nodes {
		if n == name {
			return false
		}
	}
	t.Nodes = append(t.Nodes, name)
	sort.Strings(t.Nodes)
	return true
}

// removeMember drops the node name from the membership list. Reports whether
// the list changed.
func (t *tagEntry) removeMember(name string) bool {
	for i, n := range t.Nodes {
		if n == name {
			t.Nodes = append(t.Nodes[:i], t.Nodes[i+1:]...)
			return true
		}
	}
	return false
}

// loadIndex reads the index document from disk. A missing or corrupt file is
// treated as "no index", never a fatal error: reconciliation rebuilds it.
func loadIndex(root string, log *zap.Logger) *indexDoc {
	path := filepath.Join(root, indexDir, indexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("Failed to read index, starting empty", zap.String("path", path), zap.Error(err))
		}
		return newIndexDoc()
	}

	doc := newIndexDoc()
	if err := json.Unmarshal(data, doc); err != nil {
		log.Warn("Corrupt index, starting empty", zap.String("path", path), zap.Error(err))
		return newIndexDoc()
	}
	if doc.Nodes == nil {
		doc.Nodes = make(map[string]*nodeEntry)
	}
	if doc.Tags == nil {
		doc.Tags = make(map[string]*tagEntry)
	}
	return doc
}

// saveIndex writes the document atomically (write to temp file, rename over
// the old one). Serialization is deterministic: JSON object keys marshal
// sorted and membership lists are kept sorted, so an unchanged document is
// byte-for-byte identical.
func saveIndex(root string, doc *indexDoc) error {
	dir := filepath.Join(root, indexDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewIndexWriteFailed("saveIndex", dir, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.NewIndexWriteFailed("saveIndex", filepath.Join(dir, indexFile), err)
	}
	data = append(data, '\n')

	path := filepath.Join(dir, indexFile)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return apperrors.NewIndexWriteFailed("saveIndex", path, err)
	}
	return nil
}
