package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"janus/internal/content"
	"janus/internal/parser"
)

// fileScan is the per-file result of the frontmatter pass.
type fileScan struct {
	name     string
	rel      string
	tags     []string
	readable bool
}

// Reconcile derives and repairs the index from the markdown tree. It is
// idempotent: an unchanged tree leaves the on-disk index byte-for-byte
// identical. Unreadable entries are logged and skipped, never fatal, so one
// bad file cannot keep the backend from starting.
func (s *FileStore) Reconcile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false

	dir := s.abs(nodesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Cannot enumerate content root", zap.String("path", dir), zap.Error(err))
		}
		return nil
	}

	var scans []*fileScan
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			if s.reconcileDirectory(filepath.Join(nodesDir, name)) {
				changed = true
			}
			continue
		}
		if !strings.HasSuffix(name, mdExt) {
			continue
		}
		nodeName := strings.TrimSuffix(name, mdExt)
		if err := content.ValidateSlug(nodeName); err != nil {
			s.logger.Warn("Skipping non-slug file name", zap.String("file", name))
			continue
		}

		rel := filepath.Join(nodesDir, name)
		if existing, ok := s.index.Nodes[nodeName]; ok {
			scans = append(scans, &fileScan{name: nodeName, rel: existing.Path})
			continue
		}

		// Newly discovered file: a fresh identity that later passes
		// will never overwrite.
		s.index.Nodes[nodeName] = &nodeEntry{
			ID:   uuid.NewString(),
			Path: rel,
			Type: content.NodeTypeContent,
		}
		changed = true
		scans = append(scans, &fileScan{name: nodeName, rel: rel})
		s.logger.Info("Indexed content node", zap.String("name", nodeName), zap.String("path", rel))
	}

	s.scanFrontmatter(ctx, scans)
	if s.healTags(scans) {
		changed = true
	}

	if changed {
		return saveIndex(s.root, s.index)
	}
	return nil
}

// reconcileDirectory registers an unindexed directory as a concatenate node
// when it holds at least one direct markdown file, then recurses: nested
// subdirectories index as their own nodes, never flattened into the parent.
// Reports whether the index changed.
func (s *FileStore) reconcileDirectory(rel string) bool {
	name := filepath.Base(rel)
	if err := content.ValidateSlug(name); err != nil {
		s.logger.Warn("Skipping non-slug directory", zap.String("dir", rel))
		return false
	}

	entries, err := os.ReadDir(s.abs(rel))
	if err != nil {
		s.logger.Warn("Cannot enumerate directory", zap.String("path", rel), zap.Error(err))
		return false
	}

	hasMarkdown := false
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), mdExt) {
			hasMarkdown = true
			break
		}
	}

	changed := false
	if _, ok := s.index.Nodes[name]; !ok && hasMarkdown {
		s.index.Nodes[name] = &nodeEntry{
			ID:   uuid.NewString(),
			Path: rel,
			Type: content.NodeTypeConcatenate,
		}
		changed = true
		s.logger.Info("Indexed concatenate node", zap.String("name", name), zap.String("path", rel))
	}

	for _, entry := range entries {
		if entry.IsDir() {
			if s.reconcileDirectory(filepath.Join(rel, entry.Name())) {
				changed = true
			}
		}
	}
	return changed
}

// scanFrontmatter reads and parses each content file concurrently. Merge
// order stays deterministic because the results land back in the caller's
// slice and are consumed sorted.
func (s *FileStore) scanFrontmatter(ctx context.Context, scans []*fileScan) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, sc := range scans {
		sc := sc
		g.Go(func() error {
			data, err := os.ReadFile(s.abs(sc.rel))
			if err != nil {
				s.logger.Warn("Skipping unreadable node file", zap.String("path", sc.rel), zap.Error(err))
				return nil
			}
			sc.tags = s.validTags(sc.rel, parser.Parse(data).Tags)
			sc.readable = true
			return nil
		})
	}
	_ = g.Wait()
}

// validTags filters frontmatter tag names down to valid slugs. Hand-edited
// files can carry anything; a tag CreateTag would reject must not sneak into
// the index through healing.
func (s *FileStore) validTags(rel string, tags []string) []string {
	valid := tags[:0]
	for _, tag := range tags {
		if err := content.ValidateSlug(tag); err != nil {
			s.logger.Warn("Skipping non-slug frontmatter tag",
				zap.String("path", rel),
				zap.String("tag", tag),
			)
			continue
		}
		valid = append(valid, tag)
	}
	return valid
}

// healTags re-derives tag membership from each readable file's current
// frontmatter: listed tags gain the node (tag entries are created on first
// sight), tags no longer listed lose it. Existing tag ids and descriptions
// are never touched. Reports whether anything changed.
func (s *FileStore) healTags(scans []*fileScan) bool {
	changed := false

	sort.Slice(scans, func(i, j int) bool { return scans[i].name < scans[j].name })

	desired := make(map[string]map[string]bool, len(scans))
	for _, sc := range scans {
		if !sc.readable {
			continue
		}
		wanted := make(map[string]bool, len(sc.tags))
		for _, tag := range sc.tags {
			wanted[tag] = true
		}
		desired[sc.name] = wanted

		for _, tag := range sc.tags {
			entry, ok := s.index.Tags[tag]
			if !ok {
				entry = &tagEntry{ID: uuid.NewString(), Description: "", Nodes: []string{}}
				s.index.Tags[tag] = entry
				changed = true
				s.logger.Info("Created tag from frontmatter", zap.String("tag", tag))
			}
			if entry.addMember(sc.name) {
				changed = true
			}
		}
	}

	for tagName, entry := range s.index.Tags {
		members := append([]string(nil), entry.Nodes...)
		for _, member := range members {
			nodeEnt, exists := s.index.Nodes[member]
			if !exists {
				// Tag lists a node the index does not know; drop
				// the dangling reference.
				if entry.removeMember(member) {
					changed = true
				}
				s.logger.Warn("Dropped dangling tag member",
					zap.String("tag", tagName),
					zap.String("node", member),
				)
				continue
			}
			if wanted, scanned := desired[member]; scanned && nodeEnt.Type == content.NodeTypeContent && !wanted[tagName] {
				if entry.removeMember(member) {
					changed = true
				}
			}
		}
	}

	return changed
}
