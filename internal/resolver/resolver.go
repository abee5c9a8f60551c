// Package resolver implements the composition-resolution algorithm: walking
// the INCLUDES graph from a version id and rendering the final prompt text.
package resolver

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"janus/internal/content"
	"janus/pkg/errors"
	"janus/pkg/logger"
)

// Source is the slice of the persistence contract resolution needs. Both
// backends satisfy it through store.Store.
type Source interface {
	GetVersion(ctx context.Context, versionID string) (*content.Version, error)
	ListIncludes(ctx context.Context, versionID string) ([]content.Include, error)
}

// Options tune a single resolution call.
type Options struct {
	// ExcludeVersionIDs prunes subtrees: an excluded version resolves to
	// the empty string without being fetched.
	ExcludeVersionIDs []string
	// IncludeTags, when non-empty, keeps only concatenate children whose
	// owning node carries at least one of the listed tags. Insert edges
	// are unaffected.
	IncludeTags []string
}

// Engine renders version ids into text. It is read-only and safe for
// concurrent use across version ids.
type Engine struct {
	source Source
	logger *zap.Logger
}

// New creates a resolution engine over the given source.
func New(source Source) *Engine {
	return &Engine{
		source: source,
		logger: logger.Get(),
	}
}

var placeholderRe = regexp.MustCompile(`\{\{([a-zA-Z][a-zA-Z0-9_]*)\}\}`)

// Resolve renders the version with the given id. insertCtx seeds the
// {{key}} substitution context; the caller's map is never mutated. Same
// graph state yields the same output. Each version reachable along the
// recursion is fetched once per path (no memoization).
func (e *Engine) Resolve(ctx context.Context, versionID string, insertCtx map[string]string, opts Options) (string, error) {
	e.logger.Debug("Resolving version",
		zap.String("version_id", versionID),
		zap.Int("exclusions", len(opts.ExcludeVersionIDs)),
	)
	visiting := make(map[string]bool)
	return e.resolve(ctx, versionID, insertCtx, opts, visiting)
}

func (e *Engine) resolve(ctx context.Context, versionID string, insertCtx map[string]string, opts Options, visiting map[string]bool) (string, error) {
	// Exclusion is a pruning operation: excluded subtrees resolve empty
	// before any fetch happens.
	for _, excluded := range opts.ExcludeVersionIDs {
		if versionID == excluded {
			return "", nil
		}
	}

	if visiting[versionID] {
		return "", errors.NewCycle(versionID)
	}
	visiting[versionID] = true
	defer delete(visiting, versionID)

	version, err := e.source.GetVersion(ctx, versionID)
	if err != nil {
		return "", err
	}

	includes, err := e.source.ListIncludes(ctx, versionID)
	if err != nil {
		return "", err
	}

	var inserts, concats []content.Include
	for _, inc := range includes {
		switch inc.Edge.Operation {
		case content.OperationInsert:
			inserts = append(inserts, inc)
		case content.OperationConcatenate:
			concats = append(concats, inc)
		}
	}

	// Insert pass: sequential, left-to-right in store order. Each child
	// resolves with the context accumulated so far, so later inserts can
	// reference earlier ones but not the other way around. The caller's
	// map stays untouched.
	resolved := make(map[string]string, len(insertCtx)+len(inserts))
	for k, v := range insertCtx {
		resolved[k] = v
	}
	for _, inc := range inserts {
		value, err := e.resolve(ctx, inc.Child.ID, resolved, opts, visiting)
		if err != nil {
			return "", err
		}
		resolved[inc.Edge.Key] = value
	}

	own := substitute(version.Body(), resolved)

	// Concatenate pass: deterministic order by owning node name, version
	// id as tiebreak.
	concats = filterByTags(concats, opts.IncludeTags)
	sort.SliceStable(concats, func(i, j int) bool {
		if concats[i].ChildNode != concats[j].ChildNode {
			return concats[i].ChildNode < concats[j].ChildNode
		}
		return concats[i].Child.ID < concats[j].Child.ID
	})

	var parts []string
	for _, inc := range concats {
		text, err := e.resolve(ctx, inc.Child.ID, resolved, opts, visiting)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	concatenated := strings.Join(parts, "\n")

	switch {
	case own != "" && concatenated != "":
		return own + "\n" + concatenated, nil
	case own != "":
		return own, nil
	default:
		return concatenated, nil
	}
}

// substitute replaces every {{key}} placeholder present in text from the
// insert context. Unmatched placeholders are left untouched.
func substitute(text string, insertCtx map[string]string) string {
	if text == "" || len(insertCtx) == 0 {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		key := match[2 : len(match)-2]
		if value, ok := insertCtx[key]; ok {
			return value
		}
		return match
	})
}

func filterByTags(includes []content.Include, tags []string) []content.Include {
	if len(tags) == 0 {
		return includes
	}
	wanted := make(map[string]bool, len(tags))
	for _, t := range tags {
		wanted[t] = true
	}
	var kept []content.Include
	for _, inc := range includes {
		for _, t := range inc.ChildTags {
			if wanted[t] {
				kept = append(kept, inc)
				break
			}
		}
	}
	return kept
}
