package filestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"janus/internal/resolver"
)

// The file backend has no include edges; resolution over it renders the
// materialized body (directory joins and insert definitions already folded
// in) and still honors exclusion.
func TestResolve_OverFileStore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/nodes/prompt.md", "---\ndescription: d\n---\nYou are {{role}}.\n{{insert:rules}}\n")
	writeFile(t, root, "content/inserts/inserts.yaml", `
- node: prompt
  inserts:
    - key: rules
      values: [no lists, short answers]
`)
	s := newTestStore(t, root)
	engine := resolver.New(s)

	versionID := s.index.Nodes["prompt"].ID
	out, err := engine.Resolve(context.Background(), versionID, map[string]string{"role": "a librarian"}, resolver.Options{})
	require.NoError(t, err)
	assert.Equal(t, "You are a librarian.\nno lists\nshort answers\n", out)

	out, err = engine.Resolve(context.Background(), versionID, nil, resolver.Options{
		ExcludeVersionIDs: []string{versionID},
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}
