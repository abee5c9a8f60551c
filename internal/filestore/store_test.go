package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "janus/pkg/errors"
)

func TestCreateNode_WritesFileAndIndex(t *testing.T) {
	root := t.TempDir()
	s := newTestStore(t, root)

	node, err := s.CreateNode(context.Background(), "system-prompt", "base system prompt")
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)
	assert.Equal(t, "system-prompt", node.Name)

	data, err := os.ReadFile(filepath.Join(root, "content/nodes/system-prompt.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "description: base system prompt")

	found, err := s.FindNodeByName(context.Background(), "system-prompt")
	require.NoError(t, err)
	assert.Equal(t, node.ID, found.ID)
	assert.Equal(t, "base system prompt", found.Description)
}

func TestCreateNode_DuplicateNameConflicts(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	_, err := s.CreateNode(context.Background(), "dupe", "")
	require.NoError(t, err)

	_, err = s.CreateNode(context.Background(), "dupe", "again")
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateNode_RejectsBadSlug(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	for _, name := range []string{"", "Upper", "double--hyphen", "-leading", "trailing-", "has space", strings.Repeat("a", 101)} {
		_, err := s.CreateNode(context.Background(), name, "")
		assert.True(t, apperrors.IsValidation(err), "name %q should be rejected", name)
	}
}

func TestFindNodeByName_NotFound(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	_, err := s.FindNodeByName(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAddVersion_ReplacesBodyKeepsFrontmatter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/nodes/alpha.md", "---\ndescription: keep me\ntags: [pinned]\n---\nold body\n")
	s := newTestStore(t, root)

	nodeID := s.index.Nodes["alpha"].ID
	body := "new body\n"
	v, err := s.AddVersion(context.Background(), nodeID, &body, "rewrite alpha")
	require.NoError(t, err)
	assert.Equal(t, nodeID, v.ID, "file backend versions address the node itself")

	data, err := os.ReadFile(filepath.Join(root, "content/nodes/alpha.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "description: keep me")
	assert.Contains(t, string(data), "new body")
	assert.NotContains(t, string(data), "old body")

	latest, err := s.GetLatestVersion(context.Background(), nodeID)
	require.NoError(t, err)
	assert.Equal(t, "new body\n", latest.Body())
}

func TestAddVersion_UnknownNode(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	body := "x"
	_, err := s.AddVersion(context.Background(), "no-such-id", &body, "msg")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetVersion_MissingFileReportsReadFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/nodes/alpha.md", "body\n")
	s := newTestStore(t, root)
	id := s.index.Nodes["alpha"].ID

	require.NoError(t, os.Remove(filepath.Join(root, "content/nodes/alpha.md")))

	_, err := s.GetVersion(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read failed")
}

func TestGetVersion_StripsFrontmatter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/nodes/alpha.md", "---\ndescription: d\n---\nthe body\n")
	s := newTestStore(t, root)

	v, err := s.GetVersion(context.Background(), s.index.Nodes["alpha"].ID)
	require.NoError(t, err)
	assert.Equal(t, "the body\n", v.Body())
}

func TestGetVersion_ConcatenateJoinsSortedMembers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/nodes/bundle/zebra.md", "---\ndescription: z\n---\nzebra text\n")
	writeFile(t, root, "content/nodes/bundle/apple.md", "apple text\n")
	writeFile(t, root, "content/nodes/bundle/middle.md", "middle text\n")
	writeFile(t, root, "content/nodes/bundle/skip.txt", "not markdown\n")
	s := newTestStore(t, root)

	v, err := s.GetVersion(context.Background(), s.index.Nodes["bundle"].ID)
	require.NoError(t, err)
	assert.Equal(t, "apple text\n\nmiddle text\n\nzebra text", v.Body())
}

func TestGetVersion_AppliesInsertDefinitions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/nodes/alpha.md", "Rules:\n{{insert:rules}}\nand {{insert:unknown}}\n")
	writeFile(t, root, "content/inserts/inserts.yaml", `
- node: alpha
  inserts:
    - key: rules
      values:
        - be kind
        - be brief
`)
	s := newTestStore(t, root)

	v, err := s.GetVersion(context.Background(), s.index.Nodes["alpha"].ID)
	require.NoError(t, err)
	assert.Equal(t, "Rules:\nbe kind\nbe brief\nand {{insert:unknown}}\n", v.Body())
}

func TestGetVersion_MalformedInsertsIgnored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/nodes/alpha.md", "{{insert:rules}}\n")
	writeFile(t, root, "content/inserts/inserts.yaml", "{broken yaml")
	s := newTestStore(t, root)

	v, err := s.GetVersion(context.Background(), s.index.Nodes["alpha"].ID)
	require.NoError(t, err)
	assert.Equal(t, "{{insert:rules}}\n", v.Body())
}

func TestListNodes_SortedByName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/nodes/zebra.md", "z\n")
	writeFile(t, root, "content/nodes/apple.md", "a\n")
	writeFile(t, root, "content/nodes/middle.md", "m\n")
	s := newTestStore(t, root)

	nodes, err := s.ListNodes(context.Background())
	require.NoError(t, err)
	var names []string
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"apple", "middle", "zebra"}, names)
}

func TestTags_CreateFindListConflict(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	ctx := context.Background()

	created, err := s.CreateTag(ctx, "style", "voice and tone")
	require.NoError(t, err)

	found, err := s.FindTagByName(ctx, "style")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "voice and tone", found.Description)

	_, err = s.CreateTag(ctx, "style", "other")
	assert.True(t, apperrors.IsConflict(err))

	_, err = s.FindTagByName(ctx, "absent")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = s.CreateTag(ctx, "earlier", "")
	require.NoError(t, err)
	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, "earlier", tags[0].Name)
	assert.Equal(t, "style", tags[1].Name)
}

func TestTagNode_SurvivesReconciliation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/nodes/alpha.md", "---\ndescription: d\n---\nbody\n")
	s := newTestStore(t, root)
	ctx := context.Background()

	tag, err := s.CreateTag(ctx, "curated", "")
	require.NoError(t, err)
	require.NoError(t, s.TagNode(ctx, s.index.Nodes["alpha"].ID, tag.ID))
	assert.Equal(t, []string{"alpha"}, s.index.Tags["curated"].Nodes)

	// The tag was written through to the file, so reconciliation keeps it
	// instead of healing it away.
	require.NoError(t, s.Reconcile(ctx))
	assert.Equal(t, []string{"alpha"}, s.index.Tags["curated"].Nodes)

	data, err := os.ReadFile(filepath.Join(root, "content/nodes/alpha.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "curated")
	assert.Contains(t, string(data), "description: d")
	assert.Contains(t, string(data), "body")
}

func TestTagNode_UnknownIDs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/nodes/alpha.md", "body\n")
	s := newTestStore(t, root)
	ctx := context.Background()

	tag, err := s.CreateTag(ctx, "t", "")
	require.NoError(t, err)

	assert.True(t, apperrors.IsNotFound(s.TagNode(ctx, "ghost", tag.ID)))
	assert.True(t, apperrors.IsNotFound(s.TagNode(ctx, s.index.Nodes["alpha"].ID, "ghost")))
}

func TestListIncludes_AlwaysEmpty(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/nodes/alpha.md", "body\n")
	s := newTestStore(t, root)

	includes, err := s.ListIncludes(context.Background(), s.index.Nodes["alpha"].ID)
	require.NoError(t, err)
	assert.Empty(t, includes)
}
