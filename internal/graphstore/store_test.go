package graphstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"janus/internal/content"
	apperrors "janus/pkg/errors"
)

// These tests require a running Neo4j instance (bolt://localhost:7687,
// neo4j/password). Run with -short to skip.

func TestStore_NodeLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store, cleanup := newTestStore(t, ctx)
	defer cleanup()

	name := testName("lifecycle")
	node, err := store.CreateNode(ctx, name, "a test node")
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)

	// Duplicate names conflict instead of overwriting.
	_, err = store.CreateNode(ctx, name, "again")
	assert.True(t, apperrors.IsConflict(err))

	found, err := store.FindNodeByName(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, node.ID, found.ID)
	assert.Equal(t, "a test node", found.Description)

	// No versions yet.
	latest, err := store.GetLatestVersion(ctx, node.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	body := "version one"
	v1, err := store.AddVersion(ctx, node.ID, &body, "first")
	require.NoError(t, err)

	body2 := "version two"
	time.Sleep(10 * time.Millisecond)
	v2, err := store.AddVersion(ctx, node.ID, &body2, "second")
	require.NoError(t, err)

	latest, err = store.GetLatestVersion(ctx, node.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, v2.ID, latest.ID)
	assert.Equal(t, "version two", latest.Body())

	got, err := store.GetVersion(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, "version one", got.Body())
	assert.Equal(t, "first", got.CommitMessage)
}

func TestStore_IncludesAndResolutionInputs(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store, cleanup := newTestStore(t, ctx)
	defer cleanup()

	parent, err := store.CreateNode(ctx, testName("parent"), "")
	require.NoError(t, err)
	child, err := store.CreateNode(ctx, testName("child"), "")
	require.NoError(t, err)

	parentBody := "Hello {{name}}"
	pv, err := store.AddVersion(ctx, parent.ID, &parentBody, "parent v1")
	require.NoError(t, err)
	childBody := "Alice"
	cv, err := store.AddVersion(ctx, child.ID, &childBody, "child v1")
	require.NoError(t, err)

	err = store.AddInclude(ctx, pv.ID, cv.ID, content.Edge{
		Operation: content.OperationInsert,
		Key:       "name",
	})
	require.NoError(t, err)

	includes, err := store.ListIncludes(ctx, pv.ID)
	require.NoError(t, err)
	require.Len(t, includes, 1)
	assert.Equal(t, content.OperationInsert, includes[0].Edge.Operation)
	assert.Equal(t, "name", includes[0].Edge.Key)
	assert.Equal(t, cv.ID, includes[0].Child.ID)
	assert.Equal(t, child.Name, includes[0].ChildNode)
}

func TestStore_AddInclude_RejectsBadEdges(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store, cleanup := newTestStore(t, ctx)
	defer cleanup()

	err := store.AddInclude(ctx, "any", "any", content.Edge{Operation: content.OperationInsert})
	assert.True(t, apperrors.IsValidation(err), "insert edge without key must be rejected")

	err = store.AddInclude(ctx, "any", "any", content.Edge{Operation: "splice"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestStore_Tags(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store, cleanup := newTestStore(t, ctx)
	defer cleanup()

	node, err := store.CreateNode(ctx, testName("tagged"), "")
	require.NoError(t, err)

	tagName := testName("tag")
	tag, err := store.CreateTag(ctx, tagName, "test tag")
	require.NoError(t, err)

	_, err = store.CreateTag(ctx, tagName, "again")
	assert.True(t, apperrors.IsConflict(err))

	found, err := store.FindTagByName(ctx, tagName)
	require.NoError(t, err)
	assert.Equal(t, tag.ID, found.ID)

	require.NoError(t, store.TagNode(ctx, node.ID, tag.ID))
	// Tagging twice is a no-op, not an error.
	require.NoError(t, store.TagNode(ctx, node.ID, tag.ID))

	assert.True(t, apperrors.IsNotFound(store.TagNode(ctx, "ghost", tag.ID)))
}

func TestStore_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store, cleanup := newTestStore(t, ctx)
	defer cleanup()

	_, err := store.FindNodeByName(ctx, "no-such-node-ever")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = store.GetVersion(ctx, "no-such-version")
	assert.True(t, apperrors.IsNotFound(err))

	body := "x"
	_, err = store.AddVersion(ctx, "no-such-node", &body, "msg")
	assert.True(t, apperrors.IsNotFound(err))
}

func testName(prefix string) string {
	return fmt.Sprintf("test-%s-%d", prefix, time.Now().UnixNano())
}

// newTestStore connects to the local Neo4j and returns a store plus a
// cleanup that removes everything the tests created.
func newTestStore(t *testing.T, ctx context.Context) (*Store, func()) {
	t.Helper()

	driver, err := neo4j.NewDriverWithContext("bolt://localhost:7687", neo4j.BasicAuth("neo4j", "password", ""))
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		t.Skipf("Neo4j not reachable: %v", err)
	}

	cleanup := func() {
		session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)
		_, _ = session.Run(ctx, `
			MATCH (n)
			WHERE n.name STARTS WITH 'test-'
			OPTIONAL MATCH (n)-[:HAS_VERSION]->(v)
			DETACH DELETE n, v
		`, map[string]interface{}{})
		_ = driver.Close(ctx)
	}

	return New(driver), cleanup
}
