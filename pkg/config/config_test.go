package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "janus/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendFile, cfg.Backend)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_GraphBackend(t *testing.T) {
	t.Setenv("JANUS_BACKEND", BackendGraph)
	t.Setenv("NEO4J_URI", "bolt://graph:7687")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendGraph, cfg.Backend)
	assert.Equal(t, "bolt://graph:7687", cfg.Neo4jURI)
}

func TestValidate_UnknownBackend(t *testing.T) {
	t.Setenv("JANUS_BACKEND", "carrier-pigeon")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_FileBackendNeedsRoot(t *testing.T) {
	cfg := &Config{Backend: BackendFile}
	err := cfg.Validate()
	require.Error(t, err)

	var base *apperrors.BaseError
	require.ErrorAs(t, err, &base)
	assert.Equal(t, apperrors.ErrorTypeConfig, base.Type)

	cfg.ContentRoot = "/srv/janus"
	assert.NoError(t, cfg.Validate())
}
