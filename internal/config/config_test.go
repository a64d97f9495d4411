package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Owner: "alice",
		Blob: BlobConfig{
			Backend:   "fs",
			Container: "images",
			Endpoint:  "http://localhost:9000",
		},
		Search: SearchConfig{URL: "http://localhost:8080", Class: "CatalogImage"},
		Embed:  EmbedConfig{Endpoint: "http://localhost:8081", Dimensions: 512},
		Token:  TokenConfig{Secret: "test-secret"},
	}
}

func TestInitializeAndLoad(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Initialize(testConfig())
	require.NoError(t, err)
	assert.DirExists(t, cfg.Path())
	assert.DirExists(t, cfg.BlobsPath())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.Owner)
	assert.Equal(t, "images", loaded.Blob.Container)
	assert.Equal(t, "CatalogImage", loaded.Search.Class)
	assert.Equal(t, 512, loaded.Embed.Dimensions)
	assert.Equal(t, cfg.Path(), loaded.Path())
}

func TestInitializeTwiceFails(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Initialize(testConfig())
	require.NoError(t, err)
	_, err = Initialize(testConfig())
	assert.Error(t, err)
}

func TestFindRootWalksUp(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	_, err := Initialize(testConfig())
	require.NoError(t, err)

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	found, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, Dir), found)
}

func TestLoadWithoutCatalog(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load()
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Initialize(testConfig())
	require.NoError(t, err)

	cfg.Token.TTLHours = 48
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 48, loaded.Token.TTLHours)
}
