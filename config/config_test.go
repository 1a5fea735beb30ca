package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "993", cfg.IMAPPort)
	assert.Equal(t, "INBOX", cfg.IMAPFolder)
	assert.Equal(t, "email-agent.db", cfg.DBPath)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, 1000, cfg.ChunkMaxLen)
	assert.Equal(t, 100, cfg.ChunkOverlap)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IMAP_HOST", "imap.example.com")
	t.Setenv("IMAP_USER", "alice@example.com")
	t.Setenv("IMAP_PASSWORD", "secret")
	t.Setenv("IMAP_FOLDER", "Archive")
	t.Setenv("CHUNK_MAX_LEN", "500")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "imap.example.com", cfg.IMAPHost)
	assert.Equal(t, "Archive", cfg.IMAPFolder)
	assert.Equal(t, 500, cfg.ChunkMaxLen)
	assert.NoError(t, cfg.ValidateIMAP())
}

func TestLoadInvalidInt(t *testing.T) {
	t.Setenv("CHUNK_OVERLAP", "lots")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHUNK_OVERLAP")
}

func TestValidateIMAP(t *testing.T) {
	cfg := &Config{IMAPHost: "imap.example.com", IMAPUser: "alice"}
	err := cfg.ValidateIMAP()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMAP_PASSWORD")
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load("does-not-exist.env")
	assert.Error(t, err, "an explicitly named env file must exist")
}
