package emailagent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAgent(t *testing.T) {
	t.Run("create new agent", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		agent, err := NewAgent(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, agent)
		defer agent.Close()

		assert.NotNil(t, agent.Index())
		assert.NotNil(t, agent.Watermarks())
		assert.NotNil(t, agent.Provider())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// A file where the database directory should be.
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		agent, err := NewAgent(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, agent)
	})
}

func TestAgent_Close(t *testing.T) {
	agent, err := NewAgent(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, agent.Close())
}

func TestAgent_FactoryMethods(t *testing.T) {
	agent, err := NewAgent(t.TempDir())
	require.NoError(t, err)
	defer agent.Close()

	t.Run("can create orchestrator and coordinator", func(t *testing.T) {
		orch, err := agent.NewOrchestrator()
		require.NoError(t, err)
		require.NotNil(t, orch)
		defer orch.Release()

		_, err = agent.NewCoordinator(nil, orch)
		assert.Error(t, err, "a fetcher is required")
	})

	t.Run("can create query pipeline", func(t *testing.T) {
		pipeline, err := agent.NewQueryPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
	})
}
