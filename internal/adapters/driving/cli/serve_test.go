package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/mcp"
)

// stubRunner records how the MCP server would have been run.
func stubRunner(t *testing.T, daemon *mockDaemon) (*int, func()) {
	t.Helper()
	port := -1
	old := mcpRunner
	mcpRunner = func(_ *cobra.Command, server *mcp.Server, p int) error {
		assert.NotNil(t, server)
		if daemon != nil {
			assert.True(t, daemon.Running(), "daemon runs while serving")
		}
		port = p
		return nil
	}
	return &port, func() { mcpRunner = old }
}

func resetServeFlags() {
	_ = serveCmd.Flags().Set("port", "0")
	_ = serveCmd.Flags().Set("mcp-only", "false")
}

func TestServeCmd_Use(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
	assert.Contains(t, serveCmd.Long, "--port 8080")
	assert.Contains(t, serveCmd.Long, "--mcp-only")
}

func TestServeCmd_Flags(t *testing.T) {
	port := serveCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "p", port.Shorthand)
	assert.Equal(t, "0", port.DefValue)
	assert.NotNil(t, serveCmd.Flags().Lookup("mcp-only"))
}

func TestServeCmd_StartsDaemonAndStdio(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetServeFlags()
	port, restore := stubRunner(t, ts.daemon)
	defer restore()

	_, err := execute(t, "serve")

	require.NoError(t, err)
	assert.Equal(t, 0, *port)
	assert.True(t, ts.daemon.started)
	assert.True(t, ts.daemon.stopped, "daemon is stopped when serving ends")
}

func TestServeCmd_HTTPPort(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer resetServeFlags()
	port, restore := stubRunner(t, nil)
	defer restore()

	_, err := execute(t, "serve", "--port", "8080")

	require.NoError(t, err)
	assert.Equal(t, 8080, *port)
}

func TestServeCmd_MCPOnly(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetServeFlags()
	_, restore := stubRunner(t, nil)
	defer restore()

	_, err := execute(t, "serve", "--mcp-only")

	require.NoError(t, err)
	assert.False(t, ts.daemon.started)
}

func TestServeCmd_DaemonStartFailure(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetServeFlags()
	port, restore := stubRunner(t, nil)
	defer restore()
	ts.daemon.startErr = errBoom

	_, err := execute(t, "serve")

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, -1, *port, "MCP server never started")
}

func TestServeCmd_RequiresServices(t *testing.T) {
	cleanup := setupNoServices()
	defer cleanup()
	defer resetServeFlags()

	_, err := execute(t, "serve", "--mcp-only")

	require.Error(t, err)
	assert.ErrorIs(t, err, mcp.ErrMissingSearchService)
}
