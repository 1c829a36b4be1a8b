package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"nearest", "serve", "ping"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "shelter-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestNearestCommand_Flags(t *testing.T) {
	flag := nearestCmd.Flags().Lookup("json")
	require.NotNil(t, flag, "nearest command should have --json flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestPingCommand_Flags(t *testing.T) {
	lat := pingCmd.Flags().Lookup("lat")
	require.NotNil(t, lat)
	lon := pingCmd.Flags().Lookup("lon")
	require.NotNil(t, lon)
}
