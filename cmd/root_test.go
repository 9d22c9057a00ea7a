package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"grid", "aggregate", "legend", "serve", "import", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "rentmap", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAggregateCommand_Flags(t *testing.T) {
	for _, name := range []string{"bedrooms", "scale", "out"} {
		assert.NotNil(t, aggregateCmd.Flags().Lookup(name), "aggregate should have --%s", name)
		assert.NotNil(t, legendCmd.Flags().Lookup(name), "legend should have --%s", name)
	}
	assert.Equal(t, "o", aggregateCmd.Flags().Lookup("out").Shorthand)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestImportCommand_Flags(t *testing.T) {
	file := importCmd.Flags().Lookup("file")
	require.NotNil(t, file)
	batch := importCmd.Flags().Lookup("batch-size")
	require.NotNil(t, batch)
	assert.Equal(t, "1000", batch.DefValue)
}
