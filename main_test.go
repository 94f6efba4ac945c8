package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageErrorClassification(t *testing.T) {
	var uerr usageError
	assert.True(t, errors.As(usageError{errors.New("unknown flag")}, &uerr))
	assert.True(t, errors.As(fmt.Errorf("run: %w", usageError{errors.New("bad value")}), &uerr))
	assert.Equal(t, "bad value", uerr.Error())
	assert.False(t, errors.As(errors.New("scan failed"), &uerr))
}

func TestNoArgs(t *testing.T) {
	root := newRootCmd()

	err := noArgs()(root, nil)
	assert.NoError(t, err)

	err = noArgs()(root, []string{"stray"})
	require.Error(t, err)
	var uerr usageError
	assert.True(t, errors.As(err, &uerr))
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	// The bare command runs a scan, so it carries the scan flags
	for _, name := range []string{"card", "device", "all", "json", "verbose"} {
		assert.NotNil(t, root.Flags().Lookup(name), "flag %s", name)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
	require.NotNil(t, root.RunE)

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"scan", "cards", "watch", "serve", "test-notify", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--no-such-flag"})

	err := root.Execute()
	require.Error(t, err)
	var uerr usageError
	assert.True(t, errors.As(err, &uerr))
}

func TestVersionCommand(t *testing.T) {
	cmd := newVersionCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "audioscan dev")
	assert.Contains(t, buf.String(), "platform:")
}

func TestSetupLogging(t *testing.T) {
	require.NoError(t, setupLogging("debug", false))
	require.NoError(t, setupLogging("info", true))

	err := setupLogging("bogus", false)
	require.Error(t, err)
	var uerr usageError
	assert.True(t, errors.As(err, &uerr))
	assert.Contains(t, err.Error(), "invalid log level")
}
