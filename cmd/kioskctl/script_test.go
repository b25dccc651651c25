package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

func TestScriptCommandParsesFlags(t *testing.T) {
	original := scriptCmdRunner
	t.Cleanup(func() { scriptCmdRunner = original })

	var captured scriptOptions
	var capturedArgs []string
	scriptCmdRunner = func(root *rootFlags, opts scriptOptions, args []string) error {
		captured = opts
		capturedArgs = args
		return nil
	}

	root := newRootCmd()
	err := executeCommand(root, "script", "no-sleep",
		"--mode", "restore", "--check", "--out", "undo.sh")
	require.NoError(t, err)

	require.Equal(t, "restore", captured.Mode)
	require.True(t, captured.Check)
	require.Equal(t, "undo.sh", captured.OutPath)
	require.Equal(t, []string{"no-sleep"}, capturedArgs)
}

func TestRunScriptRejectsUnknownMode(t *testing.T) {
	err := runScript(&rootFlags{}, scriptOptions{Mode: "sideways"}, nil)
	require.Error(t, err)

	var validationErr *kioskerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "mode", validationErr.Field)
}

func TestRunScriptWritesExecutableFile(t *testing.T) {
	flags := &rootFlags{configPath: filepath.Join(t.TempDir(), "config.toml")}
	outPath := filepath.Join(t.TempDir(), "kiosk.sh")

	err := runScript(flags, scriptOptions{Mode: "apply", OutPath: outPath}, []string{"disable-system-sleep"})
	require.NoError(t, err)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(content), "#!/bin/bash"))
	require.True(t, strings.HasSuffix(string(content), "\n"))
	require.Contains(t, string(content), "pmset -a sleep 0")

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&0o100, "script should be owner-executable")
}

func TestRunScriptSelectsFromProfile(t *testing.T) {
	flags := &rootFlags{configPath: filepath.Join(t.TempDir(), "config.toml")}
	outPath := filepath.Join(t.TempDir(), "kiosk.sh")

	profilePath := writeTestProfile(t, `version: "1.0"
name: lobby
selection:
  ids:
    - hide-dock
`)

	err := runScript(flags, scriptOptions{Mode: "apply", OutPath: outPath, ProfilePath: profilePath}, nil)
	require.NoError(t, err)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(content), "com.apple.dock autohide")
	require.NotContains(t, string(content), "pmset")
}
