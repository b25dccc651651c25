package launchd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kioskops/kioskctl/internal/gateway"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

type fakeGateway struct {
	responses map[string]gateway.Result
	err       error
	commands  []string
}

func (g *fakeGateway) Run(_ context.Context, command string) (gateway.Result, error) {
	g.commands = append(g.commands, command)
	if g.err != nil {
		return gateway.Result{}, g.err
	}
	if res, ok := g.responses[command]; ok {
		return res, nil
	}
	return gateway.Result{}, nil
}

func TestInstallWritesAndLoadsDescriptor(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	gw := &fakeGateway{}
	mgr := NewManager(dir, gw, nil)

	d := NewDescriptor("com.example.test", "/Applications/TextEdit.app/Contents/MacOS/TextEdit")

	err := mgr.Install(context.Background(), d)
	require.NoError(t, err)

	path := filepath.Join(dir, "com.example.test.plist")
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	decoded, err := DecodeDescriptor(content)
	require.NoError(t, err)
	require.Equal(t, d, decoded)

	require.Equal(t, []string{fmt.Sprintf("launchctl load %q", path)}, gw.commands)
}

func TestInstallCreatesAgentDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "Library", "LaunchAgents")
	mgr := NewManager(dir, &fakeGateway{}, nil)

	err := mgr.Install(context.Background(), NewDescriptor("com.example.test", "/usr/bin/true"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "com.example.test.plist"))
	require.NoError(t, err)
}

func TestInstallReportsPartialSuccessWhenLoadFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	gw := &fakeGateway{}
	mgr := NewManager(dir, gw, nil)

	path := mgr.DescriptorPath("com.example.test")
	gw.responses = map[string]gateway.Result{
		fmt.Sprintf("launchctl load %q", path): {ExitCode: 1, Stderr: "Load failed: 5: Input/output error"},
	}

	err := mgr.Install(context.Background(), NewDescriptor("com.example.test", "/usr/bin/true"))
	require.Error(t, err)

	var partial *kioskerrors.PartialSuccessError
	require.True(t, errors.As(err, &partial))
	require.Equal(t, "install", partial.Operation)
	require.Equal(t, "load", partial.Step)

	// The descriptor file survives a failed load so the user can retry.
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestInstallGatewayFailureIsPartialSuccess(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{err: errors.New("shell not found")}
	mgr := NewManager(t.TempDir(), gw, nil)

	err := mgr.Install(context.Background(), NewDescriptor("com.example.test", "/usr/bin/true"))
	require.Error(t, err)

	var partial *kioskerrors.PartialSuccessError
	require.True(t, errors.As(err, &partial))
	require.Equal(t, "install", partial.Operation)
}

func TestInstallRejectsInvalidDescriptor(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	gw := &fakeGateway{}
	mgr := NewManager(dir, gw, nil)

	err := mgr.Install(context.Background(), NewDescriptor("", "/usr/bin/true"))
	require.Error(t, err)

	var validationErr *kioskerrors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Empty(t, gw.commands)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Empty(t, entries)
}

func TestUninstallRemovesDescriptor(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	gw := &fakeGateway{}
	mgr := NewManager(dir, gw, nil)

	_, err := mgr.CreateDescriptorFile(NewDescriptor("com.example.test", "/usr/bin/true"))
	require.NoError(t, err)

	err = mgr.Uninstall(context.Background(), "com.example.test")
	require.NoError(t, err)

	path := filepath.Join(dir, "com.example.test.plist")
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))

	require.Equal(t, []string{fmt.Sprintf("launchctl unload %q", path)}, gw.commands)
}

func TestUninstallAcceptsDescriptorFilename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mgr := NewManager(dir, &fakeGateway{}, nil)

	_, err := mgr.CreateDescriptorFile(NewDescriptor("com.example.test", "/usr/bin/true"))
	require.NoError(t, err)

	err = mgr.Uninstall(context.Background(), "com.example.test.plist")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "com.example.test.plist"))
	require.True(t, os.IsNotExist(statErr))
}

func TestUninstallMissingAgent(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	mgr := NewManager(t.TempDir(), gw, nil)

	err := mgr.Uninstall(context.Background(), "com.example.ghost")
	require.Error(t, err)

	var notFound *kioskerrors.NotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "com.example.ghost", notFound.Name)
	require.Empty(t, gw.commands)
}

func TestUninstallToleratesAgentNotLoaded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	gw := &fakeGateway{}
	mgr := NewManager(dir, gw, nil)

	path, err := mgr.CreateDescriptorFile(NewDescriptor("com.example.test", "/usr/bin/true"))
	require.NoError(t, err)

	gw.responses = map[string]gateway.Result{
		fmt.Sprintf("launchctl unload %q", path): {ExitCode: 1, Stderr: "Unload failed: Could not find specified service"},
	}

	err = mgr.Uninstall(context.Background(), "com.example.test")
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestUninstallKeepsFileOnGenuineUnloadFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	gw := &fakeGateway{}
	mgr := NewManager(dir, gw, nil)

	path, err := mgr.CreateDescriptorFile(NewDescriptor("com.example.test", "/usr/bin/true"))
	require.NoError(t, err)

	gw.responses = map[string]gateway.Result{
		fmt.Sprintf("launchctl unload %q", path): {ExitCode: 1, Stderr: "Unload failed: Operation not permitted"},
	}

	err = mgr.Uninstall(context.Background(), "com.example.test")
	require.Error(t, err)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestUninstallDeleteFailureIsPartialSuccess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mgr := NewManager(dir, &fakeGateway{}, nil)

	// A non-empty directory at the descriptor path passes the stat check
	// but cannot be removed, forcing the delete step to fail after a
	// successful unload.
	path := filepath.Join(dir, "com.example.test.plist")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0o755))

	err := mgr.Uninstall(context.Background(), "com.example.test")
	require.Error(t, err)

	var partial *kioskerrors.PartialSuccessError
	require.True(t, errors.As(err, &partial))
	require.Equal(t, "uninstall", partial.Operation)
	require.Equal(t, "delete descriptor file", partial.Step)
}

func TestListMissingDirectoryIsEmpty(t *testing.T) {
	t.Parallel()

	mgr := NewManager(filepath.Join(t.TempDir(), "absent"), &fakeGateway{}, nil)

	records, err := mgr.List()
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestListReadsLabelsFromDescriptors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mgr := NewManager(dir, &fakeGateway{}, nil)

	_, err := mgr.CreateDescriptorFile(NewDescriptor("com.example.alpha", "/usr/bin/true"))
	require.NoError(t, err)

	// A file whose name disagrees with its Label: the content wins.
	content, err := NewDescriptor("com.example.renamed", "/usr/bin/true").Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.plist"), content, 0o644))

	// Non-descriptor entries are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "backup.plist"), 0o755))

	records, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, records, 2)

	byFilename := make(map[string]Record, len(records))
	for _, r := range records {
		byFilename[r.Filename] = r
	}

	alpha := byFilename["com.example.alpha.plist"]
	require.Equal(t, "com.example.alpha", alpha.Label)
	require.Equal(t, filepath.Join(dir, "com.example.alpha.plist"), alpha.Path)
	require.Greater(t, alpha.SizeBytes, int64(0))
	require.False(t, alpha.ModifiedAt.IsZero())
	require.NoError(t, alpha.Err)

	legacy := byFilename["legacy.plist"]
	require.Equal(t, "com.example.renamed", legacy.Label)
}

func TestListFallsBackToFilenameLabel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mgr := NewManager(dir, &fakeGateway{}, nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "com.example.broken.plist"), []byte("not a plist"), 0o644))

	records, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "com.example.broken", records[0].Label)
	require.NoError(t, records[0].Err)
}
