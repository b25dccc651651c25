package launchd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kioskops/kioskctl/internal/gateway"
	"github.com/kioskops/kioskctl/internal/logger"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

// labelPattern pulls the Label value out of raw descriptor text. It is
// deliberately permissive: listing must survive files a full parse would
// reject.
var labelPattern = regexp.MustCompile(`<key>Label</key>\s*<string>([^<]+)</string>`)

// DefaultAgentDir returns the per-user launch agent directory.
func DefaultAgentDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents"), nil
}

// Record is the read-time projection of one descriptor file. Err is set
// when the file could not be read; the listing itself never aborts.
type Record struct {
	Filename   string
	Path       string
	Label      string
	SizeBytes  int64
	ModifiedAt time.Time
	CreatedAt  time.Time
	Err        error
}

// Manager owns the agent directory and drives launchctl through the
// gateway. Descriptor write + load is deliberately non-transactional: a
// half-installed agent is a valid recoverable state, reported as such.
type Manager struct {
	dir string
	gw  gateway.Gateway
	log *logger.Logger
}

// NewManager builds a Manager over dir.
func NewManager(dir string, gw gateway.Gateway, log *logger.Logger) *Manager {
	return &Manager{dir: dir, gw: gw, log: log}
}

// Dir returns the agent directory.
func (m *Manager) Dir() string {
	return m.dir
}

// DescriptorPath returns where the descriptor for label lives.
func (m *Manager) DescriptorPath(label string) string {
	return filepath.Join(m.dir, label+DescriptorExtension)
}

// CreateDescriptorFile encodes d and writes it into the agent directory,
// creating the directory if needed. The label is used verbatim as the
// basename; the caller is responsible for uniqueness.
func (m *Manager) CreateDescriptorFile(d Descriptor) (string, error) {
	content, err := d.Encode()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("create agent directory: %w", err)
	}

	path := m.DescriptorPath(d.Label)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write descriptor: %w", err)
	}

	m.log.WithFields(map[string]any{"label": d.Label, "path": path}).Debug("descriptor file written")
	return path, nil
}

// Install writes the descriptor file and loads it. A load failure after a
// successful write reports partial success rather than rolling back: the
// file on disk is a valid state the user can recover from.
func (m *Manager) Install(ctx context.Context, d Descriptor) error {
	path, err := m.CreateDescriptorFile(d)
	if err != nil {
		return err
	}

	result, err := m.gw.Run(ctx, fmt.Sprintf("launchctl load %q", path))
	if err != nil {
		return kioskerrors.NewPartialSuccessError("install", "load", err)
	}
	if result.ExitCode != 0 {
		return kioskerrors.NewPartialSuccessError("install", "load",
			fmt.Errorf("launchctl load exited %d: %s", result.ExitCode, result.Stderr))
	}

	m.log.WithFields(map[string]any{"label": d.Label}).Info("launch agent installed")
	return nil
}

// Uninstall unloads the agent and deletes its descriptor file. The
// argument may be a label or a descriptor filename. "Already not loaded"
// counts as a successful unload; a delete failure after that reports
// partial success naming the step.
func (m *Manager) Uninstall(ctx context.Context, labelOrFilename string) error {
	filename := labelOrFilename
	if !strings.HasSuffix(filename, DescriptorExtension) {
		filename += DescriptorExtension
	}
	path := filepath.Join(m.dir, filename)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return kioskerrors.NewNotFoundError("launch agent", labelOrFilename)
		}
		return fmt.Errorf("stat descriptor: %w", err)
	}

	result, err := m.gw.Run(ctx, fmt.Sprintf("launchctl unload %q", path))
	if err != nil {
		return fmt.Errorf("unload %s: %w", labelOrFilename, err)
	}
	if result.ExitCode != 0 && !unloadTolerable(result.Stderr) {
		return fmt.Errorf("unload %s: launchctl exited %d: %s", labelOrFilename, result.ExitCode, result.Stderr)
	}

	if err := os.Remove(path); err != nil {
		return kioskerrors.NewPartialSuccessError("uninstall", "delete descriptor file", err)
	}

	m.log.WithFields(map[string]any{"path": path}).Info("launch agent uninstalled")
	return nil
}

// unloadTolerable reports whether an unload failure just means the agent
// was not loaded in the first place.
func unloadTolerable(stderr string) bool {
	return strings.Contains(stderr, "Could not find specified service") ||
		strings.Contains(stderr, "not currently loaded") ||
		strings.Contains(stderr, "No such process")
}

// List enumerates descriptor files in the agent directory. Labels come
// from a permissive pattern match over the raw text, falling back to the
// filename; an unreadable file reports its error on the record and never
// aborts the listing. A missing directory just means no agents.
func (m *Manager) List() ([]Record, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read agent directory: %w", err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), DescriptorExtension) {
			continue
		}

		record := Record{
			Filename: entry.Name(),
			Path:     filepath.Join(m.dir, entry.Name()),
			Label:    strings.TrimSuffix(entry.Name(), DescriptorExtension),
		}

		if info, err := entry.Info(); err == nil {
			record.SizeBytes = info.Size()
			record.ModifiedAt = info.ModTime()
			// File creation time is not portably available; the
			// modification time stands in.
			record.CreatedAt = info.ModTime()
		}

		content, err := os.ReadFile(record.Path)
		if err != nil {
			record.Err = err
			records = append(records, record)
			continue
		}
		if match := labelPattern.FindSubmatch(content); match != nil {
			record.Label = string(match[1])
		}

		records = append(records, record)
	}

	return records, nil
}
