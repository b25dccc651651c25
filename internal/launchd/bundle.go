package launchd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
	"github.com/kioskops/kioskctl/pkg/plist"
)

// BundleExtension marks a macOS application bundle path.
const BundleExtension = ".app"

// BundleMetadata is the subset of an app bundle's Info.plist that the
// tool surfaces. Missing keys decode to empty strings.
type BundleMetadata struct {
	BundleIdentifier string
	DisplayName      string
	Version          string
	IconFile         string
}

// ResolveExecutable maps an .app bundle path to the executable launchd
// should run. The canonical location is Contents/MacOS/<bundle name>;
// when that file is absent the first regular entry of Contents/MacOS is
// used instead, since some bundles name their binary differently.
func ResolveExecutable(bundlePath string) (string, error) {
	if !strings.HasSuffix(bundlePath, BundleExtension) {
		return "", kioskerrors.NewValidationError("bundle",
			fmt.Sprintf("%s is not an application bundle (.app)", bundlePath), nil)
	}

	name := strings.TrimSuffix(filepath.Base(bundlePath), BundleExtension)
	macosDir := filepath.Join(bundlePath, "Contents", "MacOS")

	canonical := filepath.Join(macosDir, name)
	if info, err := os.Stat(canonical); err == nil && !info.IsDir() {
		return canonical, nil
	}

	entries, err := os.ReadDir(macosDir)
	if err != nil {
		return "", kioskerrors.NewNotFoundError("bundle executable", bundlePath)
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		return filepath.Join(macosDir, entry.Name()), nil
	}

	return "", kioskerrors.NewNotFoundError("bundle executable", bundlePath)
}

// ReadBundleMetadata reads identity fields from the bundle's Info.plist.
func ReadBundleMetadata(bundlePath string) (BundleMetadata, error) {
	infoPath := filepath.Join(bundlePath, "Contents", "Info.plist")

	content, err := os.ReadFile(infoPath)
	if err != nil {
		return BundleMetadata{}, kioskerrors.NewMetadataError(bundlePath, err)
	}

	dict, err := plist.Unmarshal(content)
	if err != nil {
		return BundleMetadata{}, kioskerrors.NewMetadataError(bundlePath, err)
	}

	meta := BundleMetadata{
		BundleIdentifier: stringKey(dict, "CFBundleIdentifier"),
		DisplayName:      stringKey(dict, "CFBundleDisplayName"),
		Version:          stringKey(dict, "CFBundleShortVersionString"),
		IconFile:         stringKey(dict, "CFBundleIconFile"),
	}
	if meta.DisplayName == "" {
		meta.DisplayName = stringKey(dict, "CFBundleName")
	}
	if meta.Version == "" {
		meta.Version = stringKey(dict, "CFBundleVersion")
	}

	return meta, nil
}

func stringKey(dict *plist.Dict, key string) string {
	value, ok := dict.Get(key)
	if !ok {
		return ""
	}
	s, ok := value.(plist.String)
	if !ok {
		return ""
	}
	return string(s)
}
