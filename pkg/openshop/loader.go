package openshop

import (
	"fmt"
	"path/filepath"
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"

	"github.com/Rastion/openshop-problem/pkg/taillard"
)

// LoaderConfig configures instance loading.
type LoaderConfig struct {
	// BaseDir is the directory against which relative instance paths are
	// resolved. Empty means DefaultBaseDir(). Relative paths are never
	// resolved against the process working directory - bundled sample
	// instances live under the base dir regardless of where the binary
	// was invoked.
	BaseDir string
}

// DefaultBaseDir returns the default instance directory under the app
// data dir.
func DefaultBaseDir() string {
	return filepath.Join(gfconfig.GetAppDataDir("openshop"), "instances")
}

// Loader loads instances from a base directory.
type Loader struct {
	baseDir string
}

// NewLoader creates a loader with the given configuration.
func NewLoader(cfg LoaderConfig) *Loader {
	base := strings.TrimSpace(cfg.BaseDir)
	if base == "" {
		base = DefaultBaseDir()
	}
	return &Loader{baseDir: filepath.Clean(base)}
}

// BaseDir returns the resolved base directory.
func (l *Loader) BaseDir() string {
	return l.baseDir
}

// Resolve maps an instance path to an absolute filesystem path.
//
// Absolute paths pass through unchanged. Relative paths are joined to the
// base dir with a traversal guard so a key cannot escape it.
func (l *Loader) Resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("instance path is empty")
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	// Reject parent segments before cleaning: Clean would absorb them
	// into the base dir and let the key escape it.
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return "", fmt.Errorf("instance path %q escapes base dir", path)
		}
	}
	return filepath.Join(l.baseDir, filepath.FromSlash(path)), nil
}

// Load parses the instance at path and constructs an immutable Instance.
//
// Parse failures abort construction entirely: no partially populated
// instance is ever returned.
func (l *Loader) Load(path string) (*Instance, error) {
	resolved, err := l.Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := taillard.ParseFile(resolved)
	if err != nil {
		return nil, err
	}
	return FromTaillard(data)
}
