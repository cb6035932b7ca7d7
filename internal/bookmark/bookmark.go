package bookmark

import (
	"fmt"
	"os"
	"path/filepath"
)

// Provider grants and resolves persistent access tokens for directory
// roots. Platforms with scoped filesystem permissions can plug in a real
// token scheme; plain filesystems use FileProvider.
type Provider interface {
	// Grant returns an opaque token that later resolves back to path.
	Grant(path string) ([]byte, error)
	// Resolve validates a token and returns the directory it grants.
	Resolve(token []byte) (string, error)
}

// FileProvider is the passthrough Provider for ordinary filesystems: the
// token is the absolute directory path itself. Resolve re-checks that the
// directory still exists, so a stale token from a removed mount fails
// instead of silently pointing nowhere.
type FileProvider struct{}

// Grant returns the absolute path as the token. The directory must exist.
func (FileProvider) Grant(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot grant access to %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot grant access to %s: not a directory", abs)
	}
	return []byte(abs), nil
}

// Resolve returns the path encoded in the token if it is still a directory.
func (FileProvider) Resolve(token []byte) (string, error) {
	if len(token) == 0 {
		return "", fmt.Errorf("empty access token")
	}
	path := string(token)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("access token no longer resolves: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("access token points at a non-directory: %s", path)
	}
	return path, nil
}
