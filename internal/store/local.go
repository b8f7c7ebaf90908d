package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local stores assets under a static-serving root directory. Assets live in
// <root><publicPrefix>/, published payloads directly in <root>/.
type Local struct {
	root         string
	publicPrefix string
	assetDir     string
}

func NewLocal(root, publicPrefix string) (*Local, error) {
	if !strings.HasPrefix(publicPrefix, "/") {
		publicPrefix = "/" + publicPrefix
	}
	assetDir := filepath.Join(root, strings.TrimPrefix(publicPrefix, "/"))
	if err := os.MkdirAll(assetDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating asset dir: %w", err)
	}
	return &Local{root: root, publicPrefix: publicPrefix, assetDir: assetDir}, nil
}

// Root returns the static-serving root directory.
func (l *Local) Root() string { return l.root }

// AssetDir returns the directory cached assets are written to. This is the
// directory a file server must serve under PublicPrefix.
func (l *Local) AssetDir() string { return l.assetDir }

// PublicPrefix returns the URL prefix assets are served under.
func (l *Local) PublicPrefix() string { return l.publicPrefix }

func (l *Local) Exists(ctx context.Context, key, ext string) (bool, error) {
	_, err := os.Stat(filepath.Join(l.assetDir, key+ext))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (l *Local) Write(ctx context.Context, key, ext string, data []byte, contentType string) error {
	return atomicWrite(l.assetDir, key+ext, data)
}

func (l *Local) PublicRef(key, ext string) string {
	return l.publicPrefix + "/" + key + ext
}

func (l *Local) Publish(ctx context.Context, name string, data []byte, contentType string) error {
	return atomicWrite(l.root, name, data)
}

func (l *Local) ReadPublished(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(l.root, name))
}

// atomicWrite writes to a temp file in the same directory and renames it
// into place, so readers never observe a partial file.
func atomicWrite(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
