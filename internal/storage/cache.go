package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mmry/internal/core"
	"mmry/internal/digest"
	pkgstorage "mmry/pkg/storage"

	"github.com/spf13/afero"
)

var _ pkgstorage.Engine = (*Cache)(nil)

const (
	blobsDir = "blobs"
	namesDir = "names"
)

// Cache is a content-addressed blob store rooted at root/namespace. Blobs
// live under blobs/<digest>; names live under names/<name> and resolve to a
// blob through a symbolic link or a digest file.
//
// A Cache assumes it is the only writer of its namespace. Calls are not
// synchronized against each other.
type Cache struct {
	fs          afero.Fs
	root        string
	namespace   string
	digests     *digest.Digester
	indirection core.Indirection
	base        *slog.Logger
	log         *slog.Logger
}

// New creates a Cache from cfg. Nothing is created on disk until the first
// write.
func New(cfg core.Config) (*Cache, error) {
	if err := checkRoot(cfg.Root); err != nil {
		return nil, err
	}
	if err := checkNamespace(cfg.Namespace); err != nil {
		return nil, err
	}

	return &Cache{
		fs:          cfg.Fs,
		root:        cfg.Root,
		namespace:   cfg.Namespace,
		digests:     cfg.Digester,
		indirection: cfg.Indirection,
		base:        cfg.Logger,
		log:         cfg.Logger.With("namespace", cfg.Namespace),
	}, nil
}

// Open builds a configuration from opts and returns a Cache over it.
func Open(opts ...core.ConfigOption) (*Cache, error) {
	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

func (c *Cache) Root() string {
	return c.root
}

func (c *Cache) Namespace() string {
	return c.namespace
}

// SetNamespace switches the cache to another namespace under the same root.
// All later path resolution uses the new namespace.
func (c *Cache) SetNamespace(namespace string) error {
	if err := checkNamespace(namespace); err != nil {
		return err
	}
	c.namespace = namespace
	c.log = c.base.With("namespace", namespace)
	return nil
}

// Path returns root/namespace.
func (c *Cache) Path() string {
	return filepath.Join(c.root, c.namespace)
}

func (c *Cache) BlobsDir() string {
	return filepath.Join(c.Path(), blobsDir)
}

func (c *Cache) NamesDir() string {
	return filepath.Join(c.Path(), namesDir)
}

// Digest returns the digest that addresses content.
func (c *Cache) Digest(content []byte) string {
	return c.digests.Sum(content)
}

// BlobPath returns the path of the blob addressed by a digest.
func (c *Cache) BlobPath(sum string) (string, error) {
	if !digest.Valid(sum) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDigest, sum)
	}
	return c.confine(filepath.Join(c.BlobsDir(), sum))
}

// NamePath returns the path of the indirection for name. Names may not be
// empty, contain a path separator, or be "." or "..".
func (c *Cache) NamePath(name string) (string, error) {
	if !validSegment(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return c.confine(filepath.Join(c.NamesDir(), name))
}

func (c *Cache) blobPath(content []byte) (string, string, error) {
	sum := c.Digest(content)
	p, err := c.BlobPath(sum)
	return sum, p, err
}

// confine rejects any path that does not lie strictly below the root.
func (c *Cache) confine(p string) (string, error) {
	if !within(c.root, p) {
		return "", fmt.Errorf("%w: %q is outside %q", ErrNotConfined, p, c.root)
	}
	return p, nil
}

func within(root, p string) bool {
	prefix := root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(p, prefix)
}

// checkRoot requires an absolute, clean path that is not the filesystem root.
func checkRoot(root string) error {
	if root == "" || !filepath.IsAbs(root) || filepath.Clean(root) != root || filepath.Dir(root) == root {
		return fmt.Errorf("%w: %q", ErrInvalidRoot, root)
	}
	return nil
}

func checkNamespace(namespace string) error {
	if !validSegment(namespace) {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}
	return nil
}

// validSegment reports whether s can be used as a single path element.
func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsRune(s, os.PathSeparator) && !strings.ContainsRune(s, '/')
}
