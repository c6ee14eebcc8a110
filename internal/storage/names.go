package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mmry/internal/core"
	"mmry/internal/digest"

	"github.com/spf13/afero"
)

// HaveName reports whether name resolves to an existing blob. A name whose
// blob is missing is reported as absent, matching LoadName.
func (c *Cache) HaveName(name string) (bool, error) {
	p, err := c.NamePath(name)
	if err != nil {
		return false, err
	}

	sum, err := c.resolve(p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	bp, err := c.BlobPath(sum)
	if err != nil {
		return false, err
	}
	return c.isBlobFile(bp), nil
}

// SaveName points name at the blob for content, replacing any previous
// target. The blob does not have to exist yet.
func (c *Cache) SaveName(name string, content []byte) error {
	p, err := c.NamePath(name)
	if err != nil {
		return err
	}
	sum, bp, err := c.blobPath(content)
	if err != nil {
		return err
	}

	err = withCreateMask(func() error {
		if err := c.fs.MkdirAll(c.NamesDir(), dirMode); err != nil {
			return fmt.Errorf("create name directory: %w", err)
		}
		if c.indirection == core.IndirectSymlink {
			err := ReplaceLink(c.fs, bp, p)
			if !errors.Is(err, afero.ErrNoSymlink) {
				return err
			}
			c.log.Debug("Symlinks unsupported, writing digest file", "name", name)
		}
		return ReplaceFile(c.fs, p, []byte(sum+"\n"))
	})
	if err != nil {
		return fmt.Errorf("save name %q: %w", name, err)
	}

	c.log.Debug("Saved name", "name", name, "digest", sum)
	return nil
}

// LoadName returns the payload of the blob name points at. It fails with
// ErrNotFound when the name is absent or its blob is missing.
func (c *Cache) LoadName(name string) ([]byte, error) {
	p, err := c.NamePath(name)
	if err != nil {
		return nil, err
	}
	sum, err := c.resolve(p)
	if err != nil {
		return nil, fmt.Errorf("load name %q: %w", name, err)
	}
	bp, err := c.BlobPath(sum)
	if err != nil {
		return nil, err
	}
	return c.readBlob(sum, bp)
}

// NameDigest returns the digest name points at, without checking that the
// blob exists.
func (c *Cache) NameDigest(name string) (string, error) {
	p, err := c.NamePath(name)
	if err != nil {
		return "", err
	}
	sum, err := c.resolve(p)
	if err != nil {
		return "", fmt.Errorf("resolve name %q: %w", name, err)
	}
	return sum, nil
}

// DeleteName removes the indirection for name. The blob it points at is
// left alone. It returns false if the name did not exist or could not be
// removed; see TryDeleteName for the cause.
func (c *Cache) DeleteName(name string) bool {
	return c.TryDeleteName(name).Removed
}

// TryDeleteName is DeleteName with the underlying error kept.
func (c *Cache) TryDeleteName(name string) Removal {
	p, err := c.NamePath(name)
	if err != nil {
		return Removal{Err: err}
	}
	return c.remove("name", name, p)
}

// resolve reads the indirection at p and returns the digest it refers to.
// Either form is accepted regardless of the configured indirection, so a
// cache can be reopened with a different setting.
func (c *Cache) resolve(p string) (string, error) {
	target, isLink, err := readLink(c.fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}

	if isLink {
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(p), target)
		}
		if filepath.Dir(target) != c.BlobsDir() {
			return "", fmt.Errorf("%w: name points at %q", ErrNotConfined, target)
		}
		sum := filepath.Base(target)
		if !digest.Valid(sum) {
			return "", fmt.Errorf("%w: name points at %q", ErrInvalidDigest, target)
		}
		return sum, nil
	}

	data, err := afero.ReadFile(c.fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	sum := string(bytes.TrimSpace(data))
	if !digest.Valid(sum) {
		return "", fmt.Errorf("%w: name holds %q", ErrInvalidDigest, sum)
	}
	return sum, nil
}
