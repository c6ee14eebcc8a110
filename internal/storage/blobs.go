package storage

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// HaveBlob reports whether a regular file exists at the blob path for
// content.
func (c *Cache) HaveBlob(content []byte) bool {
	_, p, err := c.blobPath(content)
	if err != nil {
		return false
	}
	return c.isBlobFile(p)
}

func (c *Cache) isBlobFile(p string) bool {
	info, err := c.fs.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// SaveBlob writes data to the blob path for content, replacing any previous
// payload, and returns the number of bytes written. Directories and the file
// are created group-writable and not world-writable.
func (c *Cache) SaveBlob(content []byte, data []byte) (int, error) {
	sum, p, err := c.blobPath(content)
	if err != nil {
		return 0, err
	}

	var n int
	err = withCreateMask(func() error {
		if err := c.fs.MkdirAll(c.BlobsDir(), dirMode); err != nil {
			return fmt.Errorf("create blob directory: %w", err)
		}
		written, err := writeFile(c.fs, p, data)
		n = written
		return err
	})
	if err != nil {
		return n, fmt.Errorf("save blob %s: %w", sum, err)
	}

	c.log.Debug("Saved blob", "digest", sum, "size", n)
	return n, nil
}

// LoadBlob returns the payload stored for content. It fails with ErrNotFound
// when there is none.
func (c *Cache) LoadBlob(content []byte) ([]byte, error) {
	sum, p, err := c.blobPath(content)
	if err != nil {
		return nil, err
	}
	return c.readBlob(sum, p)
}

func (c *Cache) readBlob(sum string, p string) ([]byte, error) {
	data, err := afero.ReadFile(c.fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("load blob %s: %w", sum, ErrNotFound)
		}
		return nil, fmt.Errorf("load blob %s: %w", sum, err)
	}
	return data, nil
}

// DeleteBlob removes the blob for content. It returns false if the blob did
// not exist or could not be removed; see TryDeleteBlob for the cause.
func (c *Cache) DeleteBlob(content []byte) bool {
	return c.TryDeleteBlob(content).Removed
}

// TryDeleteBlob is DeleteBlob with the underlying error kept.
func (c *Cache) TryDeleteBlob(content []byte) Removal {
	sum, p, err := c.blobPath(content)
	if err != nil {
		return Removal{Err: err}
	}
	return c.remove("blob", sum, p)
}

func (c *Cache) remove(kind string, key string, p string) Removal {
	if err := c.fs.Remove(p); err != nil {
		c.log.Debug("Remove failed", "kind", kind, "key", key, "error", err)
		return Removal{Err: err}
	}
	c.log.Debug("Removed", "kind", kind, "key", key)
	return Removal{Removed: true}
}
