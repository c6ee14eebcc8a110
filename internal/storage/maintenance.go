package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"mmry/internal/digest"

	"github.com/spf13/afero"
)

// TreeReport describes a RemoveTree call.
type TreeReport struct {
	// Path is root/namespace.
	Path string
	// Entries counts the files and links under Path before removal.
	Entries int
	// Removed is true only when confirm was set and the removal succeeded.
	Removed bool
	// Err holds the reason the tree was not removed, if any.
	Err error
}

// RemoveTree deletes root/namespace and everything below it. Without
// confirm it only reports what would be removed. Removal is best effort: a
// failure is recorded in the report, never returned.
func (c *Cache) RemoveTree(confirm bool) TreeReport {
	report := TreeReport{Path: c.Path()}

	if err := checkRoot(c.root); err != nil {
		report.Err = err
		return report
	}
	if _, err := c.confine(report.Path); err != nil {
		report.Err = err
		return report
	}

	entries, err := c.countEntries(report.Path)
	if err != nil {
		c.log.Debug("Counting entries failed", "path", report.Path, "error", err)
	}
	report.Entries = entries

	if !confirm {
		c.log.Info("Would remove cache namespace, pass confirm to proceed", "path", report.Path, "entries", entries)
		return report
	}

	if err := c.fs.RemoveAll(report.Path); err != nil {
		c.log.Warn("Removing cache namespace failed", "path", report.Path, "error", err)
		report.Err = err
		return report
	}

	c.log.Info("Removed cache namespace", "path", report.Path, "entries", entries)
	report.Removed = true
	return report
}

func (c *Cache) countEntries(dir string) (int, error) {
	n := 0
	err := afero.Walk(c.fs, dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			n++
		}
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return n, err
}

// Blobs returns the digests of all stored blobs in lexical order.
func (c *Cache) Blobs() ([]string, error) {
	infos, err := c.list(c.BlobsDir())
	if err != nil {
		return nil, err
	}

	sums := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Mode().IsRegular() && digest.Valid(info.Name()) {
			sums = append(sums, info.Name())
		}
	}
	return sums, nil
}

// Names returns all names in lexical order, whether or not their blobs
// exist.
func (c *Cache) Names() ([]string, error) {
	infos, err := c.list(c.NamesDir())
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

func (c *Cache) list(dir string) ([]os.FileInfo, error) {
	infos, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", filepath.Base(dir), err)
	}
	return infos, nil
}
