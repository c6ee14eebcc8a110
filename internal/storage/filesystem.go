package storage

import (
	"errors"
	"os"

	"github.com/spf13/afero"
)

const (
	// createMask keeps group write and drops world write, so a cache root
	// can be shared by the members of one group.
	createMask = 0o002

	dirMode  os.FileMode = 0o775
	fileMode os.FileMode = 0o664
)

// writeFile creates or truncates path and writes data to it.
func writeFile(fs afero.Fs, path string, data []byte) (int, error) {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return 0, err
	}

	n, err := f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

// removeIfExists removes path, treating a missing path as success.
func removeIfExists(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ReplaceLink points link at target. Any existing entry at link is removed
// first; otherwise creating the link fails with EEXIST, and writing through an
// existing link would clobber whatever it already points at.
//
// It reports afero.ErrNoSymlink when fs cannot create symbolic links.
func ReplaceLink(fs afero.Fs, target string, link string) error {
	linker, ok := fs.(afero.Linker)
	if !ok {
		return &os.LinkError{Op: "symlink", Old: target, New: link, Err: afero.ErrNoSymlink}
	}
	if err := removeIfExists(fs, link); err != nil {
		return err
	}
	return linker.SymlinkIfPossible(target, link)
}

// ReplaceFile writes data to path as a fresh file. Like ReplaceLink it
// removes whatever is at path first, so a symbolic link is replaced rather
// than written through.
func ReplaceFile(fs afero.Fs, path string, data []byte) error {
	if err := removeIfExists(fs, path); err != nil {
		return err
	}
	_, err := writeFile(fs, path, data)
	return err
}

// readLink returns the target of the symbolic link at path. ok is false when
// path exists but is not a link, or fs cannot tell.
func readLink(fs afero.Fs, path string) (target string, ok bool, err error) {
	lstater, isLstater := fs.(afero.Lstater)
	reader, isReader := fs.(afero.LinkReader)
	if !isLstater || !isReader {
		if _, err := fs.Stat(path); err != nil {
			return "", false, err
		}
		return "", false, nil
	}

	info, _, err := lstater.LstatIfPossible(path)
	if err != nil {
		return "", false, err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return "", false, nil
	}

	target, err = reader.ReadlinkIfPossible(path)
	if err != nil {
		if errors.Is(err, afero.ErrNoReadlink) {
			return "", false, nil
		}
		return "", false, err
	}
	return target, true, nil
}
