//go:build !unix

package storage

// withCreateMask runs fn. There is no umask here; files and directories get
// fileMode and dirMode from the calls that create them.
func withCreateMask(fn func() error) error {
	return fn()
}
