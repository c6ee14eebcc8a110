package core

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mmry/internal/digest"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

const (
	// RootEnv names the environment variable that overrides the default root.
	RootEnv = "MMRY_ROOT"

	// DefaultNamespace is used when no namespace is supplied.
	DefaultNamespace = "global"
)

// Indirection selects how a name is materialized on disk.
type Indirection int

const (
	// IndirectAuto uses symbolic links when the filesystem supports them and
	// digest files otherwise.
	IndirectAuto Indirection = iota
	// IndirectSymlink stores a name as a symbolic link to the blob file.
	IndirectSymlink
	// IndirectDigestFile stores a name as a small file holding the digest.
	IndirectDigestFile
)

func (i Indirection) String() string {
	switch i {
	case IndirectAuto:
		return "auto"
	case IndirectSymlink:
		return "symlink"
	case IndirectDigestFile:
		return "digest-file"
	default:
		return fmt.Sprintf("Indirection(%d)", int(i))
	}
}

type Config struct {
	Root        string
	Namespace   string
	Fs          afero.Fs
	Logger      *slog.Logger
	Digester    *digest.Digester
	Indirection Indirection
}

type ConfigOption func(*Config)

func WithRoot(root string) ConfigOption {
	return func(cfg *Config) {
		cfg.Root = root
	}
}

func WithNamespace(namespace string) ConfigOption {
	return func(cfg *Config) {
		cfg.Namespace = namespace
	}
}

// WithFs replaces the filesystem the cache operates on. The default is the
// host filesystem.
func WithFs(fs afero.Fs) ConfigOption {
	return func(cfg *Config) {
		cfg.Fs = fs
	}
}

func WithLogger(logger *slog.Logger) ConfigOption {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

// WithDigester shares a digest memo between caches.
func WithDigester(d *digest.Digester) ConfigOption {
	return func(cfg *Config) {
		cfg.Digester = d
	}
}

func WithIndirection(i Indirection) ConfigOption {
	return func(cfg *Config) {
		cfg.Indirection = i
	}
}

// NewConfig applies opts and fills in defaults for anything left unset. The
// root, when not given, is read from RootEnv once, falling back to
// DefaultRoot.
func NewConfig(opts ...ConfigOption) (Config, error) {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Root == "" {
		root, err := RootFromEnv()
		if err != nil {
			return Config{}, err
		}
		cfg.Root = root
	}

	root, err := homedir.Expand(cfg.Root)
	if err != nil {
		return Config{}, fmt.Errorf("expand root %q: %w", cfg.Root, err)
	}
	if root, err = filepath.Abs(root); err != nil {
		return Config{}, fmt.Errorf("resolve root %q: %w", cfg.Root, err)
	}
	cfg.Root = root

	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Digester == nil {
		cfg.Digester = digest.New()
	}
	if cfg.Indirection == IndirectAuto {
		cfg.Indirection = IndirectDigestFile
		if _, ok := cfg.Fs.(afero.Linker); ok {
			cfg.Indirection = IndirectSymlink
		}
	}

	return cfg, nil
}

// RootFromEnv returns the value of RootEnv, or DefaultRoot when it is unset
// or empty.
func RootFromEnv() (string, error) {
	if v, ok := os.LookupEnv(RootEnv); ok && v != "" {
		return v, nil
	}
	return DefaultRoot()
}

// DefaultRoot is the per-user cache directory, ~/.cache/mmry.
func DefaultRoot() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "mmry"), nil
}
