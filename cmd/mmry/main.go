package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"mmry/internal/core"
	"mmry/internal/digest"
	"mmry/internal/storage"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var rootFlag = &cli.StringFlag{
	Name:  "root",
	Usage: "cache root directory (default $" + core.RootEnv + " or ~/.cache/mmry)",
}

var namespaceFlag = &cli.StringFlag{
	Name:    "namespace",
	Aliases: []string{"n"},
	Value:   core.DefaultNamespace,
	Usage:   "cache namespace under the root",
}

var debugFlag = &cli.BoolFlag{
	Name:  "debug",
	Usage: "log debug messages",
}

var confirmFlag = &cli.BoolFlag{
	Name:  "confirm",
	Usage: "actually remove the namespace instead of reporting what would be removed",
}

func setupLogger(cCtx *cli.Context) *slog.Logger {
	level := log.InfoLevel
	if cCtx.Bool(debugFlag.Name) {
		level = log.DebugLevel
	}

	handler := log.NewWithOptions(cCtx.App.ErrWriter, log.Options{
		Level:           level,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func openCache(cCtx *cli.Context) (*storage.Cache, error) {
	return storage.Open(
		core.WithRoot(cCtx.String(rootFlag.Name)),
		core.WithNamespace(cCtx.String(namespaceFlag.Name)),
		core.WithLogger(setupLogger(cCtx)),
	)
}

// withCache adapts an action that needs an open cache.
func withCache(action func(cCtx *cli.Context, cache *storage.Cache) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		cache, err := openCache(cCtx)
		if err != nil {
			return err
		}
		return action(cCtx, cache)
	}
}

func requireArgs(cCtx *cli.Context, lo, hi int) error {
	if n := cCtx.NArg(); n < lo || n > hi {
		return fmt.Errorf("%s: expected %d to %d arguments, got %d", cCtx.Command.Name, lo, hi, n)
	}
	return nil
}

// readInput reads the named file, or the app's stdin for "" and "-".
func readInput(cCtx *cli.Context, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cCtx.App.Reader)
	}
	return os.ReadFile(path)
}

func hashAction(cCtx *cli.Context) error {
	setupLogger(cCtx)

	paths := cCtx.Args().Slice()
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	d := digest.New()
	sums := make([]string, len(paths))

	var eg errgroup.Group
	for i, path := range paths {
		eg.Go(func() error {
			data, err := readInput(cCtx, path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			sums[i] = d.Sum(data)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, path := range paths {
		fmt.Fprintf(cCtx.App.Writer, "%s  %s\n", sums[i], path)
	}
	return nil
}

func putAction(cCtx *cli.Context, cache *storage.Cache) error {
	if err := requireArgs(cCtx, 1, 2); err != nil {
		return err
	}
	key := []byte(cCtx.Args().Get(0))

	data, err := readInput(cCtx, cCtx.Args().Get(1))
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	n, err := cache.SaveBlob(key, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cCtx.App.Writer, "%s %d\n", cache.Digest(key), n)
	return nil
}

func getAction(cCtx *cli.Context, cache *storage.Cache) error {
	if err := requireArgs(cCtx, 1, 1); err != nil {
		return err
	}
	data, err := cache.LoadBlob([]byte(cCtx.Args().First()))
	if err != nil {
		return err
	}
	_, err = cCtx.App.Writer.Write(data)
	return err
}

func hasAction(cCtx *cli.Context, cache *storage.Cache) error {
	if err := requireArgs(cCtx, 1, 1); err != nil {
		return err
	}
	fmt.Fprintln(cCtx.App.Writer, cache.HaveBlob([]byte(cCtx.Args().First())))
	return nil
}

func rmAction(cCtx *cli.Context, cache *storage.Cache) error {
	if err := requireArgs(cCtx, 1, 1); err != nil {
		return err
	}
	removal := cache.TryDeleteBlob([]byte(cCtx.Args().First()))
	if removal.Err != nil {
		slog.Debug("Blob not removed", "error", removal.Err)
	}
	fmt.Fprintln(cCtx.App.Writer, removal.Removed)
	return nil
}

func nameSetAction(cCtx *cli.Context, cache *storage.Cache) error {
	if err := requireArgs(cCtx, 2, 2); err != nil {
		return err
	}
	return cache.SaveName(cCtx.Args().Get(0), []byte(cCtx.Args().Get(1)))
}

func nameGetAction(cCtx *cli.Context, cache *storage.Cache) error {
	if err := requireArgs(cCtx, 1, 1); err != nil {
		return err
	}
	data, err := cache.LoadName(cCtx.Args().First())
	if err != nil {
		return err
	}
	_, err = cCtx.App.Writer.Write(data)
	return err
}

func nameHasAction(cCtx *cli.Context, cache *storage.Cache) error {
	if err := requireArgs(cCtx, 1, 1); err != nil {
		return err
	}
	have, err := cache.HaveName(cCtx.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(cCtx.App.Writer, have)
	return nil
}

func nameDigestAction(cCtx *cli.Context, cache *storage.Cache) error {
	if err := requireArgs(cCtx, 1, 1); err != nil {
		return err
	}
	sum, err := cache.NameDigest(cCtx.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(cCtx.App.Writer, sum)
	return nil
}

func nameRmAction(cCtx *cli.Context, cache *storage.Cache) error {
	if err := requireArgs(cCtx, 1, 1); err != nil {
		return err
	}
	removal := cache.TryDeleteName(cCtx.Args().First())
	if removal.Err != nil {
		slog.Debug("Name not removed", "error", removal.Err)
	}
	fmt.Fprintln(cCtx.App.Writer, removal.Removed)
	return nil
}

func lsAction(cCtx *cli.Context, cache *storage.Cache) error {
	blobs, err := cache.Blobs()
	if err != nil {
		return err
	}
	names, err := cache.Names()
	if err != nil {
		return err
	}

	for _, sum := range blobs {
		fmt.Fprintf(cCtx.App.Writer, "blob %s\n", sum)
	}
	for _, name := range names {
		sum, err := cache.NameDigest(name)
		if err != nil {
			sum = "?"
		}
		fmt.Fprintf(cCtx.App.Writer, "name %s -> %s\n", name, sum)
	}
	return nil
}

func rmtreeAction(cCtx *cli.Context, cache *storage.Cache) error {
	report := cache.RemoveTree(cCtx.Bool(confirmFlag.Name))
	switch {
	case report.Removed:
		fmt.Fprintf(cCtx.App.Writer, "removed %s (%d entries)\n", report.Path, report.Entries)
	case report.Err != nil:
		fmt.Fprintf(cCtx.App.Writer, "not removed %s: %v\n", report.Path, report.Err)
	default:
		fmt.Fprintf(cCtx.App.Writer, "would remove %s (%d entries)\n", report.Path, report.Entries)
	}
	return nil
}

func newApp(stdin io.Reader, stdout io.Writer, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "mmry",
		Usage:     "content-addressed local blob cache",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			rootFlag,
			namespaceFlag,
			debugFlag,
		},
		Commands: []*cli.Command{
			{
				Name:      "hash",
				Usage:     "print the digest of each file, or of stdin",
				ArgsUsage: "[FILE...]",
				Action:    hashAction,
			},
			{
				Name:      "put",
				Usage:     "store FILE (or stdin) under the digest of KEY",
				ArgsUsage: "KEY [FILE]",
				Action:    withCache(putAction),
			},
			{
				Name:      "get",
				Usage:     "write the payload stored for KEY",
				ArgsUsage: "KEY",
				Action:    withCache(getAction),
			},
			{
				Name:      "has",
				Usage:     "report whether a payload is stored for KEY",
				ArgsUsage: "KEY",
				Action:    withCache(hasAction),
			},
			{
				Name:      "rm",
				Usage:     "remove the payload stored for KEY",
				ArgsUsage: "KEY",
				Action:    withCache(rmAction),
			},
			{
				Name:  "name",
				Usage: "manage names that point at blobs",
				Subcommands: []*cli.Command{
					{
						Name:      "set",
						Usage:     "point NAME at the blob for KEY",
						ArgsUsage: "NAME KEY",
						Action:    withCache(nameSetAction),
					},
					{
						Name:      "get",
						Usage:     "write the payload NAME points at",
						ArgsUsage: "NAME",
						Action:    withCache(nameGetAction),
					},
					{
						Name:      "has",
						Usage:     "report whether NAME resolves to a stored blob",
						ArgsUsage: "NAME",
						Action:    withCache(nameHasAction),
					},
					{
						Name:      "digest",
						Usage:     "print the digest NAME points at",
						ArgsUsage: "NAME",
						Action:    withCache(nameDigestAction),
					},
					{
						Name:      "rm",
						Usage:     "remove NAME, keeping its blob",
						ArgsUsage: "NAME",
						Action:    withCache(nameRmAction),
					},
				},
			},
			{
				Name:   "ls",
				Usage:  "list blobs and names in the namespace",
				Action: withCache(lsAction),
			},
			{
				Name:   "rmtree",
				Usage:  "remove the whole namespace",
				Flags:  []cli.Flag{confirmFlag},
				Action: withCache(rmtreeAction),
			},
		},
	}
}

func Run(ctx context.Context, args []string) error {
	return newApp(os.Stdin, os.Stdout, os.Stderr).RunContext(ctx, args)
}

func main() {
	if err := Run(context.Background(), os.Args); err != nil {
		slog.Error("mmry exited with error", "error", err)
		os.Exit(1)
	}
}
