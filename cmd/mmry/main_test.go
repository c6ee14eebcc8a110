package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mmry/internal/digest"

	"github.com/stretchr/testify/require"
)

// run executes the CLI against root and returns what it wrote to stdout.
func run(t *testing.T, root string, stdin string, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := newApp(strings.NewReader(stdin), &stdout, &stderr)
	argv := append([]string{"mmry", "--root", root, "--namespace", "test"}, args...)
	err := app.RunContext(context.Background(), argv)
	return stdout.String(), err
}

func TestBlobCommands(t *testing.T) {
	root := t.TempDir()

	out, err := run(t, root, "output content", "put", "input content")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(strings.TrimSpace(out), " 14"), "put should report the size written: %q", out)

	out, err = run(t, root, "", "get", "input content")
	require.NoError(t, err)
	require.Equal(t, "output content", out)

	out, err = run(t, root, "", "has", "input content")
	require.NoError(t, err)
	require.Equal(t, "true\n", out)

	out, err = run(t, root, "", "rm", "input content")
	require.NoError(t, err)
	require.Equal(t, "true\n", out)

	out, err = run(t, root, "", "has", "input content")
	require.NoError(t, err)
	require.Equal(t, "false\n", out)

	out, err = run(t, root, "", "rm", "input content")
	require.NoError(t, err)
	require.Equal(t, "false\n", out, "removing twice reports false")

	_, err = run(t, root, "", "get", "input content")
	require.Error(t, err)
}

func TestPutFromFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(t.TempDir(), "payload.txt")
	require.NoError(t, os.WriteFile(src, []byte("from a file"), 0o644))

	_, err := run(t, root, "", "put", "key", src)
	require.NoError(t, err)

	out, err := run(t, root, "", "get", "key")
	require.NoError(t, err)
	require.Equal(t, "from a file", out)
}

func TestNameCommands(t *testing.T) {
	root := t.TempDir()

	_, err := run(t, root, "output content", "put", "input content")
	require.NoError(t, err)

	_, err = run(t, root, "", "name", "set", "key", "input content")
	require.NoError(t, err)

	out, err := run(t, root, "", "name", "get", "key")
	require.NoError(t, err)
	require.Equal(t, "output content", out)

	out, err = run(t, root, "", "name", "has", "key")
	require.NoError(t, err)
	require.Equal(t, "true\n", out)

	out, err = run(t, root, "", "name", "digest", "key")
	require.NoError(t, err)
	require.Equal(t, digest.New().SumString("input content")+"\n", out)

	out, err = run(t, root, "", "ls")
	require.NoError(t, err)
	require.Contains(t, out, "name key -> ")
	require.Contains(t, out, "blob ")

	out, err = run(t, root, "", "name", "rm", "key")
	require.NoError(t, err)
	require.Equal(t, "true\n", out)

	out, err = run(t, root, "", "has", "input content")
	require.NoError(t, err)
	require.Equal(t, "true\n", out, "removing a name keeps the blob")

	_, err = run(t, root, "", "name", "set", "a/b", "input content")
	require.Error(t, err, "names with separators are rejected")
}

func TestRmtreeCommand(t *testing.T) {
	root := t.TempDir()

	_, err := run(t, root, "payload", "put", "key")
	require.NoError(t, err)

	out, err := run(t, root, "", "rmtree")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "would remove "), "dry run by default: %q", out)
	require.DirExists(t, filepath.Join(root, "test"))

	out, err = run(t, root, "", "rmtree", "--confirm")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "removed "), "confirmed removal: %q", out)
	require.NoDirExists(t, filepath.Join(root, "test"))
}

func TestHashCommand(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(""), 0o644))

	out, err := run(t, dir, "", "hash", a, b)
	require.NoError(t, err)
	require.Equal(t,
		"a9993e364706816aba3e25717850c26c9cd0d89d  "+a+"\n"+
			"da39a3ee5e6b4b0d3255bfef95601890afd80709  "+b+"\n",
		out)

	out, err = run(t, dir, "abc", "hash")
	require.NoError(t, err)
	require.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d  -\n", out)

	_, err = run(t, dir, "", "hash", filepath.Join(dir, "missing"))
	require.Error(t, err)
}
