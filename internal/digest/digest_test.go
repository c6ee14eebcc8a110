package digest_test

import (
	"mmry/internal/digest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumKnownValues(t *testing.T) {
	t.Parallel()

	d := digest.New()

	require.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", d.Sum(nil))
	require.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", d.SumString("abc"))
}

func TestSumDeterministic(t *testing.T) {
	t.Parallel()

	d := digest.New()
	b := []byte("input content")

	first := d.Sum(b)
	require.Equal(t, first, d.Sum(b), "repeated calls should agree")
	require.Equal(t, first, d.SumString(string(b)), "text and bytes should share a digest")
	require.Len(t, first, digest.Size)
	require.True(t, digest.Valid(first), "digest should be lowercase hex")

	// Equal content supplied as text and bytes is memoized once.
	require.Equal(t, 1, d.Len())
}

func TestSumDistinct(t *testing.T) {
	t.Parallel()

	d := digest.New()
	inputs := []string{"", "a", "b", "ab", "ba", "input content", "input content\n", "\x00", "héllo"}

	seen := make(map[string]string, len(inputs))
	for _, in := range inputs {
		sum := d.SumString(in)
		prev, dup := seen[sum]
		require.False(t, dup, "digest collision between %q and %q", prev, in)
		seen[sum] = in
	}
	require.Equal(t, len(inputs), d.Len())
}

func TestSumIndependentMemo(t *testing.T) {
	t.Parallel()

	a := digest.New()
	b := digest.New()

	a.SumString("only in a")
	require.Equal(t, 1, a.Len())
	require.Equal(t, 0, b.Len(), "digesters should not share a memo")
}

func TestSumConcurrent(t *testing.T) {
	t.Parallel()

	d := digest.New()
	want := d.SumString("shared")

	got := make([]string, 32)
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = d.SumString("shared")
		}()
	}
	wg.Wait()

	for _, sum := range got {
		require.Equal(t, want, sum)
	}
	require.Equal(t, 1, d.Len())
}

func TestEnsure(t *testing.T) {
	t.Parallel()

	b, err := digest.Ensure("text")
	require.NoError(t, err)
	require.Equal(t, []byte("text"), b)

	b, err = digest.Ensure([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, b)

	_, err = digest.Ensure(42)
	require.ErrorIs(t, err, digest.ErrUnsupportedContent)

	_, err = digest.New().SumAny(3.14)
	require.ErrorIs(t, err, digest.ErrUnsupportedContent)
}

func TestValid(t *testing.T) {
	t.Parallel()

	require.True(t, digest.Valid("a9993e364706816aba3e25717850c26c9cd0d89d"))
	require.False(t, digest.Valid("A9993E364706816ABA3E25717850C26C9CD0D89D"), "uppercase is rejected")
	require.False(t, digest.Valid("a9993e"), "short is rejected")
	require.False(t, digest.Valid("../../../../../../../../../../etc/passwd"), "path is rejected")
}
