// Package digest maps content to the hexadecimal SHA-1 digest that addresses
// it in the cache. Text is hashed as its UTF-8 bytes, so a string and the
// equivalent []byte always share a digest.
package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Size is the length of a rendered digest in hexadecimal characters.
const Size = sha1.Size * 2

// ErrUnsupportedContent is returned when content is neither text nor bytes.
var ErrUnsupportedContent = errors.New("content must be a string or []byte")

// Ensure coerces v to the bytes that get hashed.
func Ensure(v any) ([]byte, error) {
	switch c := v.(type) {
	case []byte:
		return c, nil
	case string:
		return []byte(c), nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedContent, v)
	}
}

// Valid reports whether s has the shape of a rendered digest: Size lowercase
// hexadecimal characters.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Digester computes digests and remembers every digest it has computed,
// keyed on the hashed bytes. The memo is never evicted; its lifetime is the
// lifetime of the Digester.
//
// A Digester is safe for concurrent use. Concurrent requests for the same
// content compute the hash once.
type Digester struct {
	mu    sync.RWMutex
	memo  map[string]string
	group singleflight.Group
}

// New returns a Digester with an empty memo.
func New() *Digester {
	return &Digester{memo: make(map[string]string)}
}

// Sum returns the digest of b.
func (d *Digester) Sum(b []byte) string {
	key := string(b)

	d.mu.RLock()
	sum, ok := d.memo[key]
	d.mu.RUnlock()
	if ok {
		return sum
	}

	v, _, _ := d.group.Do(key, func() (any, error) {
		h := sha1.Sum(b)
		sum := hex.EncodeToString(h[:])

		d.mu.Lock()
		d.memo[key] = sum
		d.mu.Unlock()
		return sum, nil
	})
	return v.(string)
}

// SumString returns the digest of the UTF-8 bytes of s.
func (d *Digester) SumString(s string) string {
	return d.Sum([]byte(s))
}

// SumAny returns the digest of v, which must be a string or []byte.
func (d *Digester) SumAny(v any) (string, error) {
	b, err := Ensure(v)
	if err != nil {
		return "", err
	}
	return d.Sum(b), nil
}

// Len returns the number of distinct contents memoized so far.
func (d *Digester) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.memo)
}
