package storage

// BlobStore stores payloads under the digest of a content identity. The
// payload written for a content does not have to equal that content.
type BlobStore interface {
	// HaveBlob reports whether a payload is stored for content.
	HaveBlob(content []byte) bool

	// SaveBlob stores data for content, replacing any previous payload, and
	// returns the number of bytes written.
	SaveBlob(content []byte, data []byte) (int, error)

	// LoadBlob returns the payload stored for content.
	LoadBlob(content []byte) ([]byte, error)

	// DeleteBlob removes the payload for content and reports whether
	// anything was removed.
	DeleteBlob(content []byte) bool
}

// NameStore maps caller-chosen names onto blobs.
type NameStore interface {
	// HaveName reports whether name resolves to a stored blob.
	HaveName(name string) (bool, error)

	// SaveName points name at the blob for content.
	SaveName(name string, content []byte) error

	// LoadName returns the payload of the blob name points at.
	LoadName(name string) ([]byte, error)

	// DeleteName removes name without touching its blob.
	DeleteName(name string) bool
}

type Engine interface {
	BlobStore
	NameStore
}
