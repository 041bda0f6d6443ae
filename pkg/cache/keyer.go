package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Keyer derives cache keys.
type Keyer interface {
	// DocumentKey addresses a stored document by content hash.
	DocumentKey(docHash string) string
	// ArtifactKey addresses one rendered artifact of one step.
	ArtifactKey(docHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts identifies an artifact within a document.
//
// Rendering identifiers depend on every step displayed before, so Trail (the
// steps reconciled earlier in the same session, oldest first) is part of the
// key: the same step reached along different paths may render differently.
type ArtifactKeyOpts struct {
	Step     int    `json:"step"`
	Trail    []int  `json:"trail"`
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
}

// Hash returns the 64 character hex SHA-256 of data. Documents are keyed by
// the hash of their canonical JSON bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DefaultKeyer lays keys out as "doc:<hash>" and "artifact:<digest>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) DocumentKey(docHash string) string {
	return "doc:" + docHash
}

// ArtifactKey digests the document hash together with the options, so keys
// stay short however long the trail grows.
func (DefaultKeyer) ArtifactKey(docHash string, opts ArtifactKeyOpts) string {
	h := sha256.New()
	// Encoding a string and a plain struct cannot fail.
	_ = json.NewEncoder(h).Encode(struct {
		Doc string          `json:"doc"`
		Art ArtifactKeyOpts `json:"artifact"`
	}{docHash, opts})
	return "artifact:" + hex.EncodeToString(h.Sum(nil))
}

// ScopedKeyer prefixes every key of an inner Keyer, separating key spaces
// that share one backend (for example several hosts on one Redis instance).
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "staging")
//	keyer.DocumentKey(h) // "staging:doc:<h>"
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A missing ":" separator is
// appended; a nil inner keyer means the default layout.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) DocumentKey(docHash string) string {
	return k.prefix + k.inner.DocumentKey(docHash)
}

func (k *ScopedKeyer) ArtifactKey(docHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(docHash, opts)
}

var (
	_ Keyer = DefaultKeyer{}
	_ Keyer = (*ScopedKeyer)(nil)
)
