package build

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies everything a rendered page depends on. Two pages
// with the same RenderHash produce the same output bytes.
type Fingerprint struct {
	ContentHash  string
	LayoutHash   string
	ConfigHash   string
	CompilerHash string
	RenderHash   string
}

func (f *Fingerprint) ComputeRenderHash() {
	h := sha256.New()
	h.Write([]byte(f.ContentHash))
	h.Write([]byte{0})
	h.Write([]byte(f.LayoutHash))
	h.Write([]byte{0})
	h.Write([]byte(f.ConfigHash))
	h.Write([]byte{0})
	h.Write([]byte(f.CompilerHash))
	f.RenderHash = hex.EncodeToString(h.Sum(nil))
}

func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// DocumentKey is the cache key of a compiled document: the same source text
// under a different filename may compile differently (.md vs .mdx).
func DocumentKey(source, filename string) string {
	h := sha256.New()
	h.Write([]byte(filename))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}
