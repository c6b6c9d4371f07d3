package collections

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// TreeSha256 computes a stable digest over a name -> content mapping.  Names
// are hashed in sorted order, each followed by its content length and bytes.
func TreeSha256(files map[string][]byte) string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	var size [8]byte
	for _, name := range names {
		data := files[name]
		h.Write([]byte(name))
		h.Write([]byte{0})
		n := uint64(len(data))
		for i := range size {
			size[i] = byte(n >> (8 * (7 - i)))
		}
		h.Write(size[:])
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}
