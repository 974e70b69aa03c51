package pvtype

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/wippyai/pvdata/internal/wire"
)

// Fingerprint is a keyed BLAKE3 digest of a descriptor's structure.
// Structurally equal descriptors have equal fingerprints regardless of
// which registry created them.
type Fingerprint [32]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:8])
}

// fingerprintKey separates descriptor digests from any other BLAKE3 use.
var fingerprintKey = [32]byte([]byte("pvdata.descriptor.fingerprint.v1"))

// fingerprintOf hashes the shape header followed by the member names and
// the fingerprints of the (already canonical) children.
func fingerprintOf(d *Descriptor) Fingerprint {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("pvtype: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	w := wire.NewWriter()
	w.Byte(byte(d.kind))
	w.Byte(byte(d.scalar))
	w.WriteSize(d.bound)
	w.WriteString(d.id)
	w.Bool(d.discriminated)
	w.WriteSize(len(d.fields))
	for i, f := range d.fields {
		if i < len(d.names) {
			w.WriteString(d.names[i])
		}
		w.WriteBytes(f.fingerprint[:])
	}
	hasher.Write(w.Bytes())

	var out Fingerprint
	copy(out[:], hasher.Sum(nil))
	return out
}
