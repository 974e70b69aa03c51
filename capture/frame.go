package capture

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// Magic opens every capture file.
var Magic = [6]byte{'P', 'V', 'C', 'A', 'P', 1}

// maxHeaderSize bounds the CBOR header of one frame.
const maxHeaderSize = 4096

// FrameKind tells whether a frame carries a whole record or only changed
// offsets.
type FrameKind uint8

const (
	FrameFull    FrameKind = 0
	FramePartial FrameKind = 1
)

func (k FrameKind) String() string {
	switch k {
	case FrameFull:
		return "full"
	case FramePartial:
		return "partial"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Header describes one frame.
type Header struct {
	Seq         uint64      `cbor:"1,keyasint"`
	Kind        FrameKind   `cbor:"2,keyasint"`
	Compression Compression `cbor:"3,keyasint"`
	Size        int         `cbor:"4,keyasint"`
	Stored      int         `cbor:"5,keyasint"`
	UnixNano    int64       `cbor:"6,keyasint"`
	Digest      []byte      `cbor:"7,keyasint"`
	Offsets     int         `cbor:"8,keyasint,omitempty"`
}

// Time returns the moment the frame was written.
func (h *Header) Time() time.Time {
	return time.Unix(0, h.UnixNano)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("capture: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{MaxArrayElements: 64, MaxMapPairs: 64}.DecMode()
	if err != nil {
		panic("capture: CBOR decoder initialization failed: " + err.Error())
	}
}

var digestKey = [32]byte([]byte("pvdata.capture.payload.digest.v1"))

func digest(payload []byte) []byte {
	h, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		panic("capture: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = h.Write(payload)
	return h.Sum(nil)
}
