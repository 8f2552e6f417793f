package jobj

import (
	"encoding/binary"
	"fmt"
)

// TagSize is the fixed on-disk size of a TAG object.
const TagSize = ObjectHeaderSize + 48

// TagObject anchors a FSS (forward secure sealing) checkpoint: the sealing
// epoch and an HMAC over every object appended since the previous tag.
// logjournal never generates sealed files itself, but must be able to skip
// over TAG objects written by another implementation.
type TagObject struct {
	Header ObjectHeader

	Seqnum uint64
	Epoch  uint64
	HMAC   [32]byte
}

// ReadTagObject decodes a TAG object from buf.
func ReadTagObject(buf []byte) (TagObject, error) {
	h, err := ReadObjectHeader(buf)
	if err != nil {
		return TagObject{}, err
	}
	if h.Type != ObjectTag {
		return TagObject{}, &ErrObjectTypeMismatch{Want: ObjectTag, Got: h.Type}
	}
	if h.Size < TagSize {
		return TagObject{}, fmt.Errorf("jobj: TAG object size %d smaller than fixed size %d", h.Size, TagSize)
	}
	if uint64(len(buf)) < h.Size {
		return TagObject{}, fmt.Errorf("jobj: TAG object buffer too small: got %d, want %d", len(buf), h.Size)
	}
	t := TagObject{
		Header: h,
		Seqnum: binary.LittleEndian.Uint64(buf[16:24]),
		Epoch:  binary.LittleEndian.Uint64(buf[24:32]),
	}
	copy(t.HMAC[:], buf[32:64])
	return t, nil
}
