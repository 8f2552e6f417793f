package journal

import "encoding/binary"

func putUint64At(buf []byte, off, v uint64) {
	binary.LittleEndian.PutUint64(buf[off:off+8], v)
}

func putUint32At(buf []byte, off uint64, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}
