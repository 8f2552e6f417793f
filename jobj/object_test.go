package jobj

import (
	"testing"
)

func TestAlignedSize(t *testing.T) {
	cases := map[uint64]uint64{0: 0, 1: 8, 7: 8, 8: 8, 9: 16, 64: 64, 65: 72}
	for in, want := range cases {
		if got := AlignedSize(in); got != want {
			t.Fatalf("AlignedSize(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestObjectHeaderRoundTrip(t *testing.T) {
	h := ObjectHeader{Type: ObjectData, Flags: FlagCompressedZSTD, Size: 128}
	buf := make([]byte, 128)
	h.Put(buf)

	got, err := ReadObjectHeader(buf)
	if err != nil {
		t.Fatalf("ReadObjectHeader: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestDataObjectRoundTrip(t *testing.T) {
	payload := []byte("MESSAGE=hello world")
	size := AlignedSize(DataFixedSize + uint64(len(payload)))
	buf := make([]byte, size)
	d := DataObject{
		Header:           ObjectHeader{Size: size},
		Hash:             0xdeadbeef,
		NextHashOffset:   4096,
		NextFieldOffset:  8192,
		EntryOffset:      16384,
		EntryArrayOffset: 0,
		NEntries:         1,
		Payload:          payload,
	}
	PutDataObject(buf, d)

	got, err := ReadDataObject(buf)
	if err != nil {
		t.Fatalf("ReadDataObject: %v", err)
	}
	if got.Header.Type != ObjectData {
		t.Fatalf("type = %v, want DATA", got.Header.Type)
	}
	if got.Hash != d.Hash || got.NextHashOffset != d.NextHashOffset {
		t.Fatalf("fixed fields mismatch: %+v", got)
	}
	if string(got.Payload) != string(payload) {
		t.Fatalf("payload = %q, want %q", got.Payload, payload)
	}
}

func TestDataObjectWrongType(t *testing.T) {
	buf := make([]byte, DataFixedSize)
	hdr := ObjectHeader{Type: ObjectField, Size: DataFixedSize}
	hdr.Put(buf)
	_, err := ReadDataObject(buf)
	if err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func TestFieldObjectRoundTrip(t *testing.T) {
	name := []byte("MESSAGE")
	size := AlignedSize(FieldFixedSize + uint64(len(name)))
	buf := make([]byte, size)
	f := FieldObject{
		Header:         ObjectHeader{Size: size},
		Hash:           42,
		NextHashOffset: 1000,
		HeadDataOffset: 2000,
		Name:           name,
	}
	PutFieldObject(buf, f)

	got, err := ReadFieldObject(buf)
	if err != nil {
		t.Fatalf("ReadFieldObject: %v", err)
	}
	if string(got.Name) != "MESSAGE" {
		t.Fatalf("name = %q, want MESSAGE", got.Name)
	}
	if got.HeadDataOffset != 2000 {
		t.Fatalf("HeadDataOffset = %d, want 2000", got.HeadDataOffset)
	}
}

func TestEntryObjectRoundTrip(t *testing.T) {
	items := []EntryItem{{ObjectOffset: 100, Hash: 1}, {ObjectOffset: 200, Hash: 2}}
	size := EntryFixedSize + uint64(len(items))*EntryItemSize
	buf := make([]byte, size)
	e := EntryObject{
		Header:    ObjectHeader{Size: size},
		Seqnum:    7,
		Realtime:  123456,
		Monotonic: 999,
		Items:     items,
	}
	copy(e.BootID[:], []byte("boot-id-0123456"))
	PutEntryObject(buf, e)

	got, err := ReadEntryObject(buf)
	if err != nil {
		t.Fatalf("ReadEntryObject: %v", err)
	}
	if got.Seqnum != 7 || got.Realtime != 123456 {
		t.Fatalf("scalar fields mismatch: %+v", got)
	}
	if len(got.Items) != 2 || got.Items[1].ObjectOffset != 200 {
		t.Fatalf("items mismatch: %+v", got.Items)
	}
	if got.BootID != e.BootID {
		t.Fatalf("boot id mismatch")
	}
}

func TestEntryArrayRoundTripRegular(t *testing.T) {
	items := []uint64{10, 20, 30}
	size := SizeForCapacity(uint64(len(items)), false)
	buf := make([]byte, size)
	a := EntryArrayObject{
		Header:          ObjectHeader{Size: size},
		NextArrayOffset: 999,
		Items:           items,
	}
	if err := PutEntryArrayObject(buf, a, false); err != nil {
		t.Fatalf("PutEntryArrayObject: %v", err)
	}
	got, err := ReadEntryArrayObject(buf, false)
	if err != nil {
		t.Fatalf("ReadEntryArrayObject: %v", err)
	}
	if len(got.Items) != 3 || got.Items[2] != 30 {
		t.Fatalf("items mismatch: %+v", got.Items)
	}
	if got.NextArrayOffset != 999 {
		t.Fatalf("NextArrayOffset = %d, want 999", got.NextArrayOffset)
	}
}

func TestEntryArrayRoundTripCompact(t *testing.T) {
	items := []uint64{10, 20, 30}
	size := SizeForCapacity(uint64(len(items)), true)
	buf := make([]byte, size)
	a := EntryArrayObject{Header: ObjectHeader{Size: size}, Items: items}
	if err := PutEntryArrayObject(buf, a, true); err != nil {
		t.Fatalf("PutEntryArrayObject: %v", err)
	}
	got, err := ReadEntryArrayObject(buf, true)
	if err != nil {
		t.Fatalf("ReadEntryArrayObject: %v", err)
	}
	if len(got.Items) != 3 || got.Items[0] != 10 {
		t.Fatalf("items mismatch: %+v", got.Items)
	}
}

func TestEntryArrayCompactRejectsOverflow(t *testing.T) {
	a := EntryArrayObject{Header: ObjectHeader{}, Items: []uint64{1 << 33}}
	buf := make([]byte, SizeForCapacity(1, true))
	if err := PutEntryArrayObject(buf, a, true); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestHashTableRoundTrip(t *testing.T) {
	size := SizeForBuckets(4)
	buf := make([]byte, size)
	ht := HashTableObject{
		Header:  ObjectHeader{Size: size},
		Buckets: []Bucket{{Head: 1, Tail: 1}, {}, {Head: 5, Tail: 9}, {}},
	}
	PutHashTableObject(buf, ht, ObjectDataHashTable)

	got, err := ReadDataHashTableObject(buf)
	if err != nil {
		t.Fatalf("ReadDataHashTableObject: %v", err)
	}
	if len(got.Buckets) != 4 || got.Buckets[2].Tail != 9 {
		t.Fatalf("buckets mismatch: %+v", got.Buckets)
	}

	PutBucket(buf, 1, Bucket{Head: 77, Tail: 88})
	got2, err := ReadDataHashTableObject(buf)
	if err != nil {
		t.Fatalf("ReadDataHashTableObject after patch: %v", err)
	}
	if got2.Buckets[1].Head != 77 || got2.Buckets[1].Tail != 88 {
		t.Fatalf("PutBucket patch not observed: %+v", got2.Buckets[1])
	}
}

func TestTagObjectRoundTrip(t *testing.T) {
	buf := make([]byte, TagSize)
	hdr := ObjectHeader{Type: ObjectTag, Size: TagSize}
	hdr.Put(buf)
	got, err := ReadTagObject(buf)
	if err != nil {
		t.Fatalf("ReadTagObject: %v", err)
	}
	if got.Header.Type != ObjectTag {
		t.Fatalf("type = %v, want TAG", got.Header.Type)
	}
}

func TestDecompressUncompressed(t *testing.T) {
	payload := []byte("MESSAGE=plain")
	out, err := Decompress(0, payload)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != string(payload) {
		t.Fatalf("Decompress changed uncompressed payload")
	}
}

func TestCompressDecompressZSTDRoundTrip(t *testing.T) {
	payload := []byte("MESSAGE=this is a moderately long payload to exercise zstd framing")
	compressed, err := Compress(FlagCompressedZSTD, payload)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	out, err := Decompress(FlagCompressedZSTD, compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != string(payload) {
		t.Fatalf("round trip mismatch: got %q, want %q", out, payload)
	}
}

func TestCompressDecompressLZ4RoundTrip(t *testing.T) {
	payload := []byte("MESSAGE=this is a moderately long payload to exercise lz4 framing")
	compressed, err := Compress(FlagCompressedLZ4, payload)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	out, err := Decompress(FlagCompressedLZ4, compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != string(payload) {
		t.Fatalf("round trip mismatch: got %q, want %q", out, payload)
	}
}

func TestDecompressUnknownMethod(t *testing.T) {
	_, err := Decompress(FlagCompressedXZ, []byte{1, 2, 3})
	if err != ErrUnknownCompressionMethod {
		t.Fatalf("err = %v, want ErrUnknownCompressionMethod", err)
	}
}
