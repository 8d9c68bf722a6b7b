// Package blockpack implements the blockwise compressed packing format used
// by the archive builder (§4.E.1): an ordered list of (dynamic_id, payload)
// records is framed into blocks, one flushed each time the buffered records
// reach MaxUnpackedBlockSize, each block compressed or
// stored raw depending on whichever is smaller, and terminated with a
// sentinel. The spec's original codec is LZMA; no LZMA/XZ/zstd library
// exists anywhere in the retrieved corpus, so compress/flate (DEFLATE)
// stands in as the concrete block compressor. Only the compressed bytes
// differ from a real LZMA stream — the flag bits, stored/compressed
// fallback, and sentinel framing below are bit-exact to the design.
package blockpack

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"io"
)

// MaxUnpackedBlockSize is the uncompressed-record buffer threshold that
// triggers a flush into one compressed (or stored) block.
const MaxUnpackedBlockSize = 64 * 1024

// Sentinel terminates a static combo's packed blob.
const Sentinel uint32 = 0xFFFFFFFF

// Two-high-bit flags on the 4-byte flag|size word preceding each block.
// 00 is the legacy bzip2 marker from the design and is never emitted here.
const (
	flagStored   uint32 = 0x80000000
	flagFlate    uint32 = 0x40000000
	flagSizeMask uint32 = 0x3FFFFFFF
)

// Record is one dynamic combo's payload, ordered ascending by
// DynamicComboID before packing (§3 invariant: sealed blobs are ascending).
type Record struct {
	DynamicComboID int64
	Payload        []byte
}

// Pack frames records into the blockwise format and returns the complete
// packed blob, terminated by Sentinel. records must already be sorted by
// DynamicComboID; Pack does not sort them itself.
func Pack(records []Record) []byte {
	var out bytes.Buffer
	var buf bytes.Buffer

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		writeBlock(&out, buf.Bytes())
		buf.Reset()
	}

	for _, r := range records {
		var hdr [8]byte
		binary.LittleEndian.PutUint32(hdr[0:4], uint32(r.DynamicComboID))
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(r.Payload)))
		buf.Write(hdr[:])
		buf.Write(r.Payload)

		if buf.Len() >= MaxUnpackedBlockSize {
			flush()
		}
	}
	flush()

	var sentinel [4]byte
	binary.LittleEndian.PutUint32(sentinel[:], Sentinel)
	out.Write(sentinel[:])
	return out.Bytes()
}

// writeBlock compresses raw via flate; if the compressed form is not
// smaller than raw, it stores raw uncompressed instead (§4.E.1 step 2).
func writeBlock(out *bytes.Buffer, raw []byte) {
	var compressed bytes.Buffer
	fw, _ := flate.NewWriter(&compressed, flate.BestCompression)
	_, _ = fw.Write(raw)
	_ = fw.Close()

	var hdr [4]byte
	if compressed.Len() < len(raw) {
		binary.LittleEndian.PutUint32(hdr[:], flagFlate|uint32(compressed.Len()))
		out.Write(hdr[:])
		out.Write(compressed.Bytes())
	} else {
		binary.LittleEndian.PutUint32(hdr[:], flagStored|uint32(len(raw)))
		out.Write(hdr[:])
		out.Write(raw)
	}
}

// Unpack reverses Pack, returning the records in the order they were
// stored (ascending DynamicComboID, per the Pack precondition).
func Unpack(packed []byte) ([]Record, error) {
	var records []Record
	pos := 0
	for {
		if pos+4 > len(packed) {
			return nil, io.ErrUnexpectedEOF
		}
		word := binary.LittleEndian.Uint32(packed[pos : pos+4])
		pos += 4
		if word == Sentinel {
			return records, nil
		}

		size := int(word & flagSizeMask)
		if pos+size > len(packed) {
			return nil, io.ErrUnexpectedEOF
		}
		block := packed[pos : pos+size]
		pos += size

		var raw []byte
		switch word & ^flagSizeMask {
		case flagStored:
			raw = block
		case flagFlate:
			fr := flate.NewReader(bytes.NewReader(block))
			data, err := io.ReadAll(fr)
			_ = fr.Close()
			if err != nil {
				return nil, err
			}
			raw = data
		default:
			return nil, io.ErrUnexpectedEOF
		}

		recs, err := unpackRecords(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
}

func unpackRecords(raw []byte) ([]Record, error) {
	var recs []Record
	pos := 0
	for pos < len(raw) {
		if pos+8 > len(raw) {
			return nil, io.ErrUnexpectedEOF
		}
		id := binary.LittleEndian.Uint32(raw[pos : pos+4])
		n := binary.LittleEndian.Uint32(raw[pos+4 : pos+8])
		pos += 8
		if pos+int(n) > len(raw) {
			return nil, io.ErrUnexpectedEOF
		}
		payload := append([]byte(nil), raw[pos:pos+int(n)]...)
		pos += int(n)
		recs = append(recs, Record{DynamicComboID: int64(id), Payload: payload})
	}
	return recs, nil
}
