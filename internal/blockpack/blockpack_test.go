package blockpack

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	records := []Record{
		{DynamicComboID: 0, Payload: []byte("alpha")},
		{DynamicComboID: 1, Payload: []byte("beta")},
		{DynamicComboID: 2, Payload: []byte{}},
	}

	packed := Pack(records)
	got, err := Unpack(packed)
	if err != nil {
		t.Fatalf("Unpack error = %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d", len(got), len(records))
	}
	for i, r := range records {
		if got[i].DynamicComboID != r.DynamicComboID {
			t.Errorf("record %d: DynamicComboID = %d, want %d", i, got[i].DynamicComboID, r.DynamicComboID)
		}
		if !bytes.Equal(got[i].Payload, r.Payload) {
			t.Errorf("record %d: Payload = %q, want %q", i, got[i].Payload, r.Payload)
		}
	}
}

func TestPackEndsWithSentinel(t *testing.T) {
	packed := Pack([]Record{{DynamicComboID: 0, Payload: []byte("x")}})
	if len(packed) < 4 {
		t.Fatalf("packed blob too short: %d bytes", len(packed))
	}
	last := binary.LittleEndian.Uint32(packed[len(packed)-4:])
	if last != Sentinel {
		t.Errorf("last word = %#x, want sentinel %#x", last, Sentinel)
	}
}

func TestPackEmptyIsJustSentinel(t *testing.T) {
	packed := Pack(nil)
	if len(packed) != 4 {
		t.Fatalf("len(packed) = %d, want 4 (sentinel only)", len(packed))
	}
	if binary.LittleEndian.Uint32(packed) != Sentinel {
		t.Error("empty pack did not emit the sentinel word")
	}
}

func TestPackMultipleBlocksOnLargeInput(t *testing.T) {
	var records []Record
	payload := bytes.Repeat([]byte{0x5A}, 1024)
	// Force at least two blocks: each record is ~1032 bytes (8-byte header
	// + 1024-byte payload); 2*MaxUnpackedBlockSize/1024 + 4 records (about
	// 136 KiB) guarantees the buffer flushes more than once.
	n := (2*MaxUnpackedBlockSize)/len(payload) + 4
	for i := 0; i < n; i++ {
		records = append(records, Record{DynamicComboID: int64(i), Payload: payload})
	}

	packed := Pack(records)
	blocks := countBlocks(t, packed)
	if blocks < 2 {
		t.Errorf("expected at least 2 compressed/stored blocks, got %d", blocks)
	}

	got, err := Unpack(packed)
	if err != nil {
		t.Fatalf("Unpack error = %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d", len(got), len(records))
	}
}

// countBlocks walks the block framing without fully decompressing, purely
// to count how many flag|size words precede the terminal sentinel.
func countBlocks(t *testing.T, packed []byte) int {
	t.Helper()
	pos := 0
	blocks := 0
	for {
		word := binary.LittleEndian.Uint32(packed[pos : pos+4])
		pos += 4
		if word == Sentinel {
			return blocks
		}
		size := int(word & flagSizeMask)
		pos += size
		blocks++
	}
}
