package shadercompile

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shadercompile/vcs/internal/blockpack"
	"github.com/shadercompile/vcs/internal/dedup"
)

// archiveHeaderSize is the fixed 28-byte header (§4.E.3): seven uint32/int32
// fields, written little-endian — the original format is a native struct
// dump from a Windows x86 build, so byte order follows that convention.
const archiveHeaderSize = 7 * 4

// staticComboRecordSize and aliasRecordSize are each 8 bytes (§4.E.3).
const staticComboRecordSize = 8
const aliasRecordSize = 8

// sentinelStaticComboID marks the trailing StaticComboRecord whose
// file_offset stores the end-of-body position rather than a real combo's
// offset (§4.E.3, resolved open question: confirmed by TestArchiveSentinelOffsetIsEndOfBody).
const sentinelStaticComboID uint32 = 0xFFFFFFFF

// ArchiveMeta carries the per-entry values written verbatim into a VCS
// header; the core does not interpret CentroidMask or SourceCRC32 beyond
// storing and round-tripping them.
type ArchiveMeta struct {
	TotalCombos   int32
	DynamicCombos int32
	CentroidMask  uint32
	SourceCRC32   uint32
}

// sealAll packs every unsealed static combo in a (§4.E.1), in ascending
// static-combo-id order so archive construction is deterministic.
func (a *ShaderAccumulator) sealAll() {
	for _, sc := range a.sortedStatics() {
		if !sc.sealed() {
			sc.seal(packBlocks)
		}
	}
}

// sortedStatics returns this accumulator's static combos in ascending
// StaticComboID order.
func (a *ShaderAccumulator) sortedStatics() []*StaticCombo {
	out := make([]*StaticCombo, 0, len(a.statics))
	for _, sc := range a.statics {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StaticComboID < out[j].StaticComboID })
	return out
}

// buildArchive encodes a's sealed static combos into the bit-exact VCS
// layout (§4.E.3): header, StaticComboRecord array (placeholder offsets),
// alias array, then packed bodies in ascending id order, with offsets
// back-patched once the body section's real positions are known.
func buildArchive(a *ShaderAccumulator, meta ArchiveMeta) ([]byte, error) {
	a.sealAll()

	statics := a.sortedStatics()
	table := dedup.New()

	type body struct {
		id  int64
		blob []byte
	}
	var bodies []body
	var aliases []StaticComboRecordAlias

	for _, sc := range statics {
		canonical, isAlias := table.Insert(sc.StaticComboID, sc.Packed)
		if isAlias {
			aliases = append(aliases, StaticComboRecordAlias{ThisID: sc.StaticComboID, CanonicalID: canonical})
			continue
		}
		bodies = append(bodies, body{id: sc.StaticComboID, blob: sc.Packed})
	}
	sort.Slice(aliases, func(i, j int) bool { return aliases[i].ThisID < aliases[j].ThisID })

	numStaticRecords := len(bodies) + 1 // + sentinel
	buf := make([]byte, 0, archiveHeaderSize+numStaticRecords*staticComboRecordSize+4+len(aliases)*aliasRecordSize)

	// Header.
	var hdr [archiveHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], ShaderVCSVersionNumber)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(meta.TotalCombos))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(meta.DynamicCombos))
	binary.LittleEndian.PutUint32(hdr[12:16], 0) // flags, always zero
	binary.LittleEndian.PutUint32(hdr[16:20], meta.CentroidMask)
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(numStaticRecords))
	binary.LittleEndian.PutUint32(hdr[24:28], meta.SourceCRC32)
	buf = append(buf, hdr[:]...)

	// StaticComboRecord array, placeholder offsets, patched below.
	recordsStart := len(buf)
	for _, b := range bodies {
		var rec [staticComboRecordSize]byte
		binary.LittleEndian.PutUint32(rec[0:4], uint32(b.id))
		binary.LittleEndian.PutUint32(rec[4:8], 0)
		buf = append(buf, rec[:]...)
	}
	sentinelRecordOffset := len(buf)
	var sentinelRec [staticComboRecordSize]byte
	binary.LittleEndian.PutUint32(sentinelRec[0:4], sentinelStaticComboID)
	buf = append(buf, sentinelRec[:]...)

	// Alias count + array.
	var aliasCount [4]byte
	binary.LittleEndian.PutUint32(aliasCount[:], uint32(len(aliases)))
	buf = append(buf, aliasCount[:]...)
	for _, al := range aliases {
		var rec [aliasRecordSize]byte
		binary.LittleEndian.PutUint32(rec[0:4], uint32(al.ThisID))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(al.CanonicalID))
		buf = append(buf, rec[:]...)
	}

	// Body section; record each body's real offset as we go.
	offsets := make([]uint32, len(bodies))
	for i, b := range bodies {
		offsets[i] = uint32(len(buf))
		buf = append(buf, b.blob...)
	}
	endOfBody := uint32(len(buf))

	// Back-patch the StaticComboRecord array with real offsets.
	for i, off := range offsets {
		pos := recordsStart + i*staticComboRecordSize + 4
		binary.LittleEndian.PutUint32(buf[pos:pos+4], off)
	}
	binary.LittleEndian.PutUint32(buf[sentinelRecordOffset+4:sentinelRecordOffset+8], endOfBody)

	return buf, nil
}

// StaticComboRecordAlias is one alias edge: ThisID's body is byte-identical
// to CanonicalID's, which was written earlier (§4.E.2).
type StaticComboRecordAlias struct {
	ThisID      int64
	CanonicalID int64
}

// DecodedArchive is what DecodeArchive recovers from a VCS file's bytes —
// enough to verify the archive round-trip property (§8 invariant 5).
type DecodedArchive struct {
	Meta            ArchiveMeta
	StaticCombos    map[int64][]blockpack.Record // canonical id -> dynamic records
	Aliases         map[int64]int64              // this id -> canonical id
	EndOfBodyOffset uint32
}

// DecodeArchive parses a VCS file's bytes back into its logical contents.
func DecodeArchive(data []byte) (DecodedArchive, error) {
	var out DecodedArchive
	if len(data) < archiveHeaderSize {
		return out, fmt.Errorf("%w: archive shorter than header", ErrIO)
	}
	out.Meta = ArchiveMeta{
		TotalCombos:   int32(binary.LittleEndian.Uint32(data[4:8])),
		DynamicCombos: int32(binary.LittleEndian.Uint32(data[8:12])),
		CentroidMask:  binary.LittleEndian.Uint32(data[16:20]),
		SourceCRC32:   binary.LittleEndian.Uint32(data[24:28]),
	}
	numStatic := binary.LittleEndian.Uint32(data[20:24])

	pos := archiveHeaderSize
	type rec struct {
		id     uint32
		offset uint32
	}
	records := make([]rec, 0, numStatic)
	for i := uint32(0); i < numStatic; i++ {
		if pos+staticComboRecordSize > len(data) {
			return out, fmt.Errorf("%w: truncated static combo record array", ErrIO)
		}
		id := binary.LittleEndian.Uint32(data[pos : pos+4])
		off := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		records = append(records, rec{id: id, offset: off})
		pos += staticComboRecordSize
	}
	if len(records) == 0 || records[len(records)-1].id != sentinelStaticComboID {
		return out, fmt.Errorf("%w: missing sentinel static combo record", ErrIO)
	}
	out.EndOfBodyOffset = records[len(records)-1].offset
	records = records[:len(records)-1]

	if pos+4 > len(data) {
		return out, fmt.Errorf("%w: truncated alias count", ErrIO)
	}
	numAliases := binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4
	out.Aliases = make(map[int64]int64, numAliases)
	for i := uint32(0); i < numAliases; i++ {
		if pos+aliasRecordSize > len(data) {
			return out, fmt.Errorf("%w: truncated alias record array", ErrIO)
		}
		this := binary.LittleEndian.Uint32(data[pos : pos+4])
		canonical := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		out.Aliases[int64(this)] = int64(canonical)
		pos += aliasRecordSize
	}

	out.StaticCombos = make(map[int64][]blockpack.Record, len(records))
	for i, r := range records {
		end := out.EndOfBodyOffset
		if i+1 < len(records) {
			end = records[i+1].offset
		}
		if int(r.offset) > len(data) || int(end) > len(data) || end < r.offset {
			return out, fmt.Errorf("%w: invalid body offsets", ErrIO)
		}
		recs, err := blockpack.Unpack(data[r.offset:end])
		if err != nil {
			return out, fmt.Errorf("%w: unpacking static combo %d: %v", ErrIO, r.id, err)
		}
		out.StaticCombos[int64(r.id)] = recs
	}
	for this, canonical := range out.Aliases {
		if _, ok := out.StaticCombos[canonical]; !ok {
			return out, fmt.Errorf("%w: alias %d points at non-existent canonical id %d", ErrInvariantBroken, this, canonical)
		}
	}

	return out, nil
}

// vcsOutputPath returns <root>/shaders/fxc/<name>.vcs (§4.E.4).
func vcsOutputPath(root, name string) string {
	return filepath.Join(root, "shaders", "fxc", name+".vcs")
}

// WriteVCSFile stages and writes a's archive under root, per §4.E.4: create
// the shaders/fxc directory if missing, relax permissions on an existing
// read-only file, and remove the target on any failure. Idempotent per the
// §3 invariant: a second call with the same accumulator state performs no
// further I/O and returns nil.
func (a *ShaderAccumulator) WriteVCSFile(root string, meta ArchiveMeta) error {
	if a.vcsWritten {
		return nil
	}
	path := vcsOutputPath(root, a.Name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: creating archive directory: %v", ErrIO, err)
	}
	if info, err := os.Stat(path); err == nil && info.Mode().Perm()&0o200 == 0 {
		if err := os.Chmod(path, info.Mode().Perm()|0o600); err != nil {
			os.Remove(path)
			return fmt.Errorf("%w: relaxing permissions on %s: %v", ErrIO, path, err)
		}
	}

	data, err := buildArchive(a, meta)
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: building archive for %s: %v", ErrIO, a.Name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: writing %s: %v", ErrIO, path, err)
	}

	a.vcsWritten = true
	return nil
}

// RemoveVCSFile deletes any existing archive for a failed shader (§3: "a
// failed shader writes no VCS file; any pre-existing VCS file of the same
// name is removed").
func RemoveVCSFile(root, name string) error {
	path := vcsOutputPath(root, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing stale archive %s: %v", ErrIO, path, err)
	}
	return nil
}
