package bake

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"
	"math"

	"rts-terrain/internal/terrain"

	"github.com/klauspost/compress/zstd"
)

const (
	dumpMagic   = "RTSH"
	dumpVersion = 1
	maxDumpVPL  = 4097
)

var (
	// ErrBadDump is returned for a truncated, corrupt or foreign dump.
	ErrBadDump = errors.New("bake: bad dump")
	// ErrMismatch is returned by Verify when regenerated terrain differs.
	ErrMismatch = errors.New("bake: regenerated heightfield differs")
)

// Entry is one chunk of a dump.
type Entry struct {
	Coord       terrain.ChunkCoord
	Heightfield *terrain.Heightfield
}

// WriteDump writes entries to w as a zstd stream. The payload is a header
// (magic, version, vertices per line, count), then per entry the chunk
// coordinate and every height as little-endian float32 bits, then a SHA-256
// of everything before it. All entries must share one resolution.
func WriteDump(w io.Writer, entries []Entry) error {
	vpl := 0
	if len(entries) > 0 {
		vpl = entries[0].Heightfield.VerticesPerLine()
	}
	for _, e := range entries {
		if e.Heightfield.VerticesPerLine() != vpl {
			return fmt.Errorf("bake: chunk %s has %d vertices per line, want %d", e.Coord, e.Heightfield.VerticesPerLine(), vpl)
		}
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	sum := sha256.New()
	bw := bufio.NewWriterSize(io.MultiWriter(enc, sum), 64*1024)

	hdr := make([]byte, 0, 14)
	hdr = append(hdr, dumpMagic...)
	hdr = binary.LittleEndian.AppendUint16(hdr, dumpVersion)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(vpl))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(entries)))
	if _, err := bw.Write(hdr); err != nil {
		enc.Close()
		return err
	}

	row := make([]byte, 0, 8+4*vpl*vpl)
	for _, e := range entries {
		row = row[:0]
		row = binary.LittleEndian.AppendUint32(row, uint32(int32(e.Coord.X)))
		row = binary.LittleEndian.AppendUint32(row, uint32(int32(e.Coord.Y)))
		for _, v := range e.Heightfield.Values() {
			row = binary.LittleEndian.AppendUint32(row, math.Float32bits(v))
		}
		if _, err := bw.Write(row); err != nil {
			enc.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if _, err := enc.Write(sum.Sum(nil)); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadDump reads a dump written by WriteDump and checks its checksum.
func ReadDump(r io.Reader) ([]Entry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sum := sha256.New()
	br := &hashReader{r: bufio.NewReaderSize(dec, 64*1024), h: sum}

	hdr := make([]byte, 14)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrBadDump, err)
	}
	if string(hdr[:4]) != dumpMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadDump, hdr[:4])
	}
	if v := binary.LittleEndian.Uint16(hdr[4:]); v != dumpVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadDump, v)
	}
	vpl := int(binary.LittleEndian.Uint32(hdr[6:]))
	count := int(binary.LittleEndian.Uint32(hdr[10:]))
	if count > 0 && (vpl < 4 || vpl > maxDumpVPL) {
		return nil, fmt.Errorf("%w: %d vertices per line", ErrBadDump, vpl)
	}

	entries := make([]Entry, 0, min(count, 1<<16))
	row := make([]byte, 8+4*vpl*vpl)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrBadDump, i, err)
		}
		c := terrain.ChunkCoord{
			X: int(int32(binary.LittleEndian.Uint32(row[0:]))),
			Y: int(int32(binary.LittleEndian.Uint32(row[4:]))),
		}
		vals := make([]float32, vpl*vpl)
		for j := range vals {
			vals[j] = math.Float32frombits(binary.LittleEndian.Uint32(row[8+4*j:]))
		}
		entries = append(entries, Entry{Coord: c, Heightfield: terrain.NewHeightfield(vpl, vals)})
	}

	want := sum.Sum(nil)
	got := make([]byte, sha256.Size)
	if _, err := io.ReadFull(br.r, got); err != nil {
		return nil, fmt.Errorf("%w: checksum: %v", ErrBadDump, err)
	}
	if !bytes.Equal(got, want) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrBadDump)
	}
	if n, _ := br.r.Read(make([]byte, 1)); n != 0 {
		return nil, fmt.Errorf("%w: trailing data", ErrBadDump)
	}
	return entries, nil
}

// Verify regenerates every entry with gen and compares it bit for bit.
func Verify(entries []Entry, m terrain.Mapper, gen terrain.HeightmapGenerator) error {
	for _, e := range entries {
		vpl := e.Heightfield.VerticesPerLine()
		if vpl != m.VerticesPerLine {
			return fmt.Errorf("%w: chunk %s has %d vertices per line, mapper has %d", ErrMismatch, e.Coord, vpl, m.VerticesPerLine)
		}
		buf := make([]float32, vpl*vpl)
		gen.GenerateInto(buf, vpl, m.GridCentre(e.Coord))
		if !terrain.NewHeightfield(vpl, buf).Equal(e.Heightfield) {
			return fmt.Errorf("%w: chunk %s", ErrMismatch, e.Coord)
		}
	}
	return nil
}

type hashReader struct {
	r *bufio.Reader
	h hash.Hash
}

func (r *hashReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.h.Write(p[:n])
	return n, err
}
