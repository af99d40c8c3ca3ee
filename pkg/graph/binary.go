package graph

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"unsafe"
)

const (
	magicBytes = "MXROUTER"
	version    = uint32(3)
	maxNodes   = 50_000_000
	maxEdges   = 200_000_000
	nameLen    = 16
)

type fileHeader struct {
	Magic        [8]byte
	Version      uint32
	NumNodes     uint32
	NumBaseEdges uint32
	NumEdges     uint32
	Encoder      [nameLen]byte
	Weighting    [nameLen]byte
}

// WriteBinary serializes a CH graph. The file is written to a temporary
// path and renamed into place once the CRC32 trailer is on disk.
func WriteBinary(path string, g *CHGraph) error {
	if len(g.Encoder) > nameLen || len(g.Weighting) > nameLen {
		return fmt.Errorf("profile names longer than %d bytes", nameLen)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	w := &crc32Writer{w: f, hash: crc32.NewIEEE()}

	hdr := fileHeader{
		Version:      version,
		NumNodes:     g.NumNodes,
		NumBaseEdges: g.NumBaseEdges,
		NumEdges:     g.NumEdges(),
	}
	copy(hdr.Magic[:], magicBytes)
	copy(hdr.Encoder[:], g.Encoder)
	copy(hdr.Weighting[:], g.Weighting)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	sections := []struct {
		name string
		data []byte
	}{
		{"NodeLat", bytesOf(g.NodeLat)},
		{"NodeLon", bytesOf(g.NodeLon)},
		{"Levels", bytesOf(g.Levels)},
		{"EdgeBase", bytesOf(g.EdgeBase)},
		{"EdgeAdj", bytesOf(g.EdgeAdj)},
		{"EdgeFlags", bytesOf(g.EdgeFlags)},
		{"EdgeWeight", bytesOf(g.EdgeWeight)},
		{"EdgeDistance", bytesOf(g.EdgeDistance)},
		{"EdgeSkip1", bytesOf(g.EdgeSkip1)},
		{"EdgeSkip2", bytesOf(g.EdgeSkip2)},
		{"FirstOut", bytesOf(g.FirstOut)},
		{"AdjEdge", bytesOf(g.AdjEdge)},
	}
	for _, s := range sections {
		if _, err := w.Write(s.data); err != nil {
			return fmt.Errorf("write %s: %w", s.name, err)
		}
	}

	if err := binary.Write(f, binary.LittleEndian, w.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadBinary loads a CH graph written by WriteBinary and validates its
// checksum and structural invariants.
func ReadBinary(path string) (*CHGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	r := &crc32Reader{r: f, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges || hdr.NumBaseEdges > hdr.NumEdges {
		return nil, fmt.Errorf("invalid edge counts: base=%d total=%d", hdr.NumBaseEdges, hdr.NumEdges)
	}

	n, m := int(hdr.NumNodes), int(hdr.NumEdges)
	g := &CHGraph{
		Encoder:      cString(hdr.Encoder[:]),
		Weighting:    cString(hdr.Weighting[:]),
		NumNodes:     hdr.NumNodes,
		NumBaseEdges: hdr.NumBaseEdges,
	}

	if g.NodeLat, err = readSlice[float64](r, n); err != nil {
		return nil, fmt.Errorf("read NodeLat: %w", err)
	}
	if g.NodeLon, err = readSlice[float64](r, n); err != nil {
		return nil, fmt.Errorf("read NodeLon: %w", err)
	}
	if g.Levels, err = readSlice[uint32](r, n); err != nil {
		return nil, fmt.Errorf("read Levels: %w", err)
	}
	if g.EdgeBase, err = readSlice[uint32](r, m); err != nil {
		return nil, fmt.Errorf("read EdgeBase: %w", err)
	}
	if g.EdgeAdj, err = readSlice[uint32](r, m); err != nil {
		return nil, fmt.Errorf("read EdgeAdj: %w", err)
	}
	if g.EdgeFlags, err = readSlice[uint32](r, m); err != nil {
		return nil, fmt.Errorf("read EdgeFlags: %w", err)
	}
	if g.EdgeWeight, err = readSlice[float64](r, m); err != nil {
		return nil, fmt.Errorf("read EdgeWeight: %w", err)
	}
	if g.EdgeDistance, err = readSlice[float64](r, m); err != nil {
		return nil, fmt.Errorf("read EdgeDistance: %w", err)
	}
	if g.EdgeSkip1, err = readSlice[int32](r, m); err != nil {
		return nil, fmt.Errorf("read EdgeSkip1: %w", err)
	}
	if g.EdgeSkip2, err = readSlice[int32](r, m); err != nil {
		return nil, fmt.Errorf("read EdgeSkip2: %w", err)
	}
	if g.FirstOut, err = readSlice[uint32](r, n+1); err != nil {
		return nil, fmt.Errorf("read FirstOut: %w", err)
	}
	if g.AdjEdge, err = readSlice[uint32](r, 2*m); err != nil {
		return nil, fmt.Errorf("read AdjEdge: %w", err)
	}

	expected := r.hash.Sum32()
	var stored uint32
	if err := binary.Read(f, binary.LittleEndian, &stored); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if stored != expected {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", stored, expected)
	}

	if err := validate(g); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	return g, nil
}

// validate checks the invariants queries rely on: the incidence CSR shape,
// endpoint ranges and that shortcuts only reference earlier edges.
func validate(g *CHGraph) error {
	n, m := g.NumNodes, g.NumEdges()
	if uint32(len(g.FirstOut)) != n+1 {
		return fmt.Errorf("FirstOut length %d != NumNodes+1 %d", len(g.FirstOut), n+1)
	}
	if g.FirstOut[n] != uint32(len(g.AdjEdge)) {
		return fmt.Errorf("FirstOut[NumNodes]=%d != len(AdjEdge)=%d", g.FirstOut[n], len(g.AdjEdge))
	}
	for i := uint32(1); i <= n; i++ {
		if g.FirstOut[i] < g.FirstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d", i)
		}
	}
	for i, e := range g.AdjEdge {
		if e >= m {
			return fmt.Errorf("AdjEdge[%d]=%d >= NumEdges=%d", i, e, m)
		}
	}
	for e := range m {
		if g.EdgeBase[e] >= n || g.EdgeAdj[e] >= n {
			return fmt.Errorf("edge %d endpoint out of range", e)
		}
		s1, s2 := g.EdgeSkip1[e], g.EdgeSkip2[e]
		if e < g.NumBaseEdges {
			if s1 != NoSkip || s2 != NoSkip {
				return fmt.Errorf("base edge %d has skipped edges", e)
			}
			continue
		}
		if s1 < 0 || s2 < 0 || uint32(s1) >= e || uint32(s2) >= e {
			return fmt.Errorf("shortcut %d has invalid skipped edges (%d, %d)", e, s1, s2)
		}
	}
	return nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// bytesOf reinterprets a fixed-size element slice as its in-memory bytes.
func bytesOf[T uint32 | int32 | float64](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
}

func readSlice[T uint32 | int32 | float64](r io.Reader, n int) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]T, n)
	if _, err := io.ReadFull(r, bytesOf(s)); err != nil {
		return nil, err
	}
	return s, nil
}

type crc32Writer struct {
	w    io.Writer
	hash hash.Hash32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash hash.Hash32
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
