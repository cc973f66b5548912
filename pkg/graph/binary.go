package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
	"unsafe"
)

const (
	magicBytes = "CHROUTEG"
	version    = uint32(1)
	maxEntries = 50_000_000
)

// fileHeader is the binary header written before any graph data. Counts
// let ReadBinary preallocate its maps and sanity-check the body without
// trusting length-prefixes scattered through the stream.
type fileHeader struct {
	Magic        [8]byte
	Version      uint32
	NumVertices  uint32
	NumEdges     uint32
	NumShortcuts uint32
	NumLocations uint32
}

// WriteBinary serializes g to path: a header, then one record per vertex
// (id, order, out-adjacency, in-adjacency), one per geographic edge, one
// per shortcut, and one per recorded location, trailed by a CRC32 of
// everything written. Both adjacency maps are written: after OptimizeEdges
// the surviving out-edges (upward targets) and in-edges (higher-order
// sources) describe disjoint sets of directed edges, so neither can be
// rebuilt from the other.
//
// Vertices, edges, shortcuts and locations are each written in ascending
// id order so two calls against the same graph produce byte-identical
// output.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	cw := &crc32Writer{w: f, hash: crc32.NewIEEE()}

	var numGeoEdges uint32
	for _, m := range g.edges {
		numGeoEdges += uint32(len(m))
	}
	var numShortcuts uint32
	for _, m := range g.shortcuts {
		numShortcuts += uint32(len(m))
	}

	hdr := fileHeader{
		Version:      version,
		NumVertices:  uint32(len(g.vertices)),
		NumEdges:     numGeoEdges,
		NumShortcuts: numShortcuts,
		NumLocations: uint32(len(g.locations)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, id := range sortedKeys(g.vertices) {
		v := g.vertices[id]
		if err := binary.Write(cw, binary.LittleEndian, id); err != nil {
			return fmt.Errorf("write vertex id: %w", err)
		}
		if err := binary.Write(cw, binary.LittleEndian, v.Order); err != nil {
			return fmt.Errorf("write vertex order: %w", err)
		}
		if err := writeAdjacency(cw, v.OutEdges); err != nil {
			return fmt.Errorf("write vertex %d out-adjacency: %w", id, err)
		}
		if err := writeAdjacency(cw, v.InEdges); err != nil {
			return fmt.Errorf("write vertex %d in-adjacency: %w", id, err)
		}
	}

	for _, start := range sortedKeys(g.edges) {
		for _, end := range sortedKeys(g.edges[start]) {
			e := g.edges[start][end]
			if err := writeEdgeRecord(cw, e); err != nil {
				return fmt.Errorf("write edge %d->%d: %w", start, end, err)
			}
		}
	}

	for _, start := range sortedKeys(g.shortcuts) {
		for _, end := range sortedKeys(g.shortcuts[start]) {
			through := g.shortcuts[start][end]
			if err := binary.Write(cw, binary.LittleEndian, start); err != nil {
				return err
			}
			if err := binary.Write(cw, binary.LittleEndian, end); err != nil {
				return err
			}
			if err := binary.Write(cw, binary.LittleEndian, through); err != nil {
				return err
			}
		}
	}

	for _, id := range sortedKeys(g.locations) {
		loc := g.locations[id]
		if err := binary.Write(cw, binary.LittleEndian, id); err != nil {
			return err
		}
		if err := binary.Write(cw, binary.LittleEndian, loc); err != nil {
			return err
		}
	}

	checksum := cw.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
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

// ReadBinary deserializes a graph written by WriteBinary, verifying the
// trailing CRC32.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	cr := &crc32Reader{r: f, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumVertices > maxEntries || hdr.NumEdges > maxEntries || hdr.NumShortcuts > maxEntries {
		return nil, fmt.Errorf("entry count exceeds limit %d", maxEntries)
	}

	g := New(make(map[uint64][2]float64, hdr.NumLocations))

	for i := uint32(0); i < hdr.NumVertices; i++ {
		var id, order uint64
		if err := binary.Read(cr, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("read vertex id: %w", err)
		}
		if err := binary.Read(cr, binary.LittleEndian, &order); err != nil {
			return nil, fmt.Errorf("read vertex order: %w", err)
		}
		outEdges, err := readAdjacency(cr)
		if err != nil {
			return nil, fmt.Errorf("read vertex %d out-adjacency: %w", id, err)
		}
		inEdges, err := readAdjacency(cr)
		if err != nil {
			return nil, fmt.Errorf("read vertex %d in-adjacency: %w", id, err)
		}
		v := g.ensureVertex(id)
		v.Order = order
		v.OutEdges = outEdges
		v.InEdges = inEdges
	}

	for i := uint32(0); i < hdr.NumEdges; i++ {
		e, err := readEdgeRecord(cr)
		if err != nil {
			return nil, fmt.Errorf("read edge record %d: %w", i, err)
		}
		if g.edges[e.Start] == nil {
			g.edges[e.Start] = make(map[uint64]Edge)
		}
		g.edges[e.Start][e.End] = e
	}

	for i := uint32(0); i < hdr.NumShortcuts; i++ {
		var start, end, through uint64
		if err := binary.Read(cr, binary.LittleEndian, &start); err != nil {
			return nil, fmt.Errorf("read shortcut start: %w", err)
		}
		if err := binary.Read(cr, binary.LittleEndian, &end); err != nil {
			return nil, fmt.Errorf("read shortcut end: %w", err)
		}
		if err := binary.Read(cr, binary.LittleEndian, &through); err != nil {
			return nil, fmt.Errorf("read shortcut through: %w", err)
		}
		if g.shortcuts[start] == nil {
			g.shortcuts[start] = make(map[uint64]uint64)
		}
		g.shortcuts[start][end] = through
	}

	for i := uint32(0); i < hdr.NumLocations; i++ {
		var id uint64
		var loc [2]float64
		if err := binary.Read(cr, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("read location id: %w", err)
		}
		if err := binary.Read(cr, binary.LittleEndian, &loc); err != nil {
			return nil, fmt.Errorf("read location: %w", err)
		}
		g.locations[id] = loc
	}

	expectedCRC := cr.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	// numEdges counts out-adjacency entries, shortcuts included; after
	// OptimizeEdges that is fewer than the geographic edge table holds.
	for _, v := range g.vertices {
		g.numEdges += uint64(len(v.OutEdges))
	}

	return g, nil
}

func writeAdjacency(w io.Writer, adjacency map[uint64]float64) error {
	n := uint32(len(adjacency))
	if err := binary.Write(w, binary.LittleEndian, n); err != nil {
		return err
	}
	neighbors := make([]uint64, 0, n)
	for neighbor := range adjacency {
		neighbors = append(neighbors, neighbor)
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })
	for _, neighbor := range neighbors {
		if err := binary.Write(w, binary.LittleEndian, neighbor); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, adjacency[neighbor]); err != nil {
			return err
		}
	}
	return nil
}

func readAdjacency(r io.Reader) (map[uint64]float64, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	adjacency := make(map[uint64]float64, n)
	for i := uint32(0); i < n; i++ {
		var neighbor uint64
		var weight float64
		if err := binary.Read(r, binary.LittleEndian, &neighbor); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &weight); err != nil {
			return nil, err
		}
		adjacency[neighbor] = weight
	}
	return adjacency, nil
}

func writeEdgeRecord(w io.Writer, e Edge) error {
	if err := binary.Write(w, binary.LittleEndian, e.Start); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.End); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.TimeWeight); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.DistanceWeight); err != nil {
		return err
	}
	if err := writeUint64Slice(w, e.Nodes); err != nil {
		return err
	}
	return nil
}

func readEdgeRecord(r io.Reader) (Edge, error) {
	var e Edge
	if err := binary.Read(r, binary.LittleEndian, &e.Start); err != nil {
		return e, err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.End); err != nil {
		return e, err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.TimeWeight); err != nil {
		return e, err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.DistanceWeight); err != nil {
		return e, err
	}
	nodes, err := readUint64Slice(r)
	if err != nil {
		return e, err
	}
	e.Nodes = nodes
	return e, nil
}

// writeUint64Slice/readUint64Slice are length-prefixed and use
// unsafe.Slice for zero-copy bulk I/O of the shape-node arrays, the same
// technique the CSR encoder uses for its fixed-width columns.
func writeUint64Slice(w io.Writer, s []uint64) error {
	n := uint32(len(s))
	if err := binary.Write(w, binary.LittleEndian, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint64Slice(r io.Reader) ([]uint64, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > maxEntries {
		return nil, fmt.Errorf("shape node count %d exceeds limit %d", n, maxEntries)
	}
	s := make([]uint64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func sortedKeys[K ~uint64, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// CRC32 wrapping writers/readers, mirroring the CSR encoder's trailer.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
