package segment

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/hupe1980/colseg/internal/fs"
	"github.com/hupe1980/colseg/internal/hash"
)

const (
	indexMapMagic   = 0x434F4C53 // "COLS"
	indexMapVersion = 1
)

var errIndexMapFormat = errors.New("segment: invalid index map")

type indexEntry struct {
	Size     int64
	Checksum uint64
}

// indexMap is the committed state of a directory. Published maps are never
// mutated; a commit builds a new one.
type indexMap struct {
	Entries  map[indexKey]indexEntry
	StarTree *indexEntry
}

func newIndexMap() *indexMap {
	return &indexMap{Entries: make(map[indexKey]indexEntry)}
}

func (m *indexMap) clone() *indexMap {
	c := &indexMap{Entries: make(map[indexKey]indexEntry, len(m.Entries))}
	for k, v := range m.Entries {
		c.Entries[k] = v
	}
	if m.StarTree != nil {
		st := *m.StarTree
		c.StarTree = &st
	}
	return c
}

func (m *indexMap) sortedKeys() []indexKey {
	keys := make([]indexKey, 0, len(m.Entries))
	for k := range m.Entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// totalSize returns the bytes referenced by the map.
func (m *indexMap) totalSize() int64 {
	var n int64
	for _, e := range m.Entries {
		n += e.Size
	}
	if m.StarTree != nil {
		n += m.StarTree.Size
	}
	return n
}

// writeTo encodes the map.
// Format (big-endian):
//
//	Magic (4 bytes)
//	Version (4 bytes)
//	Checksum (4 bytes) - CRC32C of payload
//	PayloadLength (4 bytes)
//	Payload:
//	  NumEntries (4 bytes)
//	  Entries...
//	    ColumnLen (2 bytes)
//	    Column (bytes)
//	    Type (1 byte)
//	    Size (8 bytes)
//	    Checksum (8 bytes)
//	  HasStarTree (1 byte)
//	  StarTreeSize (8 bytes)
//	  StarTreeChecksum (8 bytes)
func (m *indexMap) writeTo(w io.Writer) error {
	pb := newPayloadBuffer(make([]byte, 0, 32+len(m.Entries)*48))

	keys := m.sortedKeys()
	pb.writeUint32(uint32(len(keys)))
	for _, k := range keys {
		e := m.Entries[k]
		pb.writeString(k.column)
		pb.writeUint8(uint8(k.typ))
		pb.writeUint64(uint64(e.Size))
		pb.writeUint64(e.Checksum)
	}
	if m.StarTree != nil {
		pb.writeUint8(1)
		pb.writeUint64(uint64(m.StarTree.Size))
		pb.writeUint64(m.StarTree.Checksum)
	} else {
		pb.writeUint8(0)
		pb.writeUint64(0)
		pb.writeUint64(0)
	}
	if pb.err != nil {
		return pb.err
	}

	payload := pb.buf
	header := make([]byte, 16)
	binary.BigEndian.PutUint32(header[0:4], indexMapMagic)
	binary.BigEndian.PutUint32(header[4:8], indexMapVersion)
	binary.BigEndian.PutUint32(header[8:12], hash.CRC32C(payload))
	binary.BigEndian.PutUint32(header[12:16], uint32(len(payload)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readIndexMap(r io.Reader) (*indexMap, error) {
	header := make([]byte, 16)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", errIndexMapFormat, err)
	}
	if magic := binary.BigEndian.Uint32(header[0:4]); magic != indexMapMagic {
		return nil, fmt.Errorf("%w: magic %x", errIndexMapFormat, magic)
	}
	if version := binary.BigEndian.Uint32(header[4:8]); version != indexMapVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errIndexMapFormat, version)
	}
	checksum := binary.BigEndian.Uint32(header[8:12])
	length := binary.BigEndian.Uint32(header[12:16])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", errIndexMapFormat, err)
	}
	if hash.CRC32C(payload) != checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", errIndexMapFormat)
	}

	pb := newPayloadBuffer(payload)
	m := newIndexMap()
	n := pb.readUint32()
	for i := uint32(0); i < n && pb.err == nil; i++ {
		k := indexKey{column: pb.readString(), typ: ColumnIndexType(pb.readUint8())}
		e := indexEntry{Size: int64(pb.readUint64()), Checksum: pb.readUint64()}
		if pb.err == nil && (!k.typ.Valid() || !validColumn(k.column) || e.Size <= 0) {
			return nil, fmt.Errorf("%w: bad entry %q/%d", errIndexMapFormat, k.column, k.typ)
		}
		m.Entries[k] = e
	}
	hasStarTree := pb.readUint8()
	st := indexEntry{Size: int64(pb.readUint64()), Checksum: pb.readUint64()}
	if pb.err != nil {
		return nil, fmt.Errorf("%w: %v", errIndexMapFormat, pb.err)
	}
	if hasStarTree == 1 {
		m.StarTree = &st
	}
	return m, nil
}

// loadIndexMap reads dir/index_map. A directory without an index map is
// scanned for index files instead, so segments produced by external tooling
// can be opened.
func loadIndexMap(fsys fs.FileSystem, dir string) (*indexMap, error) {
	data, err := fs.ReadFile(fsys, filepath.Join(dir, indexMapFile))
	if err == nil {
		return readIndexMap(bytes.NewReader(data))
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return scanIndexFiles(fsys, dir)
}

func scanIndexFiles(fsys fs.FileSystem, dir string) (*indexMap, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	m := newIndexMap()
	for _, de := range entries {
		if !de.Type().IsRegular() {
			continue
		}
		name := de.Name()
		k, isIndex := parseFileName(name)
		if !isIndex && name != starTreeFile {
			continue
		}
		e, err := checksumFile(fsys, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		switch {
		case name == starTreeFile:
			m.StarTree = &e
		case e.Size > 0:
			m.Entries[k] = e
		}
	}
	return m, nil
}

func checksumFile(fsys fs.FileSystem, name string) (indexEntry, error) {
	f, err := fsys.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return indexEntry{}, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return indexEntry{}, err
	}
	sum, err := hash.ChecksumReader(f)
	if err != nil {
		return indexEntry{}, err
	}
	return indexEntry{Size: fi.Size(), Checksum: sum}, nil
}

func writeIndexMap(fsys fs.FileSystem, dir string, m *indexMap) error {
	var buf bytes.Buffer
	if err := m.writeTo(&buf); err != nil {
		return err
	}
	return fs.WriteFileAtomic(fsys, filepath.Join(dir, indexMapFile), buf.Bytes(), 0o644)
}

type payloadBuffer struct {
	buf []byte
	pos int
	err error
}

func newPayloadBuffer(b []byte) *payloadBuffer {
	return &payloadBuffer{buf: b}
}

func (p *payloadBuffer) writeUint8(v uint8) {
	if p.err != nil {
		return
	}
	p.buf = append(p.buf, v)
}

func (p *payloadBuffer) writeUint32(v uint32) {
	if p.err != nil {
		return
	}
	p.buf = binary.BigEndian.AppendUint32(p.buf, v)
}

func (p *payloadBuffer) writeUint64(v uint64) {
	if p.err != nil {
		return
	}
	p.buf = binary.BigEndian.AppendUint64(p.buf, v)
}

func (p *payloadBuffer) writeString(s string) {
	if p.err != nil {
		return
	}
	if len(s) > 65535 {
		p.err = fmt.Errorf("string too long: %d", len(s))
		return
	}
	p.buf = binary.BigEndian.AppendUint16(p.buf, uint16(len(s)))
	p.buf = append(p.buf, s...)
}

func (p *payloadBuffer) need(n int) bool {
	if p.err != nil {
		return false
	}
	if p.pos+n > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return false
	}
	return true
}

func (p *payloadBuffer) readUint8() uint8 {
	if !p.need(1) {
		return 0
	}
	v := p.buf[p.pos]
	p.pos++
	return v
}

func (p *payloadBuffer) readUint32() uint32 {
	if !p.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v
}

func (p *payloadBuffer) readUint64() uint64 {
	if !p.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return v
}

func (p *payloadBuffer) readString() string {
	n := int(p.readUint16())
	if !p.need(n) {
		return ""
	}
	s := string(p.buf[p.pos : p.pos+n])
	p.pos += n
	return s
}

func (p *payloadBuffer) readUint16() uint16 {
	if !p.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(p.buf[p.pos:])
	p.pos += 2
	return v
}
