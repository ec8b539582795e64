package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/hupe1980/colseg/codec"
	"github.com/hupe1980/colseg/internal/fs"
)

// FileName is the name of the metadata document inside a segment directory.
const FileName = "metadata.json"

// ErrNotFound is returned when a segment has no metadata document.
var ErrNotFound = errors.New("metadata: not found")

// Column describes one column of a segment.
type Column struct {
	Name     string   `json:"name"`
	DataType DataType `json:"dataType"`
	// Cardinality is the number of distinct values in the dictionary.
	Cardinality int `json:"cardinality"`
	TotalDocs   int `json:"totalDocs"`
	// MaxEntryWidth is the encoded width of the widest string value.
	MaxEntryWidth int `json:"maxEntryWidth,omitempty"`
	// BitsPerElement is the packing width of the forward index.
	BitsPerElement   int  `json:"bitsPerElement,omitempty"`
	Sorted           bool `json:"sorted,omitempty"`
	HasDictionary    bool `json:"hasDictionary"`
	HasInvertedIndex bool `json:"hasInvertedIndex,omitempty"`
}

// EntryWidth returns the width of one dictionary record.
func (c Column) EntryWidth() int {
	if c.DataType == String {
		return c.MaxEntryWidth
	}
	return c.DataType.Size()
}

// Validate checks the column for internal consistency.
func (c Column) Validate() error {
	if c.Name == "" {
		return errors.New("metadata: column name is empty")
	}
	if !c.DataType.Valid() {
		return fmt.Errorf("metadata: column %s: unknown data type %q", c.Name, c.DataType)
	}
	if c.Cardinality < 0 || c.TotalDocs < 0 {
		return fmt.Errorf("metadata: column %s: negative cardinality or doc count", c.Name)
	}
	if c.DataType == String && c.HasDictionary && c.Cardinality > 0 && c.MaxEntryWidth <= 0 {
		return fmt.Errorf("metadata: column %s: string dictionary needs maxEntryWidth", c.Name)
	}
	if c.BitsPerElement < 0 || c.BitsPerElement > 32 {
		return fmt.Errorf("metadata: column %s: bitsPerElement %d out of range", c.Name, c.BitsPerElement)
	}
	return nil
}

// Segment describes a whole segment.
type Segment struct {
	Name        string   `json:"name"`
	TotalDocs   int      `json:"totalDocs"`
	HasStarTree bool     `json:"hasStarTree,omitempty"`
	Columns     []Column `json:"columns"`
}

// Column returns the named column.
func (s *Segment) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// SetColumn adds or replaces a column, keeping columns ordered by name.
func (s *Segment) SetColumn(c Column) {
	for i := range s.Columns {
		if s.Columns[i].Name == c.Name {
			s.Columns[i] = c
			return
		}
	}
	s.Columns = append(s.Columns, c)
	sort.Slice(s.Columns, func(i, j int) bool { return s.Columns[i].Name < s.Columns[j].Name })
}

// Validate checks every column and rejects duplicates.
func (s *Segment) Validate() error {
	seen := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("metadata: duplicate column %s", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// Read decodes a metadata document.
func Read(r io.Reader, c codec.Codec) (*Segment, error) {
	if c == nil {
		c = codec.Default
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var s Segment
	if err := c.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("metadata: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Write encodes the metadata document.
func (s *Segment) Write(w io.Writer, c codec.Codec) error {
	if c == nil {
		c = codec.Default
	}
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := c.Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Load reads dir/metadata.json from the local file system.
func Load(dir string) (*Segment, error) {
	return LoadFS(fs.Default, dir)
}

// LoadFS reads dir/metadata.json through fsys.
func LoadFS(fsys fs.FileSystem, dir string) (*Segment, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	data, err := fs.ReadFile(fsys, filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, err
	}
	return Read(bytes.NewReader(data), nil)
}

// Save atomically writes dir/metadata.json.
func (s *Segment) Save(dir string) error {
	return s.SaveFS(fs.Default, dir)
}

// SaveFS atomically writes dir/metadata.json through fsys.
func (s *Segment) SaveFS(fsys fs.FileSystem, dir string) error {
	if fsys == nil {
		fsys = fs.Default
	}
	var buf bytes.Buffer
	if err := s.Write(&buf, nil); err != nil {
		return err
	}
	return fs.WriteFileAtomic(fsys, filepath.Join(dir, FileName), buf.Bytes(), 0o644)
}
