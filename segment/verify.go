package segment

import (
	"fmt"
	"os"
	"strings"
)

// Verify recomputes the checksum of every committed file and compares it
// with the index map. It holds a read session for the duration of the check
// and reports mismatches as ErrCorrupted. Nothing is repaired.
func (d *LocalDirectory) Verify() error {
	s, err := d.CreateReader()
	if err != nil {
		return err
	}
	defer s.Close()
	m := s.(*reader).view

	var bad []string
	check := func(label, name string, want indexEntry) error {
		got, err := checksumFile(d.opts.fsys, d.filePath(name))
		switch {
		case os.IsNotExist(err):
			bad = append(bad, label+" (missing)")
		case err != nil:
			return err
		case got.Size != want.Size:
			bad = append(bad, fmt.Sprintf("%s (size %d, want %d)", label, got.Size, want.Size))
		case got.Checksum != want.Checksum:
			bad = append(bad, label+" (checksum)")
		}
		return nil
	}

	for _, k := range m.sortedKeys() {
		if err := check(k.column+"/"+k.typ.String(), k.fileName(), m.Entries[k]); err != nil {
			return err
		}
	}
	if m.StarTree != nil {
		if err := check("star tree", starTreeFile, *m.StarTree); err != nil {
			return err
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrCorrupted, strings.Join(bad, ", "))
	}
	return nil
}

// Verify checks the segment at path. See LocalDirectory.Verify.
func Verify(path string, opts ...Option) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("segment: %s is not a directory", path)
	}
	d, err := OpenLocal(path, opts...)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Verify()
}
