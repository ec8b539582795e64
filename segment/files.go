package segment

import "os"

// IndexMapFile is the name of the file recording the committed buffers.
const IndexMapFile = indexMapFile

// File describes a committed file of a segment.
type File struct {
	Name     string
	Size     int64
	Checksum uint64
}

// Files lists the committed files in commit order: index buffers, the
// star-tree stream, then the index map. Hold a read session to keep the
// list stable while the files are copied.
func (d *LocalDirectory) Files() ([]File, error) {
	d.mu.Lock()
	m := d.committed
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrUseAfterClose
	}

	files := make([]File, 0, len(m.Entries)+2)
	for _, k := range m.sortedKeys() {
		e := m.Entries[k]
		files = append(files, File{Name: k.fileName(), Size: e.Size, Checksum: e.Checksum})
	}
	if m.StarTree != nil {
		files = append(files, File{Name: starTreeFile, Size: m.StarTree.Size, Checksum: m.StarTree.Checksum})
	}

	e, err := checksumFile(d.opts.fsys, d.filePath(indexMapFile))
	switch {
	case err == nil:
		files = append(files, File{Name: indexMapFile, Size: e.Size, Checksum: e.Checksum})
	case !os.IsNotExist(err):
		return nil, err
	}
	return files, nil
}
