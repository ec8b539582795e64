package deepstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/colseg/internal/hash"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block codec of pushed files.
type Compression uint8

const (
	// CompressionNone stores blocks as is.
	CompressionNone Compression = iota
	// CompressionLZ4 favours speed.
	CompressionLZ4
	// CompressionZSTD favours ratio.
	CompressionZSTD
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", c)
	}
}

// ParseCompression parses the names produced by String.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("deepstore: unknown compression %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(text []byte) error {
	v, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// DefaultBlockSize is the uncompressed size of a stored block.
const DefaultBlockSize = 1 << 20

// Block frame (big-endian):
//
//	UncompressedSize (4 bytes)
//	StoredSize (4 bytes) - 0 means the block is stored uncompressed
//	Checksum (4 bytes) - CRC32C of the stored bytes
//	Data...
const blockHeaderSize = 12

// ErrInvalidBlock is returned for truncated or corrupted blocks.
var ErrInvalidBlock = errors.New("deepstore: invalid block")

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compressBlock returns the stored form of data, or nil if compression does
// not save at least a tenth.
func compressBlock(data []byte, c Compression) ([]byte, error) {
	var out []byte
	switch c {
	case CompressionNone:
		return nil, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		out = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("deepstore: unknown compression %d", c)
	}
	if len(out) == 0 || float64(len(out)) > float64(len(data))*0.9 {
		return nil, nil
	}
	return out, nil
}

func decompressBlock(stored []byte, size int, c Compression) ([]byte, error) {
	switch c {
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBlock, err)
		}
		if n != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrInvalidBlock)
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(stored, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBlock, err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrInvalidBlock)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: compressed block with compression %s", ErrInvalidBlock, c)
	}
}

// blockWriter frames and compresses everything written to it.
type blockWriter struct {
	w           io.Writer
	compression Compression
	buf         []byte
	blockSize   int
	written     int64
}

func newBlockWriter(w io.Writer, c Compression, blockSize int) *blockWriter {
	return &blockWriter{w: w, compression: c, blockSize: blockSize, buf: make([]byte, 0, blockSize)}
}

func (bw *blockWriter) Write(p []byte) (int, error) {
	n := 0
	for len(p) > 0 {
		take := min(bw.blockSize-len(bw.buf), len(p))
		bw.buf = append(bw.buf, p[:take]...)
		p = p[take:]
		n += take
		if len(bw.buf) == bw.blockSize {
			if err := bw.flush(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

func (bw *blockWriter) flush() error {
	if len(bw.buf) == 0 {
		return nil
	}
	stored, err := compressBlock(bw.buf, bw.compression)
	if err != nil {
		return err
	}

	var header [blockHeaderSize]byte
	binary.BigEndian.PutUint32(header[0:], uint32(len(bw.buf)))
	body := bw.buf
	if stored != nil {
		binary.BigEndian.PutUint32(header[4:], uint32(len(stored)))
		body = stored
	}
	binary.BigEndian.PutUint32(header[8:], hash.CRC32C(body))

	if _, err := bw.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := bw.w.Write(body); err != nil {
		return err
	}
	bw.written += int64(blockHeaderSize + len(body))
	bw.buf = bw.buf[:0]
	return nil
}

// Close flushes the last partial block. It does not close the underlying writer.
func (bw *blockWriter) Close() error {
	return bw.flush()
}

// blockReader reverses blockWriter.
type blockReader struct {
	r           io.Reader
	compression Compression
	maxBlock    int
	cur         []byte
}

func newBlockReader(r io.Reader, c Compression, maxBlock int) *blockReader {
	return &blockReader{r: r, compression: c, maxBlock: maxBlock}
}

func (br *blockReader) Read(p []byte) (int, error) {
	for len(br.cur) == 0 {
		if err := br.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, br.cur)
	br.cur = br.cur[n:]
	return n, nil
}

func (br *blockReader) next() error {
	var header [blockHeaderSize]byte
	if _, err := io.ReadFull(br.r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: truncated header", ErrInvalidBlock)
		}
		return err
	}
	size := int(binary.BigEndian.Uint32(header[0:]))
	storedSize := int(binary.BigEndian.Uint32(header[4:]))
	sum := binary.BigEndian.Uint32(header[8:])

	if size == 0 || size > br.maxBlock || storedSize > size {
		return fmt.Errorf("%w: block size %d", ErrInvalidBlock, size)
	}
	n := size
	if storedSize > 0 {
		n = storedSize
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(br.r, body); err != nil {
		return fmt.Errorf("%w: truncated body: %v", ErrInvalidBlock, err)
	}
	if hash.CRC32C(body) != sum {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidBlock)
	}

	if storedSize == 0 {
		br.cur = body
		return nil
	}
	out, err := decompressBlock(body, size, br.compression)
	if err != nil {
		return err
	}
	br.cur = out
	return nil
}
