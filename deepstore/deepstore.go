package deepstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/colseg/blobstore"
	"github.com/hupe1980/colseg/codec"
	"github.com/hupe1980/colseg/internal/hash"
	"github.com/hupe1980/colseg/internal/resource"
	"github.com/hupe1980/colseg/metadata"
	"github.com/hupe1980/colseg/segment"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFound is returned when the store holds no version of a segment.
	ErrNotFound = errors.New("deepstore: segment not found")
	// ErrChecksumMismatch is returned when copied data does not match the
	// recorded size or checksum.
	ErrChecksumMismatch = errors.New("deepstore: checksum mismatch")
	// ErrInvalidName is returned for segment names that are not clean
	// relative slash-separated paths.
	ErrInvalidName = errors.New("deepstore: invalid segment name")
)

func validateName(name string) error {
	if name == "" || name == "." || path.IsAbs(name) || path.Clean(name) != name ||
		strings.HasPrefix(name, "../") || name == ".." || strings.Contains(name, `\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Push uploads the committed state of d as the next version of name and
// advances the CURRENT pointer. A partially uploaded version is deleted.
func Push(ctx context.Context, d *segment.LocalDirectory, store blobstore.BlobStore, name string, optFns ...Option) (*Descriptor, error) {
	opts := applyOptions(optFns)
	if err := validateName(name); err != nil {
		return nil, err
	}
	start := time.Now()

	r, err := d.CreateReader()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	files, err := d.Files()
	if err != nil {
		return nil, err
	}
	if extra, err := metadataFile(opts, d.Path()); err != nil {
		return nil, err
	} else if extra != nil {
		files = append(files, *extra)
	}

	latest, err := latestVersion(ctx, store, name)
	if err != nil {
		return nil, err
	}
	version := latest + 1
	dir := versionDir(name, version)

	desc := &Descriptor{
		Name:        name,
		Version:     version,
		Codec:       opts.codec.Name(),
		Compression: opts.compression,
		BlockSize:   opts.blockSize,
		CreatedAt:   time.Now().UTC(),
		Files:       make([]FileEntry, len(files)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)
	for i, f := range files {
		g.Go(func() error {
			entry, err := pushFile(gctx, opts, filepath.Join(d.Path(), f.Name), store, dir+"/"+f.Name)
			if err != nil {
				return fmt.Errorf("deepstore: push %s: %w", f.Name, err)
			}
			if entry.Size != f.Size || entry.Checksum != f.Checksum {
				return fmt.Errorf("%w: %s does not match the committed state", ErrChecksumMismatch, f.Name)
			}
			desc.Files[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = deleteVersion(context.WithoutCancel(ctx), store, name, version, opts.logger)
		return nil, err
	}

	data, err := opts.codec.Marshal(desc)
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, dir+"/"+descriptorName, data); err != nil {
		_ = deleteVersion(context.WithoutCancel(ctx), store, name, version, opts.logger)
		return nil, fmt.Errorf("deepstore: write descriptor: %w", err)
	}
	if err := store.Put(ctx, pointerName(name), []byte("v"+strconv.FormatUint(version, 10))); err != nil {
		return nil, fmt.Errorf("deepstore: advance %s: %w", currentName, err)
	}

	opts.logger.Debug("pushed segment",
		slog.String("name", name),
		slog.Uint64("version", version),
		slog.Int("files", len(desc.Files)),
		slog.Int64("bytes", desc.Size()),
		slog.Int64("stored_bytes", desc.StoredSize()),
		slog.String("compression", desc.Compression.String()),
		slog.Duration("duration", time.Since(start)))
	return desc, nil
}

// metadataFile describes the segment metadata file if d has one.
func metadataFile(opts options, dir string) (*segment.File, error) {
	p := filepath.Join(dir, metadata.FileName)
	f, err := opts.fsys.OpenFile(p, os.O_RDONLY, 0)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := hash.New64()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, err
	}
	return &segment.File{Name: metadata.FileName, Size: n, Checksum: h.Sum64()}, nil
}

func pushFile(ctx context.Context, opts options, localPath string, store blobstore.BlobStore, key string) (FileEntry, error) {
	if err := opts.rc.AcquireTransfer(ctx); err != nil {
		return FileEntry{}, err
	}
	defer opts.rc.ReleaseTransfer()

	f, err := opts.fsys.OpenFile(localPath, os.O_RDONLY, 0)
	if err != nil {
		return FileEntry{}, err
	}
	defer f.Close()

	w, err := store.Create(ctx, key)
	if err != nil {
		return FileEntry{}, err
	}

	bw := newBlockWriter(resource.NewRateLimitedWriter(ctx, w, opts.rc), opts.compression, opts.blockSize)
	h := hash.New64()
	n, err := io.Copy(bw, io.TeeReader(f, h))
	if err == nil {
		err = bw.Close()
	}
	if err != nil {
		_ = blobstore.Abort(w)
		return FileEntry{}, err
	}
	if err := w.Close(); err != nil {
		return FileEntry{}, err
	}
	return FileEntry{Name: path.Base(key), Size: n, StoredSize: bw.written, Checksum: h.Sum64()}, nil
}

// Fetch downloads the current version of name into localPath, replacing
// whatever is there once every file has been verified.
func Fetch(ctx context.Context, store blobstore.BlobStore, name, localPath string, optFns ...Option) (*Descriptor, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	version, err := Current(ctx, store, name)
	if err != nil {
		return nil, err
	}
	return FetchVersion(ctx, store, name, version, localPath, optFns...)
}

// FetchVersion downloads a specific version of name into localPath.
func FetchVersion(ctx context.Context, store blobstore.BlobStore, name string, version uint64, localPath string, optFns ...Option) (*Descriptor, error) {
	opts := applyOptions(optFns)
	if err := validateName(name); err != nil {
		return nil, err
	}
	start := time.Now()

	desc, err := ReadDescriptor(ctx, store, name, version, optFns...)
	if err != nil {
		return nil, err
	}

	localPath = filepath.Clean(localPath)
	tmp := localPath + ".fetch"
	if err := opts.fsys.RemoveAll(tmp); err != nil {
		return nil, err
	}
	if err := opts.fsys.MkdirAll(tmp, 0o755); err != nil {
		return nil, err
	}

	dir := versionDir(name, version)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)
	for _, f := range desc.Files {
		g.Go(func() error {
			if err := fetchFile(gctx, opts, store, dir+"/"+f.Name, filepath.Join(tmp, f.Name), desc, f); err != nil {
				return fmt.Errorf("deepstore: fetch %s: %w", f.Name, err)
			}
			return nil
		})
	}
	err = g.Wait()
	if err == nil && opts.verify {
		err = segment.Verify(tmp, segment.WithFileSystem(opts.fsys), segment.WithLogger(opts.logger))
	}
	if err == nil {
		if err = opts.fsys.RemoveAll(localPath); err == nil {
			err = opts.fsys.Rename(tmp, localPath)
		}
	}
	if err != nil {
		_ = opts.fsys.RemoveAll(tmp)
		return nil, err
	}

	opts.logger.Debug("fetched segment",
		slog.String("name", name),
		slog.Uint64("version", version),
		slog.String("path", localPath),
		slog.Int("files", len(desc.Files)),
		slog.Int64("bytes", desc.Size()),
		slog.Duration("duration", time.Since(start)))
	return desc, nil
}

func fetchFile(ctx context.Context, opts options, store blobstore.BlobStore, key, localPath string, desc *Descriptor, want FileEntry) error {
	if err := opts.rc.AcquireTransfer(ctx); err != nil {
		return err
	}
	defer opts.rc.ReleaseTransfer()

	b, err := store.Open(ctx, key)
	if err != nil {
		return err
	}
	defer b.Close()
	if b.Size() != want.StoredSize {
		return fmt.Errorf("%w: stored size %d, want %d", ErrChecksumMismatch, b.Size(), want.StoredSize)
	}

	out, err := opts.fsys.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	h := hash.New64()
	src := newBlockReader(resource.NewRateLimitedReader(ctx, blobstore.NewReader(ctx, b), opts.rc), desc.Compression, desc.BlockSize)
	n, err := io.Copy(io.MultiWriter(out, h), src)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if n != want.Size || h.Sum64() != want.Checksum {
		return fmt.Errorf("%w: size %d, want %d", ErrChecksumMismatch, n, want.Size)
	}
	return nil
}

// ReadDescriptor loads the descriptor of a pushed version.
func ReadDescriptor(ctx context.Context, store blobstore.BlobStore, name string, version uint64, optFns ...Option) (*Descriptor, error) {
	opts := applyOptions(optFns)
	data, err := blobstore.ReadAll(ctx, store, versionDir(name, version)+"/"+descriptorName)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s v%d", ErrNotFound, name, version)
	}
	if err != nil {
		return nil, err
	}

	var desc Descriptor
	if err := opts.codec.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if _, ok := codec.ByName(desc.Codec); !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidDescriptor, desc.Codec)
	}
	if err := desc.validate(); err != nil {
		return nil, err
	}
	if desc.Version != version {
		return nil, fmt.Errorf("%w: version %d under v%d", ErrInvalidDescriptor, desc.Version, version)
	}
	return &desc, nil
}

// Current returns the version the CURRENT pointer of name refers to.
func Current(ctx context.Context, store blobstore.BlobStore, name string) (uint64, error) {
	data, err := blobstore.ReadAll(ctx, store, pointerName(name))
	if errors.Is(err, blobstore.ErrNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return 0, err
	}
	return parseVersion(string(data))
}

// Versions returns the pushed versions of name in ascending order. Versions
// without a descriptor are incomplete and not listed.
func Versions(ctx context.Context, store blobstore.BlobStore, name string) ([]uint64, error) {
	names, err := store.List(ctx, name+"/v")
	if err != nil {
		return nil, err
	}
	var versions []uint64
	for _, n := range names {
		rest, ok := strings.CutPrefix(n, name+"/")
		if !ok {
			continue
		}
		vdir, file, ok := strings.Cut(rest, "/")
		if !ok || file != descriptorName {
			continue
		}
		if v, err := parseVersion(vdir); err == nil {
			versions = append(versions, v)
		}
	}
	slices.Sort(versions)
	return versions, nil
}

// latestVersion returns the highest version in use, including incomplete
// ones, so a new push never reuses a prefix.
func latestVersion(ctx context.Context, store blobstore.BlobStore, name string) (uint64, error) {
	latest, err := Current(ctx, store, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	names, err := store.List(ctx, name+"/v")
	if err != nil {
		return 0, err
	}
	for _, n := range names {
		rest, ok := strings.CutPrefix(n, name+"/")
		if !ok {
			continue
		}
		vdir, _, _ := strings.Cut(rest, "/")
		if v, err := parseVersion(vdir); err == nil && v > latest {
			latest = v
		}
	}
	return latest, nil
}

// Prune deletes all but the newest keep versions of name. The current
// version is always kept. It returns the number of deleted versions.
func Prune(ctx context.Context, store blobstore.BlobStore, name string, keep int, optFns ...Option) (int, error) {
	opts := applyOptions(optFns)
	if err := validateName(name); err != nil {
		return 0, err
	}
	current, err := Current(ctx, store, name)
	if err != nil {
		return 0, err
	}
	versions, err := Versions(ctx, store, name)
	if err != nil {
		return 0, err
	}

	keep = max(keep, 0)
	deleted := 0
	for i, v := range versions {
		if v == current || i >= len(versions)-keep {
			continue
		}
		if err := deleteVersion(ctx, store, name, v, opts.logger); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func deleteVersion(ctx context.Context, store blobstore.BlobStore, name string, version uint64, logger *slog.Logger) error {
	prefix := versionDir(name, version) + "/"
	names, err := store.List(ctx, prefix)
	if err != nil {
		logger.Warn("list version for deletion failed", slog.String("name", name), slog.Uint64("version", version), slog.Any("error", err))
		return err
	}
	for _, n := range names {
		if err := store.Delete(ctx, n); err != nil {
			logger.Warn("delete blob failed", slog.String("blob", n), slog.Any("error", err))
			return err
		}
	}
	logger.Debug("deleted version", slog.String("name", name), slog.Uint64("version", version), slog.Int("blobs", len(names)))
	return nil
}
