package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/logging"
)

var ErrBytesWrittenMismatch = errors.New("bytes written mismatch")

const (
	dirPrefixLength = 2 // 32^2 = 1024 directories per level
	dirPrefixDepth  = 2
	blobExt         = ".bin"
)

// FileSystemBlobRepositoryConfig holds configuration for the filesystem-based blob repository.
type FileSystemBlobRepositoryConfig struct {
	// Basedir is the root directory for blob storage
	Basedir string `env:"BASEDIR" default:"var/storage/blob"`
}

// FileSystemBlobRepositoryFactory creates a factory function that returns a new FileSystemRepository.
func FileSystemBlobRepositoryFactory(cfg FileSystemBlobRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context, name string) (Repository, error) {
		return NewFileSystemBlobRepository(ctx, name, cfg)
	}
}

// FileSystemRepository implements Repository on the local filesystem.
// Blobs are spread over a directory hierarchy keyed by the tail of their id,
// which is the random part of a time-ordered id.
type FileSystemRepository struct {
	dir   string
	log   logging.Logger
	locks *keyedMutex
}

var _ Repository = (*FileSystemRepository)(nil)

// NewFileSystemBlobRepository creates the storage directory for name below cfg.Basedir.
func NewFileSystemBlobRepository(
	ctx context.Context,
	name string,
	cfg FileSystemBlobRepositoryConfig,
) (_ *FileSystemRepository, err error) {
	dir := filepath.Join(cfg.Basedir, name)
	log := logging.GetLogger("repo.blob.filesystem").With(
		logging.Group("repo", "dir", dir),
	)

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "init storage failed", "error", err)
		} else {
			log.DebugContext(ctx, "init storage")
		}
	}()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	return &FileSystemRepository{
		dir:   dir,
		log:   log,
		locks: newKeyedMutex(),
	}, nil
}

// GetFilename returns the full filesystem path for a blob with the given ID.
func (fsRepo *FileSystemRepository) GetFilename(id domain.BlobID) string {
	return filepath.Join(fsRepo.shardDir(id), string(id)+blobExt)
}

func (fsRepo *FileSystemRepository) shardDir(id domain.BlobID) string {
	base := string(id.Base())
	if pad := dirPrefixLength*dirPrefixDepth - len(base); pad > 0 {
		base = strings.Repeat("0", pad) + base
	}

	parts := []string{fsRepo.dir}

	for i := range dirPrefixDepth {
		end := len(base) - i*dirPrefixLength
		parts = append(parts, base[end-dirPrefixLength:end])
	}

	return filepath.Join(parts...)
}

func (fsRepo *FileSystemRepository) Exists(_ context.Context, id domain.BlobID) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}

	_, err := os.Stat(fsRepo.GetFilename(id))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, errors.Join(domain.ErrStorage, err)
	}
}

func (fsRepo *FileSystemRepository) Store(ctx context.Context, blob *domain.Blob) (err error) {
	filename := fsRepo.GetFilename(blob.ID)

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", blob.ID, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "blob store failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob stored", "size", blob.Size())
		}
	}()

	if err := checkID(blob.ID); err != nil {
		return err
	}

	defer fsRepo.locks.Lock(blob.ID, true)()

	if err := writeFileAtomic(filename, blob.Bytes()); err != nil {
		return errors.Join(domain.ErrStorage, err)
	}

	return nil
}

// writeFileAtomic writes data to a temporary file next to filename and renames it into place,
// so readers never observe a partially written blob.
func writeFileAtomic(filename string, data []byte) (err error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("mkdir all: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(filename), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(file.Name())
		}
	}()

	n, err := file.Write(data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	} else if n != len(data) {
		return fmt.Errorf("%w: expected %d, got %d", ErrBytesWrittenMismatch, len(data), n)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Chmod(file.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	if err := os.Rename(file.Name(), filename); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

func (fsRepo *FileSystemRepository) Fetch(ctx context.Context, id domain.BlobID) (_ *domain.Blob, err error) {
	filename := fsRepo.GetFilename(id)

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", id, "filename", filename))
		if err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
			log.ErrorContext(ctx, "blob fetch failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob fetched", "found", err == nil)
		}
	}()

	if err := checkID(id); err != nil {
		return nil, err
	}

	defer fsRepo.locks.Lock(id, false)()

	body, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Join(domain.ErrBlobNotFound, err)
		}

		return nil, errors.Join(domain.ErrStorage, err)
	}

	return domain.NewBlob(id, body), nil
}

func (fsRepo *FileSystemRepository) Delete(ctx context.Context, id domain.BlobID) (err error) {
	filename := fsRepo.GetFilename(id)

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", id, "filename", filename))
		if err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
			log.ErrorContext(ctx, "blob delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob deleted", "found", err == nil)
		}
	}()

	if err := checkID(id); err != nil {
		return err
	}

	defer fsRepo.locks.Lock(id, true)()

	if err := os.Remove(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Join(domain.ErrBlobNotFound, err)
		}

		return errors.Join(domain.ErrStorage, err)
	}

	return nil
}

func (fsRepo *FileSystemRepository) DeleteVariants(ctx context.Context, id domain.BlobID) (err error) {
	var removed int

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", id))
		if err != nil {
			log.ErrorContext(ctx, "blob variants delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob variants deleted", "count", removed)
		}
	}()

	if err := checkID(id); err != nil {
		return err
	}

	pattern := filepath.Join(fsRepo.shardDir(id), string(id)+"_*"+blobExt)

	filenames, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("glob: %w", err)
	}

	for _, filename := range filenames {
		variant := domain.BlobID(strings.TrimSuffix(filepath.Base(filename), blobExt))
		release := fsRepo.locks.Lock(variant, true)

		err := os.Remove(filename)

		release()

		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Join(domain.ErrStorage, err)
		}

		removed++
	}

	return nil
}
