package infrastructure

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
)

// MediaCache owns the directory yt-dlp downloads into.
type MediaCache struct {
	dir string
}

// NewMediaCache creates the cache directory if needed.
func NewMediaCache(dir string) (*MediaCache, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve media cache directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create media cache directory %s", dir)
	}
	return &MediaCache{dir: dir}, nil
}

// Dir returns the absolute cache directory.
func (c *MediaCache) Dir() string {
	return c.dir
}

// Release deletes a downloaded file. Missing files are not an error.
func (c *MediaCache) Release(path string) error {
	if !c.contains(path) {
		return errors.Newf("refusing to delete %s outside of the media cache", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "failed to delete %s", path)
	}
	return nil
}

// Sweep deletes every file left in the cache directory.
func (c *MediaCache) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read media cache directory")
	}

	var (
		removed int
		errs    []error
	)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

func (c *MediaCache) contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(c.dir, abs)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// Ensure MediaCache implements ports.MediaStore.
var _ ports.MediaStore = (*MediaCache)(nil)
