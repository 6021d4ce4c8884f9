package domain

import "sync/atomic"

// MediaFile is a downloaded file owned by the track that created it.
// Whoever wins MarkReleased deletes it; every later caller skips.
type MediaFile struct {
	path     string
	released atomic.Bool
}

// NewMediaFile returns nil when path is empty, so streamed tracks carry no file.
func NewMediaFile(path string) *MediaFile {
	if path == "" {
		return nil
	}
	return &MediaFile{path: path}
}

// Path returns the file location.
func (f *MediaFile) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// MarkReleased flips the released flag and reports whether this call did it.
func (f *MediaFile) MarkReleased() bool {
	if f == nil {
		return false
	}
	return f.released.CompareAndSwap(false, true)
}

// Released reports whether the file has already been handed off for deletion.
func (f *MediaFile) Released() bool {
	if f == nil {
		return true
	}
	return f.released.Load()
}
