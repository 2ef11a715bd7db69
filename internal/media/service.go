// Package media stores uploaded files in the object store and cleans up the
// ones that are no longer referenced.
package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
)

// Folder groups stored objects by purpose.
type Folder string

const (
	FolderAvatars    Folder = "avatars"
	FolderCovers     Folder = "covers"
	FolderVideos     Folder = "videos"
	FolderThumbnails Folder = "thumbnails"
)

// ObjectStore persists media objects and removes them again.
type ObjectStore interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	DeleteMany(ctx context.Context, locations []string) error
}

// Asset describes an uploaded object.
type Asset struct {
	URL      string
	Size     int64
	Duration float64
}

// Service uploads request files and schedules stale media for removal.
type Service struct {
	store   ObjectStore
	probe   *FFProbe
	janitor *Janitor
	tempDir string
}

// NewService constructs a media service. probe and janitor may be nil.
func NewService(store ObjectStore, probe *FFProbe, janitor *Janitor, tempDir string) *Service {
	return &Service{store: store, probe: probe, janitor: janitor, tempDir: tempDir}
}

// Upload spools file to a temporary path, probes videos for their duration and
// stores the result. The temporary file is removed on every path. Failures are
// logged and reported as a nil asset so the caller decides whether the upload
// was essential.
func (s *Service) Upload(ctx context.Context, folder Folder, file *multipart.FileHeader) *Asset {
	logger := logging.FromContext(ctx).With("folder", string(folder))
	if file == nil {
		return nil
	}
	if s == nil || s.store == nil {
		logger.Error("media upload skipped", "error", ErrStorageUnavailable)
		return nil
	}

	asset, err := s.upload(ctx, folder, file)
	if err != nil {
		logger.Error("media upload failed", "filename", file.Filename, "error", err)
		return nil
	}

	logger.Info("media uploaded", "url", asset.URL, "size", asset.Size)
	return asset
}

func (s *Service) upload(ctx context.Context, folder Folder, file *multipart.FileHeader) (*Asset, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	tmp, err := os.CreateTemp(s.tempDir, "vidtube-upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, src)
	if err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if size == 0 {
		return nil, fmt.Errorf("empty upload %q", file.Filename)
	}

	asset := &Asset{Size: size}
	if folder == FolderVideos && s.probe != nil {
		duration, err := s.probe.Duration(ctx, tmp.Name())
		if err != nil {
			logging.FromContext(ctx).Warn("probe video duration", "filename", file.Filename, "error", err)
		} else {
			asset.Duration = duration
		}
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}

	key := path.Join(string(folder), uuid.NewString()+ext)
	location, err := s.store.Save(ctx, key, file.Header.Get("Content-Type"), tmp)
	if err != nil {
		return nil, err
	}
	asset.URL = location

	return asset, nil
}

// Remove deletes the objects immediately.
func (s *Service) Remove(ctx context.Context, locations ...string) error {
	if s == nil || s.store == nil {
		return ErrStorageUnavailable
	}

	var keep []string
	for _, location := range locations {
		if location != "" {
			keep = append(keep, location)
		}
	}
	if len(keep) == 0 {
		return nil
	}

	return s.store.DeleteMany(ctx, keep)
}

// Discard schedules the objects for background deletion. Errors are logged.
func (s *Service) Discard(ctx context.Context, locations ...string) {
	if s == nil || s.janitor == nil {
		return
	}
	if err := s.janitor.Enqueue(ctx, locations...); err != nil {
		logging.FromContext(ctx).Warn("schedule media cleanup", "locations", locations, "error", err)
	}
}
