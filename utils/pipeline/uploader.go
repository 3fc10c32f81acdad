package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/kris-hansen/docsquad/utils/fileutil"
	"github.com/kris-hansen/docsquad/utils/models"
	"github.com/kris-hansen/docsquad/utils/retry"
	"github.com/rs/zerolog"
)

// FileMarker appears in every usable remote file handle
const FileMarker = "files/"

// cleanupTimeout bounds the best-effort delete of a file that never became ready
const cleanupTimeout = 10 * time.Second

// Uploader sends a local file to the remote service
type Uploader interface {
	Upload(ctx context.Context, path string) (FileReference, error)
}

// GeminiUploader uploads through a models.FileService and waits until the
// remote side reports the file ready
type GeminiUploader struct {
	files  models.FileService
	poll   retry.PollConfig
	logger zerolog.Logger
}

// NewGeminiUploader creates an uploader
func NewGeminiUploader(files models.FileService, poll retry.PollConfig, logger zerolog.Logger) *GeminiUploader {
	return &GeminiUploader{
		files:  files,
		poll:   poll,
		logger: logger.With().Str("stage", string(StageIngest)).Logger(),
	}
}

// Upload validates the local file, uploads it and polls until it is ready
func (u *GeminiUploader) Upload(ctx context.Context, path string) (FileReference, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileReference{}, NewError(KindNotFound, StageIngest, fmt.Sprintf("file %s does not exist on local storage", path), nil)
		}
		return FileReference{}, NewError(KindNotFound, StageIngest, fmt.Sprintf("cannot access %s", path), err)
	}
	if info.IsDir() {
		return FileReference{}, NewError(KindNotFound, StageIngest, fmt.Sprintf("%s is a directory, not a file", path), nil)
	}

	mimeType, err := fileutil.ContentTypeFor(path)
	if err != nil {
		return FileReference{}, NewError(KindUnsupportedType, StageIngest, fmt.Sprintf("cannot determine content type of %s", path), err)
	}
	if !fileutil.IsResolved(mimeType) {
		return FileReference{}, NewError(KindUnsupportedType, StageIngest, fmt.Sprintf("content type of %s could not be resolved", path), nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return FileReference{}, NewError(KindNotFound, StageIngest, fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()

	digest := xxhash.New()
	displayName := filepath.Base(path)

	u.logger.Info().Str("file", path).Str("mime_type", mimeType).Int64("size", info.Size()).Msg("uploading file")
	remote, err := u.files.UploadFile(ctx, io.TeeReader(f, digest), models.UploadOptions{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return FileReference{}, NewError(KindRemoteCallFailed, StageIngest, "upload failed", err)
	}
	if remote == nil {
		return FileReference{}, NewError(KindRemoteCallFailed, StageIngest, "upload returned no file", nil)
	}

	ready, err := u.waitReady(ctx, remote)
	if err != nil {
		u.discard(ctx, remote.Name)
		return FileReference{}, err
	}

	if !strings.Contains(ready.URI, FileMarker) {
		return FileReference{}, NewError(KindRemoteProcessingFailed, StageIngest, fmt.Sprintf("remote returned an unusable file handle %q", ready.URI), nil)
	}

	ref := FileReference{
		URI:         ready.URI,
		Name:        ready.Name,
		MIMEType:    mimeType,
		DisplayName: displayName,
		Checksum:    fmt.Sprintf("%016x", digest.Sum64()),
	}
	u.logger.Info().Str("uri", ref.URI).Str("checksum", ref.Checksum).Msg("file ready")
	return ref, nil
}

// waitReady polls while the file is processing. Any state other than
// PROCESSING or FAILED counts as ready.
func (u *GeminiUploader) waitReady(ctx context.Context, remote *models.RemoteFile) (*models.RemoteFile, error) {
	current := remote
	err := retry.Poll(ctx, u.poll, func(ctx context.Context, attempt int) (bool, error) {
		if attempt > 1 {
			f, err := u.files.GetFile(ctx, current.Name)
			if err != nil {
				return false, NewError(KindRemoteCallFailed, StageIngest, fmt.Sprintf("failed to fetch state of %s", current.Name), err)
			}
			current = f
		}

		switch current.State {
		case models.FileStateProcessing:
			u.logger.Debug().Str("name", current.Name).Int("check", attempt).Msg("waiting for remote processing")
			return false, nil
		case models.FileStateFailed:
			return false, NewError(KindRemoteProcessingFailed, StageIngest, fmt.Sprintf("remote processing of %s failed", current.Name), nil)
		default:
			return true, nil
		}
	})

	switch {
	case err == nil:
		return current, nil
	case errors.Is(err, retry.ErrTimeout):
		return nil, NewError(KindUploadTimeout, StageIngest, fmt.Sprintf("%s still processing", current.Name), err)
	default:
		return nil, asStageError(err, StageIngest, KindRemoteCallFailed)
	}
}

// discard deletes a remote file that will never be used. Failures are logged.
func (u *GeminiUploader) discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := u.files.DeleteFile(ctx, name); err != nil {
		u.logger.Warn().Err(err).Str("name", name).Msg("failed to delete unusable remote file")
	}
}
