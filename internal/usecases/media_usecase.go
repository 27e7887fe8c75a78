package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"conexbot/internal/entities"
	"conexbot/internal/interfaces"

	"go.uber.org/zap"
)

// ErrRemoteMedia wraps failures of the remote media storage.
var ErrRemoteMedia = errors.New("media storage failed")

type UploadInput struct {
	Filename string
	MimeType string
	Size     int64
	Body     io.Reader
}

type MediaUsecase struct {
	media   interfaces.MediaStore
	storage interfaces.MediaStorage
}

func NewMediaUsecase(media interfaces.MediaStore, storage interfaces.MediaStorage) *MediaUsecase {
	return &MediaUsecase{media: media, storage: storage}
}

func (uc *MediaUsecase) List(ctx context.Context, userID int) ([]entities.Media, error) {
	return uc.media.ListByUser(ctx, userID)
}

// Upload stores the file remotely and records it locally. When the local
// insert fails the remote object is removed again.
func (uc *MediaUsecase) Upload(ctx context.Context, owner entities.Identity, in UploadInput) (*entities.Media, error) {
	if strings.TrimSpace(in.Filename) == "" || in.Body == nil {
		return nil, &entities.ValidationError{Fields: []entities.FieldError{{Field: "file", Message: "a file is required"}}}
	}

	obj, err := uc.storage.Upload(ctx, owner.Email, in.Filename, in.MimeType, in.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteMedia, err)
	}

	m := &entities.Media{
		UserID:       owner.ID,
		Filename:     obj.Filename,
		OriginalName: in.Filename,
		URL:          obj.URL,
		MimeType:     firstNonBlank(obj.MimeType, in.MimeType),
		Size:         obj.Size,
		RemoteID:     obj.ID,
	}
	if m.Size == 0 {
		m.Size = in.Size
	}
	if err := uc.media.Create(ctx, m); err != nil {
		if obj.ID != "" {
			if derr := uc.storage.Delete(ctx, obj.ID); derr != nil {
				zap.L().Error("orphaned remote media after failed insert",
					zap.String("remote_id", obj.ID), zap.Error(derr))
			}
		}
		return nil, err
	}
	zap.L().Info("media stored", zap.Int("user_id", owner.ID), zap.Int("media_id", m.ID))
	return m, nil
}

// Delete removes the remote object first. The local row goes only after the
// remote delete succeeded, and a remote failure leaves both in place.
func (uc *MediaUsecase) Delete(ctx context.Context, owner entities.Identity, id int) error {
	m, err := uc.media.GetForUser(ctx, id, owner.ID)
	if err != nil {
		return err
	}
	if m == nil {
		return entities.ErrNotFound
	}

	if err := uc.storage.Delete(ctx, m.RemoteID); err != nil {
		zap.L().Warn("remote media delete failed, local record kept",
			zap.Int("media_id", m.ID), zap.String("remote_id", m.RemoteID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRemoteMedia, err)
	}

	if err := uc.media.Delete(ctx, m.ID, owner.ID); err != nil {
		zap.L().Error("local media delete failed after remote delete",
			zap.Int("media_id", m.ID), zap.Error(err))
		return err
	}
	return nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
