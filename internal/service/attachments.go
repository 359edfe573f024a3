package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/pkg/storage"
)

var ErrInvalidImage = errors.New("invalid image data")

// attachmentURLTTL bounds presigned URLs on S3 backends. Local storage
// ignores it.
const attachmentURLTTL = 24 * time.Hour

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AttachmentStore persists base64 image payloads from the frontend and
// returns serving URLs. Events and API responses carry the URL, never the
// raw bytes.
type AttachmentStore struct {
	store storage.Storage
}

func NewAttachmentStore(store storage.Storage) *AttachmentStore {
	return &AttachmentStore{store: store}
}

// SaveImage decodes a "data:<type>;base64,<data>" payload and stores it
// under the given key prefix. It returns the storage key.
func (a *AttachmentStore) SaveImage(ctx context.Context, prefix, dataURL string) (string, error) {
	contentType, data, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrInvalidImage
	}

	key := fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), ext)
	if err := a.store.Write(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return key, nil
}

// URLFor resolves a storage key to a serving URL.
func (a *AttachmentStore) URLFor(ctx context.Context, key string) (string, error) {
	return a.store.GetURL(ctx, key, attachmentURLTTL)
}

func decodeDataURL(dataURL string) (contentType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, ErrInvalidImage
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidImage
	}
	contentType, ok = strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, ErrInvalidImage
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrInvalidImage
	}
	return contentType, data, nil
}

// avatarURL resolves a user's stored avatar key to a serving URL, or an
// empty string when the user has no avatar.
func (a *AttachmentStore) avatarURL(ctx context.Context, user *domain.UserModel) string {
	if user.AvatarKey == "" {
		return ""
	}
	url, err := a.store.GetURL(ctx, user.AvatarKey, attachmentURLTTL)
	if err != nil {
		return ""
	}
	return url
}
