package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/oklog/ulid/v2"
)

// Media folders in the object store
const (
	avatarFolder = "avatars"
	posterFolder = "posters"
	videoFolder  = "lectures"
)

// Upload is a file received from a multipart form
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// generateULID creates a new ULID string
func generateULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// mediaKey builds the object key for an upload, keeping the original extension
func mediaKey(folder, filename string) string {
	return folder + "/" + strings.ToLower(generateULID()) + strings.ToLower(filepath.Ext(filename))
}

// storeMedia uploads a file under a fresh key in folder
func storeMedia(ctx context.Context, files domain.FileRepository, folder string, up *Upload) (domain.Media, error) {
	if up == nil || len(up.Data) == 0 {
		return domain.Media{}, fmt.Errorf("%w: file is required", domain.ErrValidation)
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := mediaKey(folder, up.Filename)
	url, err := files.Upload(ctx, up.Data, key, contentType)
	if err != nil {
		return domain.Media{}, fmt.Errorf("failed to upload %s: %w", folder, err)
	}
	return domain.Media{PublicID: key, URL: url}, nil
}
