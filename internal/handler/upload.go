package handler

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/service"
)

// readUpload reads a single file field from a multipart form. A missing field
// returns nil without error so the service can decide if it is required.
func readUpload(c *fiber.Ctx, field string, maxUploadMB int64, allowed ...string) (*service.Upload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		// not a multipart request or no such field
		return nil, nil
	}

	maxBytes := maxUploadMB * 1024 * 1024
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, fmt.Errorf("%w: file size exceeds maximum of %dMB", domain.ErrValidation, maxUploadMB)
	}

	contentType := header.Header.Get(fiber.HeaderContentType)
	if !isAllowedType(contentType, allowed) {
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrValidation, contentType)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return &service.Upload{
		Data:        data,
		Filename:    header.Filename,
		ContentType: contentType,
	}, nil
}

// isAllowedType matches a content type against prefixes like "image/"
func isAllowedType(contentType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, prefix := range allowed {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}
