package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// UploadFolder is the Cloudinary folder attachments are stored in.
const UploadFolder = "chatsync"

// Upload is a file attached to a post, reply, message or avatar change.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// IsImage reports whether the upload should render inline.
func (u Upload) IsImage() bool {
	return strings.HasPrefix(u.ContentType, "image")
}

// DataURI inlines the upload the way older clients stored attachments.
func (u Upload) DataURI() string {
	ct := u.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(u.Data)
}

// Uploader stores attachment bytes and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, u Upload) (string, error)
}

type CloudinaryService struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryService(cloudName, apiKey, apiSecret string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	return &CloudinaryService{
		cld: cld,
	}, nil
}

func (s *CloudinaryService) Upload(ctx context.Context, u Upload) (string, error) {
	uploadResult, err := s.cld.Upload.Upload(ctx, bytes.NewReader(u.Data), uploader.UploadParams{
		Folder:       UploadFolder,
		ResourceType: "auto", // Automatically detect image, video, or raw
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}

	return uploadResult.SecureURL, nil
}

// attach turns an upload into an attachment. Without an uploader, or when the
// upload fails, the bytes are inlined as a data URI.
func (e *Engine) attach(ctx context.Context, u *Upload) (*models.Attachment, error) {
	if u == nil {
		return nil, nil
	}
	if len(u.Data) == 0 {
		return nil, ErrInvalid
	}
	att := &models.Attachment{Type: models.AttachmentFile}
	if u.IsImage() {
		att.Type = models.AttachmentImage
	}

	if e.upload != nil {
		url, err := e.upload.Upload(ctx, *u)
		if err == nil {
			att.Payload = url
			return att, nil
		}
		log.Printf("⚠️  attachment upload failed, inlining %s: %v", u.Name, err)
	}
	att.Payload = u.DataURI()
	return att, nil
}
