package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config holds the account credentials and the root folder for evidence.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service stores student evidence on Cloudinary, one folder per media kind.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New validates the credentials and builds the client. It does not contact Cloudinary.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary: cloud name, api key and api secret are required")
	}

	client, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: init client: %w", err)
	}

	return &Service{
		client: client,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores reader as <folder>/<mediaKind>/<publicID> and returns its HTTPS URL.
// Re-uploading the same public id replaces the asset.
func (s *Service) Upload(ctx context.Context, publicID, mediaKind string, reader io.Reader) (string, error) {
	id := cleanPublicID(publicID)
	if id == "" {
		return "", errors.New("cloudinary: public id is empty")
	}

	params := uploader.UploadParams{
		Folder:       s.folderFor(mediaKind),
		PublicID:     id,
		ResourceType: resourceType(mediaKind),
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("cloudinary: upload %s: %w", id, err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: upload %s: %s", id, result.Error.Message)
	}

	s.logger.Info().
		Str("public_id", result.PublicID).
		Str("resource_type", params.ResourceType).
		Int("bytes", result.Bytes).
		Msg("evidence stored")

	return result.SecureURL, nil
}

func (s *Service) folderFor(mediaKind string) string {
	kind := strings.Trim(mediaKind, "/")
	if kind == "" {
		return s.folder
	}
	return strings.TrimPrefix(path.Join(s.folder, kind), "/")
}

func resourceType(mediaKind string) string {
	switch mediaKind {
	case "image", "video":
		return mediaKind
	default:
		return "auto"
	}
}

// cleanPublicID keeps letters, digits, dashes and underscores.
func cleanPublicID(id string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, strings.TrimSpace(id))
	return strings.Trim(cleaned, "-")
}
