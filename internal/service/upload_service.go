package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/observability"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

// Evidence media kinds.
const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

var (
	// ErrUploadRequired indicates the multipart request carried no file.
	ErrUploadRequired = newError(ErrBadRequest, "file is required")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = newError(ErrBadRequest, "file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the content is neither an image nor a video.
	ErrUploadTypeNotAllowed = newError(ErrBadRequest, "only image and video evidence is accepted")
)

// FileStorage pushes evidence media to the media store under a caller-chosen public id.
// Pushing the same id twice must be safe.
type FileStorage interface {
	Upload(ctx context.Context, publicID, mediaKind string, reader io.Reader) (string, error)
}

// UploadService validates evidence files and stores them.
type UploadService interface {
	UploadEvidence(ctx context.Context, file *multipart.FileHeader, student auth.Student) (dto.UploadResponse, error)
}

type uploadService struct {
	storage FileStorage
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 25
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/gema-classroom-api/internal/service/upload"),
	}
}

func (s *uploadService) UploadEvidence(ctx context.Context, file *multipart.FileHeader, student auth.Student) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.evidence")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("upload.max_bytes", s.maxSize),
		attribute.Int64("upload.user_id", int64(student.UserID)),
	)

	if file == nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.UploadResponse{}, ErrUploadRequired
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		return dto.UploadResponse{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.UploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.UploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		return dto.UploadResponse{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	detected := mimetype.Detect(buf.Bytes())
	mediaKind := mediaKindOf(detected.String())
	span.SetAttributes(attribute.String("upload.detected_mime", detected.String()))
	if mediaKind == "" {
		return dto.UploadResponse{}, s.reject(span, "type", ErrUploadTypeNotAllowed)
	}

	sum := sha256.Sum256(buf.Bytes())
	checksum := hex.EncodeToString(sum[:])

	existing, err := s.repo.FindByChecksum(ctx, student.UserID, checksum)
	if err == nil {
		span.SetAttributes(attribute.Bool("upload.deduplicated", true))
		s.logger.Debug().Uint("upload_id", existing.ID).Msg("evidence already uploaded, reusing record")
		return dto.NewUploadResponse(existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return dto.UploadResponse{}, err
	}

	sanitizedName := sanitizeFileName(file.Filename, detected.Extension())
	span.SetAttributes(
		attribute.String("upload.sanitized_name", sanitizedName),
		attribute.Int64("upload.size_bytes", int64(buf.Len())),
	)

	publicID := evidencePublicID(student.UserID, checksum)
	url, err := s.storage.Upload(ctx, publicID, mediaKind, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.RecordUploadRejection("storage")
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.UploadResponse{}, fmt.Errorf("store evidence: %w", err)
	}

	record := models.UploadRecord{
		UserID:    student.UserID,
		FileName:  sanitizedName,
		URL:       url,
		MimeType:  detected.String(),
		MediaKind: mediaKind,
		SizeBytes: int64(buf.Len()),
		Checksum:  checksum,
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.UploadResponse{}, err
	}

	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().
		Uint("upload_id", record.ID).
		Uint("user_id", student.UserID).
		Str("media_kind", mediaKind).
		Int64("size_bytes", record.SizeBytes).
		Msg("evidence uploaded")

	return dto.NewUploadResponse(record), nil
}

func (s *uploadService) reject(span trace.Span, reason string, err error) error {
	observability.RecordUploadRejection(reason)
	span.RecordError(err)
	span.SetStatus(codes.Error, "rejected: "+reason)
	return err
}

// evidencePublicID names stored media by owner and content, so a retried push lands on the same asset.
func evidencePublicID(userID uint, checksum string) string {
	if len(checksum) > 24 {
		checksum = checksum[:24]
	}
	return fmt.Sprintf("student-%d-%s", userID, checksum)
}

func mediaKindOf(mime string) string {
	lower := strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(lower, "image/"):
		return MediaKindImage
	case strings.HasPrefix(lower, "video/"):
		return MediaKindVideo
	default:
		return ""
	}
}

func sanitizeFileName(name, detectedExt string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("evidence-%d", time.Now().Unix())
	}

	ext := strings.ToLower(filepath.Ext(name))
	if detectedExt != "" {
		ext = detectedExt
	}
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}
