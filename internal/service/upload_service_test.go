package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

type storageStub struct {
	calls        int
	lastKind     string
	lastPublicID string
	uploaded     bytes.Buffer
	failUntil    int
}

func (s *storageStub) Upload(ctx context.Context, publicID, mediaKind string, reader io.Reader) (string, error) {
	s.calls++
	if s.calls <= s.failUntil {
		return "", errors.New("cdn unavailable")
	}
	s.lastKind = mediaKind
	s.lastPublicID = publicID
	s.uploaded.Reset()
	if _, err := s.uploaded.ReadFrom(reader); err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + mediaKind + "/" + publicID, nil
}

func newUploadFixture(t *testing.T, maxSizeMB int) (UploadService, *storageStub, repository.UploadRepository) {
	t.Helper()
	db := setupTestDB(t)
	storage := &storageStub{}
	repo := repository.NewUploadRepository(db)
	return NewUploadService(storage, repo, maxSizeMB, testLogger()), storage, repo
}

func TestUploadEvidenceRejectsOversizedFiles(t *testing.T) {
	svc, storage, _ := newUploadFixture(t, 1)

	file := buildFileHeader(t, "big.png", append(append([]byte{}, pngHeader...), bytes.Repeat([]byte("a"), 2*1024*1024)...))
	_, err := svc.UploadEvidence(context.Background(), file, auth.Student{UserID: 1})
	require.ErrorIs(t, err, ErrUploadTooLarge)
	require.ErrorIs(t, err, ErrBadRequest)
	require.Zero(t, storage.calls)
}

func TestUploadEvidenceRejectsNonMedia(t *testing.T) {
	svc, storage, _ := newUploadFixture(t, 5)

	_, err := svc.UploadEvidence(context.Background(), buildFileHeader(t, "notes.png", []byte("plain text pretending")), auth.Student{UserID: 1})
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)

	_, err = svc.UploadEvidence(context.Background(), nil, auth.Student{UserID: 1})
	require.ErrorIs(t, err, ErrUploadRequired)
	require.Zero(t, storage.calls)
}

func TestUploadEvidenceStoresAndDeduplicates(t *testing.T) {
	svc, storage, repo := newUploadFixture(t, 5)
	student := auth.Student{UserID: 7}

	first, err := svc.UploadEvidence(context.Background(), buildFileHeader(t, "Step 1 Photo!.PNG", pngHeader), student)
	require.NoError(t, err)
	require.Equal(t, MediaKindImage, first.MediaKind)
	require.Equal(t, "image/png", first.MimeType)
	require.Equal(t, "step-1-photo.png", first.FileName)
	require.Len(t, first.Checksum, 64)
	require.Equal(t, evidencePublicID(7, first.Checksum), storage.lastPublicID)
	require.Equal(t, "https://cdn.example.com/image/"+storage.lastPublicID, first.URL)
	require.Equal(t, MediaKindImage, storage.lastKind)
	require.Equal(t, pngHeader, storage.uploaded.Bytes())

	again, err := svc.UploadEvidence(context.Background(), buildFileHeader(t, "renamed.png", pngHeader), student)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, 1, storage.calls, "identical content is not pushed twice")

	other, err := svc.UploadEvidence(context.Background(), buildFileHeader(t, "renamed.png", pngHeader), auth.Student{UserID: 8})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
	require.Equal(t, 2, storage.calls)

	stored, err := repo.FindByChecksum(context.Background(), student.UserID, first.Checksum)
	require.NoError(t, err)
	require.Equal(t, first.URL, stored.URL)
}

func TestUploadEvidenceStorageFailure(t *testing.T) {
	svc, storage, _ := newUploadFixture(t, 5)
	storage.failUntil = 1

	_, err := svc.UploadEvidence(context.Background(), buildFileHeader(t, "a.png", pngHeader), auth.Student{UserID: 1})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrBadRequest)

	_, err = svc.UploadEvidence(context.Background(), buildFileHeader(t, "a.png", pngHeader), auth.Student{UserID: 1})
	require.NoError(t, err, "a failed push leaves nothing behind to deduplicate against")
}

func TestSanitizeFileName(t *testing.T) {
	require.Equal(t, "student-3-0123456789abcdef01234567", evidencePublicID(3, "0123456789abcdef0123456789abcdef"))
	require.Equal(t, "student-3-abc", evidencePublicID(3, "abc"))
	require.Equal(t, "tea-time.jpg", sanitizeFileName("Tea Time.JPG", ".jpg"))
	require.Equal(t, "clip.mp4", sanitizeFileName("clip", ".mp4"))
	require.Equal(t, "raw.bin", sanitizeFileName("raw", ""))
	require.Regexp(t, `^evidence-\d+\.png$`, sanitizeFileName("???.png", ".png"))
}

func TestMediaKindOf(t *testing.T) {
	require.Equal(t, MediaKindImage, mediaKindOf("image/jpeg"))
	require.Equal(t, MediaKindVideo, mediaKindOf("video/mp4"))
	require.Empty(t, mediaKindOf("application/pdf"))
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}
