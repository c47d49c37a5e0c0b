package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/site-cms-api/internal/dto"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
)

type uploadStorage interface {
	Save(name string, data []byte) (string, error)
	URL(name string) string
}

// UploadService stores images referenced from site configs.
type UploadService struct {
	storage uploadStorage
	maxSize int64
	logger  *zap.Logger
	now     func() time.Time
}

// NewUploadService constructs an UploadService accepting files up to maxSize bytes.
func NewUploadService(storage uploadStorage, maxSize int64, logger *zap.Logger) *UploadService {
	if maxSize <= 0 {
		maxSize = 5 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{storage: storage, maxSize: maxSize, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// MaxSize returns the upload limit in bytes.
func (s *UploadService) MaxSize() int64 {
	return s.maxSize
}

// Upload sniffs the content type, rejects anything that is not an image and stores the
// file under a dated random name.
func (s *UploadService) Upload(ctx context.Context, originalName string, r io.Reader) (*dto.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	if int64(len(data)) > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported file type %s", mtype.String()))
	}

	name := fmt.Sprintf("%s/%s%s", s.now().Format("2006/01/02"), uuid.NewString(), mtype.Extension())
	stored, err := s.storage.Save(name, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}
	s.logger.Info("file uploaded",
		zap.String("name", stored),
		zap.String("original_name", originalName),
		zap.String("content_type", mtype.String()),
		zap.Int("size", len(data)),
	)
	return &dto.UploadResult{
		URL:         s.storage.URL(stored),
		Name:        stored,
		ContentType: mtype.String(),
		Size:        int64(len(data)),
	}, nil
}
