package uploads

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"diasporan-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Bucket names in Supabase Storage.
const (
	BucketReviewImages = "review-images"
	BucketAvatars      = "avatars"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".heic": true}

var unsafeChars = regexp.MustCompile(`[^a-z0-9._-]+`)

type Service struct {
	Storage     StorageClient
	SupabaseURL string
	Now         func() time.Time
}

// Result is what the client needs to PUT the file and later reference it.
type Result struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

// SignImageUpload returns a signed upload URL for an image in bucket. Objects are
// namespaced by user so one user cannot overwrite another's files.
func (s *Service) SignImageUpload(ctx context.Context, bucket string, userID uuid.UUID, fileName string) (*Result, error) {
	if bucket != BucketReviewImages && bucket != BucketAvatars {
		return nil, apperror.Validation(apperror.CodeValidation, fmt.Sprintf("unknown bucket %q", bucket))
	}
	name, err := sanitizeFileName(fileName)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	objectPath := fmt.Sprintf("%s/%d-%s", userID, now.UnixMilli(), name)

	signed, err := s.Storage.CreateSignedUploadURL(ctx, bucket, objectPath)
	if err != nil {
		log.Error().Err(err).Str("bucket", bucket).Msg("Signing upload URL failed")
		return nil, apperror.Internal(err)
	}
	return &Result{
		UploadURL: signed,
		PublicURL: fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimRight(s.SupabaseURL, "/"), bucket, objectPath),
		Path:      objectPath,
	}, nil
}

func sanitizeFileName(fileName string) (string, error) {
	base := strings.ToLower(path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), `\`, "/")))
	ext := path.Ext(base)
	if !imageExts[ext] {
		return "", apperror.Validation(apperror.CodeValidation, "file_name must be a jpg, png, webp, gif or heic image")
	}
	stem := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSuffix(base, ext), "-"), "-.")
	if stem == "" {
		stem = "image"
	}
	if len(stem) > 80 {
		stem = stem[:80]
	}
	return stem + ext, nil
}
