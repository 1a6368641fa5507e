package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/nimasrn/crowdfund/internal/model"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxImageSize    = 5 << 20
	MaxDocumentSize = 10 << 20
)

var (
	imageTypes = map[string]string{
		"image/jpeg": "jpg",
		"image/png":  "png",
		"image/webp": "webp",
	}
	documentTypes = map[string]string{
		"image/jpeg":      "jpg",
		"image/png":       "png",
		"image/webp":      "webp",
		"application/pdf": "pdf",
	}
)

// Store persists uploads and returns their public URL.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Notifier queues a templated email. Failures are logged by callers and never
// fail the operation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, key string, to model.Recipient, data map[string]interface{}) error
}

// TxRunner runs fn in one database transaction.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SettingsProvider is the read side of SettingsService.
type SettingsProvider interface {
	Get(ctx context.Context) (*model.PlatformSettings, error)
}

// storeUpload sniffs the content type, enforces size and stores the file
// under prefix with a random name.
func storeUpload(ctx context.Context, store Store, prefix string, u *model.Upload, allowed map[string]string, maxSize int64) (string, error) {
	if u == nil || u.Size() == 0 {
		return "", ErrInvalidUpload
	}
	if u.Size() > maxSize {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidUpload, maxSize)
	}
	contentType := http.DetectContentType(u.Data)
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := allowed[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s is not allowed", ErrInvalidUpload, contentType)
	}

	key := fmt.Sprintf("%s/%s.%s", strings.Trim(prefix, "/"), uuid.NewString(), ext)
	url, err := store.Put(ctx, key, u.Data, contentType)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return url, nil
}

// Slugify lowercases s, strips accents and joins words with dashes.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > 80 {
		slug = strings.TrimSuffix(slug[:80], "-")
	}
	if slug == "" {
		slug = "campaign"
	}
	return slug
}

func campaignSlug(title string) string {
	return Slugify(title) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// ParseDate accepts RFC3339 or a plain YYYY-MM-DD (end of that day, UTC).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Add(24*time.Hour - time.Second).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: date must be RFC3339 or YYYY-MM-DD", ErrInvalidInput)
}

// trimField normalizes an optional request field in place.
func trimField(v *string, clean func(string) string) {
	if v != nil {
		*v = clean(*v)
	}
}
