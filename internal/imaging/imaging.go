// Package imaging turns user-supplied images into self-describing data URLs.
//
// A source is either a URL to download or bytes already in memory. Only JPEG,
// PNG and WebP are accepted; everything else is rejected before encoding.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/arawak/toolshelf/internal/apperr"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"

	dataURLPrefix = "data:image/"

	DefaultMaxBytes int64 = 20 * 1024 * 1024
)

var accepted = map[string]struct{}{
	MIMEJPEG: {},
	MIMEPNG:  {},
	MIMEWebP: {},
}

var (
	ErrUnsupportedFormat = apperr.New(apperr.KindValidation, "Only JPEG, PNG, and WebP images are supported.")
	ErrTooLarge          = apperr.New(apperr.KindValidation, "Image exceeds the maximum allowed size.")
	ErrFetchFailure      = errors.New("image fetch failed")
	ErrEncodingFailure   = apperr.New(apperr.KindInternal, "Failed to convert image to Base64.")
)

// Source is an image to normalize: a URLSource or a BinarySource.
type Source interface {
	isSource()
}

// URLSource is a remote image address. A value that is already a data:image/
// URL passes through untouched.
type URLSource string

// BinarySource is an in-memory image, typically an uploaded file. MIMEType is
// what the uploader declared and may be empty.
type BinarySource struct {
	Data     []byte
	MIMEType string
}

func (URLSource) isSource()    {}
func (BinarySource) isSource() {}

type Normalizer struct {
	fetcher     Fetcher
	maxBytes    int64
	decodeCheck bool
}

type Option func(*Normalizer)

// WithMaxBytes caps the payload size. Zero or negative disables the cap.
func WithMaxBytes(n int64) Option {
	return func(nz *Normalizer) { nz.maxBytes = n }
}

// WithDecodeCheck makes Normalize parse the image header and reject payloads
// whose real format differs from the resolved MIME type.
func WithDecodeCheck() Option {
	return func(nz *Normalizer) { nz.decodeCheck = true }
}

// NewNormalizer builds a Normalizer that downloads URL sources with f. A nil
// f uses an HTTPFetcher with default settings.
func NewNormalizer(f Fetcher, opts ...Option) *Normalizer {
	nz := &Normalizer{fetcher: f, maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(nz)
	}
	if nz.fetcher == nil {
		nz.fetcher = NewHTTPFetcher(DefaultFetchTimeout, nz.maxBytes)
	}
	return nz
}

// Normalize resolves src to a data:<mime>;base64,<payload> string.
func (n *Normalizer) Normalize(ctx context.Context, src Source) (string, error) {
	var (
		data     []byte
		mimeType string
	)
	switch s := src.(type) {
	case URLSource:
		raw := strings.TrimSpace(string(s))
		if strings.HasPrefix(raw, dataURLPrefix) {
			return raw, nil
		}
		if strings.HasPrefix(strings.ToLower(raw), "data:") {
			return "", ErrUnsupportedFormat
		}
		hint := InferMIMEFromURL(raw)
		fetched, err := n.fetch(ctx, raw)
		if err != nil {
			return "", err
		}
		data = fetched.Data
		mimeType = firstNonEmpty(mediaType(fetched.ContentType), hint)
	case BinarySource:
		data = s.Data
		mimeType = mediaType(s.MIMEType)
		if mimeType == "" && len(data) > 0 {
			mimeType = mediaType(http.DetectContentType(data))
		}
	default:
		return "", apperr.New(apperr.KindValidation, "Unsupported image source.")
	}

	if n.maxBytes > 0 && int64(len(data)) > n.maxBytes {
		return "", ErrTooLarge
	}
	if !IsAccepted(mimeType) {
		return "", ErrUnsupportedFormat
	}
	if n.decodeCheck {
		if err := checkDecodes(data, mimeType); err != nil {
			return "", err
		}
	}

	out := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	if !strings.HasPrefix(out, dataURLPrefix) {
		return "", ErrEncodingFailure
	}
	return out, nil
}

func (n *Normalizer) fetch(ctx context.Context, rawURL string) (*Fetched, error) {
	fetched, err := n.fetcher.Fetch(ctx, rawURL)
	if err == nil {
		return fetched, nil
	}
	if errors.Is(err, ErrTooLarge) {
		return nil, ErrTooLarge
	}
	var se *StatusError
	if errors.As(err, &se) {
		return nil, apperr.Wrap(apperr.KindTransport, fmt.Sprintf("Failed to download image (%s).", se.Status), ErrFetchFailure)
	}
	return nil, apperr.Wrap(apperr.KindTransport, "Failed to download image.", fmt.Errorf("%w: %v", ErrFetchFailure, err))
}

// InferMIMEFromURL guesses the image type from the URL path's suffix. Query
// strings, fragments and case are ignored. It returns "" when unsure.
func InferMIMEFromURL(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	} else {
		p, _, _ = strings.Cut(p, "?")
		p, _, _ = strings.Cut(p, "#")
	}
	switch path.Ext(strings.ToLower(p)) {
	case ".jpg", ".jpeg":
		return MIMEJPEG
	case ".png":
		return MIMEPNG
	case ".webp":
		return MIMEWebP
	default:
		return ""
	}
}

func IsAccepted(mimeType string) bool {
	_, ok := accepted[mimeType]
	return ok
}

// MIMEOf returns the declared type of a data URL produced by Normalize.
func MIMEOf(dataURL string) string {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return ""
	}
	mt, _, ok := strings.Cut(rest, ";")
	if !ok {
		return ""
	}
	return mt
}

func checkDecodes(data []byte, mimeType string) error {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || "image/"+format != mimeType {
		return ErrUnsupportedFormat
	}
	return nil
}

// mediaType strips parameters and lower-cases a Content-Type value.
func mediaType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(v); err == nil {
		return strings.ToLower(mt)
	}
	mt, _, _ := strings.Cut(v, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
