package classifier

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultImageTimeout  = 10 * time.Second
	DefaultMaxImageBytes = 10 << 20
	defaultImageMime     = "image/jpeg"
)

// ImageLoader 把图片引用解析成字节：内联 data URI 直接解码，远程地址带超时下载
type ImageLoader struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

func NewImageLoader(client *http.Client, timeout time.Duration, maxBytes int64) *ImageLoader {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultImageTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageLoader{client: client, timeout: timeout, maxBytes: maxBytes}
}

// IsInline 是否为 data URI 内联图片
func IsInline(ref string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ref)), "data:")
}

func (l *ImageLoader) Load(ctx context.Context, ref string) (*Image, error) {
	ref = strings.TrimSpace(ref)
	if IsInline(ref) {
		return decodeDataURI(ref)
	}
	return l.fetch(ctx, ref)
}

// decodeDataURI 解析 data:<mime>;base64,<payload>
func decodeDataURI(ref string) (*Image, error) {
	header, payload, ok := strings.Cut(ref[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing data separator", ErrInvalidImageRef)
	}
	params := strings.Split(header, ";")
	mimeType := strings.ToLower(strings.TrimSpace(params[0]))
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return nil, fmt.Errorf("%w: only base64 data uris are supported", ErrInvalidImageRef)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %q is not an image type", ErrInvalidImageRef, mimeType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageRef, err)
	}
	return &Image{MimeType: mimeType, Data: data}, nil
}

func (l *ImageLoader) fetch(ctx context.Context, ref string) (*Image, error) {
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageFetch, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrImageFetch, resp.StatusCode)
	}

	mimeType := defaultImageMime
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, perr := mime.ParseMediaType(ct); perr == nil {
			mimeType = mt
		}
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: content type %q", ErrImageFetch, mimeType)
	}

	// 多读 1 字节用来判断是否超限
	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageFetch, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: image larger than %d bytes", ErrImageFetch, l.maxBytes)
	}
	return &Image{MimeType: mimeType, Data: data}, nil
}
