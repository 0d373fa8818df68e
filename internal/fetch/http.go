package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const defaultMaxBodyBytes = 2 << 20

// HTTPFetcher downloads a page directly and converts HTML or PDF to text.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// NewHTTPFetcher builds a fetcher; a nil client gets a 20s timeout.
func NewHTTPFetcher(client *http.Client, userAgent string) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTTPFetcher{client: client, userAgent: userAgent, maxBody: defaultMaxBodyBytes}
}

func (h *HTTPFetcher) Name() string { return "http" }

func (h *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,text/plain;q=0.8")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned %s", url, resp.Status)
	}

	lr := &io.LimitedReader{R: resp.Body, N: h.maxBody}
	body, err := io.ReadAll(lr)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	var text string
	switch mediaType(resp.Header.Get("Content-Type"), body) {
	case "application/pdf":
		text, err = PDFToText(ctx, body)
	case "text/html", "application/xhtml+xml":
		text, err = HTMLToText(bytes.NewReader(body))
	default:
		text = string(body)
	}
	if err != nil {
		return "", err
	}
	return nonEmpty(text)
}

func mediaType(header string, body []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
		return strings.ToLower(mt)
	}
	if bytes.HasPrefix(body, []byte("%PDF-")) {
		return "application/pdf"
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(body))
	return mt
}
