package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/voyagen/channelvault/internal/models"
)

// Load reads a playlist from an http(s) URL or a local path and parses it.
func Load(ctx context.Context, src string, userAgent string, useTvgID bool, timeout time.Duration) ([]models.Channel, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return FetchM3U(ctx, src, userAgent, useTvgID, timeout)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open playlist: %w", err)
	}
	defer f.Close()
	return ParseM3U(f, useTvgID)
}

// FetchM3U fetches the M3U playlist from url and parses it.
// userAgent is optional.
func FetchM3U(ctx context.Context, url string, userAgent string, useTvgID bool, timeout time.Duration) ([]models.Channel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return ParseM3U(resp.Body, useTvgID)
}
