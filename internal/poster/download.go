package poster

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxDownloadSize caps a single media download (Telegram bot uploads
// top out at 50 MB anyway).
const maxDownloadSize = 50 << 20

// Download fetches raw media bytes from a URL. Non-2xx statuses,
// timeouts and network errors are all reported uniformly as an error:
// the item is simply unavailable.
func (p *Poster) Download(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("empty media url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return data, nil
}
