package poster

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mymmrac/telego"
)

const (
	maxSendRetries   = 3
	defaultRetryWait = 2 * time.Second
)

// parseRetryAfter attempts to extract the 'retry after N' duration (in
// seconds) from a Telegram API error string (typically for 429 Too Many
// Requests). Returns the duration and true if successful.
func parseRetryAfter(errorString string) (int, bool) {
	var retryAfter int
	// Example error: "telego: sendMediaGroup: api: 429 Too Many Requests: retry after 5"
	fields := strings.Fields(errorString)
	if len(fields) >= 3 && fields[len(fields)-2] == "after" {
		_, err := fmt.Sscan(fields[len(fields)-1], &retryAfter)
		if err == nil && retryAfter > 0 {
			return retryAfter, true
		}
	}
	return 0, false
}

// sendMediaGroupWithRetry sends one album chunk, waiting out Telegram
// rate-limit responses up to maxSendRetries attempts. Non-rate-limit
// errors are returned immediately.
func (p *Poster) sendMediaGroupWithRetry(ctx context.Context, params *telego.SendMediaGroupParams) ([]telego.Message, error) {
	var lastErr error

	for attempt := 0; attempt < maxSendRetries; attempt++ {
		p.limiter.Take()
		sent, err := p.bot.SendMediaGroup(ctx, params)
		if err == nil {
			return sent, nil
		}
		lastErr = err

		errStr := err.Error()
		if !strings.Contains(errStr, "Too Many Requests") && !strings.Contains(errStr, "429") {
			return nil, err
		}

		wait := defaultRetryWait
		if seconds, ok := parseRetryAfter(errStr); ok {
			wait = time.Duration(seconds) * time.Second
		}
		log.Printf("[SendRetry] Rate limit hit (attempt %d/%d), waiting %v", attempt+1, maxSendRetries, wait)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during rate limit wait: %w", ctx.Err())
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded for media group: %w", maxSendRetries, lastErr)
}
