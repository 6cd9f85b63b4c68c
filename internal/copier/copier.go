// Package copier drives one end-to-end copy job: resolve the group,
// page its wall, then classify and deliver every post in chronological
// order.
package copier

import (
	"context"
	"fmt"
	"log"
	"time"

	"vkcopy-bot/internal/database"
	"vkcopy-bot/internal/database/models"
	"vkcopy-bot/internal/media"
	"vkcopy-bot/internal/poster"
	"vkcopy-bot/internal/vk"
	"vkcopy-bot/pkg/utils"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
)

// captionLimit is the Telegram media-caption length ceiling.
const captionLimit = 1000

// progressEvery controls how often a progress notification is emitted.
const progressEvery = 10

// WallSource resolves group tokens and pages wall posts. Implemented by
// *vk.Client; abstracted for tests.
type WallSource interface {
	ResolveGroup(ctx context.Context, token string) (vk.OwnerID, error)
	FetchWall(ctx context.Context, owner vk.OwnerID, start, end *time.Time, limit int) ([]vk.Post, error)
}

// MediaPoster delivers one post's classified media. Implemented by
// *poster.Poster.
type MediaPoster interface {
	PostMedia(ctx context.Context, chat telego.ChatID, m media.Classified, caption string) bool
}

// ProgressFunc receives periodic accounting while a job runs.
type ProgressFunc func(succeeded, processed, total int)

// Params describes one copy job. Dates are optional inclusive bounds;
// callers validate them before the job starts.
type Params struct {
	GroupToken string
	Start      *time.Time
	End        *time.Time
	Count      int
	ChatID     string
}

// Report is the final accounting of one job.
type Report struct {
	Succeeded int
	Total     int
}

// Copier runs copy jobs. Each job's state is private to the Run call,
// so one Copier can serve many concurrent sessions.
type Copier struct {
	source WallSource
	poster MediaPoster
	jobs   database.JobLogger
}

// New creates a Copier. jobs may be nil to disable job accounting.
func New(source WallSource, mediaPoster MediaPoster, jobs database.JobLogger) (*Copier, error) {
	if source == nil {
		return nil, fmt.Errorf("wall source cannot be nil")
	}
	if mediaPoster == nil {
		return nil, fmt.Errorf("media poster cannot be nil")
	}
	return &Copier{source: source, poster: mediaPoster, jobs: jobs}, nil
}

// Run executes one job. It returns vk.ErrGroupNotFound (wrapped) when
// the group token cannot be resolved; an empty wall yields a zero
// Report and no error. A fault in a single post is contained to that
// post. progress may be nil.
func (c *Copier) Run(ctx context.Context, params Params, progress ProgressFunc) (Report, error) {
	startedAt := time.Now()
	logPrefix := fmt.Sprintf("[Copy Group:%s Chat:%s]", params.GroupToken, params.ChatID)

	owner, err := c.source.ResolveGroup(ctx, params.GroupToken)
	if err != nil {
		return Report{}, fmt.Errorf("resolve group %q: %w", params.GroupToken, err)
	}

	posts, err := c.source.FetchWall(ctx, owner, params.Start, params.End, params.Count)
	if err != nil {
		return Report{}, fmt.Errorf("fetch wall for %s: %w", owner, err)
	}
	if len(posts) == 0 {
		log.Printf("%s No posts found in the requested range", logPrefix)
		return Report{}, nil
	}

	// The wall arrives newest-first; deliver oldest-first.
	reverse(posts)

	log.Printf("%s Copying %d posts", logPrefix, len(posts))
	chat := poster.ChatIDFromString(params.ChatID)

	report := Report{Total: len(posts)}
	for i, post := range posts {
		if c.copyPost(ctx, chat, post) {
			report.Succeeded++
		}
		processed := i + 1
		if progress != nil && (processed%progressEvery == 0 || processed == len(posts)) {
			progress(report.Succeeded, processed, len(posts))
		}
	}

	log.Printf("%s Done: %d/%d posts copied", logPrefix, report.Succeeded, report.Total)
	c.logJob(ctx, params, report, startedAt)
	return report, nil
}

// copyPost classifies and dispatches a single post. Any panic while
// handling one post is recovered and counted as a failure so a single
// bad post never aborts the batch.
func (c *Copier) copyPost(ctx context.Context, chat telego.ChatID, post vk.Post) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while copying post dated %d: %v", post.Date, r)
			log.Printf("[Copy] %v", err)
			sentry.CaptureException(err)
			ok = false
		}
	}()

	classified := media.Classify(post)
	caption := utils.Truncate(classified.Text, captionLimit)

	return c.poster.PostMedia(ctx, chat, classified, caption)
}

func (c *Copier) logJob(ctx context.Context, params Params, report Report, startedAt time.Time) {
	if c.jobs == nil {
		return
	}
	entry := models.CopyJobLog{
		GroupToken: params.GroupToken,
		ChatID:     params.ChatID,
		Requested:  params.Count,
		Succeeded:  report.Succeeded,
		Total:      report.Total,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	if params.Start != nil {
		entry.RangeStart = *params.Start
	}
	if params.End != nil {
		entry.RangeEnd = *params.End
	}
	if err := c.jobs.LogCopyJob(ctx, entry); err != nil {
		log.Printf("[Copy] Failed to log job to DB: %v", err)
		sentry.CaptureException(fmt.Errorf("failed to log copy job: %w", err))
	}
}

func reverse(posts []vk.Post) {
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
}
