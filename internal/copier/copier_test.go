package copier

import (
	"context"
	"testing"
	"time"

	"vkcopy-bot/internal/database/models"
	"vkcopy-bot/internal/media"
	"vkcopy-bot/internal/vk"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves a fixed wall and records the calls it gets.
type fakeSource struct {
	owner      vk.OwnerID
	resolveErr error
	posts      []vk.Post

	resolvedToken string
	fetchCalled   bool
	fetchStart    *time.Time
	fetchEnd      *time.Time
	fetchLimit    int
}

func (f *fakeSource) ResolveGroup(ctx context.Context, token string) (vk.OwnerID, error) {
	f.resolvedToken = token
	if f.resolveErr != nil {
		return vk.OwnerID{}, f.resolveErr
	}
	return f.owner, nil
}

func (f *fakeSource) FetchWall(ctx context.Context, owner vk.OwnerID, start, end *time.Time, limit int) ([]vk.Post, error) {
	f.fetchCalled = true
	f.fetchStart = start
	f.fetchEnd = end
	f.fetchLimit = limit

	var out []vk.Post
	for _, p := range f.posts {
		postTime := time.Unix(p.Date, 0)
		if start != nil && postTime.Before(*start) {
			continue
		}
		if end != nil && postTime.After(*end) {
			continue
		}
		out = append(out, p)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// fakePoster records delivered captions and can fail or panic on
// selected posts.
type fakePoster struct {
	captions []string
	failOn   map[string]bool
	panicOn  map[string]bool
}

func (f *fakePoster) PostMedia(ctx context.Context, chat telego.ChatID, m media.Classified, caption string) bool {
	f.captions = append(f.captions, caption)
	if f.panicOn[m.Text] {
		panic("poster blew up on " + m.Text)
	}
	return !f.failOn[m.Text]
}

// fakeJobLogger captures the single job log entry.
type fakeJobLogger struct {
	logged []models.CopyJobLog
}

func (f *fakeJobLogger) LogCopyJob(ctx context.Context, job models.CopyJobLog) error {
	f.logged = append(f.logged, job)
	return nil
}

// newestFirstWall builds a wall of n posts, one per day starting at
// base, returned newest-first like the real API.
func newestFirstWall(base time.Time, n int) []vk.Post {
	posts := make([]vk.Post, 0, n)
	for i := n - 1; i >= 0; i-- {
		posts = append(posts, vk.Post{
			ID:   i + 1,
			Date: base.AddDate(0, 0, i).Unix(),
			Text: time.Unix(base.AddDate(0, 0, i).Unix(), 0).UTC().Format("2006-01-02"),
		})
	}
	return posts
}

func TestRunCopiesRangeChronologically(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{owner: vk.OwnerID{Numeric: 1}, posts: newestFirstWall(base, 12)}
	posterFake := &fakePoster{}
	jobs := &fakeJobLogger{}

	c, err := New(source, posterFake, jobs)
	require.NoError(t, err)

	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 10, 23, 59, 59, 0, time.UTC)
	report, err := c.Run(context.Background(), Params{
		GroupToken: "testgroup",
		Start:      &start,
		End:        &end,
		Count:      50,
		ChatID:     "12345",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 6, report.Succeeded)
	assert.Equal(t, "testgroup", source.resolvedToken)
	assert.Equal(t, 50, source.fetchLimit)

	// Delivery order must be oldest first even though the wall is
	// newest first.
	require.Len(t, posterFake.captions, 6)
	assert.Equal(t, "2024-01-05", posterFake.captions[0])
	assert.Equal(t, "2024-01-10", posterFake.captions[5])

	require.Len(t, jobs.logged, 1)
	assert.Equal(t, "testgroup", jobs.logged[0].GroupToken)
	assert.Equal(t, 6, jobs.logged[0].Succeeded)
}

func TestRunCountsFailedPosts(t *testing.T) {
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{owner: vk.OwnerID{Numeric: 1}, posts: newestFirstWall(base, 6)}
	posterFake := &fakePoster{failOn: map[string]bool{
		"2024-02-02": true,
		"2024-02-04": true,
	}}

	c, err := New(source, posterFake, nil)
	require.NoError(t, err)

	report, err := c.Run(context.Background(), Params{
		GroupToken: "g", Count: 50, ChatID: "1",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 4, report.Succeeded)
}

func TestRunRecoversFromPanickingPost(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{owner: vk.OwnerID{Numeric: 1}, posts: newestFirstWall(base, 5)}
	posterFake := &fakePoster{panicOn: map[string]bool{"2024-03-03": true}}

	c, err := New(source, posterFake, nil)
	require.NoError(t, err)

	report, err := c.Run(context.Background(), Params{
		GroupToken: "g", Count: 50, ChatID: "1",
	}, nil)

	// A panic while handling one post is contained: the batch runs to
	// the end and the bad post counts as failed.
	require.NoError(t, err)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 4, report.Succeeded)
	require.Len(t, posterFake.captions, 5)
	assert.Equal(t, "2024-03-05", posterFake.captions[4])
}

func TestRunResolutionFailureAbortsBeforeFetch(t *testing.T) {
	source := &fakeSource{resolveErr: vk.ErrGroupNotFound}
	c, err := New(source, &fakePoster{}, nil)
	require.NoError(t, err)

	_, err = c.Run(context.Background(), Params{GroupToken: "missing", Count: 10, ChatID: "1"}, nil)

	assert.ErrorIs(t, err, vk.ErrGroupNotFound)
	assert.False(t, source.fetchCalled, "the wall must not be fetched when resolution fails")
}

func TestRunEmptyRange(t *testing.T) {
	source := &fakeSource{owner: vk.OwnerID{Numeric: 1}}
	jobs := &fakeJobLogger{}
	c, err := New(source, &fakePoster{}, jobs)
	require.NoError(t, err)

	report, err := c.Run(context.Background(), Params{GroupToken: "g", Count: 10, ChatID: "1"}, nil)

	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Empty(t, jobs.logged, "an empty range is not a job worth logging")
}

func TestRunProgressEmissions(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{owner: vk.OwnerID{Numeric: 1}, posts: newestFirstWall(base, 25)}
	c, err := New(source, &fakePoster{}, nil)
	require.NoError(t, err)

	var processedAt []int
	report, err := c.Run(context.Background(), Params{GroupToken: "g", Count: 50, ChatID: "1"},
		func(succeeded, processed, total int) {
			processedAt = append(processedAt, processed)
			assert.Equal(t, 25, total)
		})

	require.NoError(t, err)
	assert.Equal(t, 25, report.Succeeded)
	assert.Equal(t, []int{10, 20, 25}, processedAt, "progress fires every tenth post and at the end")
}

func TestRunTruncatesLongCaptions(t *testing.T) {
	long := make([]rune, 0, 1500)
	for i := 0; i < 1500; i++ {
		long = append(long, 'я')
	}
	source := &fakeSource{owner: vk.OwnerID{Numeric: 1}, posts: []vk.Post{{
		ID:   1,
		Date: time.Now().Unix(),
		Text: string(long),
	}}}
	posterFake := &fakePoster{}
	c, err := New(source, posterFake, nil)
	require.NoError(t, err)

	_, err = c.Run(context.Background(), Params{GroupToken: "g", Count: 10, ChatID: "1"}, nil)
	require.NoError(t, err)

	require.Len(t, posterFake.captions, 1)
	assert.Equal(t, 1000, len([]rune(posterFake.captions[0])))
}

func TestNewValidatesDependencies(t *testing.T) {
	_, err := New(nil, &fakePoster{}, nil)
	assert.Error(t, err)

	_, err = New(&fakeSource{}, nil, nil)
	assert.Error(t, err)

	c, err := New(&fakeSource{}, &fakePoster{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
