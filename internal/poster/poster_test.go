package poster

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vkcopy-bot/internal/media"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/ratelimit"
)

// MockBot is a mock implementing the telegoapi.BotAPI interface.
type MockBot struct {
	mock.Mock
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SendMediaGroup(ctx context.Context, params *telego.SendMediaGroupParams) ([]telego.Message, error) {
	args := m.Called(ctx, params)
	if msgs, ok := args.Get(0).([]telego.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	if user, ok := args.Get(0).(*telego.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error) {
	args := m.Called(ctx, params)
	if member, ok := args.Get(0).(telego.ChatMember); ok {
		return member, args.Error(1)
	}
	return nil, args.Error(1)
}

// newTestPoster creates a Poster backed by a media file server that
// serves fake bytes for every path, and an unpaced limiter.
func newTestPoster(t *testing.T, bot *MockBot) (*Poster, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "media-bytes")
	}))
	t.Cleanup(server.Close)
	p := New(bot, 5*time.Second, WithRateLimiter(ratelimit.NewUnlimited()))
	return p, server
}

func TestPostMediaTextOnly(t *testing.T) {
	mockBot := new(MockBot)
	p, _ := newTestPoster(t, mockBot)
	chat := tu.ID(100)

	var captured *telego.SendMessageParams
	mockBot.On("SendMessage", mock.Anything, mock.AnythingOfType("*telego.SendMessageParams")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*telego.SendMessageParams)
		}).
		Return(&telego.Message{}, nil).Once()

	ok := p.PostMedia(context.Background(), chat, media.Classified{Text: "just text"}, "caption ignored")

	assert.True(t, ok)
	mockBot.AssertExpectations(t)
	require.NotNil(t, captured)
	assert.Equal(t, "just text", captured.Text)
	assert.Equal(t, telego.ModeHTML, captured.ParseMode)
}

func TestPostMediaEmptyPost(t *testing.T) {
	mockBot := new(MockBot)
	p, _ := newTestPoster(t, mockBot)

	ok := p.PostMedia(context.Background(), tu.ID(100), media.Classified{}, "")

	assert.False(t, ok)
	mockBot.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestPostMediaSinglePhotoWithCaption(t *testing.T) {
	mockBot := new(MockBot)
	p, server := newTestPoster(t, mockBot)

	var captured *telego.SendPhotoParams
	mockBot.On("SendPhoto", mock.Anything, mock.AnythingOfType("*telego.SendPhotoParams")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*telego.SendPhotoParams)
		}).
		Return(&telego.Message{}, nil).Once()

	m := media.Classified{Photos: []media.Photo{{URL: server.URL + "/p.jpg"}}}
	ok := p.PostMedia(context.Background(), tu.ID(100), m, "the caption")

	assert.True(t, ok)
	mockBot.AssertExpectations(t)
	require.NotNil(t, captured)
	assert.Equal(t, "the caption", captured.Caption)
	assert.Equal(t, telego.ModeHTML, captured.ParseMode)
}

func TestPostMediaAlbumChunking(t *testing.T) {
	mockBot := new(MockBot)
	p, server := newTestPoster(t, mockBot)

	var chunks []*telego.SendMediaGroupParams
	mockBot.On("SendMediaGroup", mock.Anything, mock.AnythingOfType("*telego.SendMediaGroupParams")).
		Run(func(args mock.Arguments) {
			chunks = append(chunks, args.Get(1).(*telego.SendMediaGroupParams))
		}).
		Return([]telego.Message{}, nil).Twice()

	var photos []media.Photo
	for i := 0; i < 15; i++ {
		photos = append(photos, media.Photo{URL: fmt.Sprintf("%s/p%d.jpg", server.URL, i)})
	}

	ok := p.PostMedia(context.Background(), tu.ID(100), media.Classified{Photos: photos}, "album caption")

	assert.True(t, ok)
	mockBot.AssertExpectations(t)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0].Media, 10)
	assert.Len(t, chunks[1].Media, 5)

	// Caption must appear exactly once, on the first item of the first chunk.
	first := chunks[0].Media[0].(*telego.InputMediaPhoto)
	assert.Equal(t, "album caption", first.Caption)
	for _, item := range chunks[0].Media[1:] {
		assert.Empty(t, item.(*telego.InputMediaPhoto).Caption)
	}
	for _, item := range chunks[1].Media {
		assert.Empty(t, item.(*telego.InputMediaPhoto).Caption)
	}
}

func TestPostMediaAlbumSkipsFailedDownloads(t *testing.T) {
	mockBot := new(MockBot)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "media-bytes")
	}))
	t.Cleanup(server.Close)
	p := New(mockBot, 5*time.Second, WithRateLimiter(ratelimit.NewUnlimited()))

	var captured *telego.SendMediaGroupParams
	mockBot.On("SendMediaGroup", mock.Anything, mock.AnythingOfType("*telego.SendMediaGroupParams")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*telego.SendMediaGroupParams)
		}).
		Return([]telego.Message{}, nil).Once()

	m := media.Classified{Photos: []media.Photo{
		{URL: server.URL + "/ok1.jpg"},
		{URL: server.URL + "/broken.jpg"},
		{URL: server.URL + "/ok2.jpg"},
	}}
	ok := p.PostMedia(context.Background(), tu.ID(100), m, "")

	assert.True(t, ok)
	require.NotNil(t, captured)
	assert.Len(t, captured.Media, 2)
}

func TestPostMediaVideoThumbnail(t *testing.T) {
	mockBot := new(MockBot)
	p, server := newTestPoster(t, mockBot)

	var captured *telego.SendPhotoParams
	mockBot.On("SendPhoto", mock.Anything, mock.AnythingOfType("*telego.SendPhotoParams")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*telego.SendPhotoParams)
		}).
		Return(&telego.Message{}, nil).Once()

	m := media.Classified{Videos: []media.Video{{
		Title:       "Cool <Video>",
		Description: "some description",
		Thumbnail:   server.URL + "/thumb.jpg",
	}}}
	ok := p.PostMedia(context.Background(), tu.ID(100), m, "")

	assert.True(t, ok)
	mockBot.AssertExpectations(t)
	require.NotNil(t, captured)
	assert.Contains(t, captured.Caption, "🎬 <b>Cool &lt;Video&gt;</b>")
	assert.Contains(t, captured.Caption, "<i>some description</i>")
}

func TestPostMediaVideoTextFallback(t *testing.T) {
	mockBot := new(MockBot)
	p, _ := newTestPoster(t, mockBot)

	var captured *telego.SendMessageParams
	mockBot.On("SendMessage", mock.Anything, mock.AnythingOfType("*telego.SendMessageParams")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*telego.SendMessageParams)
		}).
		Return(&telego.Message{}, nil).Once()

	// No thumbnail at all: the video degrades to a text message.
	m := media.Classified{Videos: []media.Video{{Title: "No Thumb"}}}
	ok := p.PostMedia(context.Background(), tu.ID(100), m, "")

	assert.True(t, ok)
	mockBot.AssertExpectations(t)
	require.NotNil(t, captured)
	assert.Contains(t, captured.Text, "🎬 <b>No Thumb</b>")
}

func TestPostMediaDocumentFilename(t *testing.T) {
	mockBot := new(MockBot)
	p, server := newTestPoster(t, mockBot)

	var captured []*telego.SendDocumentParams
	mockBot.On("SendDocument", mock.Anything, mock.AnythingOfType("*telego.SendDocumentParams")).
		Run(func(args mock.Arguments) {
			captured = append(captured, args.Get(1).(*telego.SendDocumentParams))
		}).
		Return(&telego.Message{}, nil).Twice()

	m := media.Classified{Documents: []media.Document{
		{Title: "report.pdf", URL: server.URL + "/a", Ext: "pdf"},
		{Title: "", URL: server.URL + "/b", Ext: "zip"},
	}}
	ok := p.PostMedia(context.Background(), tu.ID(100), m, "")

	assert.True(t, ok)
	require.Len(t, captured, 2)
	assert.Equal(t, "report.pdf", captured[0].Document.File.Name())
	assert.Equal(t, "file.zip", captured[1].Document.File.Name())
}

func TestPostMediaItemFailureIsolation(t *testing.T) {
	mockBot := new(MockBot)
	p, server := newTestPoster(t, mockBot)

	// The document send fails but the link after it still goes out.
	mockBot.On("SendDocument", mock.Anything, mock.Anything).
		Return(nil, errors.New("boom")).Once()
	mockBot.On("SendMessage", mock.Anything, mock.Anything).
		Return(&telego.Message{}, nil).Once()

	m := media.Classified{
		Documents: []media.Document{{Title: "f.txt", URL: server.URL + "/f"}},
		Links:     []media.Link{{Title: "Example", URL: "http://example.com"}},
	}
	ok := p.PostMedia(context.Background(), tu.ID(100), m, "")

	assert.True(t, ok, "one failed item must not sink the whole post")
	mockBot.AssertExpectations(t)
}

func TestPostMediaLinkFormatting(t *testing.T) {
	mockBot := new(MockBot)
	p, _ := newTestPoster(t, mockBot)

	var captured *telego.SendMessageParams
	mockBot.On("SendMessage", mock.Anything, mock.AnythingOfType("*telego.SendMessageParams")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*telego.SendMessageParams)
		}).
		Return(&telego.Message{}, nil).Once()

	m := media.Classified{Links: []media.Link{{
		Title:       "Site & Co",
		URL:         "http://example.com/page",
		Description: "about the site",
	}}}
	ok := p.PostMedia(context.Background(), tu.ID(100), m, "")

	assert.True(t, ok)
	require.NotNil(t, captured)
	assert.Contains(t, captured.Text, `🔗 <a href="http://example.com/page">Site &amp; Co</a>`)
	assert.Contains(t, captured.Text, "<i>about the site</i>")
}

func TestChatIDFromString(t *testing.T) {
	assert.Equal(t, tu.ID(-100123), ChatIDFromString("-100123"))
	assert.Equal(t, tu.Username("@mychannel"), ChatIDFromString("@mychannel"))
}

func TestParseRetryAfter(t *testing.T) {
	seconds, ok := parseRetryAfter("telego: sendMediaGroup: api: 429 Too Many Requests: retry after 5")
	assert.True(t, ok)
	assert.Equal(t, 5, seconds)

	_, ok = parseRetryAfter("some other error")
	assert.False(t, ok)
}

func TestSendMediaGroupWithRetry(t *testing.T) {
	mockBot := new(MockBot)
	p := New(mockBot, time.Second, WithRateLimiter(ratelimit.NewUnlimited()))

	rateLimitErr := errors.New("telego: sendMediaGroup: api: 429 Too Many Requests: retry after 1")
	mockBot.On("SendMediaGroup", mock.Anything, mock.Anything).
		Return(nil, rateLimitErr).Once()
	mockBot.On("SendMediaGroup", mock.Anything, mock.Anything).
		Return([]telego.Message{{}}, nil).Once()

	sent, err := p.sendMediaGroupWithRetry(context.Background(), &telego.SendMediaGroupParams{})
	require.NoError(t, err)
	assert.Len(t, sent, 1)
	mockBot.AssertExpectations(t)
}
