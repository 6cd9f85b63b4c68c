// Package poster delivers classified post media to a Telegram chat,
// honoring the platform's grouping and size rules.
package poster

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log"
	"net/http"
	"strconv"
	"time"

	"vkcopy-bot/internal/media"
	"vkcopy-bot/pkg/telegoapi"
	"vkcopy-bot/pkg/utils"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/ratelimit"
)

const (
	// albumLimit is the Telegram hard cap on photos per media group.
	albumLimit = 10
	// videoDescriptionLimit bounds the italicized description under a
	// video thumbnail.
	videoDescriptionLimit = 500
	// linkDescriptionLimit bounds the description under a link message.
	linkDescriptionLimit = 200
)

// Poster sends classified media to a destination chat. Sends are paced
// with a leaky-bucket limiter; each item's failure is isolated and only
// logged, so one broken attachment never takes down the rest of a post.
type Poster struct {
	bot     telegoapi.BotAPI
	http    *http.Client
	limiter ratelimit.Limiter
}

// Option configures a Poster.
type Option func(*Poster)

// WithDownloadClient overrides the HTTP client used for media fetches.
func WithDownloadClient(h *http.Client) Option {
	return func(p *Poster) { p.http = h }
}

// WithRateLimiter overrides the send pacing limiter.
func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(p *Poster) { p.limiter = l }
}

// New creates a Poster. timeout bounds each media download.
func New(bot telegoapi.BotAPI, timeout time.Duration, opts ...Option) *Poster {
	p := &Poster{
		bot:     bot,
		http:    &http.Client{Timeout: timeout},
		limiter: ratelimit.New(1), // sequential pacing, one send per second
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ChatIDFromString converts an opaque destination chat string into a
// telego ChatID: numeric ids pass through, anything else is treated as
// a channel username.
func ChatIDFromString(s string) telego.ChatID {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return tu.ID(id)
	}
	return tu.Username(s)
}

// PostMedia delivers one post's classified media to chat. caption is
// attached per the platform rules (first photo of the first album
// chunk, single photos, documents). Returns true if at least one item —
// text included — was delivered.
func (p *Poster) PostMedia(ctx context.Context, chat telego.ChatID, m media.Classified, caption string) bool {
	// Text-only posts are delivered as a plain message and nothing else.
	if m.Empty() {
		if m.Text == "" {
			return false
		}
		return p.sendText(ctx, chat, m.Text)
	}

	delivered := false

	switch {
	case len(m.Photos) == 1:
		if p.sendSinglePhoto(ctx, chat, m.Photos[0], caption) {
			delivered = true
		}
	case len(m.Photos) > 1:
		if p.sendAlbum(ctx, chat, m.Photos, caption) {
			delivered = true
		}
	}

	for _, video := range m.Videos {
		if p.sendVideo(ctx, chat, video) {
			delivered = true
		}
	}

	for _, doc := range m.Documents {
		if p.sendDocument(ctx, chat, doc, caption) {
			delivered = true
		}
	}

	for _, link := range m.Links {
		if p.sendLink(ctx, chat, link) {
			delivered = true
		}
	}

	return delivered
}

func (p *Poster) sendText(ctx context.Context, chat telego.ChatID, text string) bool {
	p.limiter.Take()
	msg := tu.Message(chat, text)
	msg.ParseMode = telego.ModeHTML
	if _, err := p.bot.SendMessage(ctx, msg); err != nil {
		log.Printf("[Poster] Failed to send text message: %v", err)
		return false
	}
	return true
}

func (p *Poster) sendSinglePhoto(ctx context.Context, chat telego.ChatID, photo media.Photo, caption string) bool {
	data, err := p.Download(ctx, photo.URL)
	if err != nil {
		log.Printf("[Poster] Photo unavailable: %v", err)
		return false
	}

	p.limiter.Take()
	params := &telego.SendPhotoParams{
		ChatID: chat,
		Photo:  tu.File(tu.NameReader(bytes.NewReader(data), "photo.jpg")),
	}
	if caption != "" {
		params.Caption = caption
		params.ParseMode = telego.ModeHTML
	}
	if _, err := p.bot.SendPhoto(ctx, params); err != nil {
		log.Printf("[Poster] Failed to send photo: %v", err)
		return false
	}
	return true
}

// sendAlbum sends photos as grouped albums in chunks of at most ten.
// Photos whose download fails are silently excluded from their chunk;
// the caption goes on the first photo of the first chunk only. The
// dispatch counts as successful if at least one chunk went out.
func (p *Poster) sendAlbum(ctx context.Context, chat telego.ChatID, photos []media.Photo, caption string) bool {
	sentAny := false

	for start := 0; start < len(photos); start += albumLimit {
		end := start + albumLimit
		if end > len(photos) {
			end = len(photos)
		}

		inputMedia := make([]telego.InputMedia, 0, end-start)
		for i, photo := range photos[start:end] {
			data, err := p.Download(ctx, photo.URL)
			if err != nil {
				log.Printf("[Poster] Album photo unavailable, skipping: %v", err)
				continue
			}
			mediaPhoto := tu.MediaPhoto(tu.File(tu.NameReader(bytes.NewReader(data), fmt.Sprintf("photo_%d.jpg", start+i))))
			if start == 0 && i == 0 && caption != "" {
				mediaPhoto.Caption = caption
				mediaPhoto.ParseMode = telego.ModeHTML
			}
			inputMedia = append(inputMedia, mediaPhoto)
		}

		if len(inputMedia) == 0 {
			continue
		}

		if _, err := p.sendMediaGroupWithRetry(ctx, &telego.SendMediaGroupParams{
			ChatID: chat,
			Media:  inputMedia,
		}); err != nil {
			log.Printf("[Poster] Failed to send album chunk: %v", err)
			continue
		}
		sentAny = true
	}

	return sentAny
}

// sendVideo delivers a video as its thumbnail with a descriptive
// caption, or as a plain text message when no thumbnail can be fetched.
// Either path counts as a successful dispatch for the item.
func (p *Poster) sendVideo(ctx context.Context, chat telego.ChatID, video media.Video) bool {
	captionText := fmt.Sprintf("🎬 <b>%s</b>\n", html.EscapeString(video.Title))
	if video.Description != "" {
		captionText += fmt.Sprintf("<i>%s</i>", html.EscapeString(utils.Truncate(video.Description, videoDescriptionLimit)))
	}

	if video.Thumbnail != "" {
		if data, err := p.Download(ctx, video.Thumbnail); err == nil {
			p.limiter.Take()
			_, err := p.bot.SendPhoto(ctx, &telego.SendPhotoParams{
				ChatID:    chat,
				Photo:     tu.File(tu.NameReader(bytes.NewReader(data), "thumbnail.jpg")),
				Caption:   captionText,
				ParseMode: telego.ModeHTML,
			})
			if err == nil {
				return true
			}
			log.Printf("[Poster] Failed to send video thumbnail: %v", err)
		} else {
			log.Printf("[Poster] Video thumbnail unavailable: %v", err)
		}
	}

	return p.sendText(ctx, chat, captionText)
}

func (p *Poster) sendDocument(ctx context.Context, chat telego.ChatID, doc media.Document, caption string) bool {
	data, err := p.Download(ctx, doc.URL)
	if err != nil {
		log.Printf("[Poster] Document unavailable: %v", err)
		return false
	}

	filename := doc.Title
	if filename == "" {
		filename = "file." + doc.Ext
	}

	p.limiter.Take()
	params := &telego.SendDocumentParams{
		ChatID:   chat,
		Document: tu.File(tu.NameReader(bytes.NewReader(data), filename)),
	}
	if caption != "" {
		params.Caption = caption
		params.ParseMode = telego.ModeHTML
	}
	if _, err := p.bot.SendDocument(ctx, params); err != nil {
		log.Printf("[Poster] Failed to send document %q: %v", filename, err)
		return false
	}
	return true
}

func (p *Poster) sendLink(ctx context.Context, chat telego.ChatID, link media.Link) bool {
	text := fmt.Sprintf("🔗 <a href=%q>%s</a>", link.URL, html.EscapeString(link.Title))
	if link.Description != "" {
		text += fmt.Sprintf("\n<i>%s</i>", html.EscapeString(utils.Truncate(link.Description, linkDescriptionLimit)))
	}
	return p.sendText(ctx, chat, text)
}
