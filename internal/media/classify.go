// Package media normalizes raw wall-post attachments into typed
// buckets that the poster knows how to deliver.
package media

import "vkcopy-bot/internal/vk"

// Photo is a single photo at its best available resolution.
type Photo struct {
	URL    string
	Width  int
	Height int
}

// Video carries best-effort metadata; VK videos cannot be re-uploaded
// directly, so only the thumbnail and description are deliverable.
type Video struct {
	Title       string
	Description string
	Player      string
	Thumbnail   string
	Duration    int
	OwnerID     int64
	ID          int64
}

type Document struct {
	Title string
	URL   string
	Size  int64
	Ext   string
}

type Link struct {
	Title       string
	URL         string
	Description string
	Thumbnail   string
}

// Classified is the result of partitioning one post's attachments.
// Per-kind order matches the original attachment order.
type Classified struct {
	Photos    []Photo
	Videos    []Video
	Documents []Document
	Links     []Link
	Text      string
}

// Empty reports whether the post carried no usable media at all.
func (c Classified) Empty() bool {
	return len(c.Photos) == 0 && len(c.Videos) == 0 && len(c.Documents) == 0 && len(c.Links) == 0
}

// Classify partitions a post's attachment list into typed buckets,
// keeping the post text verbatim. Unrecognized attachment kinds are
// dropped silently.
func Classify(post vk.Post) Classified {
	out := Classified{Text: post.Text}

	for _, att := range post.Attachments {
		switch att.Type {
		case "photo":
			if att.Photo == nil {
				continue
			}
			if photo, ok := bestPhoto(att.Photo); ok {
				out.Photos = append(out.Photos, photo)
			}
		case "video":
			if att.Video == nil {
				continue
			}
			v := att.Video
			title := v.Title
			if title == "" {
				title = "Video"
			}
			out.Videos = append(out.Videos, Video{
				Title:       title,
				Description: v.Description,
				Player:      v.Player,
				Thumbnail:   bestVideoThumbnail(v.Image),
				Duration:    v.Duration,
				OwnerID:     v.OwnerID,
				ID:          v.ID,
			})
		case "doc":
			if att.Doc == nil {
				continue
			}
			title := att.Doc.Title
			if title == "" {
				title = "Document"
			}
			out.Documents = append(out.Documents, Document{
				Title: title,
				URL:   att.Doc.URL,
				Size:  att.Doc.Size,
				Ext:   att.Doc.Ext,
			})
		case "link":
			if att.Link == nil {
				continue
			}
			link := Link{
				Title:       att.Link.Title,
				URL:         att.Link.URL,
				Description: att.Link.Description,
			}
			if att.Link.Photo != nil {
				if thumb, ok := bestPhoto(att.Link.Photo); ok {
					link.Thumbnail = thumb.URL
				}
			}
			out.Links = append(out.Links, link)
		}
	}

	return out
}

// bestPhoto picks the size variant maximizing width*height, falling
// back to the legacy fixed-resolution fields on old posts. Returns
// false when the record carries no URL at all.
func bestPhoto(p *vk.Photo) (Photo, bool) {
	if len(p.Sizes) > 0 {
		best := p.Sizes[0]
		bestArea := best.Width * best.Height
		for _, s := range p.Sizes[1:] {
			if area := s.Width * s.Height; area > bestArea {
				best = s
				bestArea = area
			}
		}
		if best.URL != "" {
			return Photo{URL: best.URL, Width: best.Width, Height: best.Height}, true
		}
	}
	switch {
	case p.Photo1280 != "":
		return Photo{URL: p.Photo1280}, true
	case p.Photo807 != "":
		return Photo{URL: p.Photo807}, true
	case p.Photo604 != "":
		return Photo{URL: p.Photo604}, true
	}
	return Photo{}, false
}

func bestVideoThumbnail(images []vk.VideoImage) string {
	best := ""
	bestArea := -1
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		if area := img.Width * img.Height; area > bestArea {
			best = img.URL
			bestArea = area
		}
	}
	return best
}
