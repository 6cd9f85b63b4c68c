package vk

import (
	"context"
	"log"
	"net/url"
	"strconv"
	"time"
)

// maxPageSize is the wall.get per-request ceiling.
const maxPageSize = 100

// wallStrategy is one shape of a wall.get call. The remote API rejects
// different parameter combinations unpredictably depending on the owner
// type (group vs. page vs. legacy public), so each page is attempted
// with an ordered ladder of strategies until one yields items.
type wallStrategy struct {
	useToken    bool
	extended    bool
	attachments string
}

// wallStrategies is the fixed fallback ladder, tried in order per page.
var wallStrategies = []wallStrategy{
	{useToken: false},
	{useToken: true},
	{useToken: false, extended: true},
	{useToken: true, extended: true, attachments: "photo,video,doc,link,note,poll,article"},
}

func (c *Client) wallPage(ctx context.Context, ownerID string, offset, count int, s wallStrategy) (*wallGetResponse, error) {
	params := url.Values{}
	params.Set("owner_id", ownerID)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("count", strconv.Itoa(count))
	params.Set("filter", "owner")
	if s.extended {
		params.Set("extended", "1")
	}
	if s.attachments != "" {
		params.Set("attachments", s.attachments)
	}

	var resp wallGetResponse
	if err := c.request(ctx, "wall.get", params, s.useToken, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// fetchPage walks the strategy ladder for one offset and returns the
// first response that carries items. A response without items is kept
// as a fallback result so an exhausted wall is distinguishable from a
// rejected query shape.
func (c *Client) fetchPage(ctx context.Context, ownerID string, offset, count int) *wallGetResponse {
	var empty *wallGetResponse
	for _, s := range wallStrategies {
		resp, err := c.wallPage(ctx, ownerID, offset, count, s)
		if err != nil {
			continue
		}
		if len(resp.Items) > 0 {
			return resp
		}
		empty = resp
	}
	return empty
}

// fetchPageUnsigned retries one offset without the community minus
// prefix, minimal params only. Covers ids whose sign convention the
// ladder got backwards (some legacy public pages).
func (c *Client) fetchPageUnsigned(ctx context.Context, ownerID string, offset, count int) *wallGetResponse {
	for _, useToken := range []bool{false, true} {
		resp, err := c.wallPage(ctx, ownerID, offset, count, wallStrategy{useToken: useToken})
		if err != nil {
			continue
		}
		if len(resp.Items) > 0 {
			return resp
		}
	}
	return nil
}

// FetchWall pages through a community wall and returns up to limit
// posts whose timestamps fall inside [start, end], in the source's
// newest-first order. Bounds are inclusive instants; a nil bound is
// open. Running out of pages, or the remote rejecting every query
// shape, ends pagination with whatever was accumulated - never an
// error.
func (c *Client) FetchWall(ctx context.Context, owner OwnerID, start, end *time.Time, limit int) ([]Post, error) {
	if limit <= 0 {
		return nil, nil
	}

	pageSize := limit
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	ownerID := owner.signed()
	log.Printf("[Wall Owner:%s] Fetching up to %d posts", ownerID, limit)

	var accepted []Post
	offset := 0

	for len(accepted) < limit {
		resp := c.fetchPage(ctx, ownerID, offset, pageSize)

		if resp == nil || len(resp.Items) == 0 {
			// Screen-name owners sometimes only answer without the minus
			// prefix. One more attempt, then give up on further pages.
			if !owner.IsNumeric() {
				resp = c.fetchPageUnsigned(ctx, owner.unsigned(), offset, pageSize)
			}
			if resp == nil || len(resp.Items) == 0 {
				break
			}
		}

		page := resp.Items
		log.Printf("[Wall Owner:%s] Got %d posts at offset %d, filtering", ownerID, len(page), offset)

		for _, post := range page {
			postTime := time.Unix(post.Date, 0)

			// Posts arrive newest-first: one post before the start bound
			// means everything after it is out of range too.
			if start != nil && postTime.Before(*start) {
				log.Printf("[Wall Owner:%s] Post at %s predates range start, stopping", ownerID, postTime.Format(time.RFC3339))
				return accepted, nil
			}
			if end != nil && postTime.After(*end) {
				continue
			}

			accepted = append(accepted, post)
			if len(accepted) >= limit {
				break
			}
		}

		offset += pageSize

		// A short page means the wall is exhausted.
		if len(page) < pageSize {
			break
		}
	}

	return accepted, nil
}
