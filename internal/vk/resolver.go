package vk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
)

// ErrGroupNotFound is returned when a supplied group token cannot be
// resolved by any addressing convention. It is an expected outcome for
// user-typed input, not a fault.
var ErrGroupNotFound = errors.New("group not found")

// OwnerID identifies a community wall. It holds either a positive
// numeric id or a screen name; the wall paginator renders whichever is
// set into the negative community addressing form.
type OwnerID struct {
	Numeric int64
	Screen  string
}

// IsNumeric reports whether the owner was resolved to a numeric id.
func (o OwnerID) IsNumeric() bool { return o.Screen == "" }

// signed renders the owner in community form: numeric ids get a minus
// prefix, screen names get one unless already present.
func (o OwnerID) signed() string {
	if o.IsNumeric() {
		return fmt.Sprintf("-%d", o.Numeric)
	}
	if strings.HasPrefix(o.Screen, "-") {
		return o.Screen
	}
	return "-" + o.Screen
}

// unsigned renders the owner without the community minus prefix.
func (o OwnerID) unsigned() string {
	if o.IsNumeric() {
		return strconv.FormatInt(o.Numeric, 10)
	}
	return strings.TrimPrefix(o.Screen, "-")
}

func (o OwnerID) String() string { return o.unsigned() }

// ResolveGroup turns a user-supplied group token (numeric id or screen
// name) into an OwnerID. Numeric tokens are returned as-is without any
// API call. Screen names are tried against groups.getById in several
// naming conventions; if all fail, a minimal wall.get probe decides
// whether the wall service itself accepts the bare token. Returns
// ErrGroupNotFound when every attempt fails.
func (c *Client) ResolveGroup(ctx context.Context, token string) (OwnerID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return OwnerID{}, ErrGroupNotFound
	}

	if id, err := strconv.ParseInt(token, 10, 64); err == nil && id > 0 {
		return OwnerID{Numeric: id}, nil
	}

	// The resolver endpoint is picky about naming conventions depending
	// on community type, so several variants are tried in a fixed order.
	variants := []string{
		token,
		"club" + token,
		"public" + token,
		"@" + token,
	}
	for _, variant := range variants {
		params := url.Values{}
		params.Set("group_id", variant)

		var resp groupsGetByIDResponse
		if err := c.request(ctx, "groups.getById", params, true, &resp); err != nil {
			continue
		}
		if len(resp.Groups) > 0 {
			log.Printf("[Resolve Group:%s] Found group id %d via variant %q", token, resp.Groups[0].ID, variant)
			return OwnerID{Numeric: resp.Groups[0].ID}, nil
		}
	}

	// groups.getById can disagree with the wall service about naming.
	// Probe wall.get with the bare token; if the wall service answers at
	// all (even with zero items), the token is usable as an owner id.
	log.Printf("[Resolve Group:%s] groups.getById failed, probing wall.get", token)
	params := url.Values{}
	params.Set("owner_id", token)
	params.Set("count", "1")

	var probe wallGetResponse
	if err := c.request(ctx, "wall.get", params, true, &probe); err == nil {
		log.Printf("[Resolve Group:%s] wall.get probe succeeded, using token as-is", token)
		return OwnerID{Screen: token}, nil
	}

	log.Printf("[Resolve Group:%s] All resolution attempts failed", token)
	return OwnerID{}, ErrGroupNotFound
}
