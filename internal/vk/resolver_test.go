package vk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-token", "5.131", 5*time.Second, WithBaseURL(server.URL))
}

func writeVKError(w http.ResponseWriter, code int, msg string) {
	fmt.Fprintf(w, `{"error":{"error_code":%d,"error_msg":%q}}`, code, msg)
}

func TestResolveGroupNumericPassthrough(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeVKError(w, 100, "should not be called")
	})

	owner, err := client.ResolveGroup(context.Background(), "123456")
	require.NoError(t, err)
	assert.True(t, owner.IsNumeric())
	assert.Equal(t, int64(123456), owner.Numeric)
	assert.Equal(t, 0, calls, "numeric tokens must resolve without any API call")
}

func TestResolveGroupVariantOrder(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/groups.getById", r.URL.Path)
		groupID := r.URL.Query().Get("group_id")
		seen = append(seen, groupID)
		if groupID == "clubmygroup" {
			fmt.Fprint(w, `{"response":{"groups":[{"id":777,"name":"My Group","screen_name":"mygroup"}]}}`)
			return
		}
		writeVKError(w, 100, "invalid group_id")
	})

	owner, err := client.ResolveGroup(context.Background(), "mygroup")
	require.NoError(t, err)
	assert.Equal(t, int64(777), owner.Numeric)
	assert.Equal(t, []string{"mygroup", "clubmygroup"}, seen, "variants must be tried in order and stop on first hit")
}

func TestResolveGroupTriesAllVariants(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/groups.getById", r.URL.Path)
		groupID := r.URL.Query().Get("group_id")
		seen = append(seen, groupID)
		if groupID == "@mygroup" {
			fmt.Fprint(w, `{"response":{"groups":[{"id":888,"name":"My Group","screen_name":"mygroup"}]}}`)
			return
		}
		writeVKError(w, 100, "invalid group_id")
	})

	owner, err := client.ResolveGroup(context.Background(), "mygroup")
	require.NoError(t, err)
	assert.Equal(t, int64(888), owner.Numeric)
	assert.Equal(t, []string{"mygroup", "clubmygroup", "publicmygroup", "@mygroup"}, seen)
}

func TestResolveGroupWallProbeFallback(t *testing.T) {
	probed := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/groups.getById":
			writeVKError(w, 100, "invalid group_id")
		case "/wall.get":
			probed = true
			assert.Equal(t, "weirdpage", r.URL.Query().Get("owner_id"))
			assert.Equal(t, "1", r.URL.Query().Get("count"))
			fmt.Fprint(w, `{"response":{"count":0,"items":[]}}`)
		default:
			t.Errorf("unexpected method %s", r.URL.Path)
		}
	})

	owner, err := client.ResolveGroup(context.Background(), "weirdpage")
	require.NoError(t, err)
	assert.True(t, probed)
	assert.False(t, owner.IsNumeric())
	assert.Equal(t, "weirdpage", owner.Screen)
}

func TestResolveGroupNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeVKError(w, 100, "invalid id")
	})

	_, err := client.ResolveGroup(context.Background(), "definitely-missing")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestResolveGroupEmptyToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected for an empty token")
	})

	_, err := client.ResolveGroup(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestOwnerIDRendering(t *testing.T) {
	numeric := OwnerID{Numeric: 42}
	assert.Equal(t, "-42", numeric.signed())
	assert.Equal(t, "42", numeric.unsigned())

	screen := OwnerID{Screen: "somepage"}
	assert.Equal(t, "-somepage", screen.signed())
	assert.Equal(t, "somepage", screen.unsigned())

	signedScreen := OwnerID{Screen: "-already"}
	assert.Equal(t, "-already", signedScreen.signed())
	assert.Equal(t, "already", signedScreen.unsigned())
}
