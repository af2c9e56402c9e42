// Package misskey implements the platform capability set against the Misskey
// HTTP and streaming APIs.
package misskey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"yakudo-bot/internal/platform"
)

// Client represents an authenticated Misskey API client
type Client struct {
	instance   string
	token      string
	secure     bool
	baseURL    string
	httpClient *http.Client
	me         platform.User
}

// New creates a Misskey client and verifies the credentials by fetching the
// bot's own account.
func New(instance, token string, secure bool) (*Client, error) {
	scheme := "https"
	if !secure {
		scheme = "http"
	}

	c := &Client{
		instance: instance,
		token:    token,
		secure:   secure,
		baseURL:  fmt.Sprintf("%s://%s/api", scheme, instance),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	var me platform.User
	if err := c.post(context.Background(), "i", map[string]interface{}{}, &me); err != nil {
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}
	c.me = me

	log.Printf("Authenticated to %s as @%s (id: %s)", instance, me.Username, me.ID)
	return c, nil
}

// CurrentUser returns the authenticated bot account.
func (c *Client) CurrentUser() platform.User {
	return c.me
}

// GetNote fetches a note by id.
func (c *Client) GetNote(ctx context.Context, id string) (*platform.Note, error) {
	var note platform.Note
	if err := c.post(ctx, "notes/show", map[string]interface{}{"noteId": id}, &note); err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	return &note, nil
}

// createdNoteResponse wraps the notes/create response envelope.
type createdNoteResponse struct {
	CreatedNote platform.Note `json:"createdNote"`
}

// Quote posts text quoting the given note.
func (c *Client) Quote(ctx context.Context, note *platform.Note, text string) (*platform.Note, error) {
	var resp createdNoteResponse
	params := map[string]interface{}{
		"text":     text,
		"renoteId": note.ID,
	}
	if err := c.post(ctx, "notes/create", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to quote note %s: %w", note.ID, err)
	}
	return &resp.CreatedNote, nil
}

// CreateNote posts a standalone note.
func (c *Client) CreateNote(ctx context.Context, text string) (*platform.Note, error) {
	var resp createdNoteResponse
	if err := c.post(ctx, "notes/create", map[string]interface{}{"text": text}, &resp); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return &resp.CreatedNote, nil
}

// DeleteNote removes one of the bot's own notes.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	if err := c.post(ctx, "notes/delete", map[string]interface{}{"noteId": id}, nil); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

// IsFollowing reports whether the bot already follows the given user.
func (c *Client) IsFollowing(ctx context.Context, user platform.User) (bool, error) {
	var resp struct {
		IsFollowing                    bool `json:"isFollowing"`
		HasPendingFollowRequestFromYou bool `json:"hasPendingFollowRequestFromYou"`
	}
	if err := c.post(ctx, "users/show", map[string]interface{}{"userId": user.ID}, &resp); err != nil {
		return false, fmt.Errorf("failed to look up user %s: %w", user.ID, err)
	}
	return resp.IsFollowing || resp.HasPendingFollowRequestFromYou, nil
}

// Follow follows the given user.
func (c *Client) Follow(ctx context.Context, user platform.User) error {
	if err := c.post(ctx, "following/create", map[string]interface{}{"userId": user.ID}, nil); err != nil {
		return fmt.Errorf("failed to follow user %s: %w", user.ID, err)
	}
	return nil
}

// followerEntry is one page item of users/followers.
type followerEntry struct {
	ID       string        `json:"id"`
	Follower platform.User `json:"follower"`
}

// ListFollowers pages through the bot's followers, invoking fn for each.
func (c *Client) ListFollowers(ctx context.Context, fn func(platform.User) error) error {
	const pageSize = 100

	untilID := ""
	for {
		params := map[string]interface{}{
			"userId": c.me.ID,
			"limit":  pageSize,
		}
		if untilID != "" {
			params["untilId"] = untilID
		}

		var page []followerEntry
		if err := c.post(ctx, "users/followers", params, &page); err != nil {
			return fmt.Errorf("failed to list followers: %w", err)
		}
		if len(page) == 0 {
			return nil
		}

		for _, entry := range page {
			if err := fn(entry.Follower); err != nil {
				return err
			}
		}
		untilID = page[len(page)-1].ID
	}
}

// NoteURL returns the public URL of a note on this instance.
func (c *Client) NoteURL(id string) string {
	scheme := "https"
	if !c.secure {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/notes/%s", scheme, c.instance, id)
}

// post issues a Misskey API call. Misskey authenticates by including the
// token as "i" in the JSON request body.
func (c *Client) post(ctx context.Context, path string, params map[string]interface{}, out interface{}) error {
	body := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		body[k] = v
	}
	body["i"] = c.token

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+path, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
