package misskey

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yakudo-bot/internal/platform"
)

// newTestClient builds a client pointed at an httptest server without going
// through the credential check in New.
func newTestClient(serverURL string) *Client {
	host := strings.TrimPrefix(serverURL, "http://")
	return &Client{
		instance:   host,
		token:      "test-token",
		secure:     false,
		baseURL:    serverURL + "/api",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		me:         platform.User{ID: "bot", Username: "yakudobot"},
	}
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode request body: %v", err)
	}
	return body
}

func TestGetNoteSendsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notes/show" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["i"] != "test-token" {
			t.Errorf("Expected token in body, got %v", body["i"])
		}
		if body["noteId"] != "n1" {
			t.Errorf("Expected noteId n1, got %v", body["noteId"])
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":   "n1",
			"text": "#mis1yakudo",
			"user": map[string]string{"id": "u1", "username": "alice"},
			"files": []map[string]string{
				{"id": "f1", "type": "image/jpeg", "url": "https://files.test/f1.jpg"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	note, err := client.GetNote(context.Background(), "n1")
	if err != nil {
		t.Fatalf("GetNote failed: %v", err)
	}

	if note.ID != "n1" || note.User.Username != "alice" {
		t.Errorf("Unexpected note: %+v", note)
	}
	if len(note.Files) != 1 || !note.Files[0].IsImage() {
		t.Errorf("Expected one image file, got %+v", note.Files)
	}
}

func TestQuoteUnwrapsCreatedNote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notes/create" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["renoteId"] != "n1" {
			t.Errorf("Expected renoteId n1, got %v", body["renoteId"])
		}
		if body["text"] != "GoodYakudo!" {
			t.Errorf("Expected quote text, got %v", body["text"])
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"createdNote": map[string]interface{}{"id": "q1"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	quote, err := client.Quote(context.Background(), &platform.Note{ID: "n1"}, "GoodYakudo!")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if quote.ID != "q1" {
		t.Errorf("Expected created note q1, got %+v", quote)
	}
}

func TestAPIErrorSurfacesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":"RATE_LIMIT_EXCEEDED"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.DeleteNote(context.Background(), "n1")
	if err == nil {
		t.Fatal("Expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected status in error, got %v", err)
	}
}

func TestListFollowersPages(t *testing.T) {
	var untilIDs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		untilID, _ := body["untilId"].(string)
		untilIDs = append(untilIDs, untilID)

		switch untilID {
		case "":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": "e1", "follower": map[string]string{"id": "u1", "username": "alice"}},
				{"id": "e2", "follower": map[string]string{"id": "u2", "username": "bob"}},
			})
		case "e2":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": "e3", "follower": map[string]string{"id": "u3", "username": "carol"}},
			})
		default:
			json.NewEncoder(w).Encode([]map[string]interface{}{})
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var followers []string
	err := client.ListFollowers(context.Background(), func(user platform.User) error {
		followers = append(followers, user.Username)
		return nil
	})
	if err != nil {
		t.Fatalf("ListFollowers failed: %v", err)
	}

	want := []string{"alice", "bob", "carol"}
	if len(followers) != len(want) {
		t.Fatalf("Expected %v, got %v", want, followers)
	}
	for i := range want {
		if followers[i] != want[i] {
			t.Errorf("Expected follower %q at %d, got %q", want[i], i, followers[i])
		}
	}
	if untilIDs[len(untilIDs)-1] != "e3" {
		t.Errorf("Expected final page cursor e3, got %v", untilIDs)
	}
}

func TestNoteURL(t *testing.T) {
	secure := &Client{instance: "misskey.example.com", secure: true}
	if got := secure.NoteURL("n1"); got != "https://misskey.example.com/notes/n1" {
		t.Errorf("Unexpected secure URL %q", got)
	}

	insecure := &Client{instance: "localhost:3000", secure: false}
	if got := insecure.NoteURL("n1"); got != "http://localhost:3000/notes/n1" {
		t.Errorf("Unexpected insecure URL %q", got)
	}
}
