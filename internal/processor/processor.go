// Package processor turns a received note into a scored quote reply and a
// persisted score record.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"yakudo-bot/internal/models"
	"yakudo-bot/internal/platform"
	"yakudo-bot/internal/services"
	"yakudo-bot/internal/yakudo"
)

const (
	// maxReplyDepth bounds reply-chain resolution so a cyclic or absurdly
	// deep chain fails instead of looping forever.
	maxReplyDepth = 10

	// scoreThreshold separates a passing yakudo from one that needs work.
	scoreThreshold = 150.0

	// maxImageBytes caps how much of an attachment we will download.
	maxImageBytes = 32 << 20
)

// ErrChainTooDeep is returned when reply-chain resolution exceeds maxReplyDepth.
var ErrChainTooDeep = errors.New("reply chain too deep")

// Processor applies the scoring pipeline to incoming notes.
type Processor struct {
	client     platform.Client
	scores     *services.ScoresService
	httpClient *http.Client

	// RequiredKeywords, when non-empty, rejects resolved notes whose text no
	// longer contains every keyword.
	RequiredKeywords []string
}

// New creates a processor bound to a platform client and score store.
func New(client platform.Client, scores *services.ScoresService) *Processor {
	return &Processor{
		client: client,
		scores: scores,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Process scores one received note, posts the quote reply and persists the
// score record. Errors abort this note only; nothing is retried.
func (p *Processor) Process(ctx context.Context, note *platform.Note) error {
	note, err := p.resolveRoot(ctx, note)
	if err != nil {
		return err
	}

	log.Printf("note: %s", p.client.NoteURL(note.ID))

	if note.User.ID == p.client.CurrentUser().ID || note.RenoteID != "" {
		log.Println("note does not match the conditions. skipping...")
		return nil
	}
	if !p.containsRequiredKeywords(note.Text) {
		log.Println("note lost the required keywords after resolution. skipping...")
		return nil
	}

	message, score, err := p.scoreNote(ctx, note)
	if err != nil {
		return err
	}

	log.Printf("score: %v", score)
	log.Printf("quoting: %s", message)

	quote, err := p.client.Quote(ctx, note, message)
	if err != nil {
		return fmt.Errorf("failed to quote note %s: %w", note.ID, err)
	}

	record := &models.YakudoScore{
		Username: note.User.Username,
		NoteID:   note.ID,
		QuoteID:  quote.ID,
		Score:    score,
	}
	if err := p.scores.Insert(record); err != nil {
		return err
	}

	log.Printf("finished processing note %s", p.client.NoteURL(note.ID))
	return nil
}

// resolveRoot walks up the reply chain until it reaches a note that is not
// itself a reply. Resolution is iterative with a hop cap so a cyclic chain
// cannot recurse unboundedly.
func (p *Processor) resolveRoot(ctx context.Context, note *platform.Note) (*platform.Note, error) {
	for hops := 0; note.ReplyID != ""; hops++ {
		if hops >= maxReplyDepth {
			return nil, ErrChainTooDeep
		}

		parent, err := p.client.GetNote(ctx, note.ReplyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get the note this note is replying to: %w", err)
		}
		note = parent
	}
	return note, nil
}

func (p *Processor) containsRequiredKeywords(text string) bool {
	for _, kw := range p.RequiredKeywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}

// scoreNote classifies the note's attachments, scores each image and builds
// the reply message. The returned score is the one persisted with the record:
// the last individual image's score, not the mean shown in the reply text
// (see DESIGN.md).
func (p *Processor) scoreNote(ctx context.Context, note *platform.Note) (string, float64, error) {
	var message strings.Builder
	message.WriteString(time.Now().Format("2006-01-02 15:04"))
	message.WriteString("\nUser:@")
	message.WriteString(note.User.Username)
	message.WriteByte('\n')

	yakudoScore := 0.0
	total := 0.0
	count := 0
	isPhoto := true

	for _, file := range note.Files {
		switch {
		case file.IsVideo():
			message.WriteString("やめろ！クソ動画を投稿するんじゃない!\nScore:-inf\n")
			yakudoScore = 0.0
			isPhoto = false
			log.Println("video found in note. aborting...")

		case file.IsImage():
			if file.URL == "" {
				log.Println("file url not found. skipping...")
				continue
			}
			log.Printf("calculating yakudo score for image: %s", file.URL)

			data, err := p.fetchImage(ctx, file.URL)
			if err != nil {
				return "", 0, err
			}
			score, err := yakudo.Score(data)
			if err != nil {
				return "", 0, fmt.Errorf("failed to calculate yakudo score: %w", err)
			}

			total += score
			count++
			fmt.Fprintf(&message, "%d枚目:%.3f\n", count, score)
			yakudoScore = score

			log.Printf("calculated yakudo score for photo %d: %v", count, score)

		default:
			log.Println("file type is not image. skipping...")
		}

		if !isPhoto {
			break
		}
	}

	switch {
	case !isPhoto:
		// Video message already composed, sentinel score stands.

	case count == 0:
		message.WriteString("画像が入ってないやん!\nScore:-inf\n")
		yakudoScore = 0.0
		log.Println("no photo found in note. aborting...")

	default:
		mean := total / float64(count)
		if mean >= scoreThreshold {
			message.WriteString("GoodYakudo!\n")
		} else {
			message.WriteString("もっとyakudoしろ！\n")
		}
		fmt.Fprintf(&message, "Score:%.3f\n", mean)
	}

	return message.String(), yakudoScore, nil
}

// fetchImage downloads an attachment, bounded by maxImageBytes.
func (p *Processor) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", url, err)
	}
	return data, nil
}
