package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"yakudo-bot/internal/services"
)

// Cleanup walks today's score records and, for every source note that has
// been deleted upstream, removes the bot's quote and the record. Records are
// processed strictly one at a time with a pause in between; concurrent
// deletes would just trip the platform's rate limits.
func (j *Jobs) Cleanup(ctx context.Context) error {
	records, err := j.scores.Since(services.StartOfDay(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to get yakudos: %w", err)
	}

	for i, record := range records {
		if i > 0 {
			select {
			case <-time.After(j.pause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		log.Printf("checking note: %s", record.NoteID)

		if _, err := j.client.GetNote(ctx, record.NoteID); err == nil {
			continue
		}

		log.Printf("failed to get note %s. deleting quote and database record...", record.NoteID)

		if err := j.client.DeleteNote(ctx, record.QuoteID); err != nil {
			return fmt.Errorf("failed to delete quote: %w", err)
		}
		if err := j.scores.Delete(record.ID); err != nil {
			return err
		}

		log.Println("deleted")
	}

	return nil
}
