// Package monitor maintains the long-lived hashtag timeline subscription and
// feeds matching notes into the processor.
package monitor

import (
	"context"
	"log"
	"time"

	"yakudo-bot/internal/platform"
	"yakudo-bot/internal/processor"
)

// reconnectBackoff is how long we wait after a broken stream before
// subscribing again. Any backlog accumulated while disconnected is dropped.
const reconnectBackoff = 5 * time.Second

// Monitor consumes the hashtag timeline for the lifetime of the process.
type Monitor struct {
	source    platform.StreamSource
	processor *processor.Processor
	hashtag   string
}

// New creates a monitor for the given hashtag.
func New(source platform.StreamSource, proc *processor.Processor, hashtag string) *Monitor {
	return &Monitor{
		source:    source,
		processor: proc,
		hashtag:   hashtag,
	}
}

// Run subscribes to the hashtag timeline and dispatches every received note.
// The outer loop owns reconnection: a transport failure waits out the backoff
// and resubscribes from scratch. A failure processing a single note is logged
// and never interrupts the stream. Run only returns when ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		stream, err := m.source.SubscribeHashtag(ctx, m.hashtag)
		if err != nil {
			log.Printf("error while subscribing to hashtag timeline: %v. retrying...", err)
			if err := sleep(ctx, reconnectBackoff); err != nil {
				return err
			}
			continue
		}

		log.Printf("Start monitoring notes with hashtag: #%s", m.hashtag)
		err = m.consume(ctx, stream)
		stream.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Printf("error while streaming notes: %v. retrying...", err)
		if err := sleep(ctx, reconnectBackoff); err != nil {
			return err
		}
	}
}

// consume is the inner dispatch loop for one subscription. It returns the
// transport error that ended the stream.
func (m *Monitor) consume(ctx context.Context, stream platform.Stream) error {
	for {
		event, err := stream.Next()
		if err != nil {
			return err
		}
		if event.Note == nil {
			continue
		}

		if err := m.processor.Process(ctx, event.Note); err != nil {
			log.Printf("error while processing note: %v. continuing...", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
