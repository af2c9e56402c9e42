// Package jobs implements the scheduled maintenance tasks: periodic reports
// and cleanup of quotes whose source note has been deleted.
package jobs

import (
	"context"
	"fmt"
	"time"

	"yakudo-bot/internal/models"
	"yakudo-bot/internal/platform"
	"yakudo-bot/internal/services"
)

// Jobs bundles the shared handles every maintenance task needs.
type Jobs struct {
	client platform.Client
	scores *services.ScoresService

	// pause between cleanup records, shortened in tests
	pause time.Duration
}

// New creates the maintenance job set.
func New(client platform.Client, scores *services.ScoresService) *Jobs {
	return &Jobs{
		client: client,
		scores: scores,
		pause:  time.Second,
	}
}

// HourlyReport posts how many yakudos were recorded today.
func (j *Jobs) HourlyReport(ctx context.Context) error {
	count, err := j.scores.CountSince(services.StartOfDay(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to count yakudos: %w", err)
	}

	message := HourlyMessage(count, time.Now())

	if _, err := j.client.CreateNote(ctx, message); err != nil {
		return fmt.Errorf("failed to post hourly report: %w", err)
	}
	return nil
}

// HourlyMessage renders the hourly report for the given count.
func HourlyMessage(count int64, now time.Time) string {
	ts := now.Format("2006-01-02 15:04")
	if count == 0 {
		return fmt.Sprintf("おいお前ら!早くyakudoしろ!(%s)", ts)
	}
	return fmt.Sprintf("本日のyakudo:%d件(%s)", count, ts)
}

// DailyReport posts today's best yakudo, or a lament if there was none worth
// mentioning.
func (j *Jobs) DailyReport(ctx context.Context) error {
	records, err := j.scores.Since(services.StartOfDay(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to get yakudos: %w", err)
	}

	message := j.DailyMessage(records)

	if _, err := j.client.CreateNote(ctx, message); err != nil {
		return fmt.Errorf("failed to post daily report: %w", err)
	}
	return nil
}

// DailyMessage renders the daily report. The records must be ordered by score
// descending; score 0.0 is the no-photo/video sentinel, so a best score of
// zero means the whole day produced nothing scoreable.
func (j *Jobs) DailyMessage(records []models.YakudoScore) string {
	if len(records) == 0 {
		return "本日のyakudoは...何一つ...出ませんでした..."
	}

	best := records[0]
	if best.Score <= 0 {
		return "おい待てや...今日のyakudo...-inf点しか無いやん..."
	}

	return fmt.Sprintf("Highest Score:%.3f\n優勝おめでとう!\n%s",
		best.Score, j.client.NoteURL(best.NoteID))
}
