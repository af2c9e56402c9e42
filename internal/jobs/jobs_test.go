package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"yakudo-bot/internal/models"
	"yakudo-bot/internal/platform"
	"yakudo-bot/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeClient implements platform.Client in memory. Notes present in the map
// can be fetched; anything else counts as deleted upstream.
type fakeClient struct {
	notes   map[string]*platform.Note
	deleted []string
	posted  []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{notes: map[string]*platform.Note{}}
}

func (f *fakeClient) CurrentUser() platform.User {
	return platform.User{ID: "bot", Username: "yakudobot"}
}

func (f *fakeClient) GetNote(_ context.Context, id string) (*platform.Note, error) {
	note, ok := f.notes[id]
	if !ok {
		return nil, fmt.Errorf("note not found: %s", id)
	}
	return note, nil
}

func (f *fakeClient) Quote(_ context.Context, note *platform.Note, text string) (*platform.Note, error) {
	return &platform.Note{ID: "quote"}, nil
}

func (f *fakeClient) CreateNote(_ context.Context, text string) (*platform.Note, error) {
	f.posted = append(f.posted, text)
	return &platform.Note{ID: "created"}, nil
}

func (f *fakeClient) DeleteNote(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeClient) IsFollowing(_ context.Context, _ platform.User) (bool, error) { return false, nil }
func (f *fakeClient) Follow(_ context.Context, _ platform.User) error              { return nil }
func (f *fakeClient) ListFollowers(_ context.Context, _ func(platform.User) error) error {
	return nil
}

func (f *fakeClient) NoteURL(id string) string {
	return "https://misskey.test/notes/" + id
}

func setup(t *testing.T) (*Jobs, *fakeClient, *services.ScoresService, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")

	client := newFakeClient()
	scores := services.NewScoresService(db)
	j := New(client, scores)
	j.pause = time.Millisecond
	return j, client, scores, db
}

func insertToday(t *testing.T, scores *services.ScoresService, username, noteID, quoteID string, score float64) *models.YakudoScore {
	record := &models.YakudoScore{
		Username: username,
		NoteID:   noteID,
		QuoteID:  quoteID,
		Score:    score,
	}
	require.NoError(t, scores.Insert(record))
	return record
}

func TestCleanupDeletesOnlyVanishedSource(t *testing.T) {
	j, client, scores, db := setup(t)

	insertToday(t, scores, "alice", "n1", "q1", 10)
	gone := insertToday(t, scores, "bob", "n2", "q2", 20)
	insertToday(t, scores, "carol", "n3", "q3", 30)

	// n1 and n3 still exist upstream; n2 has been deleted.
	client.notes["n1"] = &platform.Note{ID: "n1"}
	client.notes["n3"] = &platform.Note{ID: "n3"}

	require.NoError(t, j.Cleanup(context.Background()))

	assert.Equal(t, []string{"q2"}, client.deleted, "only the vanished note's quote is deleted")

	var remaining []models.YakudoScore
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, record := range remaining {
		assert.NotEqual(t, gone.ID, record.ID)
	}
}

func TestCleanupNothingToDo(t *testing.T) {
	j, client, scores, _ := setup(t)

	insertToday(t, scores, "alice", "n1", "q1", 10)
	client.notes["n1"] = &platform.Note{ID: "n1"}

	require.NoError(t, j.Cleanup(context.Background()))
	assert.Empty(t, client.deleted)
}

func TestHourlyMessage(t *testing.T) {
	now := time.Date(2022, 9, 26, 19, 46, 0, 0, time.Local)

	assert.Equal(t, "おいお前ら!早くyakudoしろ!(2022-09-26 19:46)", HourlyMessage(0, now))
	assert.Equal(t, "本日のyakudo:3件(2022-09-26 19:46)", HourlyMessage(3, now))
}

func TestHourlyReportPosts(t *testing.T) {
	j, client, scores, _ := setup(t)

	insertToday(t, scores, "alice", "n1", "q1", 10)
	insertToday(t, scores, "bob", "n2", "q2", 0)

	require.NoError(t, j.HourlyReport(context.Background()))

	require.Len(t, client.posted, 1)
	assert.Contains(t, client.posted[0], "本日のyakudo:2件")
}

func TestDailyMessageBranches(t *testing.T) {
	j, _, _, _ := setup(t)

	t.Run("no records", func(t *testing.T) {
		assert.Equal(t, "本日のyakudoは...何一つ...出ませんでした...", j.DailyMessage(nil))
	})

	t.Run("sentinel-only day", func(t *testing.T) {
		records := []models.YakudoScore{
			{Username: "alice", NoteID: "n1", Score: 0},
			{Username: "bob", NoteID: "n2", Score: 0},
		}
		assert.Equal(t, "おい待てや...今日のyakudo...-inf点しか無いやん...", j.DailyMessage(records))
	})

	t.Run("best score wins", func(t *testing.T) {
		records := []models.YakudoScore{
			{Username: "alice", NoteID: "n1", Score: 523.125},
			{Username: "bob", NoteID: "n2", Score: 10},
		}
		message := j.DailyMessage(records)
		assert.Contains(t, message, "Highest Score:523.125")
		assert.Contains(t, message, "優勝おめでとう!")
		assert.Contains(t, message, "https://misskey.test/notes/n1")
	})
}

func TestDailyReportPostsBestOfToday(t *testing.T) {
	j, client, scores, _ := setup(t)

	insertToday(t, scores, "alice", "n1", "q1", 42.5)
	insertToday(t, scores, "bob", "n2", "q2", 300.25)

	require.NoError(t, j.DailyReport(context.Background()))

	require.Len(t, client.posted, 1)
	assert.Contains(t, client.posted[0], "Highest Score:300.250")
	assert.Contains(t, client.posted[0], "https://misskey.test/notes/n2")
}
