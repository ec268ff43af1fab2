package testing

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glefebvre/iptvplayer/internal/config"
	"github.com/glefebvre/iptvplayer/internal/database"
	"github.com/glefebvre/iptvplayer/internal/models"
	"gorm.io/gorm"
)

// SamplePlaylist holds one channel, one movie and two episodes of one series
const SamplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="news.uk" tvg-logo="http://x/news.png" group-title="News",News 24
http://x/live/news.ts
#EXTINF:7200 tvg-logo="http://x/inception.png" group-title="Movies",Inception (2010)
http://x/movie/inception.mp4
#EXTINF:-1 group-title="Series",Breaking Bad S01E01
http://x/series/bb101.mkv
#EXTINF:-1 group-title="Series",Breaking Bad S01E02
http://x/series/bb102.mkv
`

var accountSeq int64

// TestDB creates an in-memory SQLite database with the store tables
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.StoreConfig{Driver: "sqlite", Path: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	return db
}

// CleanupDB removes all records from test database tables
func CleanupDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	db.Exec("DELETE FROM accounts")
	db.Exec("DELETE FROM settings")
}

// CreateAccount inserts an M3U account record
func CreateAccount(db *gorm.DB, overrides ...func(*models.AccountRecord)) *models.AccountRecord {
	n := atomic.AddInt64(&accountSeq, 1)
	m3uURL := fmt.Sprintf("http://example.com/playlist-%d.m3u", n)
	rec := &models.AccountRecord{
		ID:           fmt.Sprintf("acct-%d", n),
		Type:         string(models.AccountTypeM3U),
		PlaylistName: fmt.Sprintf("Playlist %d", n),
		M3UURL:       &m3uURL,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	for _, override := range overrides {
		override(rec)
	}

	db.Create(rec)
	return rec
}

// WithXtream turns a record into an Xtream account
func WithXtream(server, username, password string) func(*models.AccountRecord) {
	return func(rec *models.AccountRecord) {
		rec.Type = string(models.AccountTypeXtream)
		rec.M3UURL = nil
		rec.ServerURL = &server
		rec.Username = &username
		rec.Password = &password
	}
}

// WithID sets the record id
func WithID(id string) func(*models.AccountRecord) {
	return func(rec *models.AccountRecord) {
		rec.ID = id
	}
}

// WithCreatedAt sets the creation time
func WithCreatedAt(ts time.Time) func(*models.AccountRecord) {
	return func(rec *models.AccountRecord) {
		rec.CreatedAt = ts
	}
}

// NewPlaylistServer serves body at every path and counts requests
func NewPlaylistServer(t *testing.T, body string) (*httptest.Server, *int32) {
	t.Helper()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "audio/x-mpegurl")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, &hits
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error, message string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", message, err)
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual[T comparable](t *testing.T, expected, actual T, message string) {
	t.Helper()
	if expected != actual {
		t.Fatalf("%s: expected %v, got %v", message, expected, actual)
	}
}

// AssertCount verifies the count of records in a table
func AssertCount(t *testing.T, db *gorm.DB, model interface{}, expected int64, message string) {
	t.Helper()
	var count int64
	db.Model(model).Count(&count)
	if count != expected {
		t.Fatalf("%s: expected count %d, got %d", message, expected, count)
	}
}
