// internal/watchlist/postgres_test.go
package watchlist

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"predcheck/internal/common/errors"
	"predcheck/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newStore(t *testing.T, db *sql.DB, rdb *redis.Client) *PostgresStore {
	return NewPostgresStore(db, rdb, time.Hour, logger.NewTestLogger(t))
}

// ==========================
// Lookup Tests
// ==========================

func TestLookup_PublishersFromDatabase(t *testing.T) {
	db, mock := setupMockDB(t)
	redisClient, redisMock := redismock.NewClientMock()

	redisMock.ExpectGet("watchlist:bealls").RedisNil()

	rows := sqlmock.NewRows([]string{"id", "name", "source"}).
		AddRow("p1", "OMICS Publishing Group", "bealls").
		AddRow("p2", "Science Domain International", "bealls")
	mock.ExpectQuery(`SELECT id, name, source`).
		WithArgs("bealls").
		WillReturnRows(rows)

	entries := []Entry{
		{ID: "p1", Name: "OMICS Publishing Group", Source: "bealls"},
		{ID: "p2", Name: "Science Domain International", Source: "bealls"},
	}
	cached, _ := json.Marshal(entries)
	redisMock.ExpectSet("watchlist:bealls", cached, time.Hour).SetVal("OK")

	store := newStore(t, db, redisClient)
	got, err := store.Lookup(context.Background(), CategoryBeallsPublishers)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestLookup_CacheHitSkipsDatabase(t *testing.T) {
	db, mock := setupMockDB(t)
	redisClient, redisMock := redismock.NewClientMock()

	entries := []Entry{{ID: "j1", Name: "International Journal of Everything"}}
	cached, _ := json.Marshal(entries)
	redisMock.ExpectGet("watchlist:predatory-journals").SetVal(string(cached))

	store := newStore(t, db, redisClient)
	got, err := store.Lookup(context.Background(), CategoryPredatoryJournals)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookup_HijackedJournals(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "legitimate_title", "fake_website", "legitimate_issn"}).
		AddRow("h1", "Wulfenia", "wulfenia-journal.com", "1561-882X")
	mock.ExpectQuery(`SELECT id, legitimate_title, fake_website`).
		WillReturnRows(rows)

	store := newStore(t, db, nil)
	got, err := store.Lookup(context.Background(), CategoryHijackedJournals)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Wulfenia", got[0].Name)
	assert.Equal(t, "wulfenia-journal.com", got[0].FakeWebsite)
	assert.Equal(t, "1561-882X", got[0].LegitimateISSN)
}

func TestLookup_QueryFailureIsWatchlistUnavailable(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT id, name, source`).
		WithArgs("stop-predatory-journals").
		WillReturnError(sql.ErrConnDone)

	store := newStore(t, db, nil)
	_, err := store.Lookup(context.Background(), CategoryStopPredatoryPublishers)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWatchlistUnavailable, errors.CodeOf(err))
	assert.False(t, errors.IsTerminal(err))
}

func TestLookup_UnknownCategory(t *testing.T) {
	db, _ := setupMockDB(t)
	store := newStore(t, db, nil)

	_, err := store.Lookup(context.Background(), Category("no-such-list"))
	assert.Error(t, err)
}

// ==========================
// ISSN Lookup Tests
// ==========================

func TestLookupISSN_ExactMatch(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "title", "issn", "discontinued_year", "discontinued_reason"}).
		AddRow("s1", "Journal of Advanced Stuff", "2222-3333", 2019, "Publication concerns")
	mock.ExpectQuery(`SELECT id, title, issn`).
		WithArgs("2222-3333").
		WillReturnRows(rows)

	store := newStore(t, db, nil)
	entry, err := store.LookupISSN(context.Background(), "2222-3333")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 2019, entry.DiscontinuedYear)
	assert.Equal(t, "Publication concerns", entry.DiscontinuedReason)
}

func TestLookupISSN_NoRowIsNil(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT id, title, issn`).
		WithArgs("0000-0000").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "issn", "discontinued_year", "discontinued_reason"}))

	store := newStore(t, db, nil)
	entry, err := store.LookupISSN(context.Background(), "0000-0000")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

// ==========================
// Cache Round-Trip Tests
// ==========================

func TestLookup_CacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db, mock := setupMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "name", "source"}).
		AddRow("p1", "OMICS Publishing Group", "bealls")
	mock.ExpectQuery(`SELECT id, name, source`).
		WithArgs("bealls").
		WillReturnRows(rows)

	store := newStore(t, db, redisClient)
	ctx := context.Background()

	first, err := store.Lookup(ctx, CategoryBeallsPublishers)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Second lookup is served from the cache: no further query expected.
	second, err := store.Lookup(ctx, CategoryBeallsPublishers)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())

	// TTL expiry falls back to the database.
	mr.FastForward(2 * time.Hour)
	mock.ExpectQuery(`SELECT id, name, source`).
		WithArgs("bealls").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "source"}).
			AddRow("p1", "OMICS Publishing Group", "bealls"))

	third, err := store.Lookup(ctx, CategoryBeallsPublishers)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}
