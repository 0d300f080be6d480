// internal/watchlist/postgres.go
package watchlist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"predcheck/internal/common/errors"
	"predcheck/internal/common/logger"
	"predcheck/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// PostgresStore reads watchlists from Postgres with a Redis
// read-through cache. Watchlists change only when reloaded by the
// loader tool, so a generous TTL is fine.
type PostgresStore struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	log      logger.Logger
}

// NewPostgresStore creates the store. redis may be nil, which disables
// caching.
func NewPostgresStore(db *sql.DB, rdb *redis.Client, cacheTTL time.Duration, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:       db,
		redis:    rdb,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

func cacheKey(category Category) string {
	return "watchlist:" + string(category)
}

// Lookup implements Store.
func (s *PostgresStore) Lookup(ctx context.Context, category Category) ([]Entry, error) {
	if s.redis != nil {
		if val, err := s.redis.Get(ctx, cacheKey(category)).Result(); err == nil {
			var entries []Entry
			if err := json.Unmarshal([]byte(val), &entries); err == nil {
				metrics.WatchlistLookups.WithLabelValues(string(category), "cache").Inc()
				return entries, nil
			}
		}
	}

	entries, err := s.query(ctx, category)
	if err != nil {
		metrics.WatchlistLookups.WithLabelValues(string(category), "error").Inc()
		return nil, errors.NewWatchlistUnavailableError(string(category), err)
	}
	metrics.WatchlistLookups.WithLabelValues(string(category), "db").Inc()

	if s.redis != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := s.redis.Set(ctx, cacheKey(category), data, s.cacheTTL).Err(); err != nil {
				s.log.WithError(err).Warn("watchlist cache write failed", map[string]interface{}{
					"category": string(category),
				})
			}
		}
	}
	return entries, nil
}

func (s *PostgresStore) query(ctx context.Context, category Category) ([]Entry, error) {
	switch category {
	case CategoryBeallsPublishers, CategoryStopPredatoryPublishers:
		return s.queryPublishers(ctx, string(category))
	case CategoryPredatoryJournals:
		return s.queryRows(ctx, `SELECT id, title FROM predatory_journals ORDER BY title`)
	case CategoryHijackedJournals:
		return s.queryHijacked(ctx)
	case CategoryScopusDiscontinued:
		return s.queryDiscontinued(ctx)
	default:
		return nil, fmt.Errorf("unknown watchlist category %q", category)
	}
}

func (s *PostgresStore) queryPublishers(ctx context.Context, source string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source
		FROM predatory_publishers
		WHERE source = $1
		ORDER BY name`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Source); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) queryRows(ctx context.Context, query string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) queryHijacked(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, legitimate_title, fake_website, COALESCE(legitimate_issn, '')
		FROM hijacked_journals
		ORDER BY legitimate_title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.FakeWebsite, &e.LegitimateISSN); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) queryDiscontinued(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, issn, COALESCE(discontinued_year, 0), COALESCE(discontinued_reason, '')
		FROM scopus_discontinued
		ORDER BY issn`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.ISSN, &e.DiscontinuedYear, &e.DiscontinuedReason); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LookupISSN implements Store. The discontinued-coverage check is an
// exact equality match, so it queries by key instead of loading the
// whole category.
func (s *PostgresStore) LookupISSN(ctx context.Context, issn string) (*Entry, error) {
	key := "watchlist:issn:" + issn
	if s.redis != nil {
		if val, err := s.redis.Get(ctx, key).Result(); err == nil {
			if val == "" {
				metrics.WatchlistLookups.WithLabelValues(string(CategoryScopusDiscontinued), "cache").Inc()
				return nil, nil
			}
			var e Entry
			if err := json.Unmarshal([]byte(val), &e); err == nil {
				metrics.WatchlistLookups.WithLabelValues(string(CategoryScopusDiscontinued), "cache").Inc()
				return &e, nil
			}
		}
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, issn, COALESCE(discontinued_year, 0), COALESCE(discontinued_reason, '')
		FROM scopus_discontinued
		WHERE issn = $1`, issn)

	var e Entry
	err := row.Scan(&e.ID, &e.Name, &e.ISSN, &e.DiscontinuedYear, &e.DiscontinuedReason)
	switch {
	case err == sql.ErrNoRows:
		metrics.WatchlistLookups.WithLabelValues(string(CategoryScopusDiscontinued), "db").Inc()
		s.cacheISSN(ctx, key, "")
		return nil, nil
	case err != nil:
		metrics.WatchlistLookups.WithLabelValues(string(CategoryScopusDiscontinued), "error").Inc()
		return nil, errors.NewWatchlistUnavailableError(string(CategoryScopusDiscontinued), err)
	}

	metrics.WatchlistLookups.WithLabelValues(string(CategoryScopusDiscontinued), "db").Inc()
	if data, err := json.Marshal(e); err == nil {
		s.cacheISSN(ctx, key, string(data))
	}
	return &e, nil
}

func (s *PostgresStore) cacheISSN(ctx context.Context, key, val string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, key, val, s.cacheTTL).Err(); err != nil {
		s.log.WithError(err).Warn("watchlist cache write failed", map[string]interface{}{"key": key})
	}
}
