// cmd/tools/watchlist-loader/main.go

// watchlist-loader validates and loads watchlist seed files into
// Postgres. Seed files are JSON documents with a category and its
// entries; each category has its own schema.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"predcheck/internal/common/config"
	"predcheck/internal/common/database"
	"predcheck/internal/common/logger"
	"predcheck/internal/watchlist"
)

type seedFile struct {
	Category string            `json:"category"`
	Entries  []json.RawMessage `json:"entries"`
}

type publisherSeed struct {
	Name string `json:"name"`
}

type journalSeed struct {
	Title string `json:"title"`
}

type hijackedSeed struct {
	LegitimateTitle string `json:"legitimateTitle"`
	FakeWebsite     string `json:"fakeWebsite"`
	LegitimateISSN  string `json:"legitimateIssn"`
}

type discontinuedSeed struct {
	Title              string `json:"title"`
	ISSN               string `json:"issn"`
	DiscontinuedYear   int    `json:"discontinuedYear"`
	DiscontinuedReason string `json:"discontinuedReason"`
}

// entrySchemas maps each category to the JSON schema its entries must
// satisfy before anything touches the database.
var entrySchemas = map[watchlist.Category]map[string]interface{}{
	watchlist.CategoryBeallsPublishers: {
		"type":     "object",
		"required": []interface{}{"name"},
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string", "minLength": 1},
		},
	},
	watchlist.CategoryStopPredatoryPublishers: {
		"type":     "object",
		"required": []interface{}{"name"},
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string", "minLength": 1},
		},
	},
	watchlist.CategoryPredatoryJournals: {
		"type":     "object",
		"required": []interface{}{"title"},
		"properties": map[string]interface{}{
			"title": map[string]interface{}{"type": "string", "minLength": 1},
		},
	},
	watchlist.CategoryHijackedJournals: {
		"type":     "object",
		"required": []interface{}{"legitimateTitle", "fakeWebsite"},
		"properties": map[string]interface{}{
			"legitimateTitle": map[string]interface{}{"type": "string", "minLength": 1},
			"fakeWebsite":     map[string]interface{}{"type": "string", "minLength": 1},
			"legitimateIssn":  map[string]interface{}{"type": "string"},
		},
	},
	watchlist.CategoryScopusDiscontinued: {
		"type":     "object",
		"required": []interface{}{"issn"},
		"properties": map[string]interface{}{
			"title":              map[string]interface{}{"type": "string"},
			"issn":               map[string]interface{}{"type": "string", "pattern": `^\d{4}-\d{3}[\dxX]$`},
			"discontinuedYear":   map[string]interface{}{"type": "integer"},
			"discontinuedReason": map[string]interface{}{"type": "string"},
		},
	},
}

func main() {
	path := flag.String("file", "", "seed file to load")
	validateOnly := flag.Bool("validate", false, "validate the seed file without writing")
	replace := flag.Bool("replace", false, "delete the category's existing rows first")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: watchlist-loader -file <seed.json> [-validate] [-replace]")
		os.Exit(2)
	}

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	seed, err := loadSeed(*path)
	if err != nil {
		zapLog.Fatal("seed file rejected", zap.String("file", *path), zap.Error(err))
	}
	zapLog.Info("seed file valid",
		zap.String("category", seed.Category),
		zap.Int("entries", len(seed.Entries)),
	)
	if *validateOnly {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()

	start := time.Now()
	inserted, err := insert(pg.DB, seed, *replace)
	if err != nil {
		zapLog.Fatal("load failed", zap.Error(err))
	}
	zapLog.Info("watchlist loaded",
		zap.String("category", seed.Category),
		zap.Int("inserted", inserted),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func loadSeed(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	schema, ok := entrySchemas[watchlist.Category(seed.Category)]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", seed.Category)
	}
	if len(seed.Entries) == 0 {
		return nil, fmt.Errorf("seed file has no entries")
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	for i, raw := range seed.Entries {
		documentLoader := gojsonschema.NewBytesLoader(raw)
		result, err := gojsonschema.Validate(schemaLoader, documentLoader)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if !result.Valid() {
			return nil, fmt.Errorf("entry %d: %v", i, result.Errors())
		}
	}
	return &seed, nil
}

func insert(db *sql.DB, seed *seedFile, replace bool) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	category := watchlist.Category(seed.Category)
	if replace {
		if err := clearCategory(tx, category); err != nil {
			return 0, err
		}
	}

	inserted := 0
	for _, raw := range seed.Entries {
		if err := insertEntry(tx, category, raw); err != nil {
			return 0, err
		}
		inserted++
	}
	return inserted, tx.Commit()
}

func clearCategory(tx *sql.Tx, category watchlist.Category) error {
	var err error
	switch category {
	case watchlist.CategoryBeallsPublishers, watchlist.CategoryStopPredatoryPublishers:
		_, err = tx.Exec(`DELETE FROM predatory_publishers WHERE source = $1`, string(category))
	case watchlist.CategoryPredatoryJournals:
		_, err = tx.Exec(`DELETE FROM predatory_journals`)
	case watchlist.CategoryHijackedJournals:
		_, err = tx.Exec(`DELETE FROM hijacked_journals`)
	case watchlist.CategoryScopusDiscontinued:
		_, err = tx.Exec(`DELETE FROM scopus_discontinued`)
	}
	return err
}

func insertEntry(tx *sql.Tx, category watchlist.Category, raw json.RawMessage) error {
	switch category {
	case watchlist.CategoryBeallsPublishers, watchlist.CategoryStopPredatoryPublishers:
		var e publisherSeed
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		_, err := tx.Exec(`
			INSERT INTO predatory_publishers (name, source)
			VALUES ($1, $2)
			ON CONFLICT (name, source) DO NOTHING`, e.Name, string(category))
		return err

	case watchlist.CategoryPredatoryJournals:
		var e journalSeed
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		_, err := tx.Exec(`
			INSERT INTO predatory_journals (title)
			VALUES ($1)
			ON CONFLICT (title) DO NOTHING`, e.Title)
		return err

	case watchlist.CategoryHijackedJournals:
		var e hijackedSeed
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		_, err := tx.Exec(`
			INSERT INTO hijacked_journals (legitimate_title, fake_website, legitimate_issn)
			VALUES ($1, $2, $3)
			ON CONFLICT (legitimate_title, fake_website) DO NOTHING`,
			e.LegitimateTitle, e.FakeWebsite, e.LegitimateISSN)
		return err

	case watchlist.CategoryScopusDiscontinued:
		var e discontinuedSeed
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		_, err := tx.Exec(`
			INSERT INTO scopus_discontinued (title, issn, discontinued_year, discontinued_reason)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (issn) DO UPDATE
			SET title = EXCLUDED.title,
			    discontinued_year = EXCLUDED.discontinued_year,
			    discontinued_reason = EXCLUDED.discontinued_reason`,
			e.Title, e.ISSN, e.DiscontinuedYear, e.DiscontinuedReason)
		return err
	}
	return fmt.Errorf("unknown category %q", category)
}
