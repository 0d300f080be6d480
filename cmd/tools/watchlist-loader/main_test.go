// cmd/tools/watchlist-loader/main_test.go
package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ==========================
// Seed File Validation Tests
// ==========================

func TestLoadSeed_ValidPublishers(t *testing.T) {
	path := writeSeed(t, `{
		"category": "bealls",
		"entries": [
			{"name": "OMICS Publishing Group"},
			{"name": "Science Domain International"}
		]
	}`)

	seed, err := loadSeed(path)
	require.NoError(t, err)
	assert.Equal(t, "bealls", seed.Category)
	assert.Len(t, seed.Entries, 2)
}

func TestLoadSeed_ValidDiscontinued(t *testing.T) {
	path := writeSeed(t, `{
		"category": "scopus-discontinued",
		"entries": [
			{"title": "Journal of Advanced Research in Dynamics", "issn": "1943-023X", "discontinuedYear": 2020, "discontinuedReason": "Publication concerns"}
		]
	}`)

	_, err := loadSeed(path)
	require.NoError(t, err)
}

func TestLoadSeed_RejectsUnknownCategory(t *testing.T) {
	path := writeSeed(t, `{"category": "whitelist", "entries": [{"name": "x"}]}`)

	_, err := loadSeed(path)
	assert.ErrorContains(t, err, "unknown category")
}

func TestLoadSeed_RejectsEmptyEntries(t *testing.T) {
	path := writeSeed(t, `{"category": "bealls", "entries": []}`)

	_, err := loadSeed(path)
	assert.ErrorContains(t, err, "no entries")
}

func TestLoadSeed_RejectsMissingRequiredField(t *testing.T) {
	path := writeSeed(t, `{
		"category": "hijacked-journals",
		"entries": [{"legitimateTitle": "Wulfenia"}]
	}`)

	_, err := loadSeed(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 0")
}

func TestLoadSeed_RejectsMalformedISSN(t *testing.T) {
	path := writeSeed(t, `{
		"category": "scopus-discontinued",
		"entries": [{"issn": "not-an-issn"}]
	}`)

	_, err := loadSeed(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 0")
}
