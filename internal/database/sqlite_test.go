package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-identify/internal/models"
)

func TestOpen_MigratesScanRecords(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "scans.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	assert.True(t, db.Migrator().HasTable(&models.ScanRecord{}))
	assert.True(t, db.Migrator().HasColumn(&models.ScanRecord{}, "verified"))
}

func TestRunMigrations_BackfillsDefaults(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "scans.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, db.Exec(`INSERT INTO scan_records (id, game, language, attempts) VALUES ('a', 'pokemon', '', 0)`).Error)
	require.NoError(t, RunMigrations(db, nil))

	var rec models.ScanRecord
	require.NoError(t, db.First(&rec, "id = ?", "a").Error)
	assert.Equal(t, models.LanguageEnglish, rec.Language)
	assert.Equal(t, 1, rec.Attempts)
}
