package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add cash box limits", "add_cash_box_limits"},
		{"Add-Cash-Box-Limits", "add_cash_box_limits"},
		{"ADD_PAYROLL_RULES", "add_payroll_rules"},
		{"add__payroll__rules", "add_payroll_rules"},
		{"Reporting 2024", "reporting_2024"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- test"), 0o644))
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "000001_init.up.sql", "000001_init.down.sql", "000007_reports.up.sql")

	mf, err := CreateMigration(dir, "add cash box limits", "Per-box overdraft limits")
	require.NoError(t, err)

	assert.Equal(t, "000008", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000008_add_cash_box_limits.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000008_add_cash_box_limits.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- add cash box limits\n")
	assert.Contains(t, string(up), "Per-box overdraft limits")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")
}

func TestCreateMigration_FirstInNewDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"000002_payroll.up.sql", "000002_payroll.down.sql",
		"000001_init.up.sql", "000001_init.down.sql",
		"README.md", ".gitkeep",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0o755))

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000002_payroll"}, names)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	names, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrations_SeedMatchesCatalog(t *testing.T) {
	up, err := fs.ReadFile(migrations.FS, "000001_init.up.sql")
	require.NoError(t, err)
	_, err = fs.ReadFile(migrations.FS, "000001_init.down.sql")
	require.NoError(t, err)

	sql := string(up)
	for _, tt := range persistence.DefaultTransactionTypes() {
		row := fmt.Sprintf("('%s', '%s',", tt.ID, tt.Code)
		assert.True(t, strings.Contains(sql, row), "seed row for %s", tt.Code)
	}
	for _, model := range []string{"cash_boxes", "transactions", "outbox_events", "reporting_periods"} {
		assert.Contains(t, sql, "CREATE TABLE "+model+" (")
	}
}
