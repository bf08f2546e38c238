package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCatalog(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		path := writeCatalog(t, `
services:
  - id: 1
    name: Cut
    duration: 30
    price: 30
    is_active: true
  - id: 2
    name: Colour
    duration: 90
    price: "45+"
    is_active: true
staff:
  - id: 1
    name: Ana
    sort_order: 1
    is_active: true
    weekdays: [mon, Tue, friday]
`)
		catalog, err := LoadCatalog(path)
		require.NoError(t, err)
		require.Len(t, catalog.Services, 2)
		assert.Equal(t, "45+", catalog.Services[1].Price.String())
		require.Len(t, catalog.Staff, 1)
		assert.Equal(t, "Ana", catalog.Staff[0].Name)
		assert.True(t, catalog.Staff[0].IsActive)

		days, err := catalog.Staff[0].WorkingDays()
		require.NoError(t, err)
		assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Friday}, days)
	})

	t.Run("BadWeekday", func(t *testing.T) {
		path := writeCatalog(t, `
staff:
  - id: 1
    name: Ana
    weekdays: [funday]
`)
		_, err := LoadCatalog(path)
		assert.Error(t, err)
	})

	t.Run("DuplicateStaff", func(t *testing.T) {
		path := writeCatalog(t, `
staff:
  - id: 1
    name: Ana
  - id: 1
    name: Ben
`)
		_, err := LoadCatalog(path)
		assert.Error(t, err)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
