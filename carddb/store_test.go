package carddb

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cards.db")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE cards (card_id TEXT PRIMARY KEY, json_data TEXT, image_cropped TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO cards (card_id, json_data, image_cropped) VALUES (?, ?, ?)`,
		"46986414", `{"name":"Dark Magician"}`, "images/46986414.png")
	require.NoError(t, err)

	store, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, dir
}

func TestLookup(t *testing.T) {
	store, _ := newTestStore(t)

	jsonData, imagePath, found, err := store.Lookup("46986414")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"name":"Dark Magician"}`, jsonData)
	assert.Equal(t, "images/46986414.png", imagePath)
}

func TestLookupMiss(t *testing.T) {
	store, _ := newTestStore(t)

	_, _, found, err := store.Lookup("99999999")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEditionName(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "edition.json"),
		[]byte(`{"1st Edition":"1E","Limited Edition":"LE"}`), 0o644))

	assert.Equal(t, "1st Edition", store.EditionName("1E"))
	assert.Equal(t, "Limited Edition", store.EditionName("LE"))
	assert.Equal(t, "", store.EditionName("ZZ"))
	assert.Equal(t, "", store.EditionName(""))
}

func TestEditionNameMissingFile(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Equal(t, "", store.EditionName("1E"))
}

func TestImage(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	want := []byte{0x89, 'P', 'N', 'G'}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "46986414.png"), want, 0o644))

	got, err := store.Image("images/46986414.png")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestImageFallback(t *testing.T) {
	store, _ := newTestStore(t)

	// Run from a directory that holds the fallback image.
	wd := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(wd, FallbackImage), []byte("blank"), 0o644))

	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(wd))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	got, err := store.Image("images/missing.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("blank"), got)
}
