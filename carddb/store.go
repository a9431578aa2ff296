// Package carddb reads the local card database: a sqlite file mapping
// a passcode to the card's JSON description and artwork path, plus the
// edition.json code table and the image files living next to the
// database.
package carddb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FallbackImage is served when a card's artwork file is missing.
const FallbackImage = "unknowncardart.png"

const editionFile = "edition.json"

// Store is a read-only view over the card database directory.
type Store struct {
	db       *sql.DB
	basePath string
}

// Open opens the sqlite database at dbPath. The directory containing
// the database is used to resolve image paths and edition.json.
func Open(dbPath string) (*Store, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	db, err := sql.Open("sqlite", abs)
	if err != nil {
		return nil, fmt.Errorf("open card db %s: %w", abs, err)
	}
	// Single connection avoids sqlite "database is locked" errors.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect card db %s: %w", abs, err)
	}

	return &Store{db: db, basePath: filepath.Dir(abs)}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BasePath returns the directory the database lives in.
func (s *Store) BasePath() string {
	return s.basePath
}

// Lookup fetches the card row for a passcode. A missing row is a
// normal outcome reported via found=false, not an error.
func (s *Store) Lookup(passcode string) (jsonData, imagePath string, found bool, err error) {
	row := s.db.QueryRow("SELECT json_data, image_cropped FROM cards WHERE card_id = ?", passcode)
	switch err = row.Scan(&jsonData, &imagePath); {
	case err == nil:
		return jsonData, imagePath, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return "", "", false, nil
	default:
		return "", "", false, fmt.Errorf("lookup passcode %s: %w", passcode, err)
	}
}

// EditionName reverse-resolves a two-character edition code to its
// display name via edition.json. A missing file, unreadable file or
// unknown code all resolve to the empty string.
func (s *Store) EditionName(code string) string {
	if code == "" {
		return ""
	}

	raw, err := os.ReadFile(filepath.Join(s.basePath, editionFile))
	if err != nil {
		return ""
	}

	table := map[string]string{}
	if err := json.Unmarshal(raw, &table); err != nil {
		return ""
	}

	for name, c := range table {
		if c == code {
			return name
		}
	}
	return ""
}

// Image loads a card image by its path relative to the database
// directory, falling back to the bundled unknown-card image in the
// working directory when the referenced file does not exist.
func (s *Store) Image(relPath string) ([]byte, error) {
	full := filepath.Join(s.basePath, relPath)
	if _, err := os.Stat(full); err != nil {
		full = FallbackImage
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read card image %s: %w", full, err)
	}
	return data, nil
}
