package credentials

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/gofrs/flock"
)

// FileStore is the canonical credential backend: a UTF-8 CSV file with
// header "name,pass", one credential record per subsequent row. It is
// stateless between calls — every Lookup re-reads and re-parses the
// file under a shared (read) lock so it can coexist with an external
// process rewriting the file, at the cost of re-parsing on every
// authentication attempt. Caching is explicitly out of scope.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore reading credentials from path. An
// empty path is valid and simply denies every USER_PASS login.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Lookup reports whether (name, pass) appears as a row in the file.
// Any failure to open, lock, or parse the file is treated as "no such
// credential" rather than propagated — USER_PASS attempts against a
// missing or unreadable file are simply refused.
func (f *FileStore) Lookup(ctx context.Context, name, pass string) bool {
	if f.path == "" {
		return false
	}

	records, err := f.load()
	if err != nil {
		return false
	}

	for _, r := range records {
		if r.Name == name && r.Pass == pass {
			return true
		}
	}
	return false
}

// load acquires a shared read lock on the file, reads it in full, and
// releases the lock before parsing, so the lock is held for the
// shortest span that still guarantees a consistent read against a
// concurrent writer using the same advisory lock.
func (f *FileStore) load() ([]Record, error) {
	lock := flock.New(f.path)
	if err := lock.RLock(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.path)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	data, readErr := io.ReadAll(file)
	file.Close()
	lock.Unlock()
	if readErr != nil {
		return nil, readErr
	}

	return parseCSV(data), nil
}

// parseCSV decodes the credentials file body. Malformed rows (wrong
// field count, empty name or pass) are skipped rather than failing the
// whole load — a single corrupted line must not deny every login.
func parseCSV(data []byte) []Record {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []Record
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // malformed row: skip, keep reading
		}
		if first {
			first = false
			if len(row) == 2 && row[0] == "name" && row[1] == "pass" {
				continue // header row
			}
		}
		if len(row) != 2 || row[0] == "" || row[1] == "" {
			continue
		}
		records = append(records, Record{Name: row[0], Pass: row[1]})
	}
	return records
}
