// Package backup keeps a file-per-phone copy of stored session credentials
// next to the database record, for recovery when the database is lost.
package backup

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// ErrNotFound is returned by Read when no backup exists for the phone.
var ErrNotFound = errors.New("backup not found")

// ErrChecksum is returned by Read when the stored blob does not match its checksum.
var ErrChecksum = errors.New("backup checksum mismatch")

type Record struct {
	Phone     string    `json:"phone"`
	Session   string    `json:"session"`
	Checksum  string    `json:"checksum"`
	WrittenAt time.Time `json:"writtenAt"`
}

type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Write stores {phone, session} at a path derived from the phone, replacing
// any earlier copy atomically.
func (w *Writer) Write(phone, session string) error {
	name := FileName(phone)
	if name == "" {
		return fmt.Errorf("write backup: phone %q has no digits", phone)
	}

	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	data, err := json.MarshalIndent(Record{
		Phone:     phone,
		Session:   session,
		Checksum:  Checksum(session),
		WrittenAt: w.now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal backup: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp backup: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp backup: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(w.dir, name)); err != nil {
		return fmt.Errorf("rename backup: %w", err)
	}
	return nil
}

// Read loads and verifies the backup for phone.
func (w *Writer) Read(phone string) (*Record, error) {
	name := FileName(phone)
	if name == "" {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(w.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	if record.Checksum != Checksum(record.Session) {
		return nil, ErrChecksum
	}
	return &record, nil
}

// FileName keeps only the digits of phone, so "+1 (555) 123-4567" and
// "+15551234567" share a file and nothing can escape the backup dir.
func FileName(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + ".json"
}

func Checksum(session string) string {
	sum := blake3.Sum256([]byte(session))
	return hex.EncodeToString(sum[:])
}
