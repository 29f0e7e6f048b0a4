package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/inkbook/studio/internal/domain/entities"
	"github.com/inkbook/studio/internal/infrastructure/logger"
)

// JSONRepository stores every booking as one JSON array in a flat file.
// The array is cached in memory; each write rewrites the whole file and
// the last write wins.
type JSONRepository struct {
	*MemoryRepository
	path   string
	logger *logger.Logger
}

// NewJSONRepository opens path, creating it with an empty array when it is
// missing, and loads it into the cache.
func NewJSONRepository(path string, log *logger.Logger) (*JSONRepository, error) {
	r := &JSONRepository{
		MemoryRepository: NewMemoryRepository(),
		path:             path,
		logger:           log.WithComponent("json_store").WithFields("file", path),
	}
	r.MemoryRepository.persist = r.writeFile

	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the backing file.
func (r *JSONRepository) Path() string {
	return r.path
}

// Reload re-reads the file into the cache. A file that is not a JSON array
// is copied aside and reset to an empty array. Records that cannot be
// decoded as they are get their fields coerced, and the ones that still
// fail are skipped after the file is copied aside.
func (r *JSONRepository) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Infow("Bookings file not found, creating it")
		return r.reset()
	}
	if err != nil {
		return fmt.Errorf("read bookings file: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		r.logger.Warnw("Bookings file is not a valid JSON array, resetting to empty", "error", err.Error())
		if err := r.backup(data); err != nil {
			return err
		}
		return r.reset()
	}

	// Older files hold raw form posts without ids or timestamps, sometimes
	// with numeric ids and phones.
	rewrite := records == nil
	skipped := 0
	kept := make([]*entities.Booking, 0, len(records))
	for i, raw := range records {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			rewrite = true
			continue
		}

		b, coerced, err := decodeRecord(raw)
		if err != nil {
			r.logger.Warnw("Skipping unreadable booking record", "index", i, "error", err.Error())
			skipped++
			continue
		}
		if coerced || upgradeRecord(b) {
			rewrite = true
		}
		kept = append(kept, b)
	}

	if skipped > 0 {
		if err := r.backup(data); err != nil {
			return err
		}
		rewrite = true
	}

	if rewrite {
		r.logger.Infow("Upgrading legacy booking records", "records", len(kept), "skipped", skipped)
		if err := r.writeFile(kept); err != nil {
			return err
		}
	}

	r.replace(kept)
	r.logger.Debugw("Bookings loaded", "records", len(kept))
	return nil
}

// backup copies the file contents next to it before they are discarded.
func (r *JSONRepository) backup(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	name := fmt.Sprintf("%s.corrupt-%d", r.path, time.Now().Unix())
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("back up bookings file: %w", err)
	}
	r.logger.Warnw("Bookings file copied aside", "backup", name)
	return nil
}

// upgradeRecord fills the fields older records lack and reports whether it
// changed anything.
func upgradeRecord(b *entities.Booking) bool {
	changed := false
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
		changed = true
	}
	if b.Status == "" {
		b.Status = entities.BookingStatusPending
		changed = true
	}
	if b.CreatedAt.IsZero() {
		now := time.Now().UTC()
		b.CreatedAt = now
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
		changed = true
	}
	return changed
}

var stringFields = map[string]bool{
	"name": true, "email": true, "phone": true, "date": true, "time": true,
	"style": true, "placement": true, "size": true, "description": true, "status": true,
}

// decodeRecord decodes one booking. When the record does not fit the
// schema its fields are coerced: numbers and booleans in text fields become
// strings, ids that are not UUIDs are dropped, and millisecond timestamps
// become times.
func decodeRecord(raw json.RawMessage) (*entities.Booking, bool, error) {
	var b entities.Booking
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b, false, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false, fmt.Errorf("record is not an object: %w", err)
	}
	for key, value := range fields {
		if fixed := coerceField(key, value); fixed != nil {
			fields[key] = fixed
		} else {
			delete(fields, key)
		}
	}

	fixed, err := json.Marshal(fields)
	if err != nil {
		return nil, false, err
	}
	b = entities.Booking{}
	if err := json.Unmarshal(fixed, &b); err != nil {
		return nil, false, err
	}
	return &b, true, nil
}

// coerceField returns the value to keep for key, or nil to drop it.
func coerceField(key string, value json.RawMessage) json.RawMessage {
	var v interface{}
	if err := json.Unmarshal(value, &v); err != nil {
		return nil
	}

	switch key {
	case "id":
		if s, ok := v.(string); ok {
			if _, err := uuid.Parse(s); err == nil {
				return value
			}
		}
		return nil
	case "created_at", "updated_at":
		switch t := v.(type) {
		case string:
			if _, err := time.Parse(time.RFC3339Nano, t); err == nil {
				return value
			}
		case float64:
			return mustMarshal(time.UnixMilli(int64(t)).UTC())
		}
		return nil
	}

	if !stringFields[key] {
		return value
	}
	switch t := v.(type) {
	case string:
		return value
	case float64:
		// The raw text keeps long phone numbers out of exponent notation.
		return mustMarshal(string(bytes.TrimSpace(value)))
	case bool:
		return mustMarshal(strconv.FormatBool(t))
	}
	return nil
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func (r *JSONRepository) reset() error {
	empty := []*entities.Booking{}
	if err := r.writeFile(empty); err != nil {
		return err
	}
	r.replace(empty)
	return nil
}

// writeFile replaces the file atomically via a temp file in the same
// directory.
func (r *JSONRepository) writeFile(bookings []*entities.Booking) (err error) {
	start := time.Now()
	defer func() {
		r.logger.LogStoreWrite("json", len(bookings), float64(time.Since(start).Microseconds())/1000, err)
	}()

	if bookings == nil {
		bookings = []*entities.Booking{}
	}
	data, err := json.MarshalIndent(bookings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bookings: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bookings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bookings-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace bookings file: %w", err)
	}
	return nil
}

// Ping checks that the file is still reachable.
func (r *JSONRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(r.path); err != nil {
		return fmt.Errorf("bookings file: %w", err)
	}
	return nil
}
