package slots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"jukebox/internal/config"
)

// ErrNotFound indicates the addressed slot is empty or does not exist.
var ErrNotFound = errors.New("slot not found")

// Store manages slot persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open creates or opens the slot database for the given configuration.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("slots: config is required")
	}
	path := cfg.DatabasePath()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	// The pragmas ride in the DSN so every connection database/sql opens
	// gets them, not just the one that ran a PRAGMA statement.
	dsn := "file:" + path +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open slot database: %w", err)
	}

	store := &Store{db: db, path: path}
	ctx := context.Background()
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	delay := busyRetryInitialBackoff
	var (
		res     sql.Result
		execErr error
	)
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		if execErr == nil || !isSQLiteBusy(execErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return res, execErr
}

const trackColumns = "number, name, audio_path, created_at, updated_at"

// PutTrack installs or replaces the content of a track slot in one visible step.
func (s *Store) PutTrack(ctx context.Context, number int, name, audioPath string) (*TrackSlot, error) {
	if number < 0 {
		return nil, fmt.Errorf("slots: invalid track number %d", number)
	}
	if strings.TrimSpace(audioPath) == "" {
		return nil, errors.New("slots: audio path is required")
	}
	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx, `
		INSERT INTO track_slots (number, name, audio_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			name = excluded.name,
			audio_path = excluded.audio_path,
			updated_at = excluded.updated_at`,
		number, name, audioPath, stamp, stamp)
	if err != nil {
		return nil, fmt.Errorf("put track %d: %w", number, err)
	}
	return s.GetTrack(ctx, number)
}

// GetTrack returns the track slot for number, or ErrNotFound when empty.
func (s *Store) GetTrack(ctx context.Context, number int) (*TrackSlot, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+trackColumns+" FROM track_slots WHERE number = ?", number)
	slot, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("track %d: %w", number, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get track %d: %w", number, err)
	}
	return slot, nil
}

// ListTracks returns all occupied track slots ordered by number.
func (s *Store) ListTracks(ctx context.Context) ([]*TrackSlot, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+trackColumns+" FROM track_slots ORDER BY number")
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*TrackSlot
	for rows.Next() {
		slot, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, slot)
	}
	return tracks, rows.Err()
}

// OccupiedTrackNumbers returns the numbers of all occupied track slots.
func (s *Store) OccupiedTrackNumbers(ctx context.Context) ([]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT number FROM track_slots ORDER BY number")
	if err != nil {
		return nil, fmt.Errorf("occupied track numbers: %w", err)
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var number int
		if err := rows.Scan(&number); err != nil {
			return nil, fmt.Errorf("scan track number: %w", err)
		}
		numbers = append(numbers, number)
	}
	return numbers, rows.Err()
}

// DeleteTrack clears a track slot and returns the audio path it held.
// The caller owns removal of the underlying file.
func (s *Store) DeleteTrack(ctx context.Context, number int) (string, error) {
	ctx = ensureContext(ctx)
	var audioPath string
	err := s.db.QueryRowContext(ctx,
		"DELETE FROM track_slots WHERE number = ? RETURNING audio_path", number).Scan(&audioPath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete track %d: %w", number, err)
	}
	return audioPath, nil
}

const sampleColumns = "bank, key, name, audio_path, created_at, updated_at"

// PutSample installs or replaces the content of a sample slot in one visible step.
func (s *Store) PutSample(ctx context.Context, bank int, key, name, audioPath string) (*SampleSlot, error) {
	if bank < 0 {
		return nil, fmt.Errorf("slots: invalid bank %d", bank)
	}
	key = NormalizeSampleKey(key)
	if !ValidSampleKey(key) {
		return nil, fmt.Errorf("slots: invalid sample key %q", key)
	}
	if strings.TrimSpace(audioPath) == "" {
		return nil, errors.New("slots: audio path is required")
	}
	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx, `
		INSERT INTO sample_slots (bank, key, name, audio_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(bank, key) DO UPDATE SET
			name = excluded.name,
			audio_path = excluded.audio_path,
			updated_at = excluded.updated_at`,
		bank, key, name, audioPath, stamp, stamp)
	if err != nil {
		return nil, fmt.Errorf("put sample %d/%s: %w", bank, key, err)
	}
	return s.GetSample(ctx, bank, key)
}

// GetSample returns the sample slot for (bank, key), or ErrNotFound when empty.
func (s *Store) GetSample(ctx context.Context, bank int, key string) (*SampleSlot, error) {
	ctx = ensureContext(ctx)
	key = NormalizeSampleKey(key)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sampleColumns+" FROM sample_slots WHERE bank = ? AND key = ?", bank, key)
	slot, err := scanSample(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sample %d/%s: %w", bank, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get sample %d/%s: %w", bank, key, err)
	}
	return slot, nil
}

// ListSamples returns the occupied sample slots for one bank ordered by key.
func (s *Store) ListSamples(ctx context.Context, bank int) ([]*SampleSlot, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sampleColumns+" FROM sample_slots WHERE bank = ? ORDER BY key", bank)
	if err != nil {
		return nil, fmt.Errorf("list samples for bank %d: %w", bank, err)
	}
	defer rows.Close()
	return collectSamples(rows)
}

// ListAllSamples returns every occupied sample slot ordered by bank then key.
func (s *Store) ListAllSamples(ctx context.Context) ([]*SampleSlot, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sampleColumns+" FROM sample_slots ORDER BY bank, key")
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()
	return collectSamples(rows)
}

// DeleteSample clears a sample slot and returns the audio path it held.
func (s *Store) DeleteSample(ctx context.Context, bank int, key string) (string, error) {
	ctx = ensureContext(ctx)
	var audioPath string
	err := s.db.QueryRowContext(ctx,
		"DELETE FROM sample_slots WHERE bank = ? AND key = ? RETURNING audio_path",
		bank, NormalizeSampleKey(key)).Scan(&audioPath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete sample %d/%s: %w", bank, key, err)
	}
	return audioPath, nil
}

// Health captures diagnostic information about the slot database.
type Health struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TrackCount       int
	SampleCount      int
	Error            string
}

// CheckHealth inspects the database and reports slot counts and readability.
func (s *Store) CheckHealth(ctx context.Context) Health {
	ctx = ensureContext(ctx)
	health := Health{DBPath: s.path}

	if _, err := os.Stat(s.path); err == nil {
		health.DatabaseExists = true
	}

	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM track_slots").Scan(&health.TrackCount); err != nil {
		health.Error = err.Error()
		return health
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM sample_slots").Scan(&health.SampleCount); err != nil {
		health.Error = err.Error()
	}
	return health
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*TrackSlot, error) {
	var (
		slot      TrackSlot
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&slot.Number, &slot.Name, &slot.AudioPath, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	slot.CreatedAt = parseTimeString(createdAt)
	slot.UpdatedAt = parseTimeString(updatedAt)
	return &slot, nil
}

func scanSample(row rowScanner) (*SampleSlot, error) {
	var (
		slot      SampleSlot
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&slot.Bank, &slot.Key, &slot.Name, &slot.AudioPath, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	slot.CreatedAt = parseTimeString(createdAt)
	slot.UpdatedAt = parseTimeString(updatedAt)
	return &slot, nil
}

func collectSamples(rows *sql.Rows) ([]*SampleSlot, error) {
	var samples []*SampleSlot
	for rows.Next() {
		slot, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, slot)
	}
	return samples, rows.Err()
}

func parseTimeString(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
