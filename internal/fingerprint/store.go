package fingerprint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/loomaudio/streamcore/internal/config"
	streamerrors "github.com/loomaudio/streamcore/internal/errors"
	"github.com/loomaudio/streamcore/internal/logging"
)

// entryModel is the GORM row for one fingerprint DB entry: `id →
// (metadata, fingerprint)` per spec §4.5/§6.
type entryModel struct {
	ID         string `gorm:"primaryKey"`
	Title      string
	Artist     string
	Album      string
	HashesJSON []byte `gorm:"type:blob"`
	Duration   float64
	SampleRate int
	CreatedAt  time.Time
	AddedAt    time.Time
}

// Entry is an in-memory fingerprint DB record, mirroring entryModel
// without the GORM tags.
type Entry struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Artist      string       `json:"artist"`
	Album       string       `json:"album,omitempty"`
	Fingerprint *Fingerprint `json:"fingerprint"`
	AddedAt     time.Time    `json:"added_at"`
}

// DB is the fingerprint database of spec §4.5/§6: GORM/SQLite-backed
// persistence, a single mutex guarding add/remove/snapshot-for-recognize
// (spec §5's "Fingerprint DB: single mutex" rule), and a query cache for
// repeated recognize calls against the same candidate snapshot.
type DB struct {
	mu    sync.Mutex
	gdb   *gorm.DB
	cache *queryCache
}

// Open creates or migrates a SQLite-backed fingerprint database at path,
// following the teacher's pragma-tuning-for-writes pattern.
func Open(path string) (*DB, error) {
	log := logging.ForComponent("fingerprint.store")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, streamerrors.New(err).Component("fingerprint").
				Category(streamerrors.CategoryResourceAlloc).Context("path", path).Build()
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, streamerrors.New(err).Component("fingerprint").
			Category(streamerrors.CategoryResourceAlloc).Context("path", path).Build()
	}

	sqlDB, err := gdb.DB()
	if err == nil {
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
		} {
			if _, err := sqlDB.Exec(pragma); err != nil {
				log.Warn("failed to set pragma", "pragma", pragma, "error", err)
			}
		}
	}

	if err := gdb.AutoMigrate(&entryModel{}); err != nil {
		return nil, streamerrors.New(err).Component("fingerprint").
			Category(streamerrors.CategoryResourceAlloc).Context("operation", "automigrate").Build()
	}

	return &DB{gdb: gdb, cache: newQueryCache()}, nil
}

// Add inserts or replaces entry id's fingerprint.
func (d *DB) Add(e Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	hashesJSON, err := json.Marshal(e.Fingerprint.Hashes)
	if err != nil {
		return streamerrors.New(err).Component("fingerprint").Category(streamerrors.CategoryGeneric).Build()
	}
	row := entryModel{
		ID:         e.ID,
		Title:      e.Title,
		Artist:     e.Artist,
		Album:      e.Album,
		HashesJSON: hashesJSON,
		Duration:   e.Fingerprint.Duration,
		SampleRate: e.Fingerprint.SampleRate,
		CreatedAt:  e.Fingerprint.CreatedAt,
		AddedAt:    e.AddedAt,
	}
	if err := d.gdb.Save(&row).Error; err != nil {
		return streamerrors.New(err).Component("fingerprint").Category(streamerrors.CategoryGeneric).Build()
	}
	d.cache.invalidateAll()
	return nil
}

// Remove deletes entry id, if present.
func (d *DB) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.gdb.Delete(&entryModel{}, "id = ?", id).Error; err != nil {
		return streamerrors.New(err).Component("fingerprint").Category(streamerrors.CategoryGeneric).Build()
	}
	d.cache.invalidateAll()
	return nil
}

// Snapshot returns every stored fingerprint keyed by ID, for a single
// recognize/search pass, per spec §5's "snapshot-for-recognize" rule.
func (d *DB) Snapshot() (map[string]*Fingerprint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var rows []entryModel
	if err := d.gdb.Find(&rows).Error; err != nil {
		return nil, streamerrors.New(err).Component("fingerprint").Category(streamerrors.CategoryGeneric).Build()
	}
	out := make(map[string]*Fingerprint, len(rows))
	for _, row := range rows {
		var hashes []Hash
		if err := json.Unmarshal(row.HashesJSON, &hashes); err != nil {
			continue
		}
		out[row.ID] = &Fingerprint{
			Hashes:     hashes,
			Duration:   row.Duration,
			SampleRate: row.SampleRate,
			CreatedAt:  row.CreatedAt,
		}
	}
	return out, nil
}

// Entries returns every stored entry with its full metadata, for export.
func (d *DB) Entries() ([]Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var rows []entryModel
	if err := d.gdb.Find(&rows).Error; err != nil {
		return nil, streamerrors.New(err).Component("fingerprint").Category(streamerrors.CategoryGeneric).Build()
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		var hashes []Hash
		if err := json.Unmarshal(row.HashesJSON, &hashes); err != nil {
			continue
		}
		out = append(out, Entry{
			ID:     row.ID,
			Title:  row.Title,
			Artist: row.Artist,
			Album:  row.Album,
			Fingerprint: &Fingerprint{
				Hashes:     hashes,
				Duration:   row.Duration,
				SampleRate: row.SampleRate,
				CreatedAt:  row.CreatedAt,
			},
			AddedAt: row.AddedAt,
		})
	}
	return out, nil
}

// Recognize snapshots the DB and scores query against every candidate,
// per spec §4.5's matching algorithm, caching the ranked result under a
// key derived from the query's hash set and minScore so repeated
// identical queries (e.g. a UI polling recognize against a held buffer)
// skip rescoring every candidate until the DB next changes.
func (d *DB) Recognize(query *Fingerprint, minScore float64, eng *config.Engine) ([]Match, error) {
	key := cacheKey(query, minScore)
	if cached, ok := d.cache.get(key); ok {
		return cached, nil
	}

	candidates, err := d.Snapshot()
	if err != nil {
		return nil, err
	}
	matches := Recognize(query, candidates, minScore, eng)
	d.cache.set(key, matches)
	return matches, nil
}

// exportFile is the on-disk JSON shape of spec §6's "Fingerprint
// on-disk" format, with a blake2b integrity checksum over the entry
// payload so Import can detect truncation or tampering.
type exportFile struct {
	Checksum string  `json:"checksum"`
	Entries  []Entry `json:"entries"`
}

// Export writes every stored entry to path as portable JSON, per spec
// §6's on-disk format, stamped with a blake2b-256 checksum.
func (d *DB) Export(path string) error {
	entries, err := d.Entries()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return streamerrors.New(err).Component("fingerprint").Category(streamerrors.CategoryGeneric).Build()
	}
	sum := blake2b.Sum256(payload)
	out := exportFile{Checksum: hexEncode(sum[:]), Entries: entries}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return streamerrors.New(err).Component("fingerprint").Category(streamerrors.CategoryGeneric).Build()
	}
	return os.WriteFile(path, data, 0o644)
}

// Import reads a file written by Export, verifies its checksum, and
// adds every entry to the DB.
func (d *DB) Import(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return streamerrors.New(err).Component("fingerprint").Category(streamerrors.CategoryGeneric).Build()
	}
	var in exportFile
	if err := json.Unmarshal(data, &in); err != nil {
		return streamerrors.New(err).Component("fingerprint").Category(streamerrors.CategoryGeneric).Build()
	}
	payload, err := json.Marshal(in.Entries)
	if err != nil {
		return streamerrors.New(err).Component("fingerprint").Category(streamerrors.CategoryGeneric).Build()
	}
	sum := blake2b.Sum256(payload)
	if hexEncode(sum[:]) != in.Checksum {
		return streamerrors.Newf("fingerprint: export checksum mismatch for %s", path).
			Component("fingerprint").Category(streamerrors.CategoryGeneric).Build()
	}
	for _, e := range in.Entries {
		if err := d.Add(e); err != nil {
			return err
		}
	}
	return nil
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = digits[v>>4]
		out[i*2+1] = digits[v&0xF]
	}
	return string(out)
}

// Close releases the underlying SQLite connection.
func (d *DB) Close() error {
	sqlDB, err := d.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
