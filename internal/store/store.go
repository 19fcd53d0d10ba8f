// Package store maps memory identifiers to their artifacts on disk.
//
// A memory owns up to four files in one directory, all named after the
// memory id and told apart by suffix: <id>.jpg, <id>.thumb, <id>.m4a and
// <id>.txt. The id is the storage key; there is no separate table.
package store

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/gobwas/glob"
	"github.com/oklog/ulid/v2"

	"github.com/rcliao/voice-memories/internal/model"
)

const (
	DefaultThumbnailWidth = 200
	DefaultJPEGQuality    = 80
	DefaultCacheMaxCost   = 8 << 20

	idPrefix = "memory-"
)

// Options configures a Store.
type Options struct {
	ThumbnailWidth int
	JPEGQuality    int
	CacheMaxCost   int64
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		ThumbnailWidth: DefaultThumbnailWidth,
		JPEGQuality:    DefaultJPEGQuality,
		CacheMaxCost:   DefaultCacheMaxCost,
	}
}

// Store is a directory of memories.
type Store struct {
	dir    string
	opts   Options
	thumbs glob.Glob
	cache  *ristretto.Cache

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New opens or creates a memory directory.
func New(dir string, opts Options) (*Store, error) {
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = DefaultThumbnailWidth
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if opts.CacheMaxCost <= 0 {
		opts.CacheMaxCost = DefaultCacheMaxCost
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     opts.CacheMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create transcript cache: %w", err)
	}

	return &Store{
		dir:     dir,
		opts:    opts,
		thumbs:  glob.MustCompile("*" + model.Suffixes[model.ArtifactThumbnail]),
		cache:   cache,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}, nil
}

// Dir returns the memory directory.
func (s *Store) Dir() string { return s.dir }

// Options returns the effective store options.
func (s *Store) Options() Options { return s.opts }

// Close releases the transcript cache.
func (s *Store) Close() error {
	s.cache.Close()
	return nil
}

func (s *Store) newID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), s.entropy)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return idPrefix + id.String(), nil
}

// ValidID reports whether id can name a memory: non-empty, no path
// separators, not hidden.
func ValidID(id string) error {
	if id == "" || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return fmt.Errorf("%w: %q", model.ErrInvalidID, id)
	}
	return nil
}

// Path derives the location of one artifact of a memory. It does no I/O.
func (s *Store) Path(id string, kind model.ArtifactKind) string {
	return filepath.Join(s.dir, id+model.Suffixes[kind])
}

func (s *Store) exists(id string, kind model.ArtifactKind) bool {
	if ValidID(id) != nil {
		return false
	}
	info, err := os.Stat(s.Path(id, kind))
	return err == nil && info.Mode().IsRegular()
}

// Exists reports whether the memory has a thumbnail, the marker of a
// complete memory.
func (s *Store) Exists(id string) bool { return s.exists(id, model.ArtifactThumbnail) }

// AudioExists reports whether the memory has a committed recording.
func (s *Store) AudioExists(id string) bool { return s.exists(id, model.ArtifactAudio) }

// TranscriptExists reports whether the memory has a transcript.
func (s *Store) TranscriptExists(id string) bool { return s.exists(id, model.ArtifactTranscript) }

// List returns the ids of every memory with a thumbnail, in directory order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", model.ErrStorageRead, s.dir, err)
	}

	ids := []string{}
	suffix := model.Suffixes[model.ArtifactThumbnail]
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !s.thumbs.Match(name) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, suffix))
	}
	return ids, nil
}

// Get resolves a memory's artifact paths and which of them are present.
func (s *Store) Get(id string) (*model.Memory, error) {
	if err := ValidID(id); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.Path(id, model.ArtifactThumbnail))
	if err != nil {
		return nil, fmt.Errorf("memory %s: %w", id, model.ErrNotFound)
	}

	m := &model.Memory{
		ID:            id,
		ImagePath:     s.Path(id, model.ArtifactImage),
		ThumbnailPath: s.Path(id, model.ArtifactThumbnail),
		HasAudio:      s.AudioExists(id),
		HasTranscript: s.TranscriptExists(id),
		CreatedAt:     createdAt(id, info.ModTime()),
	}
	if m.HasAudio {
		m.AudioPath = s.Path(id, model.ArtifactAudio)
	}
	if m.HasTranscript {
		m.TranscriptPath = s.Path(id, model.ArtifactTranscript)
	}
	return m, nil
}

// createdAt reads the creation time out of a ULID-based id, falling back to
// the given time for ids minted some other way.
func createdAt(id string, fallback time.Time) time.Time {
	u, err := ulid.ParseStrict(strings.TrimPrefix(id, idPrefix))
	if err != nil {
		return fallback.UTC()
	}
	return ulid.Time(u.Time()).UTC()
}
