// Package watcher keeps the search index in step with transcript files that
// change outside the pipeline, such as edits or deletions by hand.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog"

	"github.com/rcliao/voice-memories/internal/model"
)

// DefaultDebounce is how long the watcher waits after the last change to a
// memory before syncing it.
const DefaultDebounce = 500 * time.Millisecond

// Store is the part of the memory store the watcher uses.
type Store interface {
	Exists(id string) bool
	ReadTranscript(id string) (string, error)
	Invalidate(id string)
	Path(id string, kind model.ArtifactKind) string
}

// Index is the part of the search index the watcher updates.
type Index interface {
	Publish(ctx context.Context, doc model.Document) error
	Delete(ctx context.Context, id string) error
}

// Watcher watches a memory directory.
type Watcher struct {
	watcher  *fsnotify.Watcher
	store    Store
	index    Index
	logger   zerolog.Logger
	debounce time.Duration
	matches  glob.Glob

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
	stopCh chan struct{}
	// synced is called after each sync, for tests.
	synced func(id string)
}

// New creates a watcher on dir.
func New(dir string, store Store, index Index, logger zerolog.Logger, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	pattern := "*{" + model.Suffixes[model.ArtifactTranscript] + "," + model.Suffixes[model.ArtifactThumbnail] + "}"
	matches, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  fw,
		store:    store,
		index:    index,
		logger:   logger,
		debounce: debounce,
		matches:  matches,
		timers:   map[string]*time.Timer{},
		stopCh:   make(chan struct{}),
	}, nil
}

// Run processes file system events until ctx is done or Stop is called.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("File watcher error")

		case <-ctx.Done():
			w.Stop()
			return ctx.Err()

		case <-w.stopCh:
			return nil
		}
	}
}

// Stop stops the watcher and waits for pending syncs to run.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	select {
	case <-w.stopCh:
		w.mu.Unlock()
		return nil
	default:
	}
	close(w.stopCh)
	for id, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, id)
	}
	w.mu.Unlock()

	w.wg.Wait()
	return w.watcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !w.matches.Match(name) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	id := strings.TrimSuffix(name, filepath.Ext(name))
	w.logger.Debug().
		Str("file", name).
		Str("op", event.Op.String()).
		Msg("File change detected")
	w.schedule(id)
}

// schedule debounces syncs per memory.
func (w *Watcher) schedule(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.stopCh:
		return
	default:
	}

	if t, ok := w.timers[id]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[id] == t {
			delete(w.timers, id)
		}
		w.mu.Unlock()
		w.sync(id)
	})
	w.timers[id] = t
}

// sync republishes a memory's transcript, or removes its document when the
// memory or its transcript is gone.
func (w *Watcher) sync(id string) {
	ctx := context.Background()
	log := w.logger.With().Str("memory", id).Logger()

	w.store.Invalidate(id)
	text, err := w.store.ReadTranscript(id)
	switch {
	case err == nil && w.store.Exists(id):
		doc := model.Document{MemoryID: id, Text: text, Thumbnail: w.store.Path(id, model.ArtifactThumbnail)}
		if err := w.index.Publish(ctx, doc); err != nil {
			log.Warn().Err(err).Msg("Indexing failed")
		} else {
			log.Debug().Msg("Transcript reindexed")
		}
	case err == nil || errors.Is(err, model.ErrNotFound):
		if err := w.index.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Msg("Failed to drop document")
		} else {
			log.Debug().Msg("Document dropped")
		}
	default:
		log.Warn().Err(err).Msg("Failed to read transcript")
	}

	if w.synced != nil {
		w.synced(id)
	}
}
