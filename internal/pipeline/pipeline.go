// Package pipeline wires the memory store, recorder, transcriber and search
// index together. A Pipeline is owned by whatever drives the UI; there is no
// process-wide instance.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/voice-memories/internal/index"
	"github.com/rcliao/voice-memories/internal/model"
	"github.com/rcliao/voice-memories/internal/permission"
	"github.com/rcliao/voice-memories/internal/recorder"
	"github.com/rcliao/voice-memories/internal/store"
	"github.com/rcliao/voice-memories/internal/transcriber"
)

// IndexFile is the index database name used when Options.IndexPath is empty.
const IndexFile = ".index.db"

// Options configures a Pipeline.
type Options struct {
	Dir       string
	IndexPath string
	Store     store.Options

	Device      recorder.Device
	Player      recorder.Player
	Recognizer  transcriber.Recognizer
	Permissions permission.Checker

	TranscribeTimeout time.Duration
	Logger            zerolog.Logger
}

// Pipeline is one memory library with its recording session.
type Pipeline struct {
	Store       *store.Store
	Index       *index.SQLiteIndex
	Recorder    *recorder.Recorder
	Transcriber *transcriber.Transcriber

	player recorder.Player
	perms  permission.Checker
	logger zerolog.Logger
}

// New opens the memory directory and its index and builds the pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Dir == "" {
		return nil, errors.New("memory directory is required")
	}
	if opts.IndexPath == "" {
		opts.IndexPath = filepath.Join(opts.Dir, IndexFile)
	}
	if opts.Device == nil {
		opts.Device = recorder.NoDevice{}
	}
	if opts.Permissions == nil {
		opts.Permissions = permission.All()
	}
	if opts.Recognizer == nil {
		return nil, errors.New("speech recognizer is required")
	}

	st, err := store.New(opts.Dir, opts.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	idx, err := index.NewSQLiteIndex(opts.IndexPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}

	tr := transcriber.New(st, idx, opts.Recognizer, opts.Permissions,
		opts.Logger.With().Str("component", "transcriber").Logger(),
		transcriber.Options{Timeout: opts.TranscribeTimeout})
	rec := recorder.New(st, opts.Device, opts.Player, tr, opts.Permissions,
		opts.Logger.With().Str("component", "recorder").Logger())

	return &Pipeline{
		Store:       st,
		Index:       idx,
		Recorder:    rec,
		Transcriber: tr,
		player:      opts.Player,
		perms:       opts.Permissions,
		logger:      opts.Logger,
	}, nil
}

// CreateMemory stores a new memory from a captured photo.
func (p *Pipeline) CreateMemory(ctx context.Context, imageData []byte) (*model.Memory, error) {
	if err := permission.Require(p.perms, permission.Photos); err != nil {
		return nil, err
	}
	m, err := p.Store.Create(ctx, imageData)
	if err != nil {
		return nil, err
	}
	p.logger.Info().Str("memory", m.ID).Msg("Memory created")
	return m, nil
}

// ListMemories returns every memory id.
func (p *Pipeline) ListMemories(ctx context.Context) ([]string, error) {
	return p.Store.List(ctx)
}

// Memory resolves one memory's artifacts.
func (p *Pipeline) Memory(id string) (*model.Memory, error) {
	return p.Store.Get(id)
}

// Resolve turns ids, such as search results, into memories. Ids whose
// memory no longer exists are skipped.
func (p *Pipeline) Resolve(ids []string) []model.Memory {
	out := make([]model.Memory, 0, len(ids))
	for _, id := range ids {
		m, err := p.Store.Get(id)
		if err != nil {
			continue
		}
		out = append(out, *m)
	}
	return out
}

// ReadTranscript returns a memory's transcript, or ErrNotFound.
func (p *Pipeline) ReadTranscript(id string) (string, error) {
	return p.Store.ReadTranscript(id)
}

// BeginRecording starts a voice note for a memory.
func (p *Pipeline) BeginRecording(ctx context.Context, id string) (recorder.Session, error) {
	return p.Recorder.Begin(ctx, id)
}

// FinishRecording ends the voice note; see recorder.Recorder.Finish.
func (p *Pipeline) FinishRecording(success bool) (*transcriber.Job, error) {
	return p.Recorder.Finish(success)
}

// Transcribe re-runs transcription of a memory's current audio.
func (p *Pipeline) Transcribe(id string) *transcriber.Job {
	return p.Transcriber.Transcribe(id)
}

// NewSearcher returns a searcher for one caller.
func (p *Pipeline) NewSearcher(fuzzy bool) *index.Searcher {
	var q index.Querier = p.Index
	if fuzzy {
		q = index.Fuzzy{Index: p.Index}
	}
	return index.NewSearcher(q, p.Store, p.logger.With().Str("component", "search").Logger())
}

// Play starts playback of a memory's audio, if it has any and a player is
// configured, and returns its transcript ("" when there is none yet).
// Playback is refused while recording.
func (p *Pipeline) Play(id string) (string, error) {
	if p.Recorder.State() == recorder.Recording {
		return "", model.ErrRecordingActive
	}
	if !p.Store.Exists(id) {
		return "", fmt.Errorf("memory %s: %w", id, model.ErrNotFound)
	}
	if p.player != nil && p.Store.AudioExists(id) {
		if err := p.player.Play(p.Store.Path(id, model.ArtifactAudio)); err != nil {
			p.logger.Warn().Err(err).Str("memory", id).Msg("Error loading audio")
		}
	}

	text, err := p.Store.ReadTranscript(id)
	if errors.Is(err, model.ErrNotFound) {
		return "", nil
	}
	return text, err
}

// Reindex rebuilds the search index from the transcript files.
func (p *Pipeline) Reindex(ctx context.Context) (int, error) {
	docs, err := p.Store.Transcripts(ctx)
	if err != nil {
		return 0, err
	}
	n, err := p.Index.Rebuild(ctx, docs)
	if err != nil {
		return 0, err
	}
	p.logger.Info().Int("documents", n).Msg("Index rebuilt")
	return n, nil
}

// Stats combines store and index statistics.
type Stats struct {
	Store     *store.Stats `json:"store"`
	Index     *index.Stats `json:"index"`
	Recording string       `json:"recording"`
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats(ctx context.Context) (*Stats, error) {
	ss, err := p.Store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	is, err := p.Index.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Store: ss, Index: is, Recording: p.Recorder.State().String()}, nil
}

// Close discards any active recording, waits for transcriptions and closes
// the index and store.
func (p *Pipeline) Close() error {
	if _, err := p.Recorder.Finish(false); err != nil && !errors.Is(err, model.ErrNotRecording) {
		p.logger.Warn().Err(err).Msg("Failed to discard recording")
	}
	if p.player != nil {
		p.player.Stop()
	}
	p.Transcriber.Wait()
	p.Transcriber.Close()

	err := p.Index.Close()
	if cerr := p.Store.Close(); err == nil {
		err = cerr
	}
	return err
}
