// Package transcriber turns a memory's committed audio into a transcript in
// the background, then stores and indexes it.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/voice-memories/internal/model"
	"github.com/rcliao/voice-memories/internal/permission"
)

// Result is one step of a recognition. Every successful recognition ends
// with exactly one Final result.
type Result struct {
	Text  string
	Final bool
}

// Recognizer converts recorded speech to text. The returned sequence yields
// partial results and then one final result, or stops with an error.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) iter.Seq2[Result, error]
}

// Store is the part of the memory store the transcriber uses.
type Store interface {
	ReadAudio(id string) ([]byte, error)
	WriteTranscript(id, text string) error
	Path(id string, kind model.ArtifactKind) string
}

// Publisher receives finished transcripts.
type Publisher interface {
	Publish(ctx context.Context, doc model.Document) error
}

// Options configures a Transcriber.
type Options struct {
	// Timeout bounds one recognition. Zero means no limit.
	Timeout time.Duration
}

// Transcriber runs transcriptions. Jobs for the same memory run one at a
// time in the order they were requested, and only the newest one's result
// is written; jobs for different memories run concurrently.
type Transcriber struct {
	store      Store
	index      Publisher
	recognizer Recognizer
	perms      permission.Checker
	logger     zerolog.Logger
	opts       Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	lanes map[string]*lane
}

// lane serializes the jobs of one memory.
type lane struct {
	run     sync.Mutex
	latest  uint64
	pending int
}

// New creates a transcriber.
func New(store Store, index Publisher, recognizer Recognizer, perms permission.Checker, logger zerolog.Logger, opts Options) *Transcriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &Transcriber{
		store:      store,
		index:      index,
		recognizer: recognizer,
		perms:      perms,
		logger:     logger,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
		lanes:      map[string]*lane{},
	}
}

// Transcribe starts transcribing a memory's current audio and returns
// without waiting. The audio is read before Transcribe returns, so the
// transcript always matches the recording that was committed at call time.
func (t *Transcriber) Transcribe(id string) *Job {
	job := newJob(id)
	log := t.logger.With().Str("memory", id).Logger()

	if err := permission.Require(t.perms, permission.Speech); err != nil {
		log.Warn().Err(err).Msg("Transcription not started")
		job.finish(Outcome{MemoryID: id}, err)
		return job
	}

	audio, err := t.store.ReadAudio(id)
	if err != nil {
		log.Error().Err(err).Msg("Transcription not started")
		job.finish(Outcome{MemoryID: id}, err)
		return job
	}

	t.mu.Lock()
	if err := t.ctx.Err(); err != nil {
		t.mu.Unlock()
		job.finish(Outcome{MemoryID: id}, fmt.Errorf("%w: transcriber closed", model.ErrRecognition))
		return job
	}
	l := t.lanes[id]
	if l == nil {
		l = &lane{}
		t.lanes[id] = l
	}
	l.latest++
	l.pending++
	job.seq = l.latest
	t.wg.Add(1)
	t.mu.Unlock()

	go t.run(job, l, audio)
	return job
}

func (t *Transcriber) run(job *Job, l *lane, audio []byte) {
	defer t.wg.Done()
	defer t.release(job.memoryID, l)

	l.run.Lock()
	defer l.run.Unlock()

	log := t.logger.With().Str("memory", job.memoryID).Logger()
	outcome := Outcome{MemoryID: job.memoryID}

	if !t.isLatest(l, job.seq) {
		log.Debug().Msg("Skipping superseded transcription")
		job.finish(outcome, model.ErrSuperseded)
		return
	}

	ctx := t.ctx
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	started := time.Now()
	text, err := t.recognize(ctx, audio)
	if err != nil {
		log.Error().Err(err).Msg("Transcription failed")
		job.finish(outcome, err)
		return
	}

	if !t.isLatest(l, job.seq) {
		log.Debug().Msg("Dropping superseded transcript")
		job.finish(outcome, model.ErrSuperseded)
		return
	}

	if err := t.store.WriteTranscript(job.memoryID, text); err != nil {
		log.Error().Err(err).Msg("Failed to save transcript")
		job.finish(outcome, err)
		return
	}
	outcome.Text = text

	doc := model.Document{
		MemoryID:  job.memoryID,
		Text:      text,
		Thumbnail: t.store.Path(job.memoryID, model.ArtifactThumbnail),
	}
	if err := t.index.Publish(ctx, doc); err != nil {
		// The transcript file stays; the index catches up on the next rebuild.
		log.Warn().Err(err).Msg("Indexing failed")
		outcome.IndexErr = err
	} else {
		outcome.Indexed = true
	}

	log.Info().
		Int("chars", len(text)).
		Dur("took", time.Since(started)).
		Bool("indexed", outcome.Indexed).
		Msg("Transcription saved")
	job.finish(outcome, nil)
}

func (t *Transcriber) recognize(ctx context.Context, audio []byte) (string, error) {
	for r, err := range t.recognizer.Recognize(ctx, audio) {
		if err != nil {
			if errors.Is(err, model.ErrRecognition) {
				return "", err
			}
			return "", fmt.Errorf("%w: %w", model.ErrRecognition, err)
		}
		if r.Final {
			return r.Text, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrRecognition, err)
	}
	return "", fmt.Errorf("%w: ended without a final result", model.ErrRecognition)
}

func (t *Transcriber) isLatest(l *lane, seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return l.latest == seq
}

func (t *Transcriber) release(id string, l *lane) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.pending--
	if l.pending == 0 && t.lanes[id] == l {
		delete(t.lanes, id)
	}
}

// Wait blocks until every started job has finished.
func (t *Transcriber) Wait() {
	t.wg.Wait()
}

// Close cancels in-flight recognitions and waits for their jobs to finish.
func (t *Transcriber) Close() error {
	t.mu.Lock()
	t.cancel()
	t.mu.Unlock()
	t.wg.Wait()
	return nil
}
