// Package recorder owns the single in-flight audio recording of a pipeline
// and commits finished recordings into a memory's audio artifact.
package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rcliao/voice-memories/internal/model"
	"github.com/rcliao/voice-memories/internal/permission"
	"github.com/rcliao/voice-memories/internal/transcriber"
)

// Store is the part of the memory store the recorder uses.
type Store interface {
	Dir() string
	Exists(id string) bool
	ReplaceAudio(id, scratchPath string) error
}

// Transcriber starts a transcription of a memory's committed audio.
type Transcriber interface {
	Transcribe(id string) *transcriber.Job
}

// State is the recorder's state.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Session describes the active recording.
type Session struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	Scratch   string    `json:"scratch"`
	StartedAt time.Time `json:"started_at"`

	capture Capture
	stop    chan struct{}
}

// Recorder runs at most one recording at a time. Begin and Finish may be
// called from any goroutine; a device interruption finishes the session on
// its own, exactly once.
type Recorder struct {
	store       Store
	device      Device
	player      Player
	transcriber Transcriber
	perms       permission.Checker
	logger      zerolog.Logger

	mu      sync.Mutex
	session *Session
}

// New creates a recorder. player may be nil.
func New(store Store, device Device, player Player, tr Transcriber, perms permission.Checker, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:       store,
		device:      device,
		player:      player,
		transcriber: tr,
		perms:       perms,
		logger:      logger,
	}
}

// State returns whether a recording is active.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return Recording
	}
	return Idle
}

// Active returns a copy of the active session.
func (r *Recorder) Active() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return Session{}, false
	}
	return Session{
		ID:        r.session.ID,
		Target:    r.session.Target,
		Scratch:   r.session.Scratch,
		StartedAt: r.session.StartedAt,
	}, true
}

// Begin starts recording a voice note for target. Any playback is stopped
// first. A second Begin while recording fails with ErrRecordingActive and
// leaves the active recording alone.
func (r *Recorder) Begin(ctx context.Context, target string) (Session, error) {
	if err := permission.Require(r.perms, permission.Microphone); err != nil {
		return Session{}, err
	}
	if !r.store.Exists(target) {
		return Session{}, fmt.Errorf("memory %s: %w", target, model.ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return Session{}, fmt.Errorf("%w: recording into %s", model.ErrRecordingActive, r.session.Target)
	}

	if r.player != nil {
		r.player.Stop()
	}

	id := uuid.NewString()
	sess := &Session{
		ID:        id,
		Target:    target,
		Scratch:   filepath.Join(r.store.Dir(), ".recording-"+id+model.Suffixes[model.ArtifactAudio]),
		StartedAt: time.Now().UTC(),
		stop:      make(chan struct{}),
	}
	r.session = sess

	log := r.logger.With().Str("memory", target).Str("session", id).Logger()

	capture, err := r.device.Open(ctx, sess.Scratch)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start recording")
		r.finishLocked(false)
		return Session{}, fmt.Errorf("%w: %v", model.ErrDeviceUnavailable, err)
	}
	sess.capture = capture

	go r.watch(sess)

	log.Info().Msg("Recording started")
	return Session{ID: sess.ID, Target: sess.Target, Scratch: sess.Scratch, StartedAt: sess.StartedAt}, nil
}

// Finish stops the active recording. With success false the recording is
// thrown away and no memory is touched. With success true it replaces the
// target memory's audio, and only once that has succeeded a transcription
// is started; its job is returned.
func (r *Recorder) Finish(success bool) (*transcriber.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finishLocked(success)
}

func (r *Recorder) finishLocked(success bool) (*transcriber.Job, error) {
	sess := r.session
	if sess == nil {
		return nil, model.ErrNotRecording
	}
	r.session = nil
	close(sess.stop)

	log := r.logger.With().Str("memory", sess.Target).Str("session", sess.ID).Logger()

	var stopErr error
	if sess.capture != nil {
		stopErr = sess.capture.Stop()
	}

	if !success || stopErr != nil {
		r.discard(sess)
		if success {
			log.Error().Err(stopErr).Msg("Recording failed")
			return nil, fmt.Errorf("%w: %v", model.ErrDeviceUnavailable, stopErr)
		}
		log.Info().Msg("Recording discarded")
		return nil, nil
	}

	if err := r.store.ReplaceAudio(sess.Target, sess.Scratch); err != nil {
		log.Error().Err(err).Msg("Failed to complete recording")
		r.discard(sess)
		return nil, err
	}

	log.Info().Dur("length", time.Since(sess.StartedAt)).Msg("Recording committed")
	return r.transcriber.Transcribe(sess.Target), nil
}

// watch finishes the session as failed when the device reports an
// interruption, unless the session has already ended.
func (r *Recorder) watch(sess *Session) {
	select {
	case err, ok := <-sess.capture.Failed():
		if !ok {
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.session != sess {
			return
		}
		r.logger.Warn().
			Err(err).
			Str("memory", sess.Target).
			Str("session", sess.ID).
			Msg("Recording interrupted")
		r.finishLocked(false)
	case <-sess.stop:
	}
}

func (r *Recorder) discard(sess *Session) {
	if err := os.Remove(sess.Scratch); err != nil && !os.IsNotExist(err) {
		r.logger.Warn().Err(err).Str("path", sess.Scratch).Msg("Failed to remove scratch recording")
	}
}
