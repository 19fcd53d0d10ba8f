package transcriber

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/voice-memories/internal/model"
	"github.com/rcliao/voice-memories/internal/permission"
)

type memStore struct {
	mu          sync.Mutex
	audio       map[string][]byte
	transcripts map[string]string
	writeErr    error
}

func newMemStore() *memStore {
	return &memStore{audio: map[string][]byte{}, transcripts: map[string]string{}}
}

func (s *memStore) setAudio(id, audio string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio[id] = []byte(audio)
}

func (s *memStore) transcript(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.transcripts[id]
	return text, ok
}

func (s *memStore) ReadAudio(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.audio[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return a, nil
}

func (s *memStore) WriteTranscript(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.transcripts[id] = text
	return nil
}

func (s *memStore) Path(id string, kind model.ArtifactKind) string {
	return "/memories/" + id + model.Suffixes[kind]
}

type memIndex struct {
	mu   sync.Mutex
	docs map[string]model.Document
	err  error
}

func newMemIndex() *memIndex { return &memIndex{docs: map[string]model.Document{}} }

func (x *memIndex) Publish(ctx context.Context, doc model.Document) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.err != nil {
		return x.err
	}
	x.docs[doc.MemoryID] = doc
	return nil
}

func (x *memIndex) doc(id string) (model.Document, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	d, ok := x.docs[id]
	return d, ok
}

// scriptRecognizer yields a fixed sequence of results.
type scriptRecognizer struct {
	results []Result
	err     error
}

func (r scriptRecognizer) Recognize(ctx context.Context, audio []byte) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		for _, res := range r.results {
			if !yield(res, nil) {
				return
			}
		}
		if r.err != nil {
			yield(Result{}, r.err)
		}
	}
}

// echoRecognizer transcribes audio as its own bytes. Audio listed in
// gates blocks until the gate closes.
type echoRecognizer struct {
	entered chan string
	gates   map[string]chan struct{}
}

func (r *echoRecognizer) Recognize(ctx context.Context, audio []byte) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		a := string(audio)
		if r.entered != nil {
			r.entered <- a
		}
		if gate, ok := r.gates[a]; ok {
			select {
			case <-gate:
			case <-ctx.Done():
				yield(Result{}, ctx.Err())
				return
			}
		}
		yield(Result{Text: a, Final: true}, nil)
	}
}

func waitJob(t *testing.T, job *Job) (Outcome, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return job.Wait(ctx)
}

func TestTranscribe_SavesFinalResultOnly(t *testing.T) {
	store := newMemStore()
	store.setAudio("m1", "audio")
	index := newMemIndex()

	tr := New(store, index, StaticRecognizer{Text: "hello there world"}, permission.All(), zerolog.Nop(), Options{})
	defer tr.Close()

	out, err := waitJob(t, tr.Transcribe("m1"))
	require.NoError(t, err)
	assert.Equal(t, "hello there world", out.Text)
	assert.True(t, out.Indexed)

	text, ok := store.transcript("m1")
	require.True(t, ok)
	assert.Equal(t, "hello there world", text)

	doc, ok := index.doc("m1")
	require.True(t, ok)
	assert.Equal(t, "hello there world", doc.Text)
	assert.Equal(t, "/memories/m1.thumb", doc.Thumbnail)
}

func TestTranscribe_NoFinalResult(t *testing.T) {
	store := newMemStore()
	store.setAudio("m1", "audio")
	store.transcripts["m1"] = "previous"
	index := newMemIndex()

	rec := scriptRecognizer{results: []Result{{Text: "hel"}, {Text: "hello"}}}
	tr := New(store, index, rec, permission.All(), zerolog.Nop(), Options{})
	defer tr.Close()

	_, err := waitJob(t, tr.Transcribe("m1"))
	require.ErrorIs(t, err, model.ErrRecognition)

	text, _ := store.transcript("m1")
	assert.Equal(t, "previous", text, "partial results must not be written")
	_, ok := index.doc("m1")
	assert.False(t, ok)
}

func TestTranscribe_RecognizerError(t *testing.T) {
	store := newMemStore()
	store.setAudio("m1", "audio")

	rec := scriptRecognizer{results: []Result{{Text: "partial"}}, err: errors.New("network down")}
	tr := New(store, newMemIndex(), rec, permission.All(), zerolog.Nop(), Options{})
	defer tr.Close()

	_, err := waitJob(t, tr.Transcribe("m1"))
	require.ErrorIs(t, err, model.ErrRecognition)
	assert.Contains(t, err.Error(), "network down")

	_, ok := store.transcript("m1")
	assert.False(t, ok)
}

func TestTranscribe_IndexFailureKeepsTranscript(t *testing.T) {
	store := newMemStore()
	store.setAudio("m1", "audio")
	index := newMemIndex()
	index.err = model.ErrIndex

	tr := New(store, index, StaticRecognizer{Text: "hello"}, permission.All(), zerolog.Nop(), Options{})
	defer tr.Close()

	out, err := waitJob(t, tr.Transcribe("m1"))
	require.NoError(t, err)
	assert.False(t, out.Indexed)
	assert.ErrorIs(t, out.IndexErr, model.ErrIndex)

	text, ok := store.transcript("m1")
	require.True(t, ok)
	assert.Equal(t, "hello", text)
}

func TestTranscribe_WriteFailure(t *testing.T) {
	store := newMemStore()
	store.setAudio("m1", "audio")
	store.writeErr = model.ErrStorageWrite
	index := newMemIndex()

	tr := New(store, index, StaticRecognizer{Text: "hello"}, permission.All(), zerolog.Nop(), Options{})
	defer tr.Close()

	_, err := waitJob(t, tr.Transcribe("m1"))
	require.ErrorIs(t, err, model.ErrStorageWrite)
	_, ok := index.doc("m1")
	assert.False(t, ok)
}

func TestTranscribe_MissingAudio(t *testing.T) {
	tr := New(newMemStore(), newMemIndex(), StaticRecognizer{Text: "x"}, permission.All(), zerolog.Nop(), Options{})
	defer tr.Close()

	_, err := waitJob(t, tr.Transcribe("m1"))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTranscribe_PermissionDenied(t *testing.T) {
	store := newMemStore()
	store.setAudio("m1", "audio")

	grants := permission.NewGrants(permission.Photos, permission.Microphone)
	tr := New(store, newMemIndex(), StaticRecognizer{Text: "x"}, grants, zerolog.Nop(), Options{})
	defer tr.Close()

	_, err := waitJob(t, tr.Transcribe("m1"))
	require.ErrorIs(t, err, model.ErrPermissionDenied)
	_, ok := store.transcript("m1")
	assert.False(t, ok)
}

func TestTranscribe_NewestRecordingWins(t *testing.T) {
	store := newMemStore()
	store.setAudio("m1", "first recording")
	index := newMemIndex()

	gate := make(chan struct{})
	rec := &echoRecognizer{
		entered: make(chan string, 2),
		gates:   map[string]chan struct{}{"first recording": gate},
	}
	tr := New(store, index, rec, permission.All(), zerolog.Nop(), Options{})
	defer tr.Close()

	first := tr.Transcribe("m1")
	require.Equal(t, "first recording", <-rec.entered)

	// Re-record while the first transcription is still running.
	store.setAudio("m1", "second recording")
	second := tr.Transcribe("m1")
	close(gate)

	_, err := waitJob(t, first)
	require.ErrorIs(t, err, model.ErrSuperseded)

	out, err := waitJob(t, second)
	require.NoError(t, err)
	assert.Equal(t, "second recording", out.Text)

	tr.Wait()
	text, _ := store.transcript("m1")
	assert.Equal(t, "second recording", text)
	doc, _ := index.doc("m1")
	assert.Equal(t, "second recording", doc.Text)
}

func TestTranscribe_DifferentMemoriesRunConcurrently(t *testing.T) {
	store := newMemStore()
	store.setAudio("m1", "slow")
	store.setAudio("m2", "fast")

	gate := make(chan struct{})
	rec := &echoRecognizer{gates: map[string]chan struct{}{"slow": gate}}
	tr := New(store, newMemIndex(), rec, permission.All(), zerolog.Nop(), Options{})
	defer tr.Close()

	slow := tr.Transcribe("m1")
	out, err := waitJob(t, tr.Transcribe("m2"))
	require.NoError(t, err)
	assert.Equal(t, "fast", out.Text)

	select {
	case <-slow.Done():
		t.Fatal("slow job finished before its gate opened")
	default:
	}
	close(gate)
	_, err = waitJob(t, slow)
	require.NoError(t, err)
}

func TestTranscribe_Timeout(t *testing.T) {
	store := newMemStore()
	store.setAudio("m1", "stuck")

	rec := &echoRecognizer{gates: map[string]chan struct{}{"stuck": make(chan struct{})}}
	tr := New(store, newMemIndex(), rec, permission.All(), zerolog.Nop(), Options{Timeout: 20 * time.Millisecond})
	defer tr.Close()

	_, err := waitJob(t, tr.Transcribe("m1"))
	require.ErrorIs(t, err, model.ErrRecognition)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose_CancelsInFlight(t *testing.T) {
	store := newMemStore()
	store.setAudio("m1", "stuck")

	rec := &echoRecognizer{
		entered: make(chan string, 1),
		gates:   map[string]chan struct{}{"stuck": make(chan struct{})},
	}
	tr := New(store, newMemIndex(), rec, permission.All(), zerolog.Nop(), Options{})

	job := tr.Transcribe("m1")
	<-rec.entered
	require.NoError(t, tr.Close())

	_, err := waitJob(t, job)
	require.ErrorIs(t, err, model.ErrRecognition)

	_, err = waitJob(t, tr.Transcribe("m1"))
	assert.ErrorIs(t, err, model.ErrRecognition)
}

func TestStaticRecognizer(t *testing.T) {
	var got []Result
	for r, err := range (StaticRecognizer{Text: "one two three"}).Recognize(context.Background(), nil) {
		require.NoError(t, err)
		got = append(got, r)
	}
	assert.Equal(t, []Result{
		{Text: "one"},
		{Text: "one two"},
		{Text: "one two three", Final: true},
	}, got)
}
