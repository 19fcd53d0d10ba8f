package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rcliao/voice-memories/internal/model"
)

type cachedTranscript struct {
	modTime time.Time
	size    int64
	text    string
}

// ReadTranscript returns a memory's transcript, or ErrNotFound if none has
// been written yet.
func (s *Store) ReadTranscript(id string) (string, error) {
	if err := ValidID(id); err != nil {
		return "", err
	}
	path := s.Path(id, model.ArtifactTranscript)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		s.cache.Del(id)
		return "", fmt.Errorf("transcript %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%w: transcript %s: %v", model.ErrStorageRead, id, err)
	}

	if v, ok := s.cache.Get(id); ok {
		c := v.(cachedTranscript)
		if c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
			return c.text, nil
		}
	}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("transcript %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%w: transcript %s: %v", model.ErrStorageRead, id, err)
	}
	text := string(b)
	s.cache.Set(id, cachedTranscript{modTime: info.ModTime(), size: info.Size(), text: text}, int64(len(b)))
	return text, nil
}

// WriteTranscript replaces a memory's transcript.
func (s *Store) WriteTranscript(id, text string) error {
	if err := ValidID(id); err != nil {
		return err
	}
	s.cache.Del(id)
	if err := writeAtomic(s.Path(id, model.ArtifactTranscript), []byte(text)); err != nil {
		return fmt.Errorf("%w: transcript %s: %v", model.ErrStorageWrite, id, err)
	}
	return nil
}

// Invalidate drops any cached transcript for id.
func (s *Store) Invalidate(id string) {
	s.cache.Del(id)
}

// ReadAudio returns the bytes of a memory's committed recording.
func (s *Store) ReadAudio(id string) ([]byte, error) {
	if err := ValidID(id); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path(id, model.ArtifactAudio))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("audio %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: audio %s: %v", model.ErrStorageRead, id, err)
	}
	return b, nil
}

// ReplaceAudio commits a finished recording as the memory's audio. The
// scratch file must exist, be non-empty and live in the same filesystem as
// the memory; it is renamed over the old audio so there is never a moment
// with no audio at all. On failure the previous audio is left untouched.
func (s *Store) ReplaceAudio(id, scratchPath string) error {
	if err := ValidID(id); err != nil {
		return fmt.Errorf("%w: %v", model.ErrCommit, err)
	}
	if !s.Exists(id) {
		return fmt.Errorf("%w: memory %s: %v", model.ErrCommit, id, model.ErrNotFound)
	}

	info, err := os.Stat(scratchPath)
	if err != nil {
		return fmt.Errorf("%w: scratch recording: %v", model.ErrCommit, err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return fmt.Errorf("%w: scratch recording %s is empty", model.ErrCommit, scratchPath)
	}

	if err := os.Rename(scratchPath, s.Path(id, model.ArtifactAudio)); err != nil {
		return fmt.Errorf("%w: move recording into %s: %v", model.ErrCommit, id, err)
	}
	return nil
}

// Transcripts returns a document for every listed memory that has a
// transcript. It is the source for rebuilding the search index.
func (s *Store) Transcripts(ctx context.Context) ([]model.Document, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var docs []model.Document
	for _, id := range ids {
		text, err := s.ReadTranscript(id)
		if err != nil {
			continue
		}
		docs = append(docs, model.Document{
			MemoryID:  id,
			Text:      text,
			Thumbnail: s.Path(id, model.ArtifactThumbnail),
		})
	}
	return docs, nil
}
