package store

import (
	"context"
	"os"

	"github.com/rcliao/voice-memories/internal/model"
)

// Stats holds memory directory statistics.
type Stats struct {
	Dir            string `json:"dir"`
	Memories       int    `json:"memories"`
	WithAudio      int    `json:"with_audio"`
	WithTranscript int    `json:"with_transcript"`
	TotalSizeBytes int64  `json:"total_size_bytes"`
	ThumbnailWidth int    `json:"thumbnail_width"`
}

// Stats counts memories and the artifacts they carry.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Dir: s.dir, ThumbnailWidth: s.opts.ThumbnailWidth}

	ids, err := s.List(ctx)
	if err != nil {
		return st, err
	}
	st.Memories = len(ids)

	for _, id := range ids {
		for kind := range model.Suffixes {
			info, err := os.Stat(s.Path(id, kind))
			if err != nil {
				continue
			}
			st.TotalSizeBytes += info.Size()
			switch kind {
			case model.ArtifactAudio:
				st.WithAudio++
			case model.ArtifactTranscript:
				st.WithTranscript++
			}
		}
	}
	return st, nil
}
