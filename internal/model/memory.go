// Package model defines the core memory data types.
package model

import "time"

// ArtifactKind names one of the four files a memory owns.
type ArtifactKind string

const (
	ArtifactImage      ArtifactKind = "image"
	ArtifactThumbnail  ArtifactKind = "thumbnail"
	ArtifactAudio      ArtifactKind = "audio"
	ArtifactTranscript ArtifactKind = "transcript"
)

// Suffixes maps each artifact kind to the suffix appended to a memory id.
var Suffixes = map[ArtifactKind]string{
	ArtifactImage:      ".jpg",
	ArtifactThumbnail:  ".thumb",
	ArtifactAudio:      ".m4a",
	ArtifactTranscript: ".txt",
}

// ValidKinds are the allowed artifact kinds.
var ValidKinds = map[ArtifactKind]bool{
	ArtifactImage:      true,
	ArtifactThumbnail:  true,
	ArtifactAudio:      true,
	ArtifactTranscript: true,
}

// Memory represents one photo memory and the artifacts present on disk.
type Memory struct {
	ID             string    `json:"id"`
	ImagePath      string    `json:"image"`
	ThumbnailPath  string    `json:"thumbnail"`
	AudioPath      string    `json:"audio,omitempty"`
	TranscriptPath string    `json:"transcript_path,omitempty"`
	HasAudio       bool      `json:"has_audio"`
	HasTranscript  bool      `json:"has_transcript"`
	CreatedAt      time.Time `json:"created_at"`
}

// Document is the searchable form of a memory's transcript.
type Document struct {
	MemoryID  string    `json:"memory_id"`
	Text      string    `json:"text"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	IndexedAt time.Time `json:"indexed_at,omitzero"`
}
