package model

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageWrite reports a failed write of a memory artifact.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrStorageRead reports a failed read of a memory artifact.
	ErrStorageRead = errors.New("storage read failed")

	// ErrNotFound reports a missing artifact. It matches ErrStorageRead.
	ErrNotFound = fmt.Errorf("%w: not found", ErrStorageRead)

	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrCommit            = errors.New("audio commit failed")
	ErrRecognition       = errors.New("speech recognition failed")
	ErrIndex             = errors.New("search index failed")

	ErrRecordingActive  = errors.New("a recording is already active")
	ErrNotRecording     = errors.New("no recording is active")
	ErrPermissionDenied = errors.New("permission not granted")
	ErrInvalidID        = errors.New("invalid memory id")
	ErrInvalidImage     = errors.New("invalid image data")

	// ErrSuperseded marks a transcription whose result was dropped because a
	// newer transcription of the same memory was requested.
	ErrSuperseded = errors.New("transcription superseded")
)
