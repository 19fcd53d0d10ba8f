package recorder

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
)

var errNoDevice = errors.New("no capture device configured")

// Device opens audio captures.
type Device interface {
	// Open starts capturing into path.
	Open(ctx context.Context, path string) (Capture, error)
}

// Capture is one running capture.
type Capture interface {
	// Stop ends the capture and flushes it to disk. It is safe to call after
	// the capture has failed.
	Stop() error
	// Failed delivers an error if the capture ends on its own, for example
	// when a phone call interrupts it.
	Failed() <-chan error
}

// FileDevice "captures" by streaming an existing audio file into the
// scratch path. The CLI uses it to attach prerecorded clips.
type FileDevice struct {
	Source string
}

func (d FileDevice) Open(ctx context.Context, path string) (Capture, error) {
	src, err := os.Open(d.Source)
	if err != nil {
		return nil, err
	}
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		src.Close()
		return nil, err
	}

	c := &fileCapture{
		failed: make(chan error, 1),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		defer src.Close()

		_, err := io.Copy(dst, readerWithContext{ctx: ctx, r: src})
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			c.failed <- err
		}
	}()
	return c, nil
}

type fileCapture struct {
	failed chan error
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func (c *fileCapture) Stop() error {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *fileCapture) Failed() <-chan error { return c.failed }

type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (r readerWithContext) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// NoDevice is used when no capture device is configured. Every Open fails.
type NoDevice struct{}

func (NoDevice) Open(ctx context.Context, path string) (Capture, error) {
	return nil, errNoDevice
}
