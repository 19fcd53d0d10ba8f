package transcriber

import "context"

// Outcome describes a finished transcription.
type Outcome struct {
	MemoryID string `json:"memory_id"`
	Text     string `json:"text"`
	Indexed  bool   `json:"indexed"`
	IndexErr error  `json:"-"`
}

// Job is the handle of one transcription.
type Job struct {
	memoryID string
	seq      uint64
	done     chan struct{}
	outcome  Outcome
	err      error
}

func newJob(id string) *Job {
	return &Job{memoryID: id, done: make(chan struct{})}
}

func (j *Job) finish(o Outcome, err error) {
	j.outcome = o
	j.err = err
	close(j.done)
}

// MemoryID returns the memory being transcribed.
func (j *Job) MemoryID() string { return j.memoryID }

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes or ctx is done. A nil error means the
// transcript was written; indexing problems are reported in Outcome.IndexErr.
func (j *Job) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-j.done:
		return j.outcome, j.err
	case <-ctx.Done():
		return Outcome{MemoryID: j.memoryID}, ctx.Err()
	}
}
