package recorder

import (
	"os/exec"
	"sync"
)

// Player plays a memory's audio. Only one playback runs at a time and a
// recording always stops it.
type Player interface {
	Play(path string) error
	Stop()
}

// CommandPlayer plays audio by running an external program, such as
// afplay or ffplay, with the file path as its last argument.
type CommandPlayer struct {
	Command string
	Args    []string

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func (p *CommandPlayer) Play(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	args := append(append([]string{}, p.Args...), path)
	cmd := exec.Command(p.Command, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	p.cmd = cmd
	p.done = done
	return nil
}

// Done is closed when the current playback ends. It is nil when nothing
// has been played.
func (p *CommandPlayer) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *CommandPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *CommandPlayer) stopLocked() {
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd = nil
}
