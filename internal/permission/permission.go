// Package permission reports which device capabilities the user granted.
package permission

import (
	"fmt"
	"sync"

	"github.com/rcliao/voice-memories/internal/model"
)

// Capability is something the pipeline needs the user's consent for.
type Capability string

const (
	Photos     Capability = "photos"
	Microphone Capability = "microphone"
	Speech     Capability = "speech"
)

// Checker answers whether a capability is currently granted.
type Checker interface {
	Granted(c Capability) bool
}

// Grants is a mutable set of granted capabilities.
type Grants struct {
	mu      sync.RWMutex
	granted map[Capability]bool
}

// NewGrants returns grants with the given capabilities granted.
func NewGrants(caps ...Capability) *Grants {
	g := &Grants{granted: map[Capability]bool{}}
	for _, c := range caps {
		g.granted[c] = true
	}
	return g
}

// All returns grants with every capability granted.
func All() *Grants {
	return NewGrants(Photos, Microphone, Speech)
}

func (g *Grants) Granted(c Capability) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.granted[c]
}

// Set grants or revokes a capability.
func (g *Grants) Set(c Capability, granted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted[c] = granted
}

// Require returns ErrPermissionDenied unless c is granted.
func Require(chk Checker, c Capability) error {
	if chk == nil || chk.Granted(c) {
		return nil
	}
	return fmt.Errorf("%w: %s", model.ErrPermissionDenied, c)
}
