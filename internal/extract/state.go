package extract

import (
	"sync"

	"github.com/scheerer/lamp-mirror/internal/frame"
)

// State remembers the last color an extractor accepted. It starts out black
// and lives as long as the extractor that owns it.
type State struct {
	mu   sync.Mutex
	last frame.Pixel
}

func NewState() *State {
	return &State{}
}

// Last returns the last accepted color in native channel order.
func (s *State) Last() frame.Pixel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *State) Store(p frame.Pixel) {
	s.mu.Lock()
	s.last = p
	s.mu.Unlock()
}
