package recipe

import (
	"sync"

	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
)

// State owns the current-recipe slot shown by the page when the store
// cannot serve a fresh selection. The selector holds the write lock for a
// whole page selection; readers hold the read lock.
type State struct {
	mu      sync.RWMutex
	current *inbound.Selection
}

// NewState creates an empty state
func NewState() *State {
	return &State{}
}

// Current returns a copy of the cached selection, or nil.
func (s *State) Current() *inbound.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSelection(s.current)
}

// setLocked must be called with the write lock held.
func (s *State) setLocked(sel *inbound.Selection) {
	s.current = cloneSelection(sel)
}

func cloneSelection(sel *inbound.Selection) *inbound.Selection {
	if sel == nil {
		return nil
	}
	out := *sel
	out.Recipe.IngredientAmount = append([]string(nil), sel.Recipe.IngredientAmount...)
	return &out
}
