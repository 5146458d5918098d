// Package session holds per-visitor dashboard state: the collection loaded
// at session start and the visitor's current facet selection.
//
// A session never refreshes itself. Rows appended after Start become
// visible only through Manager.Reload or a new session.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/filter"
)

// Loader reads the current store contents.
type Loader interface {
	Load(ctx context.Context) (*dataset.Collection, error)
}

// Session is the state of one dashboard visitor.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.RWMutex
	collection *dataset.Collection
	loadedAt   time.Time
	selection  filter.Selection
}

// Collection returns the collection loaded for this session.
func (s *Session) Collection() *dataset.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

// LoadedAt returns when the collection was last read from the store.
func (s *Session) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Selection returns a copy of the last stored selection, or nil when none
// has been stored.
func (s *Session) Selection() filter.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selection == nil {
		return nil
	}
	out := make(filter.Selection, len(s.selection))
	for f, v := range s.selection {
		out[f] = append([]string{}, v...)
	}
	return out
}

// SetSelection stores the visitor's current selection.
func (s *Session) SetSelection(sel filter.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
}

// View returns the session selection applied to its collection, falling
// back to every observed value of the dashboard facets.
func (s *Session) View() *dataset.View {
	all := s.Collection().View()
	sel := s.Selection()
	if sel == nil {
		sel = filter.DefaultSelection(all, filter.DashboardFacets...)
	}
	return filter.Apply(all, sel)
}

func (s *Session) replace(c *dataset.Collection, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection = c
	s.loadedAt = at
}
