package box

import (
	"sync"

	"github.com/gravitrone/msjbox/cli/internal/api"
)

// Store holds the box shown by one screen. Files are kept newest first and
// only ever grow by prepending.
//
// Files that arrive before the initial load are buffered and replayed on
// ReplaceBox. A file whose id is already present is ignored, which covers the
// window where the same upload is both in the fetched list and announced
// over the realtime channel.
type Store struct {
	mu          sync.RWMutex
	box         api.Box
	initialized bool
	pending     []api.File
}

// NewStore creates a store for boxID with no files loaded yet.
func NewStore(boxID string) *Store {
	return &Store{box: api.Box{ID: boxID}}
}

// Snapshot returns a copy of the current box. Before ReplaceBox only the id
// is populated.
func (s *Store) Snapshot() api.Box {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.box
	if s.box.Files != nil {
		out.Files = make([]api.File, len(s.box.Files))
		copy(out.Files, s.box.Files)
	}
	return out
}

// Loaded reports whether ReplaceBox has run.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Pending returns how many early files are waiting for the initial load.
func (s *Store) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// ReplaceBox overwrites the whole box with a fetched copy and replays any
// buffered files on top of it in arrival order. It returns how many buffered
// files were applied.
func (s *Store) ReplaceBox(b api.Box) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]api.File, len(b.Files), len(b.Files)+len(s.pending))
	copy(files, b.Files)
	b.Files = files
	s.box = b
	s.initialized = true

	applied := 0
	for _, f := range s.pending {
		if s.prependLocked(f) {
			applied++
		}
	}
	s.pending = nil
	return applied
}

// PrependFile inserts f at the front of the file list, leaving every other
// field untouched. It returns false when f was a duplicate. Before the first
// ReplaceBox the file is buffered and true is returned.
func (s *Store) PrependFile(f api.File) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		for _, p := range s.pending {
			if p.ID == f.ID {
				return false
			}
		}
		s.pending = append(s.pending, f)
		return true
	}
	return s.prependLocked(f)
}

func (s *Store) prependLocked(f api.File) bool {
	if f.ID != "" {
		for _, existing := range s.box.Files {
			if existing.ID == f.ID {
				return false
			}
		}
	}
	files := make([]api.File, 0, len(s.box.Files)+1)
	files = append(files, f)
	files = append(files, s.box.Files...)
	s.box.Files = files
	return true
}

// File looks up a loaded file by id.
func (s *Store) File(id string) (api.File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.box.Files {
		if f.ID == id {
			return f, true
		}
	}
	return api.File{}, false
}
