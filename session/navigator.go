package session

// CurrentFolder returns the folder at the top of the stack
func (s *Session) CurrentFolder() Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stack[len(s.stack)-1]
}

// CurrentFolderID returns the ID of the current folder, empty for the root
func (s *Session) CurrentFolderID() string {
	return s.CurrentFolder().ID
}

// Location returns the current folder with the current generation
func (s *Session) Location() Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Location{Folder: s.stack[len(s.stack)-1], Generation: s.generation}
}

// Stack returns a copy of the navigation stack, root first
func (s *Session) Stack() []Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Folder, len(s.stack))
	copy(out, s.stack)
	return out
}

// IsCurrent reports whether no navigation happened since generation gen
func (s *Session) IsCurrent(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation == gen
}

// NavigateToFolder descends into a child folder. An empty id resets the
// stack to the root.
func (s *Session) NavigateToFolder(id, name string) Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.stack = []Folder{Root()}
	} else {
		s.stack = append(s.stack, Folder{ID: id, Name: name})
	}
	return s.advance()
}

// NavigateToIndex truncates the stack so that index becomes the current
// folder. It returns false and leaves the stack alone when index is out of
// range.
func (s *Session) NavigateToIndex(index int) (Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.stack) {
		return Location{}, false
	}
	s.stack = s.stack[:index+1]
	return s.advance(), true
}

// GoUp moves to the parent folder. It returns false at the root.
func (s *Session) GoUp() (Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stack) <= 1 {
		return Location{}, false
	}
	s.stack = s.stack[:len(s.stack)-1]
	return s.advance(), true
}

// ResetNavigation returns to the root without touching the user
func (s *Session) ResetNavigation() Location {
	return s.NavigateToFolder("", "")
}

// advance bumps the generation; callers hold s.mu
func (s *Session) advance() Location {
	// Clip capacity so later appends never write into a slice handed out earlier
	s.stack = s.stack[:len(s.stack):len(s.stack)]
	s.generation++
	return Location{Folder: s.stack[len(s.stack)-1], Generation: s.generation}
}
