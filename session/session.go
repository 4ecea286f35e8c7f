// Package session holds the process-wide front-end state: the logged-in user,
// the folder navigation stack and the task poller.
package session

import (
	"sync"

	"github.com/s0up4200/pikfront/backend"
)

// RootName is the label of the root folder in breadcrumbs
const RootName = "My Files"

// Folder is one entry of the navigation stack. The root has an empty ID.
type Folder struct {
	ID   string
	Name string
}

// Root returns the root folder entry
func Root() Folder {
	return Folder{Name: RootName}
}

// Location is the result of a navigation: the new current folder and the
// generation number identifying this navigation.
type Location struct {
	Folder     Folder
	Generation uint64
}

// Session is safe for concurrent use
type Session struct {
	mu         sync.RWMutex
	user       *backend.User
	stack      []Folder
	generation uint64
	poller     *Poller
}

// New creates an empty session positioned at the root folder
func New() *Session {
	return &Session{
		stack: []Folder{Root()},
	}
}

// User returns a copy of the current user, or nil when logged out
func (s *Session) User() *backend.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUser stores the authenticated user
func (s *Session) SetUser(user backend.User) {
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
}

// LoggedIn reports whether a user is set
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// StartPolling installs p as the session's poller and starts it. A poller
// that is already installed is stopped first. Nothing starts when no user is
// set, and false is returned.
func (s *Session) StartPolling(p *Poller) bool {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return false
	}
	previous := s.poller
	s.poller = p
	p.Start()
	s.mu.Unlock()

	if previous != nil && previous != p {
		previous.Stop()
	}
	return true
}

// Polling reports whether a poller is installed and running
func (s *Session) Polling() bool {
	s.mu.RLock()
	p := s.poller
	s.mu.RUnlock()
	return p != nil && p.Running()
}

// Reset stops polling and clears every field, leaving the session as New
// returns it. Pending folder loads become stale.
func (s *Session) Reset() {
	s.mu.Lock()
	p := s.poller
	s.poller = nil
	s.user = nil
	s.stack = []Folder{Root()}
	s.generation++
	s.mu.Unlock()

	if p != nil {
		p.Stop()
	}
}
