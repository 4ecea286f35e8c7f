package session

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/s0up4200/pikfront/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionStartsAtRoot(t *testing.T) {
	s := New()
	assert.Nil(t, s.User())
	assert.False(t, s.LoggedIn())
	assert.Equal(t, []Folder{Root()}, s.Stack())
	assert.Empty(t, s.CurrentFolderID())
}

func TestNavigateToFolder(t *testing.T) {
	s := New()

	loc := s.NavigateToFolder("a", "Movies")
	assert.Equal(t, Folder{ID: "a", Name: "Movies"}, loc.Folder)
	loc = s.NavigateToFolder("b", "2024")
	assert.Equal(t, "b", s.CurrentFolderID())
	assert.Equal(t, []Folder{Root(), {ID: "a", Name: "Movies"}, {ID: "b", Name: "2024"}}, s.Stack())
	assert.True(t, s.IsCurrent(loc.Generation))

	loc = s.NavigateToFolder("", "ignored")
	assert.Equal(t, Root(), loc.Folder)
	assert.Equal(t, []Folder{Root()}, s.Stack())
}

func TestNavigateToIndexTruncates(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		wantOK  bool
		wantLen int
		wantID  string
	}{
		{name: "root", index: 0, wantOK: true, wantLen: 1, wantID: ""},
		{name: "middle", index: 1, wantOK: true, wantLen: 2, wantID: "a"},
		{name: "current", index: 3, wantOK: true, wantLen: 4, wantID: "c"},
		{name: "negative", index: -1, wantOK: false, wantLen: 4, wantID: "c"},
		{name: "past end", index: 4, wantOK: false, wantLen: 4, wantID: "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.NavigateToFolder("a", "A")
			s.NavigateToFolder("b", "B")
			s.NavigateToFolder("c", "C")
			before := s.Location().Generation

			loc, ok := s.NavigateToIndex(tt.index)
			assert.Equal(t, tt.wantOK, ok)
			assert.Len(t, s.Stack(), tt.wantLen)
			assert.Equal(t, tt.wantID, s.CurrentFolderID())
			if ok {
				assert.Equal(t, tt.wantID, loc.Folder.ID)
				assert.Greater(t, loc.Generation, before)
			} else {
				assert.True(t, s.IsCurrent(before))
			}
		})
	}
}

func TestGoUp(t *testing.T) {
	s := New()
	_, ok := s.GoUp()
	assert.False(t, ok)

	s.NavigateToFolder("a", "A")
	s.NavigateToFolder("b", "B")
	loc, ok := s.GoUp()
	require.True(t, ok)
	assert.Equal(t, "a", loc.Folder.ID)
	assert.Len(t, s.Stack(), 2)
}

func TestStackCopiesAreIndependent(t *testing.T) {
	s := New()
	s.NavigateToFolder("a", "A")
	s.NavigateToFolder("b", "B")
	snapshot := s.Stack()

	s.NavigateToIndex(1)
	s.NavigateToFolder("x", "X")

	assert.Equal(t, "b", snapshot[2].ID)
	assert.Equal(t, "x", s.CurrentFolderID())
}

func TestStaleGeneration(t *testing.T) {
	s := New()
	first := s.NavigateToFolder("a", "A")
	second := s.NavigateToFolder("b", "B")

	assert.False(t, s.IsCurrent(first.Generation))
	assert.True(t, s.IsCurrent(second.Generation))
}

func TestResetClearsEverything(t *testing.T) {
	s := New()
	s.SetUser(backend.User{Username: "alice"})
	s.NavigateToFolder("a", "A")
	loc := s.Location()

	p := NewPoller(DefaultPollInterval, func(ctx context.Context) {}, zerolog.Nop())
	s.StartPolling(p)
	require.True(t, s.Polling())

	s.Reset()

	assert.Nil(t, s.User())
	assert.Equal(t, []Folder{Root()}, s.Stack())
	assert.False(t, s.Polling())
	assert.False(t, p.Running())
	assert.False(t, s.IsCurrent(loc.Generation))
}
