package app

import (
	"github.com/s0up4200/pikfront/backend"
)

// Level is the severity of a notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient message for the user
type Notification struct {
	Level   Level
	Message string
}

// View receives rendered markup and notifications from the controller.
// Implementations must be safe for concurrent use: the poller updates tasks
// from its own goroutine.
type View interface {
	// ShowLogin switches to the logged-out screen
	ShowLogin()

	// ShowUser switches to the main screen for user
	ShowUser(user backend.User)

	// SetTasks replaces the task panel
	SetTasks(markup string)

	// SetFiles replaces the file listing, pagination control included
	SetFiles(markup string)

	// SetBreadcrumbs replaces the folder path
	SetBreadcrumbs(markup string)

	// SetQuota replaces the storage usage panel
	SetQuota(markup string)

	// ClearDownloadInput empties the magnet/URL input
	ClearDownloadInput()

	// Notify shows a transient message
	Notify(n Notification)
}
