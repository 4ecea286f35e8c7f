package backend

import (
	"context"
)

// API defines the backend operations used by the front end
type API interface {
	// Login authenticates and stores the session cookie
	Login(ctx context.Context, username, password string) (*User, error)

	// Register creates an account and stores the session cookie
	Register(ctx context.Context, username, password string) (*User, error)

	// Logout drops the server-side session
	Logout(ctx context.Context) error

	// CurrentUser returns the user bound to the session cookie
	CurrentUser(ctx context.Context) (*User, error)

	// AddDownload submits a magnet link or URL for offline download
	AddDownload(ctx context.Context, req AddDownloadRequest) (*AddDownloadResult, error)

	// ListTasks lists offline tasks, optionally restricted to phases
	ListTasks(ctx context.Context, phases ...Phase) (*TaskList, error)

	// DeleteTask removes a task, optionally with its files
	DeleteTask(ctx context.Context, taskID string, deleteFiles bool) error

	// RetryTask restarts a failed task
	RetryTask(ctx context.Context, taskID string) error

	// ListFiles lists a folder; an empty parentID means the root
	ListFiles(ctx context.Context, parentID, pageToken string) (*FileList, error)

	// FileInfo returns details for a single file
	FileInfo(ctx context.Context, fileID string) (*FileEntry, error)

	// DownloadURL returns direct link information for a file
	DownloadURL(ctx context.Context, fileID string) (*DownloadInfo, error)

	// TrashFiles moves files to the trash
	TrashFiles(ctx context.Context, fileIDs []string) error

	// ProxyDownload streams a file through the backend
	ProxyDownload(ctx context.Context, fileID string) (*Download, error)

	// Quota returns storage usage
	Quota(ctx context.Context) (*Quota, error)
}
