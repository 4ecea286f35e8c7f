// Package app wires the backend client, the session and the renderer into
// user actions. Every action handles its own errors: failures are logged and
// surfaced as notifications, never returned as fatal.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/s0up4200/pikfront/backend"
	"github.com/s0up4200/pikfront/filter"
	"github.com/s0up4200/pikfront/render"
	"github.com/s0up4200/pikfront/session"
	"golang.org/x/sync/errgroup"
)

// ErrNoDownloadURL is returned when the backend has no link for a file
var ErrNoDownloadURL = errors.New("no download URL available")

// Option configures a Controller
type Option func(*Controller)

// WithPollInterval sets how often tasks are refreshed while logged in
func WithPollInterval(interval time.Duration) Option {
	return func(c *Controller) {
		c.pollInterval = interval
	}
}

// WithPollHook registers a callback run on every poll tick
func WithPollHook(hook func()) Option {
	return func(c *Controller) {
		c.pollHook = hook
	}
}

// WithTasksHook registers a callback receiving every fetched task list
func WithTasksHook(hook func([]backend.Task)) Option {
	return func(c *Controller) {
		c.tasksHook = hook
	}
}

// Controller performs user actions against the backend and pushes the
// results to a View
type Controller struct {
	api          backend.API
	session      *session.Session
	view         View
	logger       zerolog.Logger
	pollInterval time.Duration
	pollHook     func()
	tasksHook    func([]backend.Task)

	mu            sync.Mutex
	phases        []backend.Phase
	taskFilter    *filter.Program
	files         []backend.FileEntry
	nextPageToken string
	filesGen      uint64
}

// NewController creates a controller for a fresh session
func NewController(api backend.API, sess *session.Session, view View, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		api:          api,
		session:      sess,
		view:         view,
		logger:       logger.With().Str("component", "controller").Logger(),
		pollInterval: session.DefaultPollInterval,
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the controller drives
func (c *Controller) Session() *session.Session {
	return c.session
}

func (c *Controller) notify(level Level, format string, args ...any) {
	c.view.Notify(Notification{Level: level, Message: fmt.Sprintf(format, args...)})
}

// fail logs err and shows prefix plus the backend's message
func (c *Controller) fail(action string, err error, prefix string) {
	c.logger.Error().Err(err).Str("action", action).Msg("Action failed")
	c.notify(LevelError, "%s: %s", prefix, backend.Message(err))
}

// CheckAuth restores a session from the backend cookie. Without one the
// login screen is shown.
func (c *Controller) CheckAuth(ctx context.Context) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		if backend.IsUnauthorized(err) {
			c.logger.Debug().Msg("No active session")
		} else {
			c.logger.Warn().Err(err).Msg("Failed to check authentication")
		}
		c.view.ShowLogin()
		return
	}
	c.startSession(ctx, user)
}

// Login authenticates and starts a session
func (c *Controller) Login(ctx context.Context, username, password string) {
	c.authenticate(ctx, "login", username, password, c.api.Login, "Login failed", "Logged in as %s")
}

// Register creates an account and starts a session
func (c *Controller) Register(ctx context.Context, username, password string) {
	c.authenticate(ctx, "register", username, password, c.api.Register, "Registration failed", "Account created for %s")
}

type authFunc func(ctx context.Context, username, password string) (*backend.User, error)

func (c *Controller) authenticate(ctx context.Context, action, username, password string, call authFunc, failPrefix, successFormat string) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		c.notify(LevelWarning, "Username and password required")
		return
	}

	user, err := call(ctx, username, password)
	if err != nil {
		c.fail(action, err, failPrefix)
		return
	}
	if user.Username == "" {
		user.Username = username
	}

	c.logger.Info().Str("user", user.Username).Str("action", action).Msg("Authenticated")
	if c.startSession(ctx, user) {
		c.notify(LevelSuccess, successFormat, user.DisplayName())
	}
}

// startSession reports false when a logout raced the login and the session
// is already cleared again
func (c *Controller) startSession(ctx context.Context, user *backend.User) bool {
	c.session.SetUser(*user)
	c.session.ResetNavigation()
	c.resetFiles()
	c.view.ShowUser(*user)

	if !c.session.StartPolling(session.NewPoller(c.pollInterval, c.poll, c.logger)) {
		c.logger.Debug().Str("user", user.Username).Msg("Session ended before polling started")
		c.view.ShowLogin()
		return false
	}
	c.Refresh(ctx)
	return true
}

func (c *Controller) poll(ctx context.Context) {
	if c.pollHook != nil {
		c.pollHook()
	}
	c.LoadTasks(ctx)
}

// Logout ends the session. Local state is cleared and polling stops even
// when the backend call fails.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.api.Logout(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Logout request failed, clearing local session anyway")
	}

	c.session.Reset()
	c.resetFiles()
	c.mu.Lock()
	c.phases = nil
	c.taskFilter = nil
	c.mu.Unlock()

	c.view.ShowLogin()
	c.notify(LevelInfo, "Logged out")
}

// SubmitDownload adds a magnet link or URL as an offline task
func (c *Controller) SubmitDownload(ctx context.Context, input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		c.notify(LevelWarning, "Please enter a magnet link or URL")
		return
	}

	result, err := c.api.AddDownload(ctx, backend.AddDownloadRequest{URL: input})
	if err != nil {
		c.fail("add_download", err, "Failed to add download")
		return
	}

	event := c.logger.Info().Str("url", input)
	if task := result.Task(); task != nil {
		event = event.Str("task_id", task.ID)
	}
	event.Msg("Download added")

	c.view.ClearDownloadInput()
	c.notify(LevelSuccess, "Download added")
	c.LoadTasks(ctx)
}

// SetTaskFilter restricts the task panel to phases (all when empty) and,
// when program is non-nil, to tasks matching it. Tasks are reloaded.
func (c *Controller) SetTaskFilter(ctx context.Context, phases []backend.Phase, program *filter.Program) {
	c.mu.Lock()
	c.phases = append([]backend.Phase(nil), phases...)
	c.taskFilter = program
	c.mu.Unlock()

	c.LoadTasks(ctx)
}

// LoadTasks fetches and renders the task list
func (c *Controller) LoadTasks(ctx context.Context) {
	c.mu.Lock()
	phases := c.phases
	program := c.taskFilter
	c.mu.Unlock()

	list, err := c.api.ListTasks(ctx, phases...)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.fail("list_tasks", err, "Failed to load tasks")
		return
	}

	if c.tasksHook != nil && len(phases) == 0 {
		c.tasksHook(list.Tasks)
	}
	c.view.SetTasks(render.Tasks(filter.Tasks(program, list.Tasks)))
}

// DeleteTask removes a task, optionally deleting its files too
func (c *Controller) DeleteTask(ctx context.Context, taskID string, deleteFiles bool) {
	if err := c.api.DeleteTask(ctx, taskID, deleteFiles); err != nil {
		c.fail("delete_task", err, "Failed to delete task")
		return
	}

	c.logger.Info().Str("task_id", taskID).Bool("delete_files", deleteFiles).Msg("Task deleted")
	c.notify(LevelSuccess, "Task deleted")
	c.LoadTasks(ctx)
	if deleteFiles {
		c.LoadFiles(ctx)
		c.LoadQuota(ctx)
	}
}

// RetryTask restarts a failed task
func (c *Controller) RetryTask(ctx context.Context, taskID string) {
	if err := c.api.RetryTask(ctx, taskID); err != nil {
		c.fail("retry_task", err, "Failed to retry task")
		return
	}

	c.logger.Info().Str("task_id", taskID).Msg("Task retried")
	c.notify(LevelSuccess, "Task restarted")
	c.LoadTasks(ctx)
}

func (c *Controller) resetFiles() {
	c.mu.Lock()
	c.files = nil
	c.nextPageToken = ""
	c.filesGen = 0
	c.mu.Unlock()
}

// LoadFiles fetches the first page of the current folder. A response that
// arrives after the user navigated elsewhere is dropped.
func (c *Controller) LoadFiles(ctx context.Context) {
	loc := c.session.Location()
	stack := c.session.Stack()
	list, err := c.api.ListFiles(ctx, loc.Folder.ID, "")

	if !c.session.IsCurrent(loc.Generation) {
		c.logger.Debug().Str("folder_id", loc.Folder.ID).Msg("Dropping stale folder listing")
		return
	}

	if err != nil {
		c.mu.Lock()
		c.files = nil
		c.nextPageToken = ""
		c.filesGen = loc.Generation
		c.mu.Unlock()

		c.view.SetBreadcrumbs(render.Breadcrumbs(stack))
		c.view.SetFiles(render.Files(nil))
		c.fail("list_files", err, "Failed to load files")
		return
	}

	c.mu.Lock()
	c.files = list.Files
	c.nextPageToken = list.NextPageToken
	c.filesGen = loc.Generation
	markup := c.filesMarkupLocked()
	c.mu.Unlock()

	c.view.SetBreadcrumbs(render.Breadcrumbs(stack))
	c.view.SetFiles(markup)
}

// LoadMoreFiles appends the next page of the current folder
func (c *Controller) LoadMoreFiles(ctx context.Context) {
	loc := c.session.Location()

	c.mu.Lock()
	token := c.nextPageToken
	sameFolder := c.filesGen == loc.Generation
	c.mu.Unlock()

	if token == "" || !sameFolder {
		c.LoadFiles(ctx)
		return
	}

	list, err := c.api.ListFiles(ctx, loc.Folder.ID, token)
	if err != nil {
		c.fail("list_files", err, "Failed to load more files")
		return
	}

	c.mu.Lock()
	if c.filesGen != loc.Generation || !c.session.IsCurrent(loc.Generation) {
		c.mu.Unlock()
		c.logger.Debug().Str("folder_id", loc.Folder.ID).Msg("Dropping stale folder page")
		return
	}
	c.files = append(c.files, list.Files...)
	c.nextPageToken = list.NextPageToken
	markup := c.filesMarkupLocked()
	c.mu.Unlock()

	c.view.SetFiles(markup)
}

func (c *Controller) filesMarkupLocked() string {
	return render.Files(c.files) + render.LoadMore(c.nextPageToken != "")
}

// NavigateToFolder opens a child folder; an empty id returns to the root
func (c *Controller) NavigateToFolder(ctx context.Context, id, name string) {
	c.session.NavigateToFolder(id, name)
	c.LoadFiles(ctx)
}

// NavigateToIndex jumps to a breadcrumb. Out-of-range indexes are ignored.
func (c *Controller) NavigateToIndex(ctx context.Context, index int) {
	if _, ok := c.session.NavigateToIndex(index); !ok {
		c.logger.Debug().Int("index", index).Msg("Ignoring out of range breadcrumb")
		return
	}
	c.LoadFiles(ctx)
}

// GoUp opens the parent folder. It does nothing at the root.
func (c *Controller) GoUp(ctx context.Context) {
	if _, ok := c.session.GoUp(); !ok {
		return
	}
	c.LoadFiles(ctx)
}

// TrashFiles moves the selected entries to the trash
func (c *Controller) TrashFiles(ctx context.Context, fileIDs []string) {
	ids := make([]string, 0, len(fileIDs))
	for _, id := range fileIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		c.notify(LevelWarning, "Select files to move to trash")
		return
	}

	if err := c.api.TrashFiles(ctx, ids); err != nil {
		c.fail("trash_files", err, "Failed to move files to trash")
		return
	}

	c.logger.Info().Strs("file_ids", ids).Msg("Files moved to trash")
	c.notify(LevelSuccess, "Moved %d %s to trash", len(ids), pluralItems(len(ids)))
	c.LoadFiles(ctx)
	c.LoadQuota(ctx)
}

func pluralItems(n int) string {
	if n == 1 {
		return "item"
	}
	return "items"
}

// FileURL resolves a direct download link for a file
func (c *Controller) FileURL(ctx context.Context, fileID string) (string, error) {
	info, err := c.api.DownloadURL(ctx, fileID)
	if err != nil {
		c.fail("download_url", err, "Failed to get download link")
		return "", err
	}

	link := info.URL()
	if link == "" {
		c.logger.Warn().Str("file_id", fileID).Msg("Backend returned no download link")
		c.notify(LevelError, "No download link available for this file")
		return "", ErrNoDownloadURL
	}
	return link, nil
}

// OpenDownload starts streaming a file through the backend proxy. The
// caller closes the body.
func (c *Controller) OpenDownload(ctx context.Context, fileID string) (*backend.Download, error) {
	dl, err := c.api.ProxyDownload(ctx, fileID)
	if err != nil {
		c.fail("proxy_download", err, "Download failed")
		return nil, err
	}
	return dl, nil
}

// LoadQuota fetches and renders storage usage
func (c *Controller) LoadQuota(ctx context.Context) {
	quota, err := c.api.Quota(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to load quota")
		c.view.SetQuota(render.Quota(nil))
		return
	}
	c.view.SetQuota(render.Quota(quota))
}

// Refresh reloads tasks, files and quota concurrently
func (c *Controller) Refresh(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		c.LoadTasks(ctx)
		return nil
	})
	g.Go(func() error {
		c.LoadFiles(ctx)
		return nil
	})
	g.Go(func() error {
		c.LoadQuota(ctx)
		return nil
	})
	_ = g.Wait()
}
