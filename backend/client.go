package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Observer receives one call per completed backend request. Status is 0 when
// the request never got a response.
type Observer func(endpoint string, status int, elapsed time.Duration)

// Client represents a backend API client
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	observer     Observer
	logger       zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the timeout for JSON requests. Proxied downloads are not
// bounded by it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithObserver registers a callback for request metrics
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient creates a new backend client. Credentials are kept in a cookie
// jar so every request after Login carries the session.
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: backend URL is required", ErrInvalidConfig)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: invalid backend URL %q", ErrInvalidConfig, baseURL)
	}

	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		client.httpClient.Jar = jar
	}

	stream := *client.httpClient
	stream.Timeout = 0
	client.streamClient = &stream

	return client, nil
}

// BaseURL returns the normalized backend URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one backend call
type request struct {
	name   string
	method string
	path   string
	query  url.Values
	body   any
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	endpoint := c.baseURL + "/api" + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// do performs a JSON request and decodes the answer into out when non-nil
func (c *Client) do(ctx context.Context, r request, out any) error {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return err
	}

	c.logger.Debug().
		Str("method", r.method).
		Str("endpoint", r.name).
		Str("url", req.URL.String()).
		Msg("Making backend API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(r.name, 0, start)
		return fmt.Errorf("%w: %w", ErrNoConnection, err)
	}
	defer resp.Body.Close()
	c.observe(r.name, resp.StatusCode, start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrNoConnection, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	return nil
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.observer != nil {
		c.observer(endpoint, status, time.Since(start))
	}
}

// Login authenticates against the backend
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	var resp AuthResponse
	err := c.do(ctx, request{
		name:   "login",
		method: http.MethodPost,
		path:   "/login",
		body:   map[string]string{"username": username, "password": password},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	c.logger.Debug().Str("username", resp.User.Username).Msg("Logged in to backend")
	return &resp.User, nil
}

// Register creates a backend account
func (c *Client) Register(ctx context.Context, username, password string) (*User, error) {
	var resp AuthResponse
	err := c.do(ctx, request{
		name:   "register",
		method: http.MethodPost,
		path:   "/register",
		body:   map[string]string{"username": username, "password": password},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	if resp.User.Username == "" {
		resp.User.Username = username
	}
	return &resp.User, nil
}

// Logout ends the backend session
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, request{
		name:   "logout",
		method: http.MethodPost,
		path:   "/logout",
	}, nil)
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

// CurrentUser returns the user bound to the current session
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	err := c.do(ctx, request{
		name:   "user",
		method: http.MethodGet,
		path:   "/user",
	}, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &user, nil
}

// AddDownload submits a magnet link or URL for offline download
func (c *Client) AddDownload(ctx context.Context, req AddDownloadRequest) (*AddDownloadResult, error) {
	var result AddDownloadResult
	err := c.do(ctx, request{
		name:   "download",
		method: http.MethodPost,
		path:   "/download",
		body:   req,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to add download: %w", err)
	}
	return &result, nil
}

// PhaseQuery encodes phases as repeated phase parameters in input order
func PhaseQuery(phases []Phase) string {
	return phaseValues(phases).Encode()
}

func phaseValues(phases []Phase) url.Values {
	if len(phases) == 0 {
		return nil
	}
	values := url.Values{}
	for _, p := range phases {
		values.Add("phase", string(p))
	}
	return values
}

// ListTasks lists offline download tasks
func (c *Client) ListTasks(ctx context.Context, phases ...Phase) (*TaskList, error) {
	var list TaskList
	err := c.do(ctx, request{
		name:   "tasks",
		method: http.MethodGet,
		path:   "/tasks",
		query:  phaseValues(phases),
	}, &list)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if list.Tasks == nil {
		list.Tasks = []Task{}
	}

	c.logger.Debug().Int("count", len(list.Tasks)).Msg("Retrieved tasks from backend")
	return &list, nil
}

// DeleteTask deletes a task, optionally removing its downloaded files
func (c *Client) DeleteTask(ctx context.Context, taskID string, deleteFiles bool) error {
	err := c.do(ctx, request{
		name:   "delete_task",
		method: http.MethodDelete,
		path:   "/tasks/" + url.PathEscape(taskID),
		query:  url.Values{"delete_files": {strconv.FormatBool(deleteFiles)}},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}

	c.logger.Info().Str("task_id", taskID).Bool("delete_files", deleteFiles).Msg("Deleted task")
	return nil
}

// RetryTask retries a failed task
func (c *Client) RetryTask(ctx context.Context, taskID string) error {
	err := c.do(ctx, request{
		name:   "retry_task",
		method: http.MethodPost,
		path:   "/tasks/" + url.PathEscape(taskID) + "/retry",
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to retry task %s: %w", taskID, err)
	}
	return nil
}

// ListFiles lists the files in a folder
func (c *Client) ListFiles(ctx context.Context, parentID, pageToken string) (*FileList, error) {
	params := url.Values{}
	if parentID != "" {
		params.Set("parent_id", parentID)
	}
	if pageToken != "" {
		params.Set("page_token", pageToken)
	}

	var list FileList
	err := c.do(ctx, request{
		name:   "files",
		method: http.MethodGet,
		path:   "/files",
		query:  params,
	}, &list)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	if list.Files == nil {
		list.Files = []FileEntry{}
	}

	c.logger.Debug().
		Str("parent_id", parentID).
		Int("count", len(list.Files)).
		Bool("more", list.HasMorePages()).
		Msg("Retrieved files from backend")
	return &list, nil
}

// FileInfo returns details for a single file
func (c *Client) FileInfo(ctx context.Context, fileID string) (*FileEntry, error) {
	var entry FileEntry
	err := c.do(ctx, request{
		name:   "file_info",
		method: http.MethodGet,
		path:   "/files/" + url.PathEscape(fileID),
	}, &entry)
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}
	return &entry, nil
}

// DownloadURL returns link information for a file
func (c *Client) DownloadURL(ctx context.Context, fileID string) (*DownloadInfo, error) {
	var info DownloadInfo
	err := c.do(ctx, request{
		name:   "file_url",
		method: http.MethodGet,
		path:   "/files/" + url.PathEscape(fileID) + "/url",
	}, &info)
	if err != nil {
		return nil, fmt.Errorf("failed to get download URL for %s: %w", fileID, err)
	}
	return &info, nil
}

// TrashFiles moves files to the trash
func (c *Client) TrashFiles(ctx context.Context, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return ErrNoFileIDs
	}

	err := c.do(ctx, request{
		name:   "trash",
		method: http.MethodPost,
		path:   "/files/trash",
		body:   map[string][]string{"ids": fileIDs},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to trash files: %w", err)
	}

	c.logger.Info().Strs("file_ids", fileIDs).Msg("Moved files to trash")
	return nil
}

// Quota returns storage usage for the account
func (c *Client) Quota(ctx context.Context) (*Quota, error) {
	var quota Quota
	err := c.do(ctx, request{
		name:   "quota",
		method: http.MethodGet,
		path:   "/quota",
	}, &quota)
	if err != nil {
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}
	return &quota, nil
}

// Download is a file body streamed through the backend proxy. Callers must
// close Body.
type Download struct {
	Body          io.ReadCloser
	Name          string
	ContentType   string
	ContentLength int64
}

// ProxyDownload opens a streamed download of a file through the backend
func (c *Client) ProxyDownload(ctx context.Context, fileID string) (*Download, error) {
	r := request{
		name:   "proxy_download",
		method: http.MethodGet,
		path:   "/proxy/download/" + url.PathEscape(fileID),
	}
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")

	start := time.Now()
	resp, err := c.streamClient.Do(req)
	if err != nil {
		c.observe(r.name, 0, start)
		return nil, fmt.Errorf("failed to download %s: %w: %w", fileID, ErrNoConnection, err)
	}
	c.observe(r.name, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("failed to download %s: %w", fileID, newAPIError(resp.StatusCode, body))
	}

	dl := &Download{
		Body:          resp.Body,
		Name:          fileID,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := params["filename"]; name != "" {
			dl.Name = name
		}
	}
	if dl.ContentType == "" {
		dl.ContentType = "application/octet-stream"
	}

	return dl, nil
}
