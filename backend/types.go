package backend

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Phase is the lifecycle phase of an offline download task
type Phase string

const (
	// PhaseRunning indicates the task is downloading
	PhaseRunning Phase = "PHASE_TYPE_RUNNING"
	// PhasePending indicates the task is queued
	PhasePending Phase = "PHASE_TYPE_PENDING"
	// PhaseError indicates the task failed
	PhaseError Phase = "PHASE_TYPE_ERROR"
	// PhaseComplete indicates the task finished
	PhaseComplete Phase = "PHASE_TYPE_COMPLETE"
)

const phasePrefix = "PHASE_TYPE_"

// AllPhases lists the phases in the order the task panel shows them
var AllPhases = []Phase{PhaseRunning, PhasePending, PhaseError, PhaseComplete}

// ParsePhase accepts either the full phase name or its short form ("running")
func ParsePhase(s string) (Phase, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if upper == "" {
		return "", ErrUnknownPhase
	}
	if !strings.HasPrefix(upper, phasePrefix) {
		upper = phasePrefix + upper
	}
	for _, p := range AllPhases {
		if string(p) == upper {
			return p, nil
		}
	}
	return "", ErrUnknownPhase
}

// Label returns a human readable name for the phase
func (p Phase) Label() string {
	switch p {
	case PhaseRunning:
		return "Running"
	case PhasePending:
		return "Pending"
	case PhaseError:
		return "Error"
	case PhaseComplete:
		return "Complete"
	case "":
		return "Unknown"
	default:
		return strings.TrimPrefix(string(p), phasePrefix)
	}
}

// Short returns the lowercase short name, e.g. "running"
func (p Phase) Short() string {
	return strings.ToLower(p.Label())
}

// IsActive reports whether the task may still change without user action
func (p Phase) IsActive() bool {
	return p == PhaseRunning || p == PhasePending
}

// Size is a byte count that the backend sends either as a JSON string or number
type Size int64

// UnmarshalJSON implements json.Unmarshaler
func (s *Size) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(str))
		if len(data) == 0 {
			*s = 0
			return nil
		}
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		// Tolerate floats such as 1.5e9 from loosely typed payloads
		f, ferr := strconv.ParseFloat(string(data), 64)
		if ferr != nil {
			*s = 0
			return nil
		}
		n = int64(f)
	}
	*s = Size(n)
	return nil
}

// Int64 returns the size as an int64
func (s Size) Int64() int64 {
	return int64(s)
}

// parseTimestamp parses backend timestamps, returning the zero time when malformed
func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// User is the authenticated backend account
type User struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

// DisplayName returns the best available label for the user
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.UserID
}

// AuthResponse is returned by the login and register endpoints
type AuthResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// Task is an offline download task
type Task struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phase       Phase  `json:"phase"`
	Progress    int    `json:"progress"`
	FileID      string `json:"file_id,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    Size   `json:"file_size,omitempty"`
	Message     string `json:"message,omitempty"`
	CreatedTime string `json:"created_time,omitempty"`
}

// Created returns the task creation time, zero when unknown
func (t *Task) Created() time.Time {
	return parseTimestamp(t.CreatedTime)
}

// ClampedProgress returns the progress bounded to 0..100
func (t *Task) ClampedProgress() int {
	return min(max(t.Progress, 0), 100)
}

// TaskList is the payload of GET /api/tasks
type TaskList struct {
	Tasks         []Task `json:"tasks"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

// AddDownloadRequest is the body of POST /api/download
type AddDownloadRequest struct {
	URL      string `json:"url"`
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name,omitempty"`
}

// AddDownloadResult is returned after submitting a download
type AddDownloadResult struct {
	Success bool            `json:"success"`
	Raw     json.RawMessage `json:"task"`
}

// Task extracts the created task. The backend nests it one level deeper for
// URL uploads, so both shapes are accepted.
func (r *AddDownloadResult) Task() *Task {
	if len(r.Raw) == 0 {
		return nil
	}
	var nested struct {
		Task *Task `json:"task"`
	}
	if err := json.Unmarshal(r.Raw, &nested); err == nil && nested.Task != nil && nested.Task.ID != "" {
		return nested.Task
	}
	var flat Task
	if err := json.Unmarshal(r.Raw, &flat); err == nil && flat.ID != "" {
		return &flat
	}
	return nil
}

const (
	// KindFolder marks a folder entry
	KindFolder = "drive#folder"
	// KindFile marks a regular file entry
	KindFile = "drive#file"
)

// FileEntry is a file or folder in remote storage
type FileEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	Size          Size   `json:"size"`
	CreatedTime   string `json:"created_time,omitempty"`
	MimeType      string `json:"mime_type,omitempty"`
	ParentID      string `json:"parent_id,omitempty"`
	ThumbnailLink string `json:"thumbnail_link,omitempty"`
}

// IsFolder reports whether the entry is a folder
func (f *FileEntry) IsFolder() bool {
	return f.Kind == KindFolder
}

// Created returns the creation time, zero when unknown
func (f *FileEntry) Created() time.Time {
	return parseTimestamp(f.CreatedTime)
}

// FileList is the payload of GET /api/files
type FileList struct {
	Files         []FileEntry `json:"files"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

// HasMorePages reports whether another page can be requested
func (fl *FileList) HasMorePages() bool {
	return fl.NextPageToken != ""
}

// Link is a direct link inside a download payload
type Link struct {
	URL    string `json:"url"`
	Token  string `json:"token,omitempty"`
	Expire string `json:"expire,omitempty"`
}

// Media is a playable or downloadable rendition of a file
type Media struct {
	MediaName string `json:"media_name,omitempty"`
	Link      Link   `json:"link"`
}

// DownloadInfo is the payload of GET /api/files/{id}/url
type DownloadInfo struct {
	FileEntry
	WebContentLink string          `json:"web_content_link,omitempty"`
	Medias         []Media         `json:"medias,omitempty"`
	Links          map[string]Link `json:"links,omitempty"`
}

// URL returns the first usable link: web content link, then the first media,
// then the first entry of links.
func (d *DownloadInfo) URL() string {
	if d.WebContentLink != "" {
		return d.WebContentLink
	}
	if len(d.Medias) > 0 && d.Medias[0].Link.URL != "" {
		return d.Medias[0].Link.URL
	}
	keys := make([]string, 0, len(d.Links))
	for k := range d.Links {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if u := d.Links[k].URL; u != "" {
			return u
		}
	}
	return ""
}

// QuotaDetail holds storage usage figures in bytes
type QuotaDetail struct {
	Limit        Size `json:"limit"`
	Usage        Size `json:"usage"`
	UsageInTrash Size `json:"usage_in_trash"`
}

// Quota is the payload of GET /api/quota
type Quota struct {
	Kind  string      `json:"kind,omitempty"`
	Quota QuotaDetail `json:"quota"`
}

// UsedPercent returns usage as a percentage of the limit, 0 when unlimited
func (q *Quota) UsedPercent() float64 {
	if q.Quota.Limit <= 0 {
		return 0
	}
	return float64(q.Quota.Usage) / float64(q.Quota.Limit) * 100
}
