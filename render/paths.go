package render

import (
	"net/url"
	"strconv"
)

// Routes the rendered markup posts to. The web server registers the same
// patterns.
const (
	OpenFolderPath = "/files/open"
	TrashPath      = "/files/trash"
	LoadMorePath   = "/files/more"
	GoUpPath       = "/files/up"
)

// TaskRetryPath returns the form action retrying a task
func TaskRetryPath(taskID string) string {
	return "/tasks/" + url.PathEscape(taskID) + "/retry"
}

// TaskDeletePath returns the form action deleting a task
func TaskDeletePath(taskID string) string {
	return "/tasks/" + url.PathEscape(taskID) + "/delete"
}

// FileDownloadPath returns the link streaming a file through the proxy
func FileDownloadPath(fileID string) string {
	return "/files/" + url.PathEscape(fileID) + "/download"
}

// FileURLPath returns the link redirecting to a file's direct URL
func FileURLPath(fileID string) string {
	return "/files/" + url.PathEscape(fileID) + "/url"
}

// CrumbPath returns the form action jumping to a breadcrumb index
func CrumbPath(index int) string {
	return "/files/crumb/" + strconv.Itoa(index)
}

// OpenFolderAction returns the form action opening a folder
func OpenFolderAction(id, name string) string {
	return OpenFolderPath + "?" + url.Values{"id": {id}, "name": {name}}.Encode()
}
