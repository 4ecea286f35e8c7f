// Package render turns tasks, files and navigation state into markup.
//
// Every function here is pure: the output depends only on the arguments.
// User supplied text (names, messages, IDs) is always HTML escaped.
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/s0up4200/pikfront/backend"
	"github.com/s0up4200/pikfront/session"
)

// Empty-state messages
const (
	EmptyTasksMessage = "No download tasks"
	EmptyFilesMessage = "This folder is empty"
)

var esc = html.EscapeString

func emptyState(message string) string {
	return `<div class="empty-state">` + esc(message) + `</div>`
}

func phaseClass(p backend.Phase) string {
	return "phase-" + strings.ToLower(p.Label())
}

// Tasks renders the task list
func Tasks(tasks []backend.Task) string {
	if len(tasks) == 0 {
		return emptyState(EmptyTasksMessage)
	}

	var sb strings.Builder
	sb.WriteString(`<ul class="task-list">`)
	for i := range tasks {
		writeTask(&sb, &tasks[i])
	}
	sb.WriteString(`</ul>`)
	return sb.String()
}

func writeTask(sb *strings.Builder, task *backend.Task) {
	progress := task.ClampedProgress()
	name := task.Name
	if name == "" {
		name = "Unnamed task"
	}

	fmt.Fprintf(sb, `<li class="task %s" data-task-id="%s">`, phaseClass(task.Phase), esc(task.ID))
	fmt.Fprintf(sb, `<div class="task-header"><span class="task-name" title="%s">%s</span><span class="task-phase %s">%s</span></div>`,
		esc(name), esc(name), phaseClass(task.Phase), esc(task.Phase.Label()))
	fmt.Fprintf(sb, `<div class="task-progress"><progress max="100" value="%d">%d%%</progress><span class="task-percent">%d%%</span></div>`,
		progress, progress, progress)

	var meta []string
	if task.FileSize > 0 {
		meta = append(meta, FormatSize(task.FileSize.Int64()))
	}
	if created := FormatTime(task.Created()); created != "" {
		meta = append(meta, created)
	}
	if len(meta) > 0 {
		fmt.Fprintf(sb, `<div class="task-meta">%s</div>`, esc(strings.Join(meta, " · ")))
	}
	if task.Message != "" && task.Phase == backend.PhaseError {
		fmt.Fprintf(sb, `<div class="task-message">%s</div>`, esc(task.Message))
	}

	sb.WriteString(`<div class="task-actions">`)
	if task.Phase == backend.PhaseError {
		fmt.Fprintf(sb, `<form method="post" action="%s"><button type="submit" class="btn-retry">Retry</button></form>`,
			esc(TaskRetryPath(task.ID)))
	}
	if task.Phase == backend.PhaseComplete && task.FileID != "" {
		fmt.Fprintf(sb, `<a class="btn-download" href="%s">Download</a>`, esc(FileDownloadPath(task.FileID)))
	}
	fmt.Fprintf(sb, `<form method="post" action="%s"><label><input type="checkbox" name="delete_files" value="true"> delete files</label><button type="submit" class="btn-delete">Delete</button></form>`,
		esc(TaskDeletePath(task.ID)))
	sb.WriteString(`</div></li>`)
}

// Files renders a folder listing, folders first. The listing is one form
// whose checkboxes feed the trash action.
func Files(files []backend.FileEntry) string {
	if len(files) == 0 {
		return emptyState(EmptyFilesMessage)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<form method="post" action="%s" class="file-list-form">`, esc(TrashPath))
	sb.WriteString(`<table class="file-list"><thead><tr><th></th><th>Name</th><th>Size</th><th>Created</th><th></th></tr></thead><tbody>`)
	for _, file := range SortFiles(files) {
		writeFile(&sb, &file)
	}
	sb.WriteString(`</tbody></table><button type="submit" class="btn-trash">Move selected to trash</button></form>`)
	return sb.String()
}

func writeFile(sb *strings.Builder, file *backend.FileEntry) {
	created := esc(FormatTime(file.Created()))
	checkbox := fmt.Sprintf(`<input type="checkbox" name="ids" value="%s">`, esc(file.ID))

	if file.IsFolder() {
		fmt.Fprintf(sb, `<tr class="file folder" data-file-id="%s"><td>%s</td>`, esc(file.ID), checkbox)
		fmt.Fprintf(sb, `<td><button type="submit" class="folder-link" formaction="%s">%s</button></td>`,
			esc(OpenFolderAction(file.ID, file.Name)), esc(file.Name))
		fmt.Fprintf(sb, `<td>—</td><td>%s</td><td></td></tr>`, created)
		return
	}

	fmt.Fprintf(sb, `<tr class="file" data-file-id="%s"><td>%s</td>`, esc(file.ID), checkbox)
	fmt.Fprintf(sb, `<td><a href="%s" title="%s">%s</a></td>`,
		esc(FileDownloadPath(file.ID)), esc(file.MimeType), esc(file.Name))
	fmt.Fprintf(sb, `<td>%s</td><td>%s</td>`, esc(FormatSize(file.Size.Int64())), created)
	fmt.Fprintf(sb, `<td><a class="file-url" href="%s" target="_blank" rel="noopener">Link</a></td></tr>`,
		esc(FileURLPath(file.ID)))
}

// LoadMore renders the pagination control, empty when there is nothing left
func LoadMore(hasMore bool) string {
	if !hasMore {
		return ""
	}
	return fmt.Sprintf(`<form method="post" action="%s" class="load-more"><button type="submit">Load more</button></form>`, esc(LoadMorePath))
}

// Breadcrumbs renders the navigation path. Every entry except the last posts
// back to its index.
func Breadcrumbs(stack []session.Folder) string {
	if len(stack) == 0 {
		stack = []session.Folder{session.Root()}
	}

	var sb strings.Builder
	sb.WriteString(`<nav class="breadcrumbs" aria-label="Folder path"><ol>`)
	last := len(stack) - 1
	for i, folder := range stack {
		name := folder.Name
		if name == "" {
			name = session.RootName
		}
		if i == last {
			fmt.Fprintf(&sb, `<li class="current" aria-current="page">%s</li>`, esc(name))
			continue
		}
		fmt.Fprintf(&sb, `<li><form method="post" action="%s"><button type="submit">%s</button></form></li>`,
			esc(CrumbPath(i)), esc(name))
	}
	sb.WriteString(`</ol>`)
	if last > 0 {
		fmt.Fprintf(&sb, `<form method="post" action="%s" class="go-up"><button type="submit">Up</button></form>`, esc(GoUpPath))
	}
	sb.WriteString(`</nav>`)
	return sb.String()
}

// Quota renders storage usage
func Quota(quota *backend.Quota) string {
	if quota == nil {
		return `<div class="quota quota-unknown">Quota unavailable</div>`
	}

	usage := quota.Quota.Usage.Int64()
	limit := quota.Quota.Limit.Int64()
	if limit <= 0 {
		return fmt.Sprintf(`<div class="quota"><span>%s used</span></div>`, esc(FormatSize(usage)))
	}

	percent := min(int(quota.UsedPercent()), 100)
	return fmt.Sprintf(`<div class="quota"><progress max="100" value="%d"></progress><span>%s of %s used</span></div>`,
		percent, esc(FormatSize(usage)), esc(FormatSize(limit)))
}

// Notification renders a transient message. Level is one of info, success,
// warning or error.
func Notification(level, message string) string {
	if level == "" {
		level = "info"
	}
	return fmt.Sprintf(`<div class="notification notification-%s" role="status">%s</div>`, esc(level), esc(message))
}
