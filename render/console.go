package render

import (
	"fmt"
	"strings"

	"github.com/s0up4200/pikfront/backend"
	"github.com/s0up4200/pikfront/session"
)

// ConsoleFormatter provides terminal output for the CLI
type ConsoleFormatter struct {
	ShowIDs bool
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(showIDs bool) *ConsoleFormatter {
	return &ConsoleFormatter{ShowIDs: showIDs}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatTasks formats a task list as a tree
func (f *ConsoleFormatter) FormatTasks(tasks []backend.Task) string {
	if len(tasks) == 0 {
		return EmptyTasksMessage
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s (%d):\n\n", plural(len(tasks), "Task", "Tasks"), len(tasks))

	for i := range tasks {
		task := &tasks[i]
		isLast := i == len(tasks)-1
		prefix := "├"
		indent := "│   "
		if isLast {
			prefix = "╰"
			indent = "    "
		}

		fmt.Fprintf(&sb, "%s── %s\n", prefix, task.Name)

		parts := []string{fmt.Sprintf("%s %d%%", task.Phase.Label(), task.ClampedProgress())}
		if task.FileSize > 0 {
			parts = append(parts, FormatSize(task.FileSize.Int64()))
		}
		if created := FormatTime(task.Created()); created != "" {
			parts = append(parts, "Added: "+created)
		}
		if f.ShowIDs {
			parts = append(parts, "ID: "+task.ID)
		}
		fmt.Fprintf(&sb, "%s%s\n", indent, strings.Join(parts, " | "))

		if task.Message != "" && task.Phase == backend.PhaseError {
			fmt.Fprintf(&sb, "%s%s\n", indent, task.Message)
		}

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatFiles formats a folder listing, folders first
func (f *ConsoleFormatter) FormatFiles(files []backend.FileEntry, path string) string {
	if len(files) == 0 {
		return EmptyFilesMessage
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s (%d %s):\n\n", path, len(files), plural(len(files), "item", "items"))

	sorted := SortFiles(files)
	for i := range sorted {
		file := &sorted[i]
		isLast := i == len(sorted)-1
		prefix := "├"
		if isLast {
			prefix = "╰"
		}

		name := file.Name
		var details []string
		if file.IsFolder() {
			name += "/"
		} else {
			details = append(details, FormatSize(file.Size.Int64()))
		}
		if created := FormatTime(file.Created()); created != "" {
			details = append(details, created)
		}
		if f.ShowIDs {
			details = append(details, "ID: "+file.ID)
		}

		fmt.Fprintf(&sb, "%s── %s", prefix, name)
		if len(details) > 0 {
			fmt.Fprintf(&sb, "  (%s)", strings.Join(details, " | "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatBreadcrumbs joins the navigation stack into a path
func (f *ConsoleFormatter) FormatBreadcrumbs(stack []session.Folder) string {
	if len(stack) == 0 {
		return session.RootName
	}
	names := make([]string, len(stack))
	for i, folder := range stack {
		names[i] = folder.Name
		if names[i] == "" {
			names[i] = session.RootName
		}
	}
	return strings.Join(names, " / ")
}

// FormatQuota formats storage usage
func (f *ConsoleFormatter) FormatQuota(quota *backend.Quota) string {
	if quota == nil {
		return "Quota unavailable"
	}

	var sb strings.Builder
	sb.WriteString("\nStorage:\n")
	fmt.Fprintf(&sb, "- Used: %s\n", FormatSize(quota.Quota.Usage.Int64()))
	if quota.Quota.Limit > 0 {
		fmt.Fprintf(&sb, "- Limit: %s (%.1f%% used)\n", FormatSize(quota.Quota.Limit.Int64()), quota.UsedPercent())
	} else {
		sb.WriteString("- Limit: unlimited\n")
	}
	if quota.Quota.UsageInTrash > 0 {
		fmt.Fprintf(&sb, "- In trash: %s\n", FormatSize(quota.Quota.UsageInTrash.Int64()))
	}
	return sb.String()
}
