package web

import (
	"html/template"
)

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{- if and .LoggedIn (gt .RefreshAfter 0)}}
<meta http-equiv="refresh" content="{{.RefreshAfter}}">
{{- end}}
<title>PikPak Downloader</title>
<style>
body{font-family:system-ui,sans-serif;margin:0 auto;max-width:1100px;padding:1rem;color:#222}
header{display:flex;justify-content:space-between;align-items:center}
.notification{padding:.5rem 1rem;margin:.25rem 0;border-radius:4px;background:#eef}
.notification-success{background:#e6f6e6}.notification-warning{background:#fff4d6}.notification-error{background:#fde2e2}
.task-list{list-style:none;padding:0}.task{border-bottom:1px solid #ddd;padding:.5rem 0}
.task-header{display:flex;justify-content:space-between}.task-message{color:#b00}
.task-actions form,.task-actions a{display:inline-block;margin-right:.5rem}
.file-list{width:100%;border-collapse:collapse}.file-list td,.file-list th{padding:.25rem .5rem;text-align:left}
.folder-link{background:none;border:none;color:#06c;cursor:pointer;padding:0;font:inherit}
.breadcrumbs ol{list-style:none;display:flex;gap:.5rem;padding:0}.breadcrumbs form{display:inline}
.empty-state{color:#777;padding:1rem 0}
section{margin-top:1.5rem}
</style>
</head>
<body>
<header>
<h1>PikPak Downloader</h1>
{{- if .LoggedIn}}
<div class="user">{{.Username}}
<form method="post" action="/refresh" style="display:inline"><button type="submit">Refresh</button></form>
<form method="post" action="/logout" style="display:inline"><button type="submit">Logout</button></form>
</div>
{{- end}}
</header>
<div id="notifications">{{.Notifications}}</div>
{{- if .LoggedIn}}
<section id="download">
<form method="post" action="/downloads">
<input type="text" name="url" value="{{.DownloadInput}}" placeholder="magnet:?xt=urn:btih:... or https://..." size="80" autocomplete="off">
<button type="submit">Download</button>
</form>
</section>
<section id="quota">{{.Quota}}</section>
<section id="tasks">
<h2>Tasks</h2>
<form method="post" action="/tasks/filter" class="task-filter">
{{- range .Phases}}
<label><input type="checkbox" name="phase" value="{{.Value}}"{{if .Checked}} checked{{end}}> {{.Label}}</label>
{{- end}}
<input type="text" name="expr" value="{{.FilterExpr}}" placeholder="filter expression">
{{- if .Presets}}
<select name="preset"><option value="">preset</option>{{range .Presets}}<option value="{{.}}">{{.}}</option>{{end}}</select>
{{- end}}
<button type="submit">Apply</button>
</form>
<div id="task-list">{{.Tasks}}</div>
</section>
<section id="files">
<h2>Files</h2>
<div id="breadcrumbs">{{.Breadcrumbs}}</div>
<div id="file-list">{{.Files}}</div>
</section>
{{- else}}
<section id="login">
<form method="post" action="/login">
<p><label>Username <input type="text" name="username" autocomplete="username" required></label></p>
<p><label>Password <input type="password" name="password" autocomplete="current-password" required></label></p>
<p><button type="submit">Login</button>
<button type="submit" formaction="/register">Register</button></p>
</form>
</section>
{{- end}}
</body>
</html>
`))
