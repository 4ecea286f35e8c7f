package web

import (
	"html/template"
	"sync"

	"github.com/s0up4200/pikfront/app"
	"github.com/s0up4200/pikfront/backend"
	"github.com/s0up4200/pikfront/render"
)

// maxPendingNotifications caps the flash queue between page loads
const maxPendingNotifications = 20

// Page holds the latest markup for every panel. It implements app.View and
// is rendered into the shell on each request.
type Page struct {
	mu            sync.Mutex
	authChecked   bool
	user          *backend.User
	tasks         string
	files         string
	breadcrumbs   string
	quota         string
	downloadInput string
	filterExpr    string
	filterPhases  map[backend.Phase]bool
	notifications []app.Notification
}

var _ app.View = (*Page)(nil)

// NewPage creates an empty page
func NewPage() *Page {
	return &Page{}
}

// PageState is a snapshot of the page for the template
type PageState struct {
	LoggedIn      bool
	Username      string
	Tasks         template.HTML
	Files         template.HTML
	Breadcrumbs   template.HTML
	Quota         template.HTML
	Notifications template.HTML
	DownloadInput string
	FilterExpr    string
	Phases        []PhaseOption
	Presets       []string
	RefreshAfter  int
}

// PhaseOption is one checkbox of the task phase filter
type PhaseOption struct {
	Value   string
	Label   string
	Checked bool
}

func (p *Page) ShowLogin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authChecked = true
	p.user = nil
	p.tasks, p.files, p.breadcrumbs, p.quota = "", "", "", ""
	p.downloadInput = ""
	p.filterExpr = ""
	p.filterPhases = nil
}

func (p *Page) ShowUser(user backend.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authChecked = true
	p.user = &user
}

func (p *Page) SetTasks(markup string) {
	p.mu.Lock()
	p.tasks = markup
	p.mu.Unlock()
}

func (p *Page) SetFiles(markup string) {
	p.mu.Lock()
	p.files = markup
	p.mu.Unlock()
}

func (p *Page) SetBreadcrumbs(markup string) {
	p.mu.Lock()
	p.breadcrumbs = markup
	p.mu.Unlock()
}

func (p *Page) SetQuota(markup string) {
	p.mu.Lock()
	p.quota = markup
	p.mu.Unlock()
}

func (p *Page) ClearDownloadInput() {
	p.mu.Lock()
	p.downloadInput = ""
	p.mu.Unlock()
}

// Notify queues a notification until the next page render. The oldest
// entries are dropped once the queue is full.
func (p *Page) Notify(n app.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
	if extra := len(p.notifications) - maxPendingNotifications; extra > 0 {
		p.notifications = p.notifications[extra:]
	}
}

// AuthChecked reports whether the controller decided between login and main
// screen yet
func (p *Page) AuthChecked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authChecked
}

// LoggedIn reports whether the main screen is shown
func (p *Page) LoggedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user != nil
}

// SetDownloadInput remembers the submitted value so a failed submission
// keeps it in the form
func (p *Page) SetDownloadInput(value string) {
	p.mu.Lock()
	p.downloadInput = value
	p.mu.Unlock()
}

// SetTaskFilter remembers the filter form values
func (p *Page) SetTaskFilter(expression string, phases []backend.Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filterExpr = expression
	p.filterPhases = make(map[backend.Phase]bool, len(phases))
	for _, phase := range phases {
		p.filterPhases[phase] = true
	}
}

// Fragment returns the markup of one panel. Reading the notifications
// fragment consumes them.
func (p *Page) Fragment(name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "tasks":
		return p.tasks, true
	case "files":
		return p.files, true
	case "breadcrumbs":
		return p.breadcrumbs, true
	case "quota":
		return p.quota, true
	case "notifications":
		return p.takeNotificationsLocked(), true
	default:
		return "", false
	}
}

func (p *Page) takeNotificationsLocked() string {
	var markup string
	for _, n := range p.notifications {
		markup += render.Notification(string(n.Level), n.Message)
	}
	p.notifications = nil
	return markup
}

// Snapshot returns the state to render and flushes pending notifications
func (p *Page) Snapshot() PageState {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := PageState{
		LoggedIn:      p.user != nil,
		Tasks:         template.HTML(p.tasks),
		Files:         template.HTML(p.files),
		Breadcrumbs:   template.HTML(p.breadcrumbs),
		Quota:         template.HTML(p.quota),
		Notifications: template.HTML(p.takeNotificationsLocked()),
		DownloadInput: p.downloadInput,
		FilterExpr:    p.filterExpr,
	}
	if p.user != nil {
		state.Username = p.user.DisplayName()
	}
	for _, phase := range backend.AllPhases {
		state.Phases = append(state.Phases, PhaseOption{
			Value:   phase.Short(),
			Label:   phase.Label(),
			Checked: p.filterPhases[phase],
		})
	}
	return state
}
