// Package nav names the screens of the portal and records where a completed
// flow sends its user.
package nav

import (
	"maps"
	"sync"
	"time"
)

// Destination is a logical screen path.
type Destination string

const (
	Home               Destination = "/"
	Login              Destination = "/login"
	Register           Destination = "/register"
	JobSeekerDashboard Destination = "/job-seeker-dashboard"
	CompanyDashboard   Destination = "/company-dashboard"
	AdminDashboard     Destination = "/admin-dashboard"
	AdminLogin         Destination = "/admin-login"
	SalesDashboard     Destination = "/sales-dashboard"
	SalesLogin         Destination = "/sales-login"
	PostJob            Destination = "/post-job"
	ManageJobs         Destination = "/manage-jobs"
	Applications       Destination = "/applications"
	BrowseJobs         Destination = "/browse-jobs"
	Profile            Destination = "/profile"
	Subscription       Destination = "/subscription"
	Checkout           Destination = "/checkout"
	Contact            Destination = "/contact"
)

// Navigator performs a transition to dest with an optional state payload.
type Navigator interface {
	Navigate(dest Destination, state map[string]any)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(dest Destination, state map[string]any)

func (f NavigatorFunc) Navigate(dest Destination, state map[string]any) { f(dest, state) }

// Discard ignores every navigation.
var Discard Navigator = NavigatorFunc(func(Destination, map[string]any) {})

// Visit is one recorded navigation.
type Visit struct {
	Destination Destination    `json:"destination"`
	State       map[string]any `json:"state,omitempty"`
	At          time.Time      `json:"at"`
}

// Recorder keeps the navigations it receives so an API client can follow them.
type Recorder struct {
	mu     sync.Mutex
	visits []Visit
	now    func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

func (r *Recorder) Navigate(dest Destination, state map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits = append(r.visits, Visit{Destination: dest, State: maps.Clone(state), At: r.now()})
}

// Last returns the most recent navigation.
func (r *Recorder) Last() (Visit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.visits) == 0 {
		return Visit{}, false
	}
	return r.visits[len(r.visits)-1], true
}

// Visits returns a copy of every recorded navigation, oldest first.
func (r *Recorder) Visits() []Visit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Visit, len(r.visits))
	copy(out, r.visits)
	return out
}
