package form

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/jobportal/internal/apperr"
	"github.com/kalambet/jobportal/internal/delay"
	"github.com/kalambet/jobportal/internal/nav"
	"github.com/kalambet/jobportal/internal/notify"
	"github.com/kalambet/jobportal/internal/resume"
)

// ErrClosed is returned by operations on a closed flow.
var ErrClosed = errors.New("form is closed")

// Delays are the simulated latencies per Pace.
type Delays struct {
	Standard time.Duration
	Slow     time.Duration
}

// DefaultDelays mirror the product: one second, two for payments and applications.
func DefaultDelays() Delays {
	return Delays{Standard: time.Second, Slow: 2 * time.Second}
}

func (d Delays) For(p Pace) time.Duration {
	switch p {
	case PaceSlow:
		return d.Slow
	case PaceImmediate:
		return 0
	default:
		return d.Standard
	}
}

// Options configure new flows.
type Options struct {
	Scheduler delay.Scheduler
	Delays    Delays // zero values complete on the next tick
	Notifier  notify.Notifier
	Navigator nav.Navigator // receives navigations in addition to the flow's own recorder
	Deps      Deps
	Logger    *slog.Logger
	// OnSubmit observes every Submit outcome.
	OnSubmit func(Name, Outcome)
	Now      func() time.Time
}

// Flow is one open instance of a form definition wired to its collaborators.
type Flow struct {
	id     string
	def    *Definition
	store  *Store
	opts   Options
	nav    *nav.Recorder
	logger *slog.Logger

	mu       sync.Mutex
	result   *Result
	lastSeen time.Time
}

// NewFlow opens def with fresh initial state.
func NewFlow(def *Definition, opts Options) *Flow {
	if opts.Notifier == nil {
		opts.Notifier = notify.Multi{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	f := &Flow{
		id:     uuid.NewString(),
		def:    def,
		store:  New(opts.Delays.For(def.Pace), opts.Scheduler, def.Initial),
		opts:   opts,
		nav:    nav.NewRecorder(),
		logger: logger.With("form", def.Name),
	}
	f.lastSeen = opts.Now()
	return f
}

func (f *Flow) ID() string              { return f.id }
func (f *Flow) Definition() *Definition { return f.def }

func (f *Flow) touch() {
	f.mu.Lock()
	f.lastSeen = f.opts.Now()
	f.mu.Unlock()
}

// Update sets fields, applying the form's input formatting to strings.
// Values are not validated until Submit. A rejected update writes nothing.
func (f *Flow) Update(fields map[string]any) error {
	if f.store.Closed() {
		return ErrClosed
	}
	if _, ok := fields[f.def.Attachment]; ok && f.def.Attachment != "" {
		return apperr.Validation("upload the resume as an attachment").WithField(f.def.Attachment)
	}
	for k, v := range fields {
		if fn, ok := f.def.Format[k]; ok {
			if str, isStr := v.(string); isStr {
				v = fn(str)
			}
		}
		f.store.Update(k, v)
	}
	f.touch()
	return nil
}

// Attach inspects an uploaded resume and stores its description in the
// attachment field. Unsupported files are reported through the notifier.
func (f *Flow) Attach(ctx context.Context, name, mimeType string, data []byte) (resume.Info, error) {
	if f.store.Closed() {
		return resume.Info{}, ErrClosed
	}
	if f.def.Attachment == "" {
		return resume.Info{}, apperr.Validation("this form does not take attachments")
	}
	f.touch()
	info, err := resume.Inspect(name, mimeType, data)
	if err != nil {
		f.opts.Notifier.Notify(ctx, notify.Alert("Invalid File Type", "Please upload a PDF or Word document."))
		return resume.Info{}, err
	}
	f.store.Update(f.def.Attachment, info.Map())
	return info, nil
}

// Submit validates and schedules completion. A validation failure is returned
// together with OutcomeRejected after the failure notification went out.
func (f *Flow) Submit(ctx context.Context) (Outcome, *apperr.Error) {
	f.touch()
	// Completion runs after the request that triggered it has returned.
	bg := context.WithoutCancel(ctx)

	var rejected *apperr.Error
	outcome := f.store.Submit(f.def.Validate,
		func(s State) { f.complete(bg, s) },
		func(e *apperr.Error) {
			rejected = e
			n := f.def.Failure(e)
			f.opts.Notifier.Notify(bg, n)
			f.setResult(&Result{Notification: n, Err: e})
		},
	)
	if f.opts.OnSubmit != nil {
		f.opts.OnSubmit(f.def.Name, outcome)
	}
	f.logger.Debug("form submitted", "outcome", outcome)
	return outcome, rejected
}

func (f *Flow) complete(ctx context.Context, s State) {
	res := f.def.Complete(ctx, s, f.opts.Deps)
	f.opts.Notifier.Notify(ctx, res.Notification)
	if res.Destination != "" {
		f.nav.Navigate(res.Destination, res.NavState)
		if f.opts.Navigator != nil {
			f.opts.Navigator.Navigate(res.Destination, res.NavState)
		}
	}
	if res.Err != nil {
		f.logger.Info("form completed with error", "kind", res.Err.Kind, "error", res.Err)
	}
	f.setResult(&res)
}

func (f *Flow) setResult(r *Result) {
	f.mu.Lock()
	f.result = r
	f.mu.Unlock()
}

// Status is a read-only view of a flow.
type Status struct {
	ID          string          `json:"id"`
	Form        Name            `json:"form"`
	Title       string          `json:"title"`
	State       State           `json:"state"`
	Submitting  bool            `json:"submitting"`
	Closed      bool            `json:"closed"`
	Result      *Result         `json:"result,omitempty"`
	Error       *StatusError    `json:"error,omitempty"`
	Destination nav.Destination `json:"destination,omitempty"`
}

// StatusError is the serialisable form of the last error.
type StatusError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Status returns the flow's state with secret fields masked.
func (f *Flow) Status() Status {
	st := Status{
		ID:         f.id,
		Form:       f.def.Name,
		Title:      f.def.Title,
		State:      f.store.Snapshot(),
		Submitting: f.store.Submitting(),
		Closed:     f.store.Closed(),
	}
	for k, v := range st.State {
		if f.def.IsSecret(k) && v != "" && v != nil {
			st.State[k] = "********"
		}
	}
	f.mu.Lock()
	if f.result != nil {
		r := *f.result
		st.Result = &r
		if r.Err != nil {
			st.Error = &StatusError{Type: r.Err.Kind.String(), Message: r.Err.Message, Field: r.Err.Field}
		}
	}
	f.mu.Unlock()
	if v, ok := f.nav.Last(); ok {
		st.Destination = v.Destination
	}
	return st
}

// Close cancels a pending submission and refuses further use.
func (f *Flow) Close() {
	f.store.Close()
}

// IdleSince reports whether the flow has not been used since cutoff.
func (f *Flow) IdleSince(cutoff time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSeen.Before(cutoff)
}
