package present

import (
	"sync"

	"nickandperla.net/exaplot/internal/grid"
	"nickandperla.net/exaplot/internal/host"
	"nickandperla.net/exaplot/internal/property"
)

// Event is one recorded Presenter call.
type Event struct {
	Name  string
	Plot  int
	Value any
}

// Recorder is a Presenter that keeps every call, for tests and headless use.
type Recorder struct {
	mu      sync.Mutex
	events  []Event
	message string

	// Reject, when set, makes Arrange refuse every arrangement.
	Reject bool
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Arrange(cols, rows int, plots []grid.Point) bool {
	r.add(Event{Name: "arrange", Value: [2]int{cols, rows}})
	return !r.Reject
}

func (r *Recorder) Update(u Update) { r.add(Event{Name: "update", Plot: u.Plot, Value: u}) }

func (r *Recorder) Property(plot int, n property.Name, v property.Value) {
	r.add(Event{Name: "property", Plot: plot, Value: [2]any{n, v}})
}

func (r *Recorder) ShowPlot(plot int, t host.PlotType) {
	r.add(Event{Name: "show", Plot: plot, Value: t})
}

func (r *Recorder) Message(text string, append bool) {
	r.mu.Lock()
	if append {
		r.message += text
	} else {
		r.message = text
	}
	r.mu.Unlock()
	r.add(Event{Name: "message", Value: text})
}

func (r *Recorder) State(s string)     { r.add(Event{Name: "state", Value: s}) }
func (r *Recorder) Report(rep Report)  { r.add(Event{Name: "report", Value: rep}) }
func (r *Recorder) Finished(o Outcome) { r.add(Event{Name: "finished", Value: o}) }

// Events returns a copy of the recorded calls.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Named returns the recorded calls with the given name.
func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// StatusMessage returns the current status message.
func (r *Recorder) StatusMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.message
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.message = ""
}
