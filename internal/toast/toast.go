// Package toast models the one-shot notifications shown after a user
// action. Delivery is up to the Notifier: the HTTP layer stores them as
// session flashes, tests record them.
package toast

import "sync"

type Variant string

const (
	Default     Variant = "default"
	Destructive Variant = "destructive"
)

type Toast struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

func Success(title, description string) Toast {
	return Toast{Title: title, Description: description, Variant: Default}
}

func Failure(title, description string) Toast {
	return Toast{Title: title, Description: description, Variant: Destructive}
}

type Notifier interface {
	Notify(t Toast)
}

type NotifierFunc func(t Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

// Discard drops every toast.
var Discard Notifier = NotifierFunc(func(Toast) {})

// Recorder keeps every toast it receives.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Notify(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}
