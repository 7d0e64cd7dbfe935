package registration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Registry keeps one Form per browser session so the form state survives
// between requests. Idle forms are dropped by Sweep.
type Registry struct {
	registrar Registrar
	logger    *logrus.Logger
	now       func() time.Time

	mu    sync.Mutex
	forms map[string]*entry
}

type entry struct {
	form     *Form
	lastSeen time.Time
}

func NewRegistry(registrar Registrar, logger *logrus.Logger) *Registry {
	return &Registry{
		registrar: registrar,
		logger:    logger,
		now:       time.Now,
		forms:     make(map[string]*entry),
	}
}

// Get returns the form stored under key. An unknown or empty key gets a new
// form under a new key; callers should persist the returned key.
func (r *Registry) Get(key string) (string, *Form) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.forms[key]; ok && key != "" {
		e.lastSeen = r.now()
		return key, e.form
	}

	key = uuid.NewString()
	form := NewForm(r.registrar, r.logger)
	r.forms[key] = &entry{form: form, lastSeen: r.now()}
	return key, form
}

// Sweep drops forms idle for longer than ttl, except ones mid-submission.
func (r *Registry) Sweep(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-ttl)
	dropped := 0
	for key, e := range r.forms {
		if e.lastSeen.Before(cutoff) && e.form.State() != Submitting {
			delete(r.forms, key)
			dropped++
		}
	}
	return dropped
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(ttl); n > 0 {
				r.logger.WithField("dropped", n).Debug("idle registration forms swept")
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forms)
}
