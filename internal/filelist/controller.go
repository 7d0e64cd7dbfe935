// Package filelist owns the admin view of uploaded files: a cached snapshot
// of the file store, refreshed on a fixed interval, with a search filter and
// the admin mutations. Local state changes only after the store confirms a
// mutation.
package filelist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Revology-Analytics/revify-portal/internal/metrics"
	"github.com/Revology-Analytics/revify-portal/internal/models"
	"github.com/Revology-Analytics/revify-portal/internal/toast"
)

var (
	ErrOperationFailed   = errors.New("operation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// OperationError is returned when the store declines a mutation. It matches
// ErrOperationFailed and unwraps to the store's error.
type OperationError struct {
	Action string
	FileID string
	Err    error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Action, e.FileID, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func (e *OperationError) Is(target error) bool { return target == ErrOperationFailed }

// Source is the file store the controller reads from and mutates.
type Source interface {
	ListFiles(ctx context.Context) ([]models.UploadedFile, error)
	DeleteFile(ctx context.Context, id string) error
	UpdateFileStatus(ctx context.Context, id string, status models.FileStatus) error
}

type Summary struct {
	Files int `json:"files"`
	Users int `json:"users"`
}

type Controller struct {
	source   Source
	interval time.Duration
	logger   *logrus.Entry
	now      func() time.Time

	mu    sync.RWMutex
	files []models.UploadedFile
	term  string

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewController(source Source, interval time.Duration, logger *logrus.Logger) *Controller {
	return &Controller{
		source:   source,
		interval: interval,
		logger:   logger.WithField("component", "filelist"),
		now:      time.Now,
	}
}

// Refresh replaces the cache with a fresh snapshot. On error the previous
// snapshot is kept.
func (c *Controller) Refresh(ctx context.Context) error {
	start := time.Now()
	files, err := c.source.ListFiles(ctx)
	metrics.FileRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FileRefreshFailures.Inc()
		return fmt.Errorf("list files: %w", err)
	}

	c.mu.Lock()
	c.files = files
	c.recordGauge(files)
	c.mu.Unlock()

	c.logger.WithField("files", len(files)).Debug("file list refreshed")
	return nil
}

// Start refreshes once and then every interval until ctx is done or
// Dispose is called. Calling Start twice is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.done != nil {
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)

		c.logger.WithField("interval", c.interval.String()).Info("file list polling started")
		c.refreshLogged(ctx)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("file list polling stopped")
				return
			case <-ticker.C:
				c.refreshLogged(ctx)
			}
		}
	}(c.done)
}

func (c *Controller) refreshLogged(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		c.logger.WithError(err).Warn("file list refresh failed")
	}
}

// Dispose stops polling and waits for the poller to exit.
func (c *Controller) Dispose() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
}

func (c *Controller) SetSearchTerm(term string) {
	c.mu.Lock()
	c.term = term
	c.mu.Unlock()
}

func (c *Controller) SearchTerm() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.term
}

// Files returns a copy of the whole cache.
func (c *Controller) Files() []models.UploadedFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneFiles(c.files)
}

// Visible returns the cached files matching the current search term.
func (c *Controller) Visible() []models.UploadedFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneFiles(Filter(c.files, c.term))
}

// Search filters the cache by term without touching the stored term.
func (c *Controller) Search(term string) []models.UploadedFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneFiles(Filter(c.files, term))
}

func (c *Controller) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	users := make(map[string]struct{}, len(c.files))
	for _, f := range c.files {
		users[f.UserID] = struct{}{}
	}
	return Summary{Files: len(c.files), Users: len(users)}
}

func (c *Controller) DeleteFile(ctx context.Context, id string, n toast.Notifier) error {
	if err := c.source.DeleteFile(ctx, id); err != nil {
		metrics.FileMutations.WithLabelValues("delete", "failure").Inc()
		c.logger.WithError(err).WithField("file_id", id).Warn("delete file failed")
		n.Notify(toast.Failure("Error", "Failed to delete the file."))
		return &OperationError{Action: "delete", FileID: id, Err: err}
	}

	c.mu.Lock()
	kept := c.files[:0:0]
	for _, f := range c.files {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	c.files = kept
	c.recordGauge(kept)
	c.mu.Unlock()

	metrics.FileMutations.WithLabelValues("delete", "success").Inc()
	c.logger.WithField("file_id", id).Info("file deleted")
	n.Notify(toast.Success("File deleted", "The file has been deleted successfully."))
	return nil
}

type statusAction struct {
	name    string
	success toast.Toast
	failure toast.Toast
}

var statusActions = map[models.FileStatus]statusAction{
	models.FileVerified: {
		name:    "verify",
		success: toast.Success("File verified", "The file has been verified successfully."),
		failure: toast.Failure("Error", "Failed to verify the file."),
	},
	models.FileRejected: {
		name:    "reject",
		success: toast.Success("File rejected", "The file has been rejected."),
		failure: toast.Failure("Error", "Failed to reject the file."),
	},
	models.FilePending: {
		name:    "mark_pending",
		success: toast.Success("File marked as pending", "The file is awaiting review again."),
		failure: toast.Failure("Error", "Failed to mark the file as pending."),
	},
}

// SetStatus moves a file to status. verified and rejected stamp VerifiedAt;
// pending leaves it untouched. A transition the cached entry cannot make is
// refused without contacting the store.
func (c *Controller) SetStatus(ctx context.Context, id string, status models.FileStatus, n toast.Notifier) error {
	action, ok := statusActions[status]
	if !ok {
		n.Notify(toast.Failure("Error", "Failed to update the file."))
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	if current, cached := c.cachedStatus(id); cached && !current.CanTransition(status) {
		metrics.FileMutations.WithLabelValues(action.name, "rejected").Inc()
		n.Notify(action.failure)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	if err := c.source.UpdateFileStatus(ctx, id, status); err != nil {
		metrics.FileMutations.WithLabelValues(action.name, "failure").Inc()
		c.logger.WithError(err).WithFields(logrus.Fields{
			"file_id": id,
			"status":  status,
		}).Warn("update file status failed")
		n.Notify(action.failure)
		return &OperationError{Action: action.name, FileID: id, Err: err}
	}

	stamp := status == models.FileVerified || status == models.FileRejected
	now := c.now()

	c.mu.Lock()
	for i := range c.files {
		if c.files[i].ID != id {
			continue
		}
		c.files[i].Status = status
		if stamp {
			t := now
			c.files[i].VerifiedAt = &t
		}
	}
	c.recordGauge(c.files)
	c.mu.Unlock()

	metrics.FileMutations.WithLabelValues(action.name, "success").Inc()
	c.logger.WithFields(logrus.Fields{"file_id": id, "status": status}).Info("file status updated")
	n.Notify(action.success)
	return nil
}

func (c *Controller) Verify(ctx context.Context, id string, n toast.Notifier) error {
	return c.SetStatus(ctx, id, models.FileVerified, n)
}

func (c *Controller) Reject(ctx context.Context, id string, n toast.Notifier) error {
	return c.SetStatus(ctx, id, models.FileRejected, n)
}

func (c *Controller) MarkPending(ctx context.Context, id string, n toast.Notifier) error {
	return c.SetStatus(ctx, id, models.FilePending, n)
}

func (c *Controller) cachedStatus(id string) (models.FileStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.files {
		if f.ID == id {
			return f.Status, true
		}
	}
	return "", false
}

// recordGauge publishes per-status counts for files. Callers that mutate the
// cache call it while still holding mu.
func (c *Controller) recordGauge(files []models.UploadedFile) {
	counts := map[models.FileStatus]int{
		models.FilePending:  0,
		models.FileVerified: 0,
		models.FileRejected: 0,
	}
	for _, f := range files {
		counts[f.Status]++
	}
	for status, n := range counts {
		metrics.CachedFiles.WithLabelValues(string(status)).Set(float64(n))
	}
}

func cloneFiles(files []models.UploadedFile) []models.UploadedFile {
	out := make([]models.UploadedFile, len(files))
	copy(out, files)
	return out
}
