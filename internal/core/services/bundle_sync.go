package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
)

// DefaultUploadDebounce is how long the selection must be quiet before it
// is uploaded
const DefaultUploadDebounce = 300 * time.Millisecond

// UploadStatus is the lifecycle of the current bundle
type UploadStatus string

const (
	UploadIdle    UploadStatus = "idle"
	UploadPending UploadStatus = "pending"
	UploadReady   UploadStatus = "ready"
	UploadFailed  UploadStatus = "failed"
)

// BundleState is a snapshot of the upload workflow
type BundleState struct {
	Status      UploadStatus
	BundleID    string
	Files       []string
	FailedFiles []string
	Err         error
	MainImage   string
	Selected    []domain.SelectedFile
}

// Ready reports whether a bundle can be imported
func (s BundleState) Ready() bool {
	return s.Status == UploadReady && s.BundleID != ""
}

// BundleSync keeps a server-side bundle in step with a local file
// selection. Every change re-uploads the whole selection; only the result
// of the latest change is kept and every superseded bundle is deleted.
type BundleSync struct {
	mu        sync.Mutex
	ctx       context.Context
	api       ports.BundleAPI
	journal   ports.BundleJournal
	logger    *zap.Logger
	debouncer *Debouncer
	selection *Selection
	version   uint64
	state     BundleState
	settled   chan struct{}
	observers []func(BundleState)
	wg        sync.WaitGroup
}

// NewBundleSync creates a bundle workflow. journal may be nil.
func NewBundleSync(ctx context.Context, api ports.BundleAPI, journal ports.BundleJournal, delay time.Duration, logger *zap.Logger) *BundleSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	settled := make(chan struct{})
	close(settled)

	return &BundleSync{
		ctx:       ctx,
		api:       api,
		journal:   journal,
		logger:    logger,
		debouncer: NewDebouncer(delay),
		selection: NewSelection(),
		state:     BundleState{Status: UploadIdle},
		settled:   settled,
	}
}

// Subscribe registers fn to receive every state change
func (b *BundleSync) Subscribe(fn func(BundleState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, fn)
}

// State returns the current snapshot
func (b *BundleSync) State() BundleState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *BundleSync) snapshotLocked() BundleState {
	s := b.state
	s.Files = append([]string(nil), b.state.Files...)
	s.FailedFiles = append([]string(nil), b.state.FailedFiles...)
	s.Selected = b.selection.Files()
	return s
}

// Add merges files into the selection and schedules a re-upload when
// anything new was added
func (b *BundleSync) Add(files ...domain.SelectedFile) int {
	b.mu.Lock()
	added := b.selection.Add(files...)
	if added > 0 {
		b.changedLocked()
	}
	snap := b.snapshotLocked()
	b.mu.Unlock()

	if added > 0 {
		b.notify(snap)
	}
	return added
}

// Remove drops one file by key
func (b *BundleSync) Remove(key string) bool {
	return b.mutate(func(s *Selection) bool { return s.Remove(key) })
}

// RemovePath drops the files picked from path
func (b *BundleSync) RemovePath(path string) bool {
	return b.mutate(func(s *Selection) bool { return s.RemovePath(path) })
}

// Clear empties the selection and forgets the bundle
func (b *BundleSync) Clear() {
	b.mutate(func(s *Selection) bool {
		had := s.Len() > 0
		s.Clear()
		return had
	})
}

func (b *BundleSync) mutate(change func(*Selection) bool) bool {
	b.mu.Lock()
	changed := change(b.selection)
	if changed {
		b.changedLocked()
	}
	snap := b.snapshotLocked()
	b.mu.Unlock()

	if changed {
		b.notify(snap)
	}
	return changed
}

// changedLocked reacts to a selection change: re-propose the main image and
// either schedule an upload or reset everything when nothing is selected
func (b *BundleSync) changedLocked() {
	b.version++
	b.state.MainImage = b.selection.DefaultMainImage()

	if b.selection.Len() == 0 {
		b.debouncer.Cancel()
		if b.state.BundleID != "" {
			b.discardAsync(b.state.BundleID)
		}
		b.state = BundleState{Status: UploadIdle}
		b.markSettledLocked()
		return
	}

	b.state.Status = UploadPending
	b.state.Err = nil
	b.markPendingLocked()
	b.debouncer.Trigger(b.startUpload)
}

// Flush skips the remaining debounce delay and uploads now
func (b *BundleSync) Flush() {
	b.mu.Lock()
	pending := b.debouncer.Pending()
	b.debouncer.Cancel()
	b.mu.Unlock()

	if pending {
		b.startUpload()
	}
}

// SetMainImage picks the main image by file name. An empty name means none.
func (b *BundleSync) SetMainImage(name string) error {
	b.mu.Lock()
	if name != "" && !b.selection.HasImage(name) {
		b.mu.Unlock()
		return domain.NewValidationError("Main image must be one of the selected images: " + name)
	}
	b.state.MainImage = name
	snap := b.snapshotLocked()
	b.mu.Unlock()

	b.notify(snap)
	return nil
}

// startUpload runs when the debounce period ends. The upload itself runs
// in the background so the timer goroutine is never blocked.
func (b *BundleSync) startUpload() {
	b.mu.Lock()
	if b.selection.Len() == 0 {
		b.mu.Unlock()
		return
	}
	version := b.version
	files := make([]ports.UploadFile, 0, b.selection.Len())
	for _, f := range b.selection.Files() {
		files = append(files, ports.UploadFile{Name: f.Name, Path: f.Path})
	}
	b.wg.Add(1)
	b.mu.Unlock()

	b.logger.Debug("uploading bundle", zap.Uint64("version", version), zap.Int("files", len(files)))

	go func() {
		defer b.wg.Done()
		bundle, err := b.api.CreateBundle(b.ctx, files)
		b.finish(version, bundle, err)
	}()
}

func (b *BundleSync) finish(version uint64, bundle *domain.Bundle, err error) {
	if err == nil && bundle != nil {
		b.record(*bundle)
	}

	b.mu.Lock()
	if version != b.version {
		b.mu.Unlock()
		b.logger.Debug("ignoring superseded upload", zap.Uint64("version", version))
		if err == nil && bundle != nil {
			b.discard(bundle.ID)
		}
		return
	}

	previous := b.state.BundleID
	if err != nil {
		b.logger.Warn("bundle upload failed", zap.Error(err))
		b.state.Status = UploadFailed
		b.state.Err = err
		b.state.BundleID = ""
		b.state.Files = nil
		b.state.FailedFiles = nil
	} else {
		b.state.Status = UploadReady
		b.state.Err = nil
		b.state.BundleID = bundle.ID
		b.state.Files = bundle.Files
		b.state.FailedFiles = bundle.FailedFiles
	}
	b.markSettledLocked()
	snap := b.snapshotLocked()
	b.mu.Unlock()

	if previous != "" && previous != snap.BundleID {
		b.discard(previous)
	}
	b.notify(snap)
}

// Consume forgets the current bundle after it was imported into projectID
// and clears the selection
func (b *BundleSync) Consume(projectID string) {
	b.mu.Lock()
	id := b.state.BundleID
	b.debouncer.Cancel()
	b.version++
	b.selection.Clear()
	b.state = BundleState{Status: UploadIdle}
	b.markSettledLocked()
	snap := b.snapshotLocked()
	b.mu.Unlock()

	if id != "" && b.journal != nil {
		ctx, cancel := b.detached()
		defer cancel()
		if err := b.journal.MarkConsumed(ctx, id, projectID); err != nil {
			b.logger.Warn("journal update failed", zap.String("bundle", id), zap.Error(err))
		}
	}
	b.notify(snap)
}

// Wait blocks until no upload is pending and returns the settled state
func (b *BundleSync) Wait(ctx context.Context) (BundleState, error) {
	for {
		b.mu.Lock()
		if b.state.Status != UploadPending {
			snap := b.snapshotLocked()
			b.mu.Unlock()
			return snap, nil
		}
		ch := b.settled
		b.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return b.State(), ctx.Err()
		}
	}
}

// Close stops scheduling uploads and waits for running ones to finish
func (b *BundleSync) Close() {
	b.mu.Lock()
	b.debouncer.Cancel()
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *BundleSync) markPendingLocked() {
	select {
	case <-b.settled:
		b.settled = make(chan struct{})
	default:
	}
}

func (b *BundleSync) markSettledLocked() {
	select {
	case <-b.settled:
	default:
		close(b.settled)
	}
}

func (b *BundleSync) notify(s BundleState) {
	b.mu.Lock()
	observers := append([]func(BundleState){}, b.observers...)
	b.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}

// cleanupTimeout bounds deletes and journal writes made after the
// workflow context may already be cancelled
const cleanupTimeout = 10 * time.Second

// detached returns a bounded context that survives cancellation of b.ctx.
// An interrupted session must still delete the bundles it staged.
func (b *BundleSync) detached() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(b.ctx), cleanupTimeout)
}

func (b *BundleSync) record(bundle domain.Bundle) {
	if b.journal == nil {
		return
	}
	ctx, cancel := b.detached()
	defer cancel()
	if err := b.journal.Record(ctx, bundle); err != nil {
		b.logger.Warn("journal record failed", zap.String("bundle", bundle.ID), zap.Error(err))
	}
}

// discard deletes a superseded bundle. Failures are logged only; the
// journal keeps the bundle staged so it can be pruned later.
func (b *BundleSync) discard(id string) {
	ctx, cancel := b.detached()
	defer cancel()
	if err := b.api.DeleteBundle(ctx, id); err != nil {
		b.logger.Warn("failed to delete stale bundle", zap.String("bundle", id), zap.Error(err))
		return
	}
	if b.journal != nil {
		if err := b.journal.MarkDiscarded(ctx, id); err != nil {
			b.logger.Warn("journal update failed", zap.String("bundle", id), zap.Error(err))
		}
	}
}

func (b *BundleSync) discardAsync(id string) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.discard(id)
	}()
}
