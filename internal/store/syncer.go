package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type SyncOptions struct {
	Debounce time.Duration // coalescing window
	Timeout  time.Duration // per remote call
}

// Syncer pushes the latest scheduled snapshot of one tournament to a
// RemoteStore. Schedule never blocks: bursts of calls inside the debounce
// window collapse into one write of the newest snapshot. Failures are
// logged and dropped; the next Schedule tries again.
type Syncer struct {
	remote   RemoteStore
	opts     SyncOptions
	log      *zap.Logger
	onSynced func(id string)

	mu      sync.Mutex
	pending *Snapshot
	lastID  string

	kick    chan struct{}
	flushes chan chan struct{}
	quit    chan struct{}
	done    chan struct{}
	closing sync.Once
}

// NewSyncer starts the sync goroutine. onSynced, if set, is called from that
// goroutine with the remote id after each successful write.
func NewSyncer(remote RemoteStore, opts SyncOptions, log *zap.Logger, onSynced func(id string)) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Syncer{
		remote:   remote,
		opts:     opts,
		log:      log,
		onSynced: onSynced,
		kick:     make(chan struct{}, 1),
		flushes:  make(chan chan struct{}),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Syncer) Schedule(snap Snapshot) {
	s.mu.Lock()
	s.pending = &snap
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Flush writes any pending snapshot now and waits for it.
func (s *Syncer) Flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case s.flushes <- reply:
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes any pending snapshot and stops the goroutine.
func (s *Syncer) Close() {
	s.closing.Do(func() { close(s.quit) })
	<-s.done
}

func (s *Syncer) run() {
	defer close(s.done)

	var timer *time.Timer
	var fire <-chan time.Time
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
		fire = nil
	}

	for {
		select {
		case <-s.kick:
			stop()
			timer = time.NewTimer(s.opts.Debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			s.syncPending()

		case reply := <-s.flushes:
			stop()
			s.syncPending()
			close(reply)

		case <-s.quit:
			stop()
			s.syncPending()
			return
		}
	}
}

func (s *Syncer) syncPending() {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	if snap != nil && snap.ID == "" {
		snap.ID = s.lastID
	}
	s.mu.Unlock()
	if snap == nil {
		return
	}

	ctx := context.Background()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	id, err := s.remote.Sync(ctx, *snap)
	if err != nil {
		s.log.Warn("remote sync failed",
			zap.String("code", snap.Code),
			zap.Int("version", snap.Version),
			zap.Error(fmt.Errorf("%w: %w", ErrRemoteSync, err)),
		)
		return
	}

	s.mu.Lock()
	s.lastID = id
	s.mu.Unlock()
	s.log.Debug("remote sync ok", zap.String("code", snap.Code), zap.String("id", id), zap.Int("version", snap.Version))
	if s.onSynced != nil && id != "" {
		s.onSynced(id)
	}
}
