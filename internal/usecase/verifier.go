package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"status-hub/internal/domain"
	"status-hub/internal/infrastructure/debounce"
	"status-hub/utils/logger"

	"golang.org/x/sync/singleflight"
)

// DefaultClassifyTimeout bounds a single classification call.
const DefaultClassifyTimeout = 10 * time.Second

// StatusSnapshot is the published view of the verifier.
type StatusSnapshot struct {
	Status  domain.UserStatus
	Loading bool
}

// ResolutionRecorder receives resolution outcomes, typically for metrics.
type ResolutionRecorder interface {
	CacheHit(ctx context.Context)
	ClassifierCall(ctx context.Context, elapsed time.Duration, err error)
	Fallback(ctx context.Context, reason string)
}

// VerifierConfig tunes the verifier. Zero values select the defaults.
type VerifierConfig struct {
	DebounceWindow  time.Duration
	ClassifyTimeout time.Duration
	// Defer runs f on a later scheduling tick. Defaults to a new goroutine.
	Defer    func(f func())
	Recorder ResolutionRecorder
}

// Verifier is the single source of truth for what the current user may do.
// It reacts to debounced auth events, consults the single-entry status cache,
// classifies on a miss under a deadline and publishes the result.
type Verifier struct {
	source     domain.AuthEventSource
	lookup     domain.IdentityLookup
	classifier domain.StatusClassifier
	cache      domain.StatusCache
	logger     *slog.Logger
	timeout    time.Duration
	deferFn    func(func())
	recorder   ResolutionRecorder
	debouncer  *debounce.Debouncer[domain.AuthEvent]
	refreshes  singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	status      domain.UserStatus
	loading     bool
	seq         uint64
	started     bool
	closed      bool
	unsubscribe func()
	subscribers map[uint64]func(StatusSnapshot)
	nextSubID   uint64

	notifyMu sync.Mutex
}

// NewVerifier creates a verifier. It starts in the loading state with the
// unauthenticated status and does nothing until Start is called.
func NewVerifier(
	src domain.AuthEventSource,
	lookup domain.IdentityLookup,
	classifier domain.StatusClassifier,
	cache domain.StatusCache,
	cfg VerifierConfig,
	l *slog.Logger,
) *Verifier {
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = DefaultClassifyTimeout
	}
	if cfg.Defer == nil {
		cfg.Defer = func(f func()) { go f() }
	}
	if cfg.Recorder == nil {
		cfg.Recorder = noopRecorder{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	v := &Verifier{
		source:      src,
		lookup:      lookup,
		classifier:  classifier,
		cache:       cache,
		logger:      l,
		timeout:     cfg.ClassifyTimeout,
		deferFn:     cfg.Defer,
		recorder:    cfg.Recorder,
		ctx:         ctx,
		cancel:      cancel,
		status:      domain.UnauthenticatedStatus(),
		loading:     true,
		subscribers: make(map[uint64]func(StatusSnapshot)),
	}
	v.debouncer = debounce.New(cfg.DebounceWindow, v.process)
	return v
}

// Start subscribes to the auth event source. Calling it twice is a no-op.
func (v *Verifier) Start() {
	v.mu.Lock()
	if v.started || v.closed {
		v.mu.Unlock()
		return
	}
	v.started = true
	v.mu.Unlock()

	unsubscribe := v.source.Subscribe(v.debouncer.Trigger)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		unsubscribe()
		return
	}
	v.unsubscribe = unsubscribe
}

// Close unsubscribes from the event source, drops any pending event and
// abandons in-flight classification. Nothing is published afterwards.
func (v *Verifier) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	v.debouncer.Stop()
	v.cancel()
}

// Status returns the current status.
func (v *Verifier) Status() domain.UserStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Loading reports whether a resolution is in flight or awaiting its recheck.
func (v *Verifier) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Snapshot returns status and loading read together.
func (v *Verifier) Snapshot() StatusSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return StatusSnapshot{Status: v.status, Loading: v.loading}
}

// Subscribe registers fn to receive the snapshot after every change.
func (v *Verifier) Subscribe(fn func(StatusSnapshot)) (unsubscribe func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.nextSubID++
	id := v.nextSubID
	v.subscribers[id] = fn

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subscribers, id)
	}
}

// Refresh invalidates the cache, re-reads the current identity from the
// provider and resolves it. It never fails: an expired session or any other
// error yields the unauthenticated status. Concurrent calls share one run.
func (v *Verifier) Refresh(ctx context.Context) domain.UserStatus {
	// A disconnecting caller must not abandon the refresh halfway; the
	// classification deadline still bounds it.
	ctx = context.WithoutCancel(ctx)
	_, _, _ = v.refreshes.Do("refresh", func() (any, error) {
		v.refresh(ctx)
		return nil, nil
	})
	return v.Status()
}

func (v *Verifier) refresh(ctx context.Context) {
	seq := v.begin()
	ctx = logger.WithResolutionSeq(ctx, seq)
	if !v.invalidate(seq) {
		return
	}

	identity, err := v.lookup.CurrentIdentity(ctx)
	if err != nil {
		v.fail(ctx, seq, fmt.Errorf("refresh identity: %w", err))
		return
	}
	if identity == nil {
		v.signOutPass(ctx, seq, "refresh found no session")
		return
	}

	v.resolvePass(logger.WithUserID(ctx, identity.ID), seq, identity)
}

// invalidate clears the cache for pass seq. Results of earlier passes can
// no longer be stored once seq has been issued.
func (v *Verifier) invalidate(seq uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || seq != v.seq {
		return false
	}
	v.cache.Clear()
	return true
}

// process handles one debounced event.
func (v *Verifier) process(event domain.AuthEvent) {
	if v.ctx.Err() != nil {
		return
	}
	ctx := logger.WithEventKind(v.ctx, string(event.Kind))

	identity := event.Identity()

	switch event.Kind {
	case domain.EventInitialSession, domain.EventSignedIn,
		domain.EventSignedOut, domain.EventTokenRefreshed:
		if identity == nil {
			v.signOut(ctx, string(event.Kind)+" without session")
			return
		}
		v.resolve(ctx, identity)
	case domain.EventUserUpdated:
		if identity == nil {
			v.logger.DebugContext(ctx, "ignoring user update without session")
			return
		}
		v.resolve(ctx, identity)
	default:
		v.logger.DebugContext(ctx, "ignoring auth event")
	}
}

// resolve publishes the cached status for identity or classifies it.
func (v *Verifier) resolve(ctx context.Context, identity *domain.UserIdentity) {
	seq := v.begin()
	v.resolvePass(logger.WithResolutionSeq(logger.WithUserID(ctx, identity.ID), seq), seq, identity)
}

func (v *Verifier) resolvePass(ctx context.Context, seq uint64, identity *domain.UserIdentity) {
	switch v.publishCached(seq, identity.ID) {
	case cacheHit:
		v.recorder.CacheHit(ctx)
		v.logger.DebugContext(ctx, "status served from cache")
		return
	case passSuperseded:
		v.logger.DebugContext(ctx, "pass superseded before classification")
		return
	}

	start := time.Now()
	status, err := v.classifyWithDeadline(ctx, identity)
	v.recorder.ClassifierCall(ctx, time.Since(start), err)
	if err != nil {
		v.fail(ctx, seq, err)
		return
	}

	if !v.commit(seq, identity.ID, *status) {
		v.logger.DebugContext(ctx, "discarding superseded classification")
	}
}

// classifyWithDeadline stops waiting for the classifier after the timeout.
// The call itself only observes cancellation through its context.
func (v *Verifier) classifyWithDeadline(ctx context.Context, identity *domain.UserIdentity) (*domain.UserStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	type result struct {
		status *domain.UserStatus
		err    error
	}
	done := make(chan result, 1)
	go func() {
		status, err := v.classifier.Classify(ctx, identity)
		done <- result{status: status, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && r.status == nil {
			return nil, errors.New("classifier returned no status")
		}
		return r.status, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", domain.ErrClassificationTimeout, v.timeout)
		}
		return nil, ctx.Err()
	}
}

// begin issues a new resolution sequence number and marks loading.
func (v *Verifier) begin() uint64 {
	v.mu.Lock()
	v.seq++
	seq := v.seq
	changed := !v.loading && !v.closed
	v.loading = true
	v.mu.Unlock()

	if changed {
		v.notify()
	}
	return seq
}

type cacheOutcome int

const (
	cacheMiss cacheOutcome = iota
	cacheHit
	passSuperseded
)

// publishCached publishes the cached status for userID if pass seq is still
// current.
func (v *Verifier) publishCached(seq uint64, userID string) cacheOutcome {
	v.mu.Lock()
	if v.closed || seq != v.seq {
		v.mu.Unlock()
		return passSuperseded
	}
	cached, ok := v.cache.Lookup(userID)
	if !ok {
		v.mu.Unlock()
		return cacheMiss
	}
	recheck := v.setStatusLocked(*cached)
	v.mu.Unlock()

	v.settle(seq, recheck)
	return cacheHit
}

// commit publishes a fresh classification if seq is still the latest and
// caches it when it grants access.
func (v *Verifier) commit(seq uint64, userID string, status domain.UserStatus) bool {
	v.mu.Lock()
	if v.closed || seq != v.seq {
		v.mu.Unlock()
		return false
	}
	if status.CanAccessDashboard && userID != "" {
		v.cache.Store(userID, status)
	}
	recheck := v.setStatusLocked(status)
	v.mu.Unlock()

	v.settle(seq, recheck)
	return true
}

// fail applies the fallback: cache cleared, unauthenticated, not loading.
func (v *Verifier) fail(ctx context.Context, seq uint64, err error) {
	reason := "error"
	switch {
	case domain.IsSessionExpiry(err):
		reason = "session_expired"
		v.logger.InfoContext(ctx, "session no longer valid", "error", err)
	case errors.Is(err, domain.ErrClassificationTimeout):
		reason = "timeout"
		v.logger.ErrorContext(ctx, "status classification timed out", "timeout", v.timeout)
	case errors.Is(err, context.Canceled) && v.ctx.Err() != nil:
		return
	default:
		v.logger.ErrorContext(ctx, "status classification failed", "error", err)
	}

	v.mu.Lock()
	if v.closed || seq != v.seq {
		v.mu.Unlock()
		return
	}
	v.cache.Clear()
	v.status = domain.UnauthenticatedStatus()
	v.loading = false
	v.mu.Unlock()

	v.recorder.Fallback(ctx, reason)
	v.notify()
}

// signOut clears the cache and publishes the unauthenticated status.
func (v *Verifier) signOut(ctx context.Context, reason string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.seq++
	v.signOutLocked()
	v.mu.Unlock()

	v.logger.InfoContext(ctx, "signed out", "reason", reason)
	v.notify()
}

// signOutPass is signOut for pass seq; it does nothing once seq is stale.
func (v *Verifier) signOutPass(ctx context.Context, seq uint64, reason string) {
	v.mu.Lock()
	if v.closed || seq != v.seq {
		v.mu.Unlock()
		return
	}
	v.signOutLocked()
	v.mu.Unlock()

	v.logger.InfoContext(ctx, "signed out", "reason", reason)
	v.notify()
}

func (v *Verifier) signOutLocked() {
	v.cache.Clear()
	v.status = domain.UnauthenticatedStatus()
	v.loading = false
}

// setStatusLocked stores status and reports whether loading must wait for a
// recheck: access granted without a role is not shown as final on this pass.
func (v *Verifier) setStatusLocked(status domain.UserStatus) bool {
	v.status = status
	if status.Settled() {
		v.loading = false
		return false
	}
	v.loading = true
	return true
}

// settle notifies subscribers and, when needed, schedules the one-shot
// recheck that clears loading on a later tick.
func (v *Verifier) settle(seq uint64, recheck bool) {
	v.notify()
	if recheck {
		v.deferFn(func() { v.recheck(seq) })
	}
}

func (v *Verifier) recheck(seq uint64) {
	v.mu.Lock()
	if v.closed || seq != v.seq || !v.loading {
		v.mu.Unlock()
		return
	}
	if !v.status.Settled() {
		v.logger.WarnContext(logger.WithResolutionSeq(v.ctx, seq), "dashboard access granted without a resolved role")
	}
	v.loading = false
	v.mu.Unlock()

	v.notify()
}

// notify delivers the latest snapshot to subscribers. Deliveries are
// serialized and always carry the state current at delivery time.
func (v *Verifier) notify() {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	snap := StatusSnapshot{Status: v.status, Loading: v.loading}
	subs := make([]func(StatusSnapshot), 0, len(v.subscribers))
	for _, fn := range v.subscribers {
		subs = append(subs, fn)
	}
	v.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

type noopRecorder struct{}

func (noopRecorder) CacheHit(context.Context)                             {}
func (noopRecorder) ClassifierCall(context.Context, time.Duration, error) {}
func (noopRecorder) Fallback(context.Context, string)                     {}
