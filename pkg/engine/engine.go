// Package engine runs the meeting alert loop: it keeps today's agenda fresh,
// watches the clock for meetings about to start and owns the single
// full-screen alert session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/borgmon/meetalert/pkg/logging"
	"github.com/borgmon/meetalert/pkg/metrics"
	"github.com/borgmon/meetalert/pkg/models"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("engine: already run")

// Config controls engine timing.
type Config struct {
	AlertThreshold  time.Duration // pre-start window that opens an alert
	TickInterval    time.Duration // alert clock period
	RefreshSchedule string        // cron spec for periodic refreshes
	FetchTimeout    time.Duration // upper bound for one calendar fetch
	AlertExpiry     time.Duration // session closes on its own after this
}

// ConfigFrom extracts the engine settings from the application config.
func ConfigFrom(c *models.Config) Config {
	return Config{
		AlertThreshold:  c.AlertThreshold,
		TickInterval:    c.TickInterval,
		RefreshSchedule: c.RefreshSchedule,
		FetchTimeout:    c.FetchTimeout,
		AlertExpiry:     c.AlertExpiry,
	}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(s metrics.Sink) Option {
	return func(e *Engine) { e.metrics = s }
}

type commandKind int

const (
	cmdCheckNow commandKind = iota
	cmdDismiss
	cmdJoin
	cmdRefresh
)

type command struct {
	kind   commandKind
	reason string
}

type fetchResult struct {
	seq     uint64
	raws    []models.RawEvent
	err     error
	started time.Time
	reason  string
}

// Engine owns the agenda and the alert session. All state changes happen on
// the goroutine running Run; the public methods only post commands to it.
type Engine struct {
	cfg     Config
	source  Source
	host    Host
	clock   func() time.Time
	log     logging.Logger
	metrics metrics.Sink
	machine machine

	cmds    chan command
	results chan fetchResult
	signals chan func()
	done    chan struct{}

	doneOnce sync.Once
	started  atomic.Bool

	snapshot atomic.Pointer[Snapshot]

	listenersMu sync.RWMutex
	listeners   []Listener

	// Owned by the Run goroutine.
	state       State
	oneShot     *time.Timer
	oneShotC    <-chan time.Time
	fetchSeq    uint64
	cancelFetch context.CancelFunc
}

// New creates an Engine. A nil host is replaced by one that does nothing.
func New(cfg Config, source Source, host Host, opts ...Option) *Engine {
	if host == nil {
		host = noopHost{}
	}
	cfg = withDefaults(cfg)

	e := &Engine{
		cfg:     cfg,
		source:  source,
		host:    host,
		clock:   time.Now,
		log:     logging.NewNop(),
		metrics: metrics.NoopSink{},
		machine: newMachine(cfg.AlertThreshold, cfg.AlertExpiry),
		cmds:    make(chan command, 16),
		results: make(chan fetchResult, 4),
		signals: make(chan func(), 16),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	initial := e.state.snapshot(e.clock())
	e.snapshot.Store(&initial)
	return e
}

func withDefaults(cfg Config) Config {
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = models.DefaultAlertThreshold
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = models.DefaultTickInterval
	}
	if cfg.RefreshSchedule == "" {
		cfg.RefreshSchedule = models.DefaultRefreshSchedule
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = models.DefaultFetchTimeout
	}
	if cfg.AlertExpiry <= 0 {
		cfg.AlertExpiry = models.DefaultAlertExpiry
	}
	return cfg
}

// Subscribe registers a listener for engine events.
func (e *Engine) Subscribe(l Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Snapshot returns the latest published state. Safe from any goroutine.
func (e *Engine) Snapshot() Snapshot {
	return *e.snapshot.Load()
}

// CheckNow opens an alert for the up-next meeting immediately.
func (e *Engine) CheckNow() { e.post(command{kind: cmdCheckNow}) }

// Dismiss closes the live alert.
func (e *Engine) Dismiss() { e.post(command{kind: cmdDismiss}) }

// Join closes the live alert and opens its call link.
func (e *Engine) Join() { e.post(command{kind: cmdJoin}) }

// Refresh re-reads the calendar outside the regular schedule.
func (e *Engine) Refresh(reason string) { e.post(command{kind: cmdRefresh, reason: reason}) }

func (e *Engine) post(c command) {
	select {
	case e.cmds <- c:
	case <-e.done:
	}
}

// Run drives the engine until ctx is cancelled. It refreshes once at start,
// then ticks the alert clock every TickInterval and refreshes on the cron
// schedule. Run may be called once per Engine; later calls return
// ErrAlreadyRun.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	schedule := cron.New(cron.WithLocation(time.Local))
	if _, err := schedule.AddFunc(e.cfg.RefreshSchedule, func() { e.Refresh("schedule") }); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", e.cfg.RefreshSchedule, err)
	}

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	go e.signalLoop(ctx)
	schedule.Start()
	defer schedule.Stop()

	e.log.Info("engine: started",
		logging.F("tick", e.cfg.TickInterval),
		logging.F("threshold", e.cfg.AlertThreshold),
		logging.F("refresh", e.cfg.RefreshSchedule),
	)
	e.startFetch(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			e.log.Info("engine: stopped")
			return ctx.Err()
		case <-ticker.C:
			next, effects := e.machine.tick(e.state, e.clock())
			e.transition(ctx, next, effects)
		case <-e.oneShotC:
			e.oneShot, e.oneShotC = nil, nil
			e.startFetch(ctx, "post-alert")
		case c := <-e.cmds:
			e.handle(ctx, c)
		case r := <-e.results:
			e.finishFetch(ctx, r)
		}
	}
}

func (e *Engine) handle(ctx context.Context, c command) {
	now := e.clock()
	switch c.kind {
	case cmdCheckNow:
		next, effects := e.machine.checkNow(e.state, now)
		e.transition(ctx, next, effects)
	case cmdDismiss:
		next, effects := e.machine.end(e.state, models.EndDismissed, now)
		e.transition(ctx, next, effects)
	case cmdJoin:
		next, effects := e.machine.join(e.state, now)
		e.transition(ctx, next, effects)
	case cmdRefresh:
		e.startFetch(ctx, c.reason)
	}
}

// transition installs the next state and then runs its effects in order.
func (e *Engine) transition(ctx context.Context, next State, effects []effect) {
	e.state = next
	for _, eff := range effects {
		e.apply(ctx, eff)
	}
}

func (e *Engine) apply(ctx context.Context, eff effect) {
	switch eff.kind {
	case effEnterAlert:
		meeting := eff.meeting
		e.log.Info("alert: started",
			logging.F("meeting", meeting.Title),
			logging.F("start", meeting.Start),
			logging.F("trigger", string(e.state.Session.Trigger)),
		)
		e.metrics.AlertStarted(string(e.state.Session.Trigger))
		e.signal("enter alert presentation", func() error { return e.host.EnterAlertPresentation(meeting) })
	case effExitAlert:
		e.signal("exit alert presentation", e.host.ExitAlertPresentation)
	case effScheduleRefresh:
		e.stopOneShot()
		e.oneShot = time.NewTimer(eff.at.Sub(e.clock()))
		e.oneShotC = e.oneShot.C
	case effCancelRefresh:
		e.stopOneShot()
	case effRefresh:
		e.startFetch(ctx, eff.reason)
	case effOpenURL:
		url := eff.url
		e.signal("open link", func() error { return e.host.OpenExternal(url) })
	case effPublish:
		if eff.event == EventSessionEnded {
			e.log.Info("alert: ended", logging.F("reason", string(eff.ended)))
			e.metrics.AlertEnded(string(eff.ended))
		}
		e.publish(Event{Kind: eff.event, Reason: eff.ended})
	}
}

func (e *Engine) publish(ev Event) {
	snap := e.state.snapshot(e.clock())
	e.snapshot.Store(&snap)
	ev.Snapshot = snap

	e.listenersMu.RLock()
	listeners := e.listeners
	e.listenersMu.RUnlock()
	for _, l := range listeners {
		l(ev)
	}
}

// startFetch issues a new fetch. Any fetch still in flight is cancelled and
// its result will be discarded: only the most recently issued fetch counts.
func (e *Engine) startFetch(ctx context.Context, reason string) {
	if e.cancelFetch != nil {
		e.cancelFetch()
	}
	e.fetchSeq++
	seq := e.fetchSeq

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	e.cancelFetch = cancel
	next, effects := e.machine.beginRefresh(e.state)
	e.transition(ctx, next, effects)

	started := e.clock()
	e.log.Debug("refresh: fetching", logging.F("reason", reason), logging.F("seq", int64(seq)))

	go func() {
		raws, err := e.source.Fetch(fetchCtx)
		select {
		case e.results <- fetchResult{seq: seq, raws: raws, err: err, started: started, reason: reason}:
		case <-ctx.Done():
		}
	}()
}

func (e *Engine) finishFetch(ctx context.Context, r fetchResult) {
	took := e.clock().Sub(r.started)
	if r.seq != e.fetchSeq {
		e.log.Debug("refresh: discarding superseded result", logging.F("seq", int64(r.seq)))
		e.metrics.RefreshCompleted(metrics.RefreshDiscarded, took)
		return
	}
	e.cancelFetch()
	e.cancelFetch = nil

	switch {
	case r.err == nil:
		e.metrics.RefreshCompleted(metrics.RefreshOK, took)
	case IsAccessDenied(r.err):
		e.log.Warn("refresh: calendar access denied", logging.Err(r.err), logging.F("reason", r.reason))
		e.metrics.RefreshCompleted(metrics.RefreshDenied, took)
	default:
		e.log.Error("refresh: fetch failed", logging.Err(r.err), logging.F("reason", r.reason))
		e.metrics.RefreshCompleted(metrics.RefreshFailed, took)
	}

	next, effects := e.machine.applyFetch(e.state, r.raws, r.err, e.clock())
	e.transition(ctx, next, effects)
	if r.err == nil {
		e.metrics.AgendaSizeUpdate(e.state.Agenda.Len())
		e.log.Info("refresh: agenda updated",
			logging.F("reason", r.reason),
			logging.F("events", len(r.raws)),
			logging.F("remaining", e.state.Agenda.Len()),
		)
	}
}

// signal queues a host call. Calls run in order on the signal goroutine; a
// full queue drops the call rather than stall the loop.
func (e *Engine) signal(what string, call func() error) {
	select {
	case e.signals <- func() {
		if err := call(); err != nil {
			e.log.Warn("host: "+what+" failed", logging.Err(err))
		}
	}:
	default:
		e.log.Warn("host: signal queue full, dropping " + what)
	}
}

func (e *Engine) signalLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case call := <-e.signals:
			call()
		}
	}
}

func (e *Engine) stopOneShot() {
	if e.oneShot != nil {
		e.oneShot.Stop()
	}
	e.oneShot, e.oneShotC = nil, nil
}

func (e *Engine) shutdown() {
	e.stopOneShot()
	if e.cancelFetch != nil {
		e.cancelFetch()
		e.cancelFetch = nil
	}
	e.doneOnce.Do(func() { close(e.done) })
}
