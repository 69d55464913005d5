// Package readmodel keeps console view snapshots eventually consistent with
// the store. Each view is recomputed on its own interval and immediately
// after a workflow event that touches it.
package readmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/events"
	"github.com/rideops/callcenter/internal/policy"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// ViewName identifies a console view.
type ViewName string

const (
	ViewActiveQueue ViewName = "active_queue"
	ViewEscalations ViewName = "escalations"
	ViewStats       ViewName = "stats"
	ViewTickets     ViewName = "tickets"
	ViewUrgent      ViewName = "urgent"
	ViewAnalytics   ViewName = "analytics"
	ViewCallQueue   ViewName = "call_queue"
)

// Projector computes the current content of a view.
type Projector func(ctx context.Context) (any, error)

// Snapshot is the last computed content of a view.
type Snapshot struct {
	View        ViewName  `json:"view"`
	Version     int64     `json:"version"`
	RefreshedAt time.Time `json:"refreshed_at"`
	StaleAfter  time.Time `json:"stale_after"`
	Data        any       `json:"data"`
}

// Change announces a new version of a view.
type Change struct {
	View        ViewName  `json:"view"`
	Version     int64     `json:"version"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

type view struct {
	interval time.Duration
	project  Projector

	refreshMu sync.Mutex
	encoded   []byte
	snapshot  Snapshot
	loaded    bool
}

// Refresher owns the registered views and their schedule.
type Refresher struct {
	mu        sync.RWMutex
	views     map[ViewName]*view
	listeners []func(Change)

	scheduler  *cron.Cron
	jobEntries map[ViewName]cron.EntryID

	logger *zap.Logger
	now    func() time.Time
}

// NewRefresher creates an empty refresher.
func NewRefresher(logger *zap.Logger, clock func() time.Time) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Refresher{
		views:      make(map[ViewName]*view),
		jobEntries: make(map[ViewName]cron.EntryID),
		logger:     logger,
		now:        clock,
	}
}

// Register adds a view. Registering a name twice replaces the projector and
// resets the view.
func (r *Refresher) Register(name ViewName, interval time.Duration, project Projector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[name] = &view{interval: interval, project: project}
}

// OnChange adds a listener called after every version bump.
func (r *Refresher) OnChange(fn func(Change)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Names lists the registered views in name order.
func (r *Refresher) Names() []ViewName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]ViewName, 0, len(r.views))
	for name := range r.views {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Get returns the current snapshot, computing it first if the view has never
// been refreshed.
func (r *Refresher) Get(ctx context.Context, name ViewName) (Snapshot, error) {
	v, err := r.lookup(name)
	if err != nil {
		return Snapshot{}, err
	}
	v.refreshMu.Lock()
	loaded, snap := v.loaded, v.snapshot
	v.refreshMu.Unlock()
	if loaded {
		return snap, nil
	}
	return r.Refresh(ctx, name)
}

// Read is Get for a caller. Unknown views are NotFound before access is
// checked.
func (r *Refresher) Read(ctx context.Context, session domain.Session, name ViewName) (Snapshot, error) {
	if _, err := r.lookup(name); err != nil {
		return Snapshot{}, err
	}
	if err := policy.Authorize(session, policy.Request{Action: ViewAccess(name)}); err != nil {
		return Snapshot{}, err
	}
	return r.Get(ctx, name)
}

// Readable lists the registered views the session may read.
func (r *Refresher) Readable(session domain.Session) []ViewName {
	names := r.Names()
	out := make([]ViewName, 0, len(names))
	for _, name := range names {
		if policy.Authorize(session, policy.Request{Action: ViewAccess(name)}) == nil {
			out = append(out, name)
		}
	}
	return out
}

// ViewAccess is the policy action guarding a view. Views not listed as shared
// span every agent's tickets.
func ViewAccess(name ViewName) policy.Action {
	switch name {
	case ViewActiveQueue, ViewUrgent, ViewEscalations, ViewCallQueue:
		return policy.ActionReadSharedView
	}
	return policy.ActionReadTeamView
}

// Refresh recomputes one view. The version only moves when the content
// differs from the previous snapshot.
func (r *Refresher) Refresh(ctx context.Context, name ViewName) (Snapshot, error) {
	v, err := r.lookup(name)
	if err != nil {
		return Snapshot{}, err
	}

	v.refreshMu.Lock()
	data, err := v.project(ctx)
	if err != nil {
		v.refreshMu.Unlock()
		r.logger.Warn("view refresh failed", zap.String("view", string(name)), zap.Error(err))
		return Snapshot{}, apperrors.MapError(err)
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		v.refreshMu.Unlock()
		return Snapshot{}, apperrors.NewInternalError(fmt.Errorf("encode view %s: %w", name, err))
	}

	now := r.now()
	changed := !v.loaded || !bytes.Equal(encoded, v.encoded)
	if changed {
		v.snapshot.Version++
		v.snapshot.Data = data
		v.encoded = encoded
	}
	v.loaded = true
	v.snapshot.View = name
	v.snapshot.RefreshedAt = now
	v.snapshot.StaleAfter = now.Add(v.interval)
	snap := v.snapshot
	v.refreshMu.Unlock()

	if changed {
		r.notify(Change{View: name, Version: snap.Version, RefreshedAt: snap.RefreshedAt})
	}
	return snap, nil
}

// RefreshViews refreshes each named view, logging failures.
func (r *Refresher) RefreshViews(ctx context.Context, names ...ViewName) {
	for _, name := range names {
		if _, err := r.Refresh(ctx, name); err != nil {
			r.logger.Debug("refresh skipped", zap.String("view", string(name)), zap.Error(err))
		}
	}
}

// RefreshAll refreshes every registered view.
func (r *Refresher) RefreshAll(ctx context.Context) {
	r.RefreshViews(ctx, r.Names()...)
}

// HandleEvent refreshes the views an event touches. It never fails the
// publisher.
func (r *Refresher) HandleEvent(ctx context.Context, event events.Event) error {
	r.RefreshViews(ctx, r.registered(AffectedViews(event.Type))...)
	return nil
}

// Subscribe registers the refresher for every workflow event.
func (r *Refresher) Subscribe(dispatcher events.Dispatcher) {
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, r.HandleEvent)
	}
}

// Start schedules every view on its interval.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduler != nil {
		return fmt.Errorf("refresher already started")
	}
	r.scheduler = cron.New()
	for name, v := range r.views {
		if v.interval <= 0 {
			continue
		}
		viewName := name
		entryID, err := r.scheduler.AddFunc("@every "+v.interval.String(), func() {
			r.RefreshViews(ctx, viewName)
		})
		if err != nil {
			r.scheduler = nil
			return fmt.Errorf("schedule view %s: %w", name, err)
		}
		r.jobEntries[name] = entryID
	}
	r.scheduler.Start()
	r.logger.Info("read model refresher started", zap.Int("views", len(r.jobEntries)))
	return nil
}

// Stop halts the schedule and waits for running refreshes.
func (r *Refresher) Stop() {
	r.mu.Lock()
	scheduler := r.scheduler
	r.scheduler = nil
	r.jobEntries = make(map[ViewName]cron.EntryID)
	r.mu.Unlock()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
}

func (r *Refresher) lookup(name ViewName) (*view, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[name]
	if !ok {
		return nil, apperrors.NewNotFound("view", map[string]any{"view": string(name)})
	}
	return v, nil
}

func (r *Refresher) registered(names []ViewName) []ViewName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := names[:0:0]
	for _, name := range names {
		if _, ok := r.views[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (r *Refresher) notify(change Change) {
	r.mu.RLock()
	listeners := append([]func(Change){}, r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn(change)
	}
}

// AffectedViews maps an event type to the views whose content it can change.
func AffectedViews(eventType events.EventType) []ViewName {
	switch eventType {
	case events.EventTicketCreated, events.EventTicketAssigned, events.EventTicketStatusChanged,
		events.EventTicketCategoryChanged:
		return []ViewName{ViewActiveQueue, ViewTickets, ViewUrgent, ViewStats, ViewAnalytics}
	case events.EventTicketResponseAdded:
		return []ViewName{ViewActiveQueue, ViewTickets, ViewAnalytics}
	case events.EventEscalationCreated:
		return []ViewName{ViewEscalations, ViewUrgent, ViewTickets, ViewStats}
	case events.EventEscalationAcked, events.EventEscalationResolved:
		return []ViewName{ViewEscalations, ViewTickets, ViewStats}
	case events.EventChannelOpened, events.EventChannelAccepted:
		return []ViewName{ViewCallQueue, ViewStats}
	}
	return nil
}
