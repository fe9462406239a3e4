package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/witverse/internal/identity"
	"github.com/dharsanguruparan/witverse/internal/wizard"
)

// session is one draft being assembled in a browser tab.
type session struct {
	id     string
	ids    *identity.Broadcaster
	wizard *wizard.Controller

	// mu serialises access to the step forms, which are not safe for
	// concurrent use.
	mu sync.Mutex

	lastSeen time.Time
}

// controllerFactory builds the wizard for a new session.
type controllerFactory func(ctx context.Context, id string, provider identity.Provider) (*wizard.Controller, error)

// registry holds the draft sessions of this process. Drafts are never
// persisted: a session that is deleted or idles past the TTL is discarded
// together with its staged assets.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*session

	ttl     time.Duration
	now     func() time.Time
	factory controllerFactory
	active  prometheus.Gauge
	log     logrus.FieldLogger
}

func newRegistry(ttl time.Duration, factory controllerFactory, active prometheus.Gauge, log logrus.FieldLogger) *registry {
	return &registry{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
		factory:  factory,
		active:   active,
		log:      log,
	}
}

// create starts a session, signed in as id when it is non-nil.
func (r *registry) create(ctx context.Context, id *identity.Identity) (*session, error) {
	s := &session{id: uuid.NewString(), ids: identity.NewBroadcaster()}
	s.ids.Set(id)
	c, err := r.factory(ctx, s.id, s.ids)
	if err != nil {
		return nil, err
	}
	s.wizard = c

	r.mu.Lock()
	defer r.mu.Unlock()
	s.lastSeen = r.now()
	r.sessions[s.id] = s
	r.active.Set(float64(len(r.sessions)))
	r.log.WithField("session", s.id).Debug("draft session created")
	return s, nil
}

// get returns the session and marks it as used.
func (r *registry) get(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		s.lastSeen = r.now()
	}
	return s, ok
}

// remove discards the session and its draft.
func (r *registry) remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.active.Set(float64(len(r.sessions)))
	}
	r.mu.Unlock()
	if ok {
		s.wizard.Close()
	}
	return ok
}

// sweep removes sessions idle for longer than the TTL. Sessions with a
// submission in flight are kept until it finishes.
func (r *registry) sweep() int {
	r.mu.Lock()
	cutoff := r.now().Add(-r.ttl)
	var expired []*session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) && !s.wizard.InFlight() {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.active.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	for _, s := range expired {
		s.wizard.Close()
		r.log.WithField("session", s.id).Info("idle draft session discarded")
	}
	return len(expired)
}

// run sweeps on every tick until ctx is done.
func (r *registry) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// closeAll discards every session, used on shutdown.
func (r *registry) closeAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*session)
	r.active.Set(0)
	r.mu.Unlock()
	for _, s := range all {
		s.wizard.Close()
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
