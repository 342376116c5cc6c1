package httpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"c2d.dev/portal/internal/onboarding"
	"c2d.dev/portal/internal/store"
)

const defaultWizardIdle = 30 * time.Minute

type wizardEntry struct {
	ctrl *onboarding.Controller
	used time.Time
}

// wizardRegistry holds the live wizard controllers keyed by wizard id.
type wizardRegistry struct {
	mu   sync.Mutex
	live map[string]*wizardEntry
	idle time.Duration
	now  func() time.Time
	open func(ctx context.Context, id string, resume bool) (*onboarding.Controller, error)
}

func newWizardRegistry(idle time.Duration, open func(context.Context, string, bool) (*onboarding.Controller, error)) *wizardRegistry {
	if idle <= 0 {
		idle = defaultWizardIdle
	}
	return &wizardRegistry{
		live: make(map[string]*wizardEntry),
		idle: idle,
		now:  time.Now,
		open: open,
	}
}

// create starts a wizard under a fresh id.
func (r *wizardRegistry) create(ctx context.Context) (string, *onboarding.Controller, error) {
	id := uuid.NewString()
	ctrl, err := r.open(ctx, id, false)
	if err != nil {
		return "", nil, err
	}
	r.mu.Lock()
	r.live[id] = &wizardEntry{ctrl: ctrl, used: r.now()}
	r.mu.Unlock()
	return id, ctrl, nil
}

// get returns the live controller for id, reopening it from its persisted draft
// when it was evicted. Ids that are neither live nor persisted are not found.
func (r *wizardRegistry) get(ctx context.Context, id string) (*onboarding.Controller, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: wizard %q", store.ErrNotFound, id)
	}
	id = parsed.String()

	r.mu.Lock()
	if e, ok := r.live[id]; ok {
		e.used = r.now()
		r.mu.Unlock()
		return e.ctrl, nil
	}
	r.mu.Unlock()

	ctrl, err := r.open(ctx, id, true)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.live[id]; ok {
		e.used = r.now()
		return e.ctrl, nil
	}
	r.live[id] = &wizardEntry{ctrl: ctrl, used: r.now()}
	return ctrl, nil
}

func (r *wizardRegistry) drop(id string) {
	r.mu.Lock()
	delete(r.live, id)
	r.mu.Unlock()
}

// sweep evicts idle wizards that are not mid-submission.
func (r *wizardRegistry) sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for id, e := range r.live {
		if now.Sub(e.used) < r.idle || e.ctrl.Snapshot().Busy {
			continue
		}
		delete(r.live, id)
		n++
	}
	return n
}

func (r *wizardRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// openWizard builds the controller for id. With resume set the wizard must have a
// persisted draft.
func (a *API) openWizard(ctx context.Context, id string, resume bool) (*onboarding.Controller, error) {
	key := onboarding.DraftKeyFor(id)
	if resume {
		if _, err := a.deps.Drafts.Get(ctx, key); err != nil {
			return nil, fmt.Errorf("wizard %s: %w", id, err)
		}
	}
	opts := []onboarding.Option{
		onboarding.WithKey(key),
		onboarding.WithLogger(a.log.With(zap.String("wizard_id", id))),
	}
	if a.deps.Uploads != nil {
		opts = append(opts, onboarding.WithBlobs(a.deps.Uploads))
	}
	return onboarding.New(ctx, a.deps.Drafts, a.deps.Submitter, opts...), nil
}
