package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"c2d.dev/portal/internal/obs"
	"c2d.dev/portal/internal/store"
	"c2d.dev/portal/internal/upload"
)

// DefaultReceiptMessage is reported when the backend acknowledges without a message.
const DefaultReceiptMessage = "Company Details uploaded successfully"

// Submitter hands a complete application to the backend.
type Submitter interface {
	Submit(ctx context.Context, s Submission) (Receipt, error)
}

// Blobs manages the stored bytes behind upload handles. Keep pins the bytes of a committed
// document for the life of the draft and fails with store.ErrNotFound when they are gone.
type Blobs interface {
	Keep(ctx context.Context, doc upload.Document) error
	Exists(ctx context.Context, doc upload.Document) (bool, error)
	Release(ctx context.Context, doc upload.Document) error
}

// expiredDocumentMessage is reported for a committed or staged document whose bytes expired.
const expiredDocumentMessage = "Document has expired, please upload it again"

// Controller drives one applicant through the wizard. It is safe for concurrent use;
// while a submission is in flight every other action fails with ErrBusy.
type Controller struct {
	mu sync.Mutex

	step       Step
	draft      Draft
	staged     Documents
	busy       bool
	receipt    *Receipt
	draftSaved bool

	store     store.Store
	key       string
	submitter Submitter
	blobs     Blobs
	log       *zap.Logger
	now       func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithKey overrides the draft store key.
func WithKey(key string) Option {
	return func(c *Controller) {
		if key != "" {
			c.key = key
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithBlobs lets the controller pin committed uploads, detect expired ones and free
// those it no longer references.
func WithBlobs(b Blobs) Option {
	return func(c *Controller) { c.blobs = b }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New starts a wizard at the first step, rehydrating any draft persisted under the key.
// An unreadable store is logged and treated as an empty draft. Documents whose bytes no
// longer exist are dropped from the rehydrated draft so they show up as missing.
func New(ctx context.Context, st store.Store, sub Submitter, opts ...Option) *Controller {
	c := &Controller{
		step:      StepCompanyRegistration,
		store:     st,
		key:       DraftKey,
		submitter: sub,
		log:       obs.Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("draft_key", c.key))

	var d Draft
	err := store.GetJSON(ctx, c.store, c.key, &d)
	switch {
	case err == nil:
		c.draft = d
		c.draftSaved = true
		if d.Documents != nil {
			c.staged = *d.Documents
		}
		c.log.Debug("draft_rehydrated")
		if gone := c.dropExpired(ctx); len(gone) > 0 {
			c.persist(ctx)
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		c.log.Warn("draft_load_failed", zap.Error(err))
	}
	return c
}

// Snapshot is a read-only view of the wizard.
type Snapshot struct {
	Step          Step      `json:"step"`
	StepName      string    `json:"stepName"`
	Draft         Draft     `json:"draft"`
	Staged        Documents `json:"staged"`
	Missing       []string  `json:"missing,omitempty"`
	Busy          bool      `json:"busy"`
	DraftSaved    bool      `json:"draftSaved"`
	Complete      bool      `json:"complete"`
	ApplicationID string    `json:"applicationId,omitempty"`
	Message       string    `json:"message,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Step:       c.step,
		StepName:   c.step.String(),
		Draft:      c.draft.clone(),
		Staged:     c.staged,
		Busy:       c.busy,
		DraftSaved: c.draftSaved,
		Complete:   c.step == StepComplete,
	}
	if c.step != StepComplete {
		s.Missing = c.draft.Missing()
	}
	if c.receipt != nil {
		s.ApplicationID = c.receipt.ApplicationID
		s.Message = c.receipt.Message
	}
	return s
}

// Step returns the current position.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Draft returns a copy of the collected fragments.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.clone()
}

// Next validates f for the current step, stores it in the draft, advances and persists.
// On validation failure nothing changes and a *ValidationError is returned.
func (c *Controller) Next(ctx context.Context, f Fragment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	if f == nil || f.Step() != c.step {
		obs.ObserveTransition(EventNext.String(), "rejected")
		got := "nothing"
		if f != nil {
			got = f.Step().String()
		}
		return fmt.Errorf("%w: %s data submitted at %s", ErrIllegalTransition, got, c.step)
	}
	next, err := Transition(c.step, Event{Kind: EventNext})
	if err != nil {
		obs.ObserveTransition(EventNext.String(), "rejected")
		return err
	}
	if err := Validate(f); err != nil {
		obs.ObserveTransition(EventNext.String(), "invalid")
		c.log.Debug("step_invalid", zap.Stringer("step", c.step), zap.Error(err))
		return err
	}

	if docs, ok := f.(*Documents); ok {
		if err := c.keepDocuments(ctx, docs); err != nil {
			obs.ObserveTransition(EventNext.String(), "invalid")
			return err
		}
		c.releaseUnreferenced(ctx, c.draft.Documents, docs, &c.staged)
		c.staged = *docs
	}
	from := c.step
	c.draft = c.draft.with(f)
	c.step = next
	c.persist(ctx)
	obs.ObserveTransition(EventNext.String(), "ok")
	c.log.Debug("step_completed", zap.Stringer("from", from), zap.Stringer("to", next))
	return nil
}

// Back returns to the previous step without touching the draft.
func (c *Controller) Back() error {
	return c.move(Event{Kind: EventBack})
}

// EditJump moves from review straight to target for correction.
func (c *Controller) EditJump(target Step) error {
	return c.move(Event{Kind: EventEdit, Target: target})
}

func (c *Controller) move(e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	next, err := Transition(c.step, e)
	if err != nil {
		obs.ObserveTransition(e.Kind.String(), "rejected")
		return err
	}
	c.log.Debug("step_moved", zap.Stringer("event", e.Kind), zap.Stringer("from", c.step), zap.Stringer("to", next))
	c.step = next
	obs.ObserveTransition(e.Kind.String(), "ok")
	return nil
}

// StageDocument places an uploaded handle in slot for the documents step. Staged handles
// become part of the draft only when the documents step is completed with Next.
// A nil doc clears the slot.
func (c *Controller) StageDocument(ctx context.Context, slot upload.Slot, doc *upload.Document) error {
	if _, ok := upload.PolicyFor(slot); !ok {
		return fmt.Errorf("%w: %q", upload.ErrUnknownSlot, slot)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	if c.step != StepDocuments {
		return fmt.Errorf("%w: documents can only be attached at %s, wizard is at %s", ErrIllegalTransition, StepDocuments, c.step)
	}
	prev := c.staged.Get(slot)
	c.staged = c.staged.With(slot, doc)
	if prev != nil && (doc == nil || prev.ID != doc.ID) && !c.referenced(*prev) {
		c.release(ctx, *prev)
	}
	return nil
}

// Staged returns the documents fragment as currently assembled.
func (c *Controller) Staged() Documents {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staged
}

// Submit sends the complete draft to the backend. It fails without contacting the backend
// when fragments or mandatory documents are missing. On backend failure the wizard stays at
// review with the draft intact.
func (c *Controller) Submit(ctx context.Context) (Receipt, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Receipt{}, ErrBusy
	}
	if _, err := Transition(c.step, Event{Kind: EventSubmitted}); err != nil {
		c.mu.Unlock()
		obs.ObserveTransition(EventSubmitted.String(), "rejected")
		return Receipt{}, err
	}
	if gone := c.dropExpired(ctx); len(gone) > 0 {
		c.persist(ctx)
	}
	info, err := BuildCompanyInfo(c.draft)
	if err != nil {
		c.mu.Unlock()
		obs.ObserveSubmission("incomplete")
		return Receipt{}, err
	}
	sub := Submission{Info: info, Documents: *c.draft.Documents}
	c.busy = true
	c.mu.Unlock()

	receipt, err := c.submitter.Submit(ctx, sub)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		obs.ObserveSubmission("failed")
		c.log.Error("submission_failed", zap.Error(err))
		return Receipt{}, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	if receipt.Message == "" {
		receipt.Message = DefaultReceiptMessage
	}
	if receipt.ApplicationID == "" {
		receipt.ApplicationID = "APP" + strconv.FormatInt(c.now().UnixMilli(), 10)
	}
	c.step, _ = Transition(c.step, Event{Kind: EventSubmitted})
	c.receipt = &receipt

	if err := c.store.Remove(ctx, c.key); err != nil {
		c.log.Warn("draft_clear_failed", zap.Error(err))
	}
	c.draftSaved = false
	for _, doc := range sub.Documents.All() {
		c.release(ctx, doc)
	}
	c.draft = Draft{}
	c.staged = Documents{}
	obs.ObserveSubmission("ok")
	obs.ObserveTransition(EventSubmitted.String(), "ok")
	c.log.Info("application_submitted", zap.String("application_id", receipt.ApplicationID))
	return receipt, nil
}

// Abandon discards the draft, its persisted copy and every uploaded document,
// and returns the wizard to the first step.
func (c *Controller) Abandon(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	if c.step == StepComplete {
		return fmt.Errorf("%w: application already submitted", ErrIllegalTransition)
	}
	seen := map[string]struct{}{}
	docs := c.staged.All()
	if c.draft.Documents != nil {
		docs = append(docs, c.draft.Documents.All()...)
	}
	for _, doc := range docs {
		if _, dup := seen[doc.ID]; dup {
			continue
		}
		seen[doc.ID] = struct{}{}
		c.release(ctx, doc)
	}
	if err := c.store.Remove(ctx, c.key); err != nil {
		c.log.Warn("draft_clear_failed", zap.Error(err))
	}
	c.draft = Draft{}
	c.staged = Documents{}
	c.step = StepCompanyRegistration
	c.draftSaved = false
	c.log.Info("draft_abandoned")
	return nil
}

// persist writes the draft. Failures are logged and counted but never block the wizard.
func (c *Controller) persist(ctx context.Context) {
	if err := store.SetJSON(ctx, c.store, c.key, c.draft, 0); err != nil {
		c.draftSaved = false
		obs.DraftPersistFailed()
		c.log.Warn("draft_persist_failed", zap.Error(err))
		return
	}
	c.draftSaved = true
}

// keepDocuments pins every handle in docs. Handles whose bytes are gone are removed from
// the staged set and reported as a validation error on the documents step.
func (c *Controller) keepDocuments(ctx context.Context, docs *Documents) error {
	if c.blobs == nil {
		return nil
	}
	fields := map[string]string{}
	for _, doc := range docs.All() {
		err := c.blobs.Keep(ctx, doc)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			fields[string(doc.Slot)] = expiredDocumentMessage
			if cur := c.staged.Get(doc.Slot); cur != nil && cur.ID == doc.ID {
				c.staged = c.staged.With(doc.Slot, nil)
			}
		default:
			c.log.Warn("document_keep_failed", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
	if len(fields) > 0 {
		c.log.Info("documents_expired", zap.Int("count", len(fields)))
		return &ValidationError{Step: StepDocuments, Fields: fields}
	}
	return nil
}

// dropExpired removes handles whose bytes no longer exist from the draft and the staged
// set and returns their slots. Lookup failures keep the handle.
func (c *Controller) dropExpired(ctx context.Context) []upload.Slot {
	if c.blobs == nil {
		return nil
	}
	var docs []upload.Document
	if c.draft.Documents != nil {
		docs = c.draft.Documents.All()
	}
	docs = append(docs, c.staged.All()...)

	checked := map[string]bool{}
	var gone []upload.Slot
	for _, doc := range docs {
		alive, seen := checked[doc.ID]
		if !seen {
			ok, err := c.blobs.Exists(ctx, doc)
			if err != nil {
				c.log.Warn("document_lookup_failed", zap.String("document_id", doc.ID), zap.Error(err))
				ok = true
			}
			checked[doc.ID] = ok
			alive = ok
		}
		if alive {
			continue
		}
		if c.draft.Documents != nil {
			if cur := c.draft.Documents.Get(doc.Slot); cur != nil && cur.ID == doc.ID {
				kept := c.draft.Documents.With(doc.Slot, nil)
				c.draft.Documents = &kept
				gone = append(gone, doc.Slot)
			}
		}
		if cur := c.staged.Get(doc.Slot); cur != nil && cur.ID == doc.ID {
			c.staged = c.staged.With(doc.Slot, nil)
		}
	}
	if len(gone) > 0 {
		c.log.Warn("draft_documents_expired", zap.Int("count", len(gone)))
	}
	return gone
}

func (c *Controller) referenced(doc upload.Document) bool {
	if cur := c.staged.Get(doc.Slot); cur != nil && cur.ID == doc.ID {
		return true
	}
	if c.draft.Documents != nil {
		if cur := c.draft.Documents.Get(doc.Slot); cur != nil && cur.ID == doc.ID {
			return true
		}
	}
	return false
}

// releaseUnreferenced frees handles held by old or staged that next no longer keeps.
func (c *Controller) releaseUnreferenced(ctx context.Context, old *Documents, next *Documents, staged *Documents) {
	keep := map[string]struct{}{}
	for _, doc := range next.All() {
		keep[doc.ID] = struct{}{}
	}
	var candidates []upload.Document
	if old != nil {
		candidates = append(candidates, old.All()...)
	}
	candidates = append(candidates, staged.All()...)
	for _, doc := range candidates {
		if _, ok := keep[doc.ID]; ok {
			continue
		}
		keep[doc.ID] = struct{}{}
		c.release(ctx, doc)
	}
}

func (c *Controller) release(ctx context.Context, doc upload.Document) {
	if c.blobs == nil {
		return
	}
	if err := c.blobs.Release(ctx, doc); err != nil {
		c.log.Warn("document_release_failed", zap.String("document_id", doc.ID), zap.Error(err))
	}
}
