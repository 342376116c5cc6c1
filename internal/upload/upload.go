// Package upload accepts onboarding documents, enforces the per-slot size and type policy
// and keeps the bytes in the key-value store until the application is submitted.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"c2d.dev/portal/internal/ids"
	"c2d.dev/portal/internal/store"
)

var (
	ErrTooLarge    = errors.New("upload: file too large")
	ErrType        = errors.New("upload: file type not allowed")
	ErrEmpty       = errors.New("upload: file is empty")
	ErrUnknownSlot = errors.New("upload: unknown document slot")
)

// Slot names a document position in the onboarding application.
type Slot string

const (
	SlotGSTCertificate       Slot = "gstCertificate"
	SlotPANCard              Slot = "panCard"
	SlotRegistrationDocument Slot = "registrationDocument"
	SlotCompanyLogo          Slot = "companyLogo"
)

// Slots lists every slot in display order.
var Slots = []Slot{SlotGSTCertificate, SlotPANCard, SlotRegistrationDocument, SlotCompanyLogo}

// ParseSlot validates a slot name.
func ParseSlot(v string) (Slot, error) {
	s := Slot(strings.TrimSpace(v))
	if _, ok := policies[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, v)
	}
	return s, nil
}

// Policy bounds what a slot accepts.
type Policy struct {
	MaxBytes   int64
	Extensions []string
	MIMETypes  []string
}

const (
	certificateMaxBytes = 5 << 20
	logoMaxBytes        = 2 << 20
)

var certificatePolicy = Policy{
	MaxBytes:   certificateMaxBytes,
	Extensions: []string{".pdf", ".jpg", ".jpeg", ".png"},
	MIMETypes:  []string{"application/pdf", "image/jpeg", "image/png"},
}

var policies = map[Slot]Policy{
	SlotGSTCertificate:       certificatePolicy,
	SlotPANCard:              certificatePolicy,
	SlotRegistrationDocument: certificatePolicy,
	SlotCompanyLogo: {
		MaxBytes:   logoMaxBytes,
		Extensions: []string{".jpg", ".jpeg", ".png"},
		MIMETypes:  []string{"image/jpeg", "image/png"},
	},
}

// PolicyFor returns the policy of slot.
func PolicyFor(slot Slot) (Policy, bool) {
	p, ok := policies[slot]
	return p, ok
}

// Document is the handle of an accepted upload. Ref is the store key of its bytes.
type Document struct {
	ID         string    `json:"id"`
	Slot       Slot      `json:"slot"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	Ref        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

const blobPrefix = "blob:"

// Service stores uploads in a key-value store.
type Service struct {
	store    store.Store
	maxBytes int64
	blobTTL  time.Duration
	now      func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithMaxBytes caps every slot at n bytes in addition to its own policy.
func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithBlobTTL expires stored bytes after ttl so abandoned uploads do not accumulate.
func WithBlobTTL(ttl time.Duration) Option {
	return func(s *Service) { s.blobTTL = ttl }
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accept validates and stores the content of r for slot.
func (s *Service) Accept(ctx context.Context, slot Slot, filename string, r io.Reader) (Document, error) {
	policy, ok := policies[slot]
	if !ok {
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	limit := policy.MaxBytes
	if s.maxBytes > 0 && s.maxBytes < limit {
		limit = s.maxBytes
	}

	name := filepath.Base(strings.TrimSpace(filename))
	ext := strings.ToLower(filepath.Ext(name))
	if !contains(policy.Extensions, ext) {
		return Document{}, fmt.Errorf("%w: %s accepts %s", ErrType, slot, strings.Join(policy.Extensions, ", "))
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return Document{}, fmt.Errorf("%w: %s must be less than %dMB", ErrTooLarge, slot, limit>>20)
	}
	if len(data) == 0 {
		return Document{}, ErrEmpty
	}

	mtype := mimetype.Detect(data)
	allowed := false
	for _, m := range policy.MIMETypes {
		if mtype.Is(m) {
			allowed = true
			break
		}
	}
	if !allowed {
		return Document{}, fmt.Errorf("%w: content is %s", ErrType, mtype.String())
	}

	id := ids.Prefixed("doc")
	doc := Document{
		ID:         id,
		Slot:       slot,
		Name:       name,
		Size:       int64(len(data)),
		Type:       mtype.String(),
		Ref:        blobPrefix + id,
		UploadedAt: s.now().UTC(),
	}
	if err := s.store.Set(ctx, doc.Ref, data, s.blobTTL); err != nil {
		return Document{}, fmt.Errorf("store upload: %w", err)
	}
	return doc, nil
}

// Open returns the bytes of doc.
func (s *Service) Open(ctx context.Context, doc Document) (io.Reader, error) {
	if !strings.HasPrefix(doc.Ref, blobPrefix) {
		return nil, fmt.Errorf("%w: document %s has no stored content", store.ErrNotFound, doc.ID)
	}
	data, err := s.store.Get(ctx, doc.Ref)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", doc.ID, err)
	}
	return bytes.NewReader(data), nil
}

// Keep clears the expiry of doc's bytes so they live as long as the draft that commits them.
// It fails with store.ErrNotFound when the bytes are already gone.
func (s *Service) Keep(ctx context.Context, doc Document) error {
	if !strings.HasPrefix(doc.Ref, blobPrefix) {
		return fmt.Errorf("%w: document %s has no stored content", store.ErrNotFound, doc.ID)
	}
	data, err := s.store.Get(ctx, doc.Ref)
	if err != nil {
		return fmt.Errorf("keep %s: %w", doc.ID, err)
	}
	if s.blobTTL <= 0 {
		return nil
	}
	if err := s.store.Set(ctx, doc.Ref, data, 0); err != nil {
		return fmt.Errorf("keep %s: %w", doc.ID, err)
	}
	return nil
}

// Exists reports whether the bytes of doc are still stored.
func (s *Service) Exists(ctx context.Context, doc Document) (bool, error) {
	if !strings.HasPrefix(doc.Ref, blobPrefix) {
		return false, nil
	}
	_, err := s.store.Get(ctx, doc.Ref)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Release deletes the bytes of doc.
func (s *Service) Release(ctx context.Context, doc Document) error {
	if !strings.HasPrefix(doc.Ref, blobPrefix) {
		return nil
	}
	return s.store.Remove(ctx, doc.Ref)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
