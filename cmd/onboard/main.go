// Command onboard drives the onboarding wizard end to end from a JSON fixture:
// every step is validated and persisted, documents are uploaded from local files,
// and the application is submitted to the configured backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"c2d.dev/portal/internal/backend"
	"c2d.dev/portal/internal/config"
	"c2d.dev/portal/internal/obs"
	"c2d.dev/portal/internal/onboarding"
	"c2d.dev/portal/internal/store"
	"c2d.dev/portal/internal/store/badgerstore"
	"c2d.dev/portal/internal/upload"
)

type fixture struct {
	CompanyRegistration json.RawMessage   `json:"companyRegistration"`
	BusinessAddress     json.RawMessage   `json:"businessAddress"`
	ContactPerson       json.RawMessage   `json:"contactPerson"`
	BankingDetails      json.RawMessage   `json:"bankingDetails"`
	Documents           map[string]string `json:"documents"`
}

// dryRun prints the payload instead of sending it.
type dryRun struct{}

func (dryRun) Submit(_ context.Context, s onboarding.Submission) (onboarding.Receipt, error) {
	out, err := json.MarshalIndent(s.Info, "", "  ")
	if err != nil {
		return onboarding.Receipt{}, err
	}
	fmt.Println(string(out))
	for _, doc := range s.Documents.All() {
		fmt.Printf("%s: %s (%s, %d bytes)\n", doc.Slot, doc.Name, doc.Type, doc.Size)
	}
	return onboarding.Receipt{Message: "dry run"}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	var (
		fixturePath = flag.String("fixture", "", "JSON fixture with one object per step and document paths")
		backendURL  = flag.String("backend", cfg.BackendURL, "Backend base URL")
		stateDir    = flag.String("state", "", "Badger directory for a resumable draft (empty keeps state in memory)")
		wizardID    = flag.String("id", "cli", "Wizard id used as the draft key")
		noSubmit    = flag.Bool("dry-run", false, "Validate and print the payload without contacting the backend")
	)
	flag.Parse()
	log := obs.Logger()

	if *fixturePath == "" {
		log.Fatal("missing -fixture")
	}
	raw, err := os.ReadFile(*fixturePath)
	if err != nil {
		log.Fatal("read fixture", zap.Error(err))
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		log.Fatal("decode fixture", zap.Error(err))
	}

	var st store.Store = store.NewMemory()
	if *stateDir != "" {
		bs, err := badgerstore.Open(*stateDir, log.Named("badger"))
		if err != nil {
			log.Fatal("open state", zap.Error(err))
		}
		defer bs.Close()
		st = bs
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	uploads := upload.NewService(st)
	var sub onboarding.Submitter = dryRun{}
	if !*noSubmit {
		client, err := backend.New(*backendURL, backend.WithTimeout(cfg.BackendTimeout), backend.WithLogger(log.Named("backend")))
		if err != nil {
			log.Fatal("backend client", zap.Error(err))
		}
		sub = backend.NewSubmitter(client, uploads)
	}

	ctrl := onboarding.New(ctx, st, sub,
		onboarding.WithKey(onboarding.DraftKeyFor(*wizardID)),
		onboarding.WithBlobs(uploads),
		onboarding.WithLogger(log),
	)

	steps := []struct {
		step onboarding.Step
		data json.RawMessage
	}{
		{onboarding.StepCompanyRegistration, fx.CompanyRegistration},
		{onboarding.StepBusinessAddress, fx.BusinessAddress},
		{onboarding.StepContactPerson, fx.ContactPerson},
		{onboarding.StepBankingDetails, fx.BankingDetails},
	}
	for _, s := range steps {
		data := s.data
		if len(data) == 0 {
			// Fall back to what a previous run persisted.
			if f := ctrl.Draft().Fragment(s.step); f != nil {
				data, _ = json.Marshal(f)
			}
		}
		f, err := onboarding.DecodeFragment(s.step, data)
		if err != nil {
			log.Fatal("decode step", zap.Stringer("step", s.step), zap.Error(err))
		}
		if err := ctrl.Next(ctx, f); err != nil {
			fail(log, s.step, err)
		}
		log.Info("step_ok", zap.Stringer("step", s.step))
	}

	for name, path := range fx.Documents {
		slot, err := upload.ParseSlot(name)
		if err != nil {
			log.Fatal("document slot", zap.Error(err))
		}
		if err := attach(ctx, ctrl, uploads, slot, path); err != nil {
			log.Fatal("upload", zap.String("slot", name), zap.String("path", path), zap.Error(err))
		}
	}
	docs := ctrl.Staged()
	if err := ctrl.Next(ctx, &docs); err != nil {
		fail(log, onboarding.StepDocuments, err)
	}

	receipt, err := ctrl.Submit(ctx)
	if err != nil {
		log.Fatal("submit", zap.String("message", backend.UserMessage(err)), zap.Error(err))
	}
	out, _ := json.Marshal(receipt)
	fmt.Println(string(out))
}

func attach(ctx context.Context, ctrl *onboarding.Controller, uploads *upload.Service, slot upload.Slot, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	doc, err := uploads.Accept(ctx, slot, filepath.Base(path), f)
	if err != nil {
		return err
	}
	return ctrl.StageDocument(ctx, slot, &doc)
}

func fail(log *zap.Logger, step onboarding.Step, err error) {
	var ve *onboarding.ValidationError
	if errors.As(err, &ve) {
		for field, msg := range ve.Fields {
			fmt.Fprintf(os.Stderr, "%s.%s: %s\n", step, field, msg)
		}
		os.Exit(1)
	}
	log.Fatal("step failed", zap.Stringer("step", step), zap.Error(err))
}
