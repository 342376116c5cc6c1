package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/onboarding"
	"c2d.dev/portal/internal/upload"
)

// BlobOpener reads the stored bytes of an upload handle.
type BlobOpener interface {
	Open(ctx context.Context, doc upload.Document) (io.Reader, error)
}

// Submitter sends onboarding applications as multipart start-onboarding requests.
// The bearer token, when present, is taken from the context.
type Submitter struct {
	client *Client
	blobs  BlobOpener
}

var _ onboarding.Submitter = (*Submitter)(nil)

func NewSubmitter(client *Client, blobs BlobOpener) *Submitter {
	return &Submitter{client: client, blobs: blobs}
}

// multipart field names per document slot.
var partNames = map[upload.Slot]string{
	upload.SlotGSTCertificate:       "gstCertificate",
	upload.SlotPANCard:              "panCard",
	upload.SlotRegistrationDocument: "companyRegistrationDocument",
	upload.SlotCompanyLogo:          "companyLogo",
}

func (s *Submitter) Submit(ctx context.Context, sub onboarding.Submission) (onboarding.Receipt, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, slot := range upload.Slots {
		doc := sub.Documents.Get(slot)
		if doc == nil {
			continue
		}
		if err := s.writeDocument(ctx, mw, partNames[slot], *doc); err != nil {
			return onboarding.Receipt{}, err
		}
	}
	info, err := json.Marshal(sub.Info)
	if err != nil {
		return onboarding.Receipt{}, err
	}
	if err := mw.WriteField("companyInfo", string(info)); err != nil {
		return onboarding.Receipt{}, err
	}
	if err := mw.Close(); err != nil {
		return onboarding.Receipt{}, err
	}

	token, _ := auth.TokenFromContext(ctx)
	body, err := s.client.do(ctx, request{
		method:      http.MethodPost,
		path:        "/company/start-onboarding",
		token:       token,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return onboarding.Receipt{}, err
	}
	var receipt onboarding.Receipt
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &receipt); err != nil {
			return onboarding.Receipt{}, fmt.Errorf("decode onboarding response: %w", err)
		}
	}
	return receipt, nil
}

func (s *Submitter) writeDocument(ctx context.Context, mw *multipart.Writer, field string, doc upload.Document) error {
	r, err := s.blobs.Open(ctx, doc)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, doc.Name))
	h.Set("Content-Type", doc.Type)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}
