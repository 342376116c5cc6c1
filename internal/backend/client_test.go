package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/onboarding"
	"c2d.dev/portal/internal/upload"
	"c2d.dev/portal/internal/validate"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   []byte
	ctype  string
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeBackend(t *testing.T) (*fakeBackend, *Client) {
	t.Helper()
	fb := &fakeBackend{routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.requests = append(fb.requests, recorded{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			body:   body,
			ctype:  r.Header.Get("Content-Type"),
		})
		h := fb.routes[r.Method+" "+r.URL.Path]
		fb.mu.Unlock()
		if h == nil {
			http.NotFound(w, r)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api/", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fb, c
}

func (fb *fakeBackend) handle(method, path string, h func(w http.ResponseWriter, r *http.Request)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[method+" "+apiPrefix+path] = h
}

func (fb *fakeBackend) last(t *testing.T) recorded {
	t.Helper()
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.requests) == 0 {
		t.Fatal("no request reached the backend")
	}
	return fb.requests[len(fb.requests)-1]
}

func (fb *fakeBackend) count() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.requests)
}

func respond(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestNewNormalizesBaseURL(t *testing.T) {
	c, err := New(" https://backend.example.com/api/ ")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.BaseURL() != "https://backend.example.com" {
		t.Fatalf("unexpected base: %s", c.BaseURL())
	}
	if _, err := New("not a url"); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestLoginParsesUserAndToken(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.handle(http.MethodPost, "/auth/login", respond(http.StatusOK, `{
		"email":"owner@acme.in",
		"fullName":"Asha Rao",
		"companyUser":true,
		"token":"tok-1",
		"roles":[{"roleId":"r1","roleName":"Admin","operations":[{"sys_id":"1","operationName":"INVITE_EMPLOYEE","operationType":"USER"}]}],
		"companyLoginResp":{"companyId":"c1","companyName":"Acme"}
	}`))

	user, token, err := c.Login(context.Background(), "owner@acme.in", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "tok-1" || user.Email != "owner@acme.in" {
		t.Fatalf("unexpected login result: %+v %q", user, token)
	}
	if !auth.CanInviteEmployee(&user) {
		t.Fatal("expected INVITE_EMPLOYEE from parsed roles")
	}

	req := fb.last(t)
	if req.auth != "" {
		t.Fatalf("login must not carry a bearer token, got %q", req.auth)
	}
	var creds map[string]string
	if err := json.Unmarshal(req.body, &creds); err != nil {
		t.Fatalf("decode credentials: %v", err)
	}
	if creds["email"] != "owner@acme.in" || creds["password"] != "secret" {
		t.Fatalf("unexpected credentials: %v", creds)
	}
}

func TestErrorsCarryBackendMessage(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.handle(http.MethodPost, "/auth/login", respond(http.StatusUnauthorized, `{"message":"Invalid credentials"}`))
	fb.handle(http.MethodGet, "/company/get-roles", respond(http.StatusInternalServerError, `oops`))

	_, _, err := c.Login(context.Background(), "a@b.in", "x")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if UserMessage(err) != "Invalid credentials" {
		t.Fatalf("unexpected user message: %q", UserMessage(err))
	}

	_, err = c.Roles(context.Background(), "tok")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 APIError, got %v", err)
	}
	if errors.Is(err, ErrUnauthenticated) {
		t.Fatal("500 must not read as unauthenticated")
	}
	if UserMessage(err) != GenericMessage {
		t.Fatalf("expected generic message, got %q", UserMessage(err))
	}
}

func TestRolesAndOperationsSendBearer(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.handle(http.MethodGet, "/company/get-roles", respond(http.StatusOK, `[{"roleId":"r1","roleName":"Sales","operations":[]}]`))
	fb.handle(http.MethodGet, "/operations/all", respond(http.StatusOK, `[{"sys_id":"7","operationName":"SO_VIEW","operationType":"SALES_ORDER"}]`))

	roles, err := c.Roles(context.Background(), "tok-9")
	if err != nil {
		t.Fatalf("Roles: %v", err)
	}
	if len(roles) != 1 || roles[0].ID != "r1" {
		t.Fatalf("unexpected roles: %+v", roles)
	}
	if got := fb.last(t).auth; got != "Bearer tok-9" {
		t.Fatalf("unexpected authorization header: %q", got)
	}

	ops, err := c.Operations(context.Background(), "tok-9")
	if err != nil {
		t.Fatalf("Operations: %v", err)
	}
	if len(ops) != 1 || ops[0].Category != "SALES_ORDER" {
		t.Fatalf("unexpected operations: %+v", ops)
	}
}

func TestCreateRoleValidatesBeforeSending(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.handle(http.MethodPost, "/auth/create-role", respond(http.StatusOK, `{"roleId":"r2","roleName":"Dispatch","operations":[]}`))

	_, err := c.CreateRole(context.Background(), "tok", CreateRoleRequest{RoleName: "  ", OperationIDs: []string{" "}})
	var verr validate.Errors
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if verr["roleName"] != "Role name is required" || verr["operationIds"] != "Please select at least one operation" {
		t.Fatalf("unexpected messages: %v", verr)
	}
	if fb.count() != 0 {
		t.Fatal("invalid request reached the backend")
	}

	role, err := c.CreateRole(context.Background(), "tok", CreateRoleRequest{RoleName: " Dispatch ", OperationIDs: []string{"7", "7", "8"}})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if role.ID != "r2" {
		t.Fatalf("unexpected role: %+v", role)
	}
	var sent CreateRoleRequest
	if err := json.Unmarshal(fb.last(t).body, &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent.RoleName != "Dispatch" || len(sent.OperationIDs) != 2 {
		t.Fatalf("unexpected sent request: %+v", sent)
	}
}

func TestInviteFormRequest(t *testing.T) {
	form := InviteForm{
		Email:        " new@acme.in ",
		FullName:     "Ravi Kumar",
		PhoneNumber:  "+919876543210",
		AddressLine1: "12 MG Road",
		Pincode:      "560001",
		RoleIDs:      []string{"r1"},
	}
	req, err := form.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if req.Pincode != 560001 || req.Email != "new@acme.in" {
		t.Fatalf("unexpected request: %+v", req)
	}

	bad := InviteForm{Email: "nope", FullName: "R", PhoneNumber: "12", AddressLine1: "x", Pincode: "56000a"}
	_, err = bad.Request()
	var verr validate.Errors
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	want := map[string]string{
		"email":        "Invalid email address",
		"fullName":     "Full name must be at least 2 characters",
		"phoneNumber":  "Invalid phone number",
		"addressLine1": "Address is required",
		"pincode":      "Pincode must be 6 digits",
		"roleIds":      "Please select at least one role for the employee",
	}
	for field, msg := range want {
		if verr[field] != msg {
			t.Errorf("%s: got %q want %q", field, verr[field], msg)
		}
	}
}

func TestInviteEmployeeRejectedBySuccessFlag(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.handle(http.MethodPost, "/company/invite-employee", respond(http.StatusOK, `{"success":false,"message":"User already exists"}`))

	_, err := c.InviteEmployee(context.Background(), "tok", InviteRequest{Email: "a@b.in"})
	if err == nil {
		t.Fatal("expected error for success=false")
	}
	if UserMessage(err) != "User already exists" {
		t.Fatalf("unexpected message: %q", UserMessage(err))
	}

	fb.handle(http.MethodPost, "/company/invite-employee", respond(http.StatusOK, `{"success":true,"message":"Invited","userId":"u1"}`))
	out, err := c.InviteEmployee(context.Background(), "tok", InviteRequest{Email: "a@b.in"})
	if err != nil {
		t.Fatalf("InviteEmployee: %v", err)
	}
	if out.UserID != "u1" {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestListingsRequireJSON(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.handle(http.MethodGet, "/products", respond(http.StatusOK, `[{"id":1}]`))
	fb.handle(http.MethodGet, "/payments", respond(http.StatusOK, `<html>`))

	raw, err := c.Products(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if string(raw) != `[{"id":1}]` {
		t.Fatalf("unexpected listing: %s", raw)
	}
	if _, err := c.Payments(context.Background(), "tok"); err == nil {
		t.Fatal("expected error for non-JSON listing")
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.handle(http.MethodGet, "/products", respond(http.StatusOK, `[]`))
	WithRateLimit(0.001, 1)(c)

	if _, err := c.Products(context.Background(), "tok"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Products(ctx, "tok"); err == nil {
		t.Fatal("expected limiter to refuse within the deadline")
	}
	if fb.count() != 1 {
		t.Fatalf("expected one request, got %d", fb.count())
	}
}

type memBlobs map[string][]byte

func (m memBlobs) Open(_ context.Context, doc upload.Document) (io.Reader, error) {
	data, ok := m[doc.ID]
	if !ok {
		return nil, errors.New("missing blob")
	}
	return bytes.NewReader(data), nil
}

func TestSubmitterSendsMultipart(t *testing.T) {
	fb, c := newFakeBackend(t)
	var (
		fields = map[string]string{}
		files  = map[string]string{}
	)
	fb.handle(http.MethodPost, "/company/start-onboarding", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		for k, v := range r.MultipartForm.File {
			f, _ := v[0].Open()
			data, _ := io.ReadAll(f)
			_ = f.Close()
			files[k] = v[0].Filename + ":" + string(data)
		}
		respond(http.StatusOK, `{"message":"ok","applicationId":"APP-9"}`)(w, r)
	})

	gst := &upload.Document{ID: "g", Slot: upload.SlotGSTCertificate, Name: "gst.pdf", Type: "application/pdf"}
	pan := &upload.Document{ID: "p", Slot: upload.SlotPANCard, Name: "pan.png", Type: "image/png"}
	docs := onboarding.Documents{}.With(upload.SlotGSTCertificate, gst).With(upload.SlotPANCard, pan)
	sub := NewSubmitter(c, memBlobs{"g": []byte("GST"), "p": []byte("PAN")})

	ctx := auth.ContextWithToken(context.Background(), "tok-5")
	receipt, err := sub.Submit(ctx, onboarding.Submission{
		Info:      onboarding.CompanyInfo{CompanyName: "Acme", Pincode: 560001},
		Documents: docs,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt.ApplicationID != "APP-9" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	req := fb.last(t)
	if req.auth != "Bearer tok-5" {
		t.Fatalf("unexpected authorization: %q", req.auth)
	}
	if !strings.HasPrefix(req.ctype, "multipart/form-data") {
		t.Fatalf("unexpected content type: %s", req.ctype)
	}
	if files["gstCertificate"] != "gst.pdf:GST" || files["panCard"] != "pan.png:PAN" {
		t.Fatalf("unexpected files: %v", files)
	}
	if _, ok := files["companyLogo"]; ok {
		t.Fatal("absent optional document was sent")
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(fields["companyInfo"]), &info); err != nil {
		t.Fatalf("decode companyInfo: %v", err)
	}
	if info["companyName"] != "Acme" || info["pincode"] != float64(560001) {
		t.Fatalf("unexpected companyInfo: %v", info)
	}
}

func TestSubmitterFailsOnMissingBlob(t *testing.T) {
	fb, c := newFakeBackend(t)
	gst := &upload.Document{ID: "gone", Slot: upload.SlotGSTCertificate, Name: "gst.pdf", Type: "application/pdf"}
	sub := NewSubmitter(c, memBlobs{})
	_, err := sub.Submit(context.Background(), onboarding.Submission{
		Documents: onboarding.Documents{}.With(upload.SlotGSTCertificate, gst),
	})
	if err == nil {
		t.Fatal("expected error for unreadable blob")
	}
	if fb.count() != 0 {
		t.Fatal("request sent despite missing blob")
	}
}
