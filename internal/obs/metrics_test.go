package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                     "/",
		"/metrics":                             "/metrics",
		"/v1/onboarding":                       "/v1/onboarding",
		"/v1/onboarding/abc":                   "/v1/onboarding/:id",
		"/v1/onboarding/abc/next":              "/v1/onboarding/:id/next",
		"/v1/onboarding/abc/submit":            "/v1/onboarding/:id/submit",
		"/v1/onboarding/abc/documents/panCard": "/v1/onboarding/:id/documents/:slot",
		"/v1/onboarding/abc/extra":             "/v1/onboarding/abc/extra",
		"/v1/roles?grouped=1":                  "/v1/roles",
		"/v1/products":                         "/v1/products",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
