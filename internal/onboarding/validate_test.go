package onboarding

import (
	"errors"
	"testing"
)

func validCompany() *CompanyRegistration {
	return &CompanyRegistration{
		CompanyName: "Acme Foods",
		LegalName:   "Acme Foods Private Limited",
		CompanyType: "Manufacturer",
		GSTNumber:   "22AAAAA0000A1Z5",
		PANNumber:   "AAAAA0000A",
	}
}

func validAddress() *BusinessAddress {
	return &BusinessAddress{
		AddressLine1: "12 Industrial Estate",
		City:         "Pune",
		State:        "Maharashtra",
		Pincode:      "411001",
	}
}

func validContact() *ContactPerson {
	return &ContactPerson{SupportEmail: "support@acme.test", SupportPhoneNumber: "9876543210"}
}

func validBanking() *BankingDetails {
	return &BankingDetails{BankName: "State Bank", BankAccountNumber: "123456789012", IFSCCode: "SBIN0001234"}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return ve.Fields
}

func TestGSTValidation(t *testing.T) {
	if err := Validate(validCompany()); err != nil {
		t.Fatalf("valid registration rejected: %v", err)
	}

	short := validCompany()
	short.GSTNumber = "22AAAAA0000A1Z"
	fields := fieldErrors(t, Validate(short))
	if fields["gstNumber"] != "GST number must be 15 characters" {
		t.Fatalf("expected length message, got %q", fields["gstNumber"])
	}

	bad := validCompany()
	bad.GSTNumber = "22AAAAA0000A1X5"
	fields = fieldErrors(t, Validate(bad))
	if fields["gstNumber"] != "Invalid GST number format" {
		t.Fatalf("expected format message, got %q", fields["gstNumber"])
	}
}

func TestCompanyRegistrationNormalizes(t *testing.T) {
	f := validCompany()
	f.GSTNumber = " 22aaaaa0000a1z5 "
	f.PANNumber = "aaaaa0000a"
	if err := Validate(f); err != nil {
		t.Fatalf("lower-case identifiers rejected: %v", err)
	}
	if f.GSTNumber != "22AAAAA0000A1Z5" || f.PANNumber != "AAAAA0000A" {
		t.Fatalf("identifiers not normalized: %+v", f)
	}
}

func TestCompanyRegistrationFieldMessages(t *testing.T) {
	f := &CompanyRegistration{CompanyName: "A", CompanyType: "Retailer", GSTNumber: "22AAAAA0000A1Z5", PANNumber: "AAAA00000A"}
	fields := fieldErrors(t, Validate(f))
	want := map[string]string{
		"companyName": "Company name must be at least 2 characters",
		"legalName":   "Legal name must be at least 2 characters",
		"companyType": "Please select a company type",
		"panNumber":   "Invalid PAN number format",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("%s: got %q, want %q", k, fields[k], v)
		}
	}
	if _, ok := fields["gstNumber"]; ok {
		t.Fatal("valid GST reported as invalid")
	}
}

func TestIFSCValidation(t *testing.T) {
	if err := Validate(validBanking()); err != nil {
		t.Fatalf("valid banking rejected: %v", err)
	}
	bad := validBanking()
	bad.IFSCCode = "SBINA001234"
	fields := fieldErrors(t, Validate(bad))
	if fields["ifscCode"] != "Invalid IFSC code format" {
		t.Fatalf("unexpected ifsc message %q", fields["ifscCode"])
	}
}

func TestBankAccountRules(t *testing.T) {
	cases := map[string]string{
		"12345678":            "Account number must be at least 9 digits",
		"1234567890123456789": "Account number must not exceed 18 digits",
		"12345678A":           "Account number must contain only digits",
	}
	for acct, msg := range cases {
		f := validBanking()
		f.BankAccountNumber = acct
		if got := fieldErrors(t, Validate(f))["bankAccountNumber"]; got != msg {
			t.Fatalf("%s: got %q, want %q", acct, got, msg)
		}
	}
}

func TestAddressDefaultsCountryAndChecksPincode(t *testing.T) {
	a := validAddress()
	if err := Validate(a); err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}
	if a.Country != DefaultCountry {
		t.Fatalf("expected default country, got %q", a.Country)
	}

	a = validAddress()
	a.Pincode = "41100"
	if got := fieldErrors(t, Validate(a))["pincode"]; got != "Pincode must be 6 digits" {
		t.Fatalf("unexpected pincode message %q", got)
	}
	a.Pincode = "41100A"
	if got := fieldErrors(t, Validate(a))["pincode"]; got != "Invalid pincode format" {
		t.Fatalf("unexpected pincode message %q", got)
	}
	a = validAddress()
	a.AddressLine1 = "Lane"
	if got := fieldErrors(t, Validate(a))["addressLine1"]; got != "Address must be at least 5 characters" {
		t.Fatalf("unexpected address message %q", got)
	}
}

func TestContactRules(t *testing.T) {
	c := validContact()
	c.SupportEmail = "not-an-email"
	c.SupportPhoneNumber = "5876543210"
	fields := fieldErrors(t, Validate(c))
	if fields["supportEmail"] != "Invalid email address" {
		t.Fatalf("unexpected email message %q", fields["supportEmail"])
	}
	if fields["supportPhoneNumber"] != "Invalid phone number format" {
		t.Fatalf("unexpected phone message %q", fields["supportPhoneNumber"])
	}
}

func TestDocumentsRequireMandatorySlots(t *testing.T) {
	fields := fieldErrors(t, Validate(&Documents{}))
	if fields["gstCertificate"] != "GST Certificate is required" || fields["panCard"] != "PAN Card is required" {
		t.Fatalf("unexpected document messages: %v", fields)
	}
}

func TestDecodeFragmentRejectsUnknownFields(t *testing.T) {
	if _, err := DecodeFragment(StepContactPerson, []byte(`{"supportEmail":"a@b.c","fax":"1"}`)); err == nil {
		t.Fatal("expected unknown field error")
	}
	f, err := DecodeFragment(StepBankingDetails, []byte(`{"bankName":"SBI"}`))
	if err != nil {
		t.Fatalf("DecodeFragment: %v", err)
	}
	if f.Step() != StepBankingDetails {
		t.Fatalf("wrong fragment type %T", f)
	}
	if _, err := DecodeFragment(StepReview, nil); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition for review, got %v", err)
	}
}
