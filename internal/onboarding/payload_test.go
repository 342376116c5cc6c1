package onboarding

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestBuildCompanyInfo(t *testing.T) {
	d := Draft{
		CompanyRegistration: validCompany(),
		BusinessAddress:     validAddress(),
		ContactPerson:       validContact(),
		BankingDetails:      validBanking(),
		Documents:           validDocuments(),
	}
	d.BusinessAddress.Country = "India"
	info, err := BuildCompanyInfo(d)
	if err != nil {
		t.Fatalf("BuildCompanyInfo: %v", err)
	}
	raw, err := json.Marshal(info)
	if err != nil {
		t.Fatal(err)
	}
	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatal(err)
	}
	if pin, ok := wire["pincode"].(float64); !ok || pin != 411001 {
		t.Fatalf("pincode must be sent as a number, got %#v", wire["pincode"])
	}
	if _, ok := wire["cinNumber"]; ok {
		t.Fatal("empty optional fields must be omitted")
	}
	if wire["ifscCode"] != "SBIN0001234" || wire["companyType"] != "Manufacturer" {
		t.Fatalf("unexpected wire payload: %v", wire)
	}
}

func TestBuildCompanyInfoRequiresFields(t *testing.T) {
	d := Draft{
		CompanyRegistration: validCompany(),
		BusinessAddress:     validAddress(),
		ContactPerson:       validContact(),
		BankingDetails:      validBanking(),
		Documents:           &Documents{GSTCertificate: doc("gst", "gstCertificate")},
	}
	if _, err := BuildCompanyInfo(d); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected missing PAN card to block, got %v", err)
	}

	d.Documents = validDocuments()
	d.BusinessAddress.Country = ""
	_, err := BuildCompanyInfo(d)
	if !errors.Is(err, ErrIncomplete) || !strings.Contains(err.Error(), "Country is required") {
		t.Fatalf("expected required-field error, got %v", err)
	}
}

func TestCheckReportsEveryBlankField(t *testing.T) {
	problems := CompanyInfo{}.Check()
	if len(problems) != 15 {
		t.Fatalf("expected 15 problems, got %d: %v", len(problems), problems)
	}
}
