package onboarding

import (
	"fmt"
	"strconv"
	"strings"
)

// CompanyInfo is the flat JSON sent as the companyInfo multipart field.
type CompanyInfo struct {
	CompanyName  string `json:"companyName"`
	LegalName    string `json:"legalName"`
	GSTNumber    string `json:"gstNumber"`
	PANNumber    string `json:"panNumber"`
	CINNumber    string `json:"cinNumber,omitempty"`
	CompanyType  string `json:"companyType"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	AddressLine3 string `json:"addressLine3,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	Pincode      int    `json:"pincode"`
	GeoLatitude  string `json:"geoLatitude,omitempty"`
	GeoLongitude string `json:"geoLongitude,omitempty"`

	SupportEmail       string `json:"supportEmail"`
	SupportPhoneNumber string `json:"supportPhoneNumber"`

	BankAccountNumber          string `json:"bankAccountNumber"`
	BankName                   string `json:"bankName"`
	IFSCCode                   string `json:"ifscCode"`
	CreditLimitForDistributors string `json:"creditLimitForDistributors,omitempty"`
}

// Submission is what the backend receives on submit.
type Submission struct {
	Info      CompanyInfo
	Documents Documents
}

// Receipt is the backend acknowledgment.
type Receipt struct {
	Message       string `json:"message"`
	ApplicationID string `json:"applicationId"`
}

// BuildCompanyInfo flattens a complete draft into the wire DTO.
func BuildCompanyInfo(d Draft) (CompanyInfo, error) {
	if missing := d.Missing(); len(missing) > 0 {
		return CompanyInfo{}, &IncompleteError{Missing: missing}
	}
	reg, addr, contact, bank := d.CompanyRegistration, d.BusinessAddress, d.ContactPerson, d.BankingDetails

	info := CompanyInfo{
		CompanyName:                reg.CompanyName,
		LegalName:                  reg.LegalName,
		GSTNumber:                  reg.GSTNumber,
		PANNumber:                  reg.PANNumber,
		CINNumber:                  reg.CINNumber,
		CompanyType:                reg.CompanyType,
		AddressLine1:               addr.AddressLine1,
		AddressLine2:               addr.AddressLine2,
		AddressLine3:               addr.AddressLine3,
		City:                       addr.City,
		State:                      addr.State,
		Country:                    addr.Country,
		GeoLatitude:                addr.GeoLatitude,
		GeoLongitude:               addr.GeoLongitude,
		SupportEmail:               contact.SupportEmail,
		SupportPhoneNumber:         contact.SupportPhoneNumber,
		BankAccountNumber:          bank.BankAccountNumber,
		BankName:                   bank.BankName,
		IFSCCode:                   bank.IFSCCode,
		CreditLimitForDistributors: bank.CreditLimitForDistributors,
	}
	if pin, err := strconv.Atoi(addr.Pincode); err == nil {
		info.Pincode = pin
	}
	if problems := info.Check(); len(problems) > 0 {
		return CompanyInfo{}, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(problems, ", "))
	}
	return info, nil
}

// Check lists required wire fields that are blank.
func (c CompanyInfo) Check() []string {
	var errs []string
	required := []struct {
		value, msg string
	}{
		{c.CompanyName, "Company name is required"},
		{c.LegalName, "Legal name is required"},
		{c.GSTNumber, "GST number is required"},
		{c.PANNumber, "PAN number is required"},
		{c.CompanyType, "Company type is required"},
		{c.AddressLine1, "Address line 1 is required"},
		{c.City, "City is required"},
		{c.State, "State is required"},
		{c.Country, "Country is required"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, r.msg)
		}
	}
	if c.Pincode <= 0 {
		errs = append(errs, "Valid pincode is required")
	}
	for _, r := range []struct{ value, msg string }{
		{c.SupportEmail, "Support email is required"},
		{c.SupportPhoneNumber, "Support phone number is required"},
		{c.BankAccountNumber, "Bank account number is required"},
		{c.BankName, "Bank name is required"},
		{c.IFSCCode, "IFSC code is required"},
	} {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, r.msg)
		}
	}
	return errs
}
