package onboarding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"c2d.dev/portal/internal/upload"
)

// DefaultCountry is applied when a business address leaves the country blank.
const DefaultCountry = "India"

// CompanyTypes is the closed set of company types.
var CompanyTypes = []string{"Manufacturer", "Supplier", "Brand Owner"}

// Fragment is one step's worth of collected data.
type Fragment interface {
	Step() Step
	normalize()
}

type CompanyRegistration struct {
	CompanyName string `json:"companyName" validate:"min=2"`
	LegalName   string `json:"legalName" validate:"min=2"`
	CompanyType string `json:"companyType" validate:"required,oneof='Manufacturer' 'Supplier' 'Brand Owner'"`
	GSTNumber   string `json:"gstNumber" validate:"len=15,gstin"`
	PANNumber   string `json:"panNumber" validate:"len=10,pan"`
	CINNumber   string `json:"cinNumber,omitempty"`
}

func (*CompanyRegistration) Step() Step { return StepCompanyRegistration }

func (f *CompanyRegistration) normalize() {
	f.CompanyName = strings.TrimSpace(f.CompanyName)
	f.LegalName = strings.TrimSpace(f.LegalName)
	f.CompanyType = strings.TrimSpace(f.CompanyType)
	f.GSTNumber = strings.ToUpper(strings.TrimSpace(f.GSTNumber))
	f.PANNumber = strings.ToUpper(strings.TrimSpace(f.PANNumber))
	f.CINNumber = strings.ToUpper(strings.TrimSpace(f.CINNumber))
}

type BusinessAddress struct {
	AddressLine1 string `json:"addressLine1" validate:"min=5"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	AddressLine3 string `json:"addressLine3,omitempty"`
	City         string `json:"city" validate:"min=2"`
	State        string `json:"state" validate:"min=2"`
	Pincode      string `json:"pincode" validate:"len=6,pincode"`
	Country      string `json:"country"`
	GeoLatitude  string `json:"geoLatitude,omitempty"`
	GeoLongitude string `json:"geoLongitude,omitempty"`
}

func (*BusinessAddress) Step() Step { return StepBusinessAddress }

func (f *BusinessAddress) normalize() {
	f.AddressLine1 = strings.TrimSpace(f.AddressLine1)
	f.AddressLine2 = strings.TrimSpace(f.AddressLine2)
	f.AddressLine3 = strings.TrimSpace(f.AddressLine3)
	f.City = strings.TrimSpace(f.City)
	f.State = strings.TrimSpace(f.State)
	f.Pincode = strings.TrimSpace(f.Pincode)
	f.Country = strings.TrimSpace(f.Country)
	if f.Country == "" {
		f.Country = DefaultCountry
	}
	f.GeoLatitude = strings.TrimSpace(f.GeoLatitude)
	f.GeoLongitude = strings.TrimSpace(f.GeoLongitude)
}

type ContactPerson struct {
	SupportEmail       string `json:"supportEmail" validate:"required,email"`
	SupportPhoneNumber string `json:"supportPhoneNumber" validate:"min=10,mobile"`
}

func (*ContactPerson) Step() Step { return StepContactPerson }

func (f *ContactPerson) normalize() {
	f.SupportEmail = strings.TrimSpace(f.SupportEmail)
	f.SupportPhoneNumber = strings.TrimSpace(f.SupportPhoneNumber)
}

type BankingDetails struct {
	BankName                   string `json:"bankName" validate:"min=2"`
	BankAccountNumber          string `json:"bankAccountNumber" validate:"min=9,max=18,digits"`
	IFSCCode                   string `json:"ifscCode" validate:"len=11,ifsc"`
	CreditLimitForDistributors string `json:"creditLimitForDistributors,omitempty"`
}

func (*BankingDetails) Step() Step { return StepBankingDetails }

func (f *BankingDetails) normalize() {
	f.BankName = strings.TrimSpace(f.BankName)
	f.BankAccountNumber = strings.TrimSpace(f.BankAccountNumber)
	f.IFSCCode = strings.ToUpper(strings.TrimSpace(f.IFSCCode))
	f.CreditLimitForDistributors = strings.TrimSpace(f.CreditLimitForDistributors)
}

// Documents holds one upload handle per slot. Size and type were enforced at upload time;
// the wizard only checks that the mandatory slots are filled.
type Documents struct {
	GSTCertificate       *upload.Document `json:"gstCertificate,omitempty" validate:"required"`
	PANCard              *upload.Document `json:"panCard,omitempty" validate:"required"`
	RegistrationDocument *upload.Document `json:"registrationDocument,omitempty"`
	CompanyLogo          *upload.Document `json:"companyLogo,omitempty"`
}

func (*Documents) Step() Step { return StepDocuments }

func (*Documents) normalize() {}

// Get returns the handle in slot.
func (d Documents) Get(slot upload.Slot) *upload.Document {
	switch slot {
	case upload.SlotGSTCertificate:
		return d.GSTCertificate
	case upload.SlotPANCard:
		return d.PANCard
	case upload.SlotRegistrationDocument:
		return d.RegistrationDocument
	case upload.SlotCompanyLogo:
		return d.CompanyLogo
	}
	return nil
}

// With returns a copy of d with slot replaced by doc; a nil doc clears the slot.
func (d Documents) With(slot upload.Slot, doc *upload.Document) Documents {
	switch slot {
	case upload.SlotGSTCertificate:
		d.GSTCertificate = doc
	case upload.SlotPANCard:
		d.PANCard = doc
	case upload.SlotRegistrationDocument:
		d.RegistrationDocument = doc
	case upload.SlotCompanyLogo:
		d.CompanyLogo = doc
	}
	return d
}

// All returns the filled slots in display order.
func (d Documents) All() []upload.Document {
	var out []upload.Document
	for _, slot := range upload.Slots {
		if doc := d.Get(slot); doc != nil {
			out = append(out, *doc)
		}
	}
	return out
}

// DecodeFragment decodes raw into the fragment type collected at step.
func DecodeFragment(step Step, raw json.RawMessage) (Fragment, error) {
	var f Fragment
	switch step {
	case StepCompanyRegistration:
		f = &CompanyRegistration{}
	case StepBusinessAddress:
		f = &BusinessAddress{}
	case StepContactPerson:
		f = &ContactPerson{}
	case StepBankingDetails:
		f = &BankingDetails{}
	case StepDocuments:
		f = &Documents{}
	default:
		return nil, fmt.Errorf("%w: %s collects no data", ErrIllegalTransition, step)
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return f, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", step, err)
	}
	return f, nil
}
