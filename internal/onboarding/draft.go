package onboarding

// DraftKey is the store key of a persisted draft.
const DraftKey = "onboarding_form_data"

// DraftKeyFor scopes DraftKey to one wizard so concurrent applicants do not share a draft.
func DraftKeyFor(wizardID string) string {
	if wizardID == "" {
		return DraftKey
	}
	return DraftKey + ":" + wizardID
}

// Draft is the in-progress application. Each fragment is replaced whole, never merged.
type Draft struct {
	CompanyRegistration *CompanyRegistration `json:"companyRegistration,omitempty"`
	BusinessAddress     *BusinessAddress     `json:"businessAddress,omitempty"`
	ContactPerson       *ContactPerson       `json:"contactPerson,omitempty"`
	BankingDetails      *BankingDetails      `json:"bankingDetails,omitempty"`
	Documents           *Documents           `json:"documents,omitempty"`
}

// with returns a copy of d holding f in its slot.
func (d Draft) with(f Fragment) Draft {
	switch v := f.(type) {
	case *CompanyRegistration:
		c := *v
		d.CompanyRegistration = &c
	case *BusinessAddress:
		c := *v
		d.BusinessAddress = &c
	case *ContactPerson:
		c := *v
		d.ContactPerson = &c
	case *BankingDetails:
		c := *v
		d.BankingDetails = &c
	case *Documents:
		c := *v
		d.Documents = &c
	}
	return d
}

// Fragment returns the stored fragment for step, or nil.
func (d Draft) Fragment(step Step) Fragment {
	switch step {
	case StepCompanyRegistration:
		if d.CompanyRegistration != nil {
			return d.CompanyRegistration
		}
	case StepBusinessAddress:
		if d.BusinessAddress != nil {
			return d.BusinessAddress
		}
	case StepContactPerson:
		if d.ContactPerson != nil {
			return d.ContactPerson
		}
	case StepBankingDetails:
		if d.BankingDetails != nil {
			return d.BankingDetails
		}
	case StepDocuments:
		if d.Documents != nil {
			return d.Documents
		}
	}
	return nil
}

// Empty reports whether no fragment has been collected.
func (d Draft) Empty() bool {
	return d.CompanyRegistration == nil && d.BusinessAddress == nil && d.ContactPerson == nil &&
		d.BankingDetails == nil && d.Documents == nil
}

// Missing lists the fragments and mandatory documents still absent, in step order.
func (d Draft) Missing() []string {
	var missing []string
	for s := StepCompanyRegistration; s <= StepDocuments; s++ {
		if d.Fragment(s) == nil {
			missing = append(missing, s.String())
		}
	}
	if d.Documents != nil {
		if d.Documents.GSTCertificate == nil {
			missing = append(missing, "gstCertificate")
		}
		if d.Documents.PANCard == nil {
			missing = append(missing, "panCard")
		}
	}
	return missing
}

// clone returns a deep copy safe to hand to callers.
func (d Draft) clone() Draft {
	var out Draft
	if d.CompanyRegistration != nil {
		out = out.with(d.CompanyRegistration)
	}
	if d.BusinessAddress != nil {
		out = out.with(d.BusinessAddress)
	}
	if d.ContactPerson != nil {
		out = out.with(d.ContactPerson)
	}
	if d.BankingDetails != nil {
		out = out.with(d.BankingDetails)
	}
	if d.Documents != nil {
		out = out.with(d.Documents)
	}
	return out
}
