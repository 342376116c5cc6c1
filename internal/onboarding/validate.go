package onboarding

import (
	"errors"

	"c2d.dev/portal/internal/validate"
)

// messages maps "<field>.<tag>" to the text shown next to the field.
var messages = map[string]string{
	"companyName.min":           "Company name must be at least 2 characters",
	"legalName.min":             "Legal name must be at least 2 characters",
	"companyType.required":      "Please select a company type",
	"companyType.oneof":         "Please select a company type",
	"gstNumber.len":             "GST number must be 15 characters",
	"gstNumber.gstin":           "Invalid GST number format",
	"panNumber.len":             "PAN number must be 10 characters",
	"panNumber.pan":             "Invalid PAN number format",
	"addressLine1.min":          "Address must be at least 5 characters",
	"city.min":                  "City name must be at least 2 characters",
	"state.min":                 "State name must be at least 2 characters",
	"pincode.len":               "Pincode must be 6 digits",
	"pincode.pincode":           "Invalid pincode format",
	"supportEmail.required":     "Invalid email address",
	"supportEmail.email":        "Invalid email address",
	"supportPhoneNumber.min":    "Phone number must be at least 10 digits",
	"supportPhoneNumber.mobile": "Invalid phone number format",
	"bankName.min":              "Bank name must be at least 2 characters",
	"bankAccountNumber.min":     "Account number must be at least 9 digits",
	"bankAccountNumber.max":     "Account number must not exceed 18 digits",
	"bankAccountNumber.digits":  "Account number must contain only digits",
	"ifscCode.len":              "IFSC code must be 11 characters",
	"ifscCode.ifsc":             "Invalid IFSC code format",
	"gstCertificate.required":   "GST Certificate is required",
	"panCard.required":          "PAN Card is required",
}

// Validate normalizes f in place and checks it against its step's rules.
// It returns a *ValidationError when any field fails.
func Validate(f Fragment) error {
	f.normalize()
	err := validate.Struct(f, messages)
	var fields validate.Errors
	if errors.As(err, &fields) {
		return &ValidationError{Step: f.Step(), Fields: fields}
	}
	return err
}
