package auth

import "time"

// Operation is an atomic grantable capability issued by the backend.
type Operation struct {
	ID       string `json:"sys_id"`
	Name     string `json:"operationName"`
	Category string `json:"operationType"`
}

// Role is a named bundle of operations owned by a company.
// ID (roleId) is the canonical identifier; SysID is carried verbatim and never assumed equal to it.
type Role struct {
	ID         string      `json:"roleId"`
	Name       string      `json:"roleName"`
	Operations []Operation `json:"operations"`
	SysID      string      `json:"sysId,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Company is the tenant profile attached to a company user at login.
type Company struct {
	ID           string `json:"companyId"`
	Name         string `json:"companyName"`
	LegalName    string `json:"legalName,omitempty"`
	Type         string `json:"companyType,omitempty"`
	LogoURL      string `json:"companyLogoUrl,omitempty"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	AddressLine3 string `json:"addressLine3,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country,omitempty"`
	Pincode      int    `json:"pincode,omitempty"`
	GeoLatitude  string `json:"geoLatitude,omitempty"`
	GeoLongitude string `json:"geoLongitude,omitempty"`
}

// User is the session subject. The permission engine treats it as read-only.
type User struct {
	Email        string   `json:"email"`
	FullName     string   `json:"fullName"`
	PhoneNumber  string   `json:"phoneNumber,omitempty"`
	AddressLine1 string   `json:"addressLine1,omitempty"`
	AddressLine2 string   `json:"addressLine2,omitempty"`
	AddressLine3 string   `json:"addressLine3,omitempty"`
	Pincode      int      `json:"pincode,omitempty"`
	CompanyUser  bool     `json:"companyUser"`
	Roles        []Role   `json:"roles"`
	Company      *Company `json:"company,omitempty"`
}

// Session is an authenticated portal session: the hydrated user plus the backend bearer token.
type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
