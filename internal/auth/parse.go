package auth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Backend payload shapes. They are decoded loosely and converted into the closed
// domain types by the Parse functions, which reject records without identifiers.
type wireOperation struct {
	ID       string `json:"sys_id"`
	Name     string `json:"operationName"`
	Category string `json:"operationType"`
}

type wireRole struct {
	ID         string          `json:"roleId"`
	Name       string          `json:"roleName"`
	Operations []wireOperation `json:"operations"`
	SysID      string          `json:"sysId"`
	CreatedAt  string          `json:"createdAt"`
	UpdatedAt  string          `json:"updatedAt"`
}

type wireLogin struct {
	Email        string     `json:"email"`
	FullName     string     `json:"fullName"`
	PhoneNumber  string     `json:"phoneNumber"`
	AddressLine1 string     `json:"addressLine1"`
	AddressLine2 string     `json:"addressLine2"`
	AddressLine3 string     `json:"addressLine3"`
	Pincode      int        `json:"pincode"`
	CompanyUser  bool       `json:"companyUser"`
	Roles        []wireRole `json:"roles"`
	Company      *Company   `json:"companyLoginResp"`
	Token        string     `json:"token"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func (w wireOperation) toOperation() (Operation, error) {
	op := Operation{
		ID:       strings.TrimSpace(w.ID),
		Name:     strings.TrimSpace(w.Name),
		Category: strings.TrimSpace(w.Category),
	}
	if op.ID == "" {
		return Operation{}, fmt.Errorf("%w: operation %q has no sys_id", ErrInvalidInput, op.Name)
	}
	if op.Name == "" {
		return Operation{}, fmt.Errorf("%w: operation %s has no name", ErrInvalidInput, op.ID)
	}
	return op, nil
}

func (w wireRole) toRole() (Role, error) {
	role := Role{
		ID:        strings.TrimSpace(w.ID),
		Name:      strings.TrimSpace(w.Name),
		SysID:     strings.TrimSpace(w.SysID),
		CreatedAt: parseTime(w.CreatedAt),
		UpdatedAt: parseTime(w.UpdatedAt),
	}
	if role.ID == "" {
		return Role{}, fmt.Errorf("%w: role %q has no roleId", ErrInvalidInput, role.Name)
	}
	role.Operations = make([]Operation, 0, len(w.Operations))
	for _, wo := range w.Operations {
		op, err := wo.toOperation()
		if err != nil {
			return Role{}, fmt.Errorf("role %s: %w", role.ID, err)
		}
		role.Operations = append(role.Operations, op)
	}
	return role, nil
}

// ParseOperations decodes a backend operation list.
func ParseOperations(data []byte) ([]Operation, error) {
	var raw []wireOperation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode operations: %v", ErrInvalidInput, err)
	}
	out := make([]Operation, 0, len(raw))
	for _, w := range raw {
		op, err := w.toOperation()
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}

// ParseRole decodes a single backend role.
func ParseRole(data []byte) (Role, error) {
	var raw wireRole
	if err := json.Unmarshal(data, &raw); err != nil {
		return Role{}, fmt.Errorf("%w: decode role: %v", ErrInvalidInput, err)
	}
	return raw.toRole()
}

// ParseRoles decodes a backend role list.
func ParseRoles(data []byte) ([]Role, error) {
	var raw []wireRole
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode roles: %v", ErrInvalidInput, err)
	}
	out := make([]Role, 0, len(raw))
	for _, w := range raw {
		role, err := w.toRole()
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, nil
}

// ParseLogin decodes a backend login response into the session user and its bearer token.
func ParseLogin(data []byte) (User, string, error) {
	var raw wireLogin
	if err := json.Unmarshal(data, &raw); err != nil {
		return User{}, "", fmt.Errorf("%w: decode login: %v", ErrInvalidInput, err)
	}
	user := User{
		Email:        strings.TrimSpace(raw.Email),
		FullName:     strings.TrimSpace(raw.FullName),
		PhoneNumber:  strings.TrimSpace(raw.PhoneNumber),
		AddressLine1: raw.AddressLine1,
		AddressLine2: raw.AddressLine2,
		AddressLine3: raw.AddressLine3,
		Pincode:      raw.Pincode,
		CompanyUser:  raw.CompanyUser,
		Company:      raw.Company,
	}
	if user.Email == "" {
		return User{}, "", fmt.Errorf("%w: login response has no email", ErrInvalidInput)
	}
	token := strings.TrimSpace(raw.Token)
	if token == "" {
		return User{}, "", fmt.Errorf("%w: login response has no token", ErrInvalidInput)
	}
	user.Roles = make([]Role, 0, len(raw.Roles))
	for _, w := range raw.Roles {
		role, err := w.toRole()
		if err != nil {
			return User{}, "", err
		}
		user.Roles = append(user.Roles, role)
	}
	return user, token, nil
}
