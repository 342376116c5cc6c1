package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/validate"
)

// Login exchanges credentials for the session user and backend token.
func (c *Client) Login(ctx context.Context, email, password string) (auth.User, string, error) {
	body, err := c.postJSON(ctx, "/auth/login", "", map[string]string{"email": email, "password": password})
	if err != nil {
		return auth.User{}, "", err
	}
	return auth.ParseLogin(body)
}

// Operations lists every operation a role can be granted.
func (c *Client) Operations(ctx context.Context, token string) ([]auth.Operation, error) {
	body, err := c.getJSON(ctx, "/operations/all", token)
	if err != nil {
		return nil, err
	}
	return auth.ParseOperations(body)
}

// Roles lists the roles of the caller's company.
func (c *Client) Roles(ctx context.Context, token string) ([]auth.Role, error) {
	body, err := c.getJSON(ctx, "/company/get-roles", token)
	if err != nil {
		return nil, err
	}
	return auth.ParseRoles(body)
}

// CreateRoleRequest names a new role and the operations it bundles.
type CreateRoleRequest struct {
	RoleName     string   `json:"roleName" validate:"required"`
	OperationIDs []string `json:"operationIds" validate:"min=1"`
}

var createRoleMessages = map[string]string{
	"roleName.required": "Role name is required",
	"operationIds.min":  "Please select at least one operation",
}

// Validate trims the request and checks it before it is sent.
func (r *CreateRoleRequest) Validate() error {
	r.RoleName = strings.TrimSpace(r.RoleName)
	r.OperationIDs = compact(r.OperationIDs)
	return validate.Struct(r, createRoleMessages)
}

// CreateRole creates a role for the caller's company.
func (c *Client) CreateRole(ctx context.Context, token string, req CreateRoleRequest) (auth.Role, error) {
	if err := req.Validate(); err != nil {
		return auth.Role{}, err
	}
	body, err := c.postJSON(ctx, "/auth/create-role", token, req)
	if err != nil {
		return auth.Role{}, err
	}
	return auth.ParseRole(body)
}

// InviteForm is the employee invitation as entered. Pincode arrives as text.
type InviteForm struct {
	Email        string   `json:"email" validate:"required,email"`
	FullName     string   `json:"fullName" validate:"min=2"`
	PhoneNumber  string   `json:"phoneNumber" validate:"intlphone"`
	AddressLine1 string   `json:"addressLine1" validate:"min=3"`
	AddressLine2 string   `json:"addressLine2,omitempty"`
	AddressLine3 string   `json:"addressLine3,omitempty"`
	Pincode      string   `json:"pincode" validate:"len=6,digits"`
	RoleIDs      []string `json:"roleIds" validate:"min=1"`
}

var inviteMessages = map[string]string{
	"email.required":        "Invalid email address",
	"email.email":           "Invalid email address",
	"fullName.min":          "Full name must be at least 2 characters",
	"phoneNumber.intlphone": "Invalid phone number",
	"addressLine1.min":      "Address is required",
	"pincode.len":           "Pincode must be 6 digits",
	"pincode.digits":        "Pincode must be 6 digits",
	"roleIds.min":           "Please select at least one role for the employee",
}

// InviteRequest is the wire form of an invitation.
type InviteRequest struct {
	Email        string   `json:"email"`
	FullName     string   `json:"fullName"`
	PhoneNumber  string   `json:"phoneNumber"`
	AddressLine1 string   `json:"addressLine1"`
	AddressLine2 string   `json:"addressLine2,omitempty"`
	AddressLine3 string   `json:"addressLine3,omitempty"`
	Pincode      int      `json:"pincode"`
	RoleIDs      []string `json:"roleIds"`
}

// Request validates the form and converts it to the wire request.
// Role ids are the roleId values of the selected roles.
func (f InviteForm) Request() (InviteRequest, error) {
	f.Email = strings.TrimSpace(f.Email)
	f.FullName = strings.TrimSpace(f.FullName)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)
	f.AddressLine1 = strings.TrimSpace(f.AddressLine1)
	f.AddressLine2 = strings.TrimSpace(f.AddressLine2)
	f.AddressLine3 = strings.TrimSpace(f.AddressLine3)
	f.Pincode = strings.TrimSpace(f.Pincode)
	f.RoleIDs = compact(f.RoleIDs)
	if err := validate.Struct(f, inviteMessages); err != nil {
		return InviteRequest{}, err
	}
	var pin int
	if _, err := fmt.Sscanf(f.Pincode, "%d", &pin); err != nil {
		return InviteRequest{}, validate.Errors{"pincode": "Pincode must be 6 digits"}
	}
	return InviteRequest{
		Email:        f.Email,
		FullName:     f.FullName,
		PhoneNumber:  f.PhoneNumber,
		AddressLine1: f.AddressLine1,
		AddressLine2: f.AddressLine2,
		AddressLine3: f.AddressLine3,
		Pincode:      pin,
		RoleIDs:      f.RoleIDs,
	}, nil
}

// InviteResponse is the backend's answer to an invitation.
type InviteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}

// InviteEmployee sends an invitation. A response with success=false becomes an *APIError.
func (c *Client) InviteEmployee(ctx context.Context, token string, req InviteRequest) (InviteResponse, error) {
	body, err := c.postJSON(ctx, "/company/invite-employee", token, req)
	if err != nil {
		return InviteResponse{}, err
	}
	var out InviteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return InviteResponse{}, fmt.Errorf("decode invite response: %w", err)
	}
	if !out.Success {
		return out, &APIError{Status: http.StatusUnprocessableEntity, Message: out.Message}
	}
	return out, nil
}

// Products, SalesOrders and Payments pass the backend's listing through untouched
// after checking it is JSON.
func (c *Client) Products(ctx context.Context, token string) (json.RawMessage, error) {
	return c.listing(ctx, "/products", token)
}

func (c *Client) SalesOrders(ctx context.Context, token string) (json.RawMessage, error) {
	return c.listing(ctx, "/sales-orders", token)
}

func (c *Client) Payments(ctx context.Context, token string) (json.RawMessage, error) {
	return c.listing(ctx, "/payments", token)
}

func (c *Client) listing(ctx context.Context, path, token string) (json.RawMessage, error) {
	body, err := c.getJSON(ctx, path, token)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("backend %s: response is not JSON", path)
	}
	return json.RawMessage(body), nil
}

// compact trims ids and drops blanks and duplicates, keeping order.
func compact(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
