package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
)

// Role is the authorization role of a user
type Role string

const (
	// RoleMember may submit and view their own grievances
	RoleMember Role = "member"
	// RoleAdmin may additionally use the admin views
	RoleAdmin Role = "admin"
)

// ID is an identifier the server may encode as a JSON number or string
type ID string

// UnmarshalJSON accepts both numeric and string identifiers
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric identifiers as numbers
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// String returns the identifier text
func (id ID) String() string {
	return string(id)
}

// User represents an authenticated grievance platform user
type User struct {
	ID    ID     `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Role  Role   `json:"role" yaml:"role"`
}

// IsAdmin reports whether the user holds the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Credentials represents a login request
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration represents a registration request
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and registration
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login authenticates with the platform.
// The token is returned to the caller; the client does not keep it.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	data, err := c.Post(ctx, "/auth/login", creds)
	if err != nil {
		return nil, err
	}
	return decodeAuthResponse(data)
}

// Register creates a new account. The server logs the new user in and
// returns a token exactly as Login does.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResponse, error) {
	data, err := c.Post(ctx, "/auth/register", reg)
	if err != nil {
		return nil, err
	}
	return decodeAuthResponse(data)
}

// CurrentUser resolves the current token to a user
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	data, err := c.Get(ctx, "/auth/me", nil)
	if err != nil {
		return nil, err
	}

	// Accept both {"user": {...}} and a bare user object
	var envelope struct {
		User *User `json:"user"`
	}
	if err := decodeInto(data, &envelope); err != nil {
		return nil, err
	}
	if envelope.User != nil {
		return envelope.User, nil
	}

	var user User
	if err := decodeInto(data, &user); err != nil {
		return nil, err
	}
	if user.ID == "" && user.Role == "" {
		return nil, &ProtocolError{Message: "Server returned no user"}
	}
	return &user, nil
}

func decodeAuthResponse(data json.RawMessage) (*AuthResponse, error) {
	var resp AuthResponse
	if err := decodeInto(data, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &ProtocolError{Message: "Server returned no token"}
	}
	return &resp, nil
}
