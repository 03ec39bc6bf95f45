package types

import "time"

// RegisterRequest represents the registration form.
type RegisterRequest struct {
	FullName        string `json:"full_name" validate:"required,min=2,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,containsany=ABCDEFGHIJKLMNOPQRSTUVWXYZ,containsany=abcdefghijklmnopqrstuvwxyz,containsany=0123456789"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginRequest represents the login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ResendVerificationRequest is the body of POST /auth/resend-verification.
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// User represents the account returned by the auth service.
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Verified  bool      `json:"is_verified"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPair is the credential pair issued on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// LoginResponse represents the login/register response. Some deployments
// wrap the tokens in a data envelope; Tokens resolves either shape.
type LoginResponse struct {
	TokenPair
	User *User      `json:"user,omitempty"`
	Data *TokenPair `json:"data,omitempty"`
}

// Tokens returns the issued token pair regardless of envelope shape.
func (r *LoginResponse) Tokens() TokenPair {
	if r.AccessToken == "" && r.Data != nil {
		return *r.Data
	}
	return r.TokenPair
}

// MessageResponse is a plain status message from the auth service.
type MessageResponse struct {
	Message string `json:"message"`
}
