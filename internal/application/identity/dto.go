package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/infrastructure/auth"
)

// RegisterInput contains the input for customer sign-up
type RegisterInput struct {
	Email    string
	FullName string
	Phone    string
	Password string
}

// LoginInput contains the input for login
type LoginInput struct {
	Email    string
	Password string
	IP       string // Client IP for login tracking
}

// AuthResult is returned whenever a token pair is issued
type AuthResult struct {
	AccessToken           string      `json:"access_token"`
	RefreshToken          string      `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time   `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time   `json:"refresh_token_expires_at"`
	TokenType             string      `json:"token_type"`
	Profile               ProfileInfo `json:"profile"`
}

// ProfileInfo is the public view of a profile
type ProfileInfo struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Phone     string     `json:"phone,omitempty"`
	Role      string     `json:"role"`
	IsGuest   bool       `json:"is_guest"`
	VendorID  *uuid.UUID `json:"vendor_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// LogoutInput contains the input for logout
type LogoutInput struct {
	UserID    uuid.UUID
	TokenJTI  string        // JWT ID of the access token being revoked
	TokenTTL  time.Duration // remaining lifetime of that token
	AllTokens bool          // revoke every token issued to the user
}

// CheckoutAccountInput describes the buyer of a checkout
type CheckoutAccountInput struct {
	// CallerID is set when the request is authenticated
	CallerID *uuid.UUID
	Email    string
	FullName string
	Phone    string
}

// CheckoutAccount is the profile a checkout is placed for. Tokens is only
// set when a new guest profile was created.
type CheckoutAccount struct {
	Profile ProfileInfo `json:"profile"`
	Created bool        `json:"created"`
	Tokens  *AuthResult `json:"tokens,omitempty"`
}

// ClaimGuestInput converts a guest profile into a registered account
type ClaimGuestInput struct {
	UserID   uuid.UUID
	Password string
}

// ToProfileInfo converts a domain profile
func ToProfileInfo(p *identity.Profile, vendorID *uuid.UUID) ProfileInfo {
	return ProfileInfo{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Phone:     p.Phone,
		Role:      p.Role.String(),
		IsGuest:   p.IsGuest,
		VendorID:  vendorID,
		CreatedAt: p.CreatedAt,
	}
}

func newAuthResult(pair *auth.TokenPair, info ProfileInfo) *AuthResult {
	return &AuthResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		Profile:               info,
	}
}
