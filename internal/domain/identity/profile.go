package identity

import (
	"crypto/rand"
	"encoding/base64"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/marketplace/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Role is the marketplace role of a profile
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// IsValid returns true for a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

const (
	AggregateTypeProfile     = "Profile"
	TopicProfiles            = "profiles"
	EventTypeProfileCreated  = "profile.created"
	EventTypeGuestClaimed    = "profile.guest_claimed"
	EventTypeProfileRoleSet  = "profile.role_changed"
	EventTypeProfileModified = "profile.updated"
)

// Password cost for bcrypt
const bcryptCost = 12

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	passwordAlpha = regexp.MustCompile(`[a-zA-Z]`)
	passwordDigit = regexp.MustCompile(`[0-9]`)
)

// ErrAccountExists is returned when a guest checkout uses a registered email
var ErrAccountExists = shared.NewDomainError("ACCOUNT_EXISTS", "An account with this email already exists, log in to continue")

// Profile is a marketplace account. Guest profiles are created during
// checkout for buyers who did not sign up; they can be claimed later.
type Profile struct {
	shared.BaseAggregateRoot
	Email        string
	FullName     string
	Phone        string
	Role         Role
	IsGuest      bool
	PasswordHash string
	LastLoginAt  *time.Time
}

// NewProfile registers a customer with a password
func NewProfile(email, fullName, phone, password string) (*Profile, error) {
	p, err := newProfile(email, fullName, phone)
	if err != nil {
		return nil, err
	}
	if err := p.SetPassword(password); err != nil {
		return nil, err
	}
	p.AddDomainEvent(newProfileEvent(EventTypeProfileCreated, p))
	return p, nil
}

// NewGuestProfile creates a guest customer with an unguessable password
func NewGuestProfile(email, fullName, phone string) (*Profile, error) {
	p, err := newProfile(email, fullName, phone)
	if err != nil {
		return nil, err
	}
	secret, err := randomSecret()
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to generate guest secret")
	}
	hash, err := hashPassword(secret)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	p.PasswordHash = hash
	p.IsGuest = true
	p.AddDomainEvent(newProfileEvent(EventTypeProfileCreated, p))
	return p, nil
}

func newProfile(email, fullName, phone string) (*Profile, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Full name cannot be empty")
	}
	if utf8.RuneCountInString(fullName) > 120 {
		return nil, shared.NewDomainError("INVALID_NAME", "Full name cannot exceed 120 characters")
	}
	return &Profile{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		FullName:          fullName,
		Phone:             strings.TrimSpace(phone),
		Role:              RoleCustomer,
	}, nil
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPassword validates and stores a new password hash
func (p *Profile) SetPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	p.PasswordHash = hash
	p.Touch()
	return nil
}

// VerifyPassword checks the password against the stored hash.
// Guests never authenticate with a password.
func (p *Profile) VerifyPassword(password string) bool {
	if p.IsGuest {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) == nil
}

// Claim turns a guest profile into a registered one
func (p *Profile) Claim(password string) error {
	if !p.IsGuest {
		return shared.NewDomainError("INVALID_STATE", "Profile is already registered")
	}
	if err := p.SetPassword(password); err != nil {
		return err
	}
	p.IsGuest = false
	p.AddDomainEvent(newProfileEvent(EventTypeGuestClaimed, p))
	return nil
}

// ChangeRole assigns a new marketplace role
func (p *Profile) ChangeRole(role Role) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Unknown role")
	}
	if p.Role == role {
		return nil
	}
	p.Role = role
	p.Touch()
	p.AddDomainEvent(newProfileEvent(EventTypeProfileRoleSet, p))
	return nil
}

// UpdateContact changes the display name and phone
func (p *Profile) UpdateContact(fullName, phone string) error {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return shared.NewDomainError("INVALID_NAME", "Full name cannot be empty")
	}
	p.FullName = fullName
	p.Phone = strings.TrimSpace(phone)
	p.Touch()
	p.AddDomainEvent(newProfileEvent(EventTypeProfileModified, p))
	return nil
}

// RecordLogin stamps the last login time
func (p *Profile) RecordLogin() {
	now := time.Now()
	p.LastLoginAt = &now
}

// ProfileEvent carries profile changes on the change feed
type ProfileEvent struct {
	shared.BaseDomainEvent
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	IsGuest bool   `json:"is_guest"`
}

func newProfileEvent(eventType string, p *Profile) *ProfileEvent {
	return &ProfileEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeProfile, TopicProfiles, p.ID, p.ID),
		Email:           p.Email,
		Role:            p.Role,
		IsGuest:         p.IsGuest,
	}
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	if !passwordAlpha.MatchString(password) || !passwordDigit.MatchString(password) {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func randomSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b) + "a1", nil
}
