package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/vendor"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

var errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService handles sign-up, login and guest checkout accounts
type AuthService struct {
	profileRepo identity.ProfileRepository
	vendorRepo  vendor.Repository
	jwtService  *auth.JWTService
	blacklist   auth.TokenBlacklist
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	profileRepo identity.ProfileRepository,
	vendorRepo vendor.Repository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		profileRepo: profileRepo,
		vendorRepo:  vendorRepo,
		jwtService:  jwtService,
		blacklist:   blacklist,
		logger:      logger,
	}
}

// SetEventPublisher sets the publisher used for the change feed
func (s *AuthService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Register creates a customer account and logs it in
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	exists, err := s.profileRepo.ExistsByEmail(ctx, identity.NormalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")
	}

	profile, err := identity.NewProfile(input.Email, input.FullName, input.Phone, input.Password)
	if err != nil {
		return nil, err
	}
	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, err
	}
	s.publishProfile(ctx, profile)

	s.logger.Info("Customer registered", zap.String("user_id", profile.ID.String()))
	return s.issue(ctx, profile)
}

// Login authenticates a profile by email and password
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	profile, err := s.profileRepo.FindByEmail(ctx, identity.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login for unknown email", zap.String("ip", input.IP))
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if profile.IsGuest {
		return nil, shared.NewDomainError("GUEST_ACCOUNT", "Set a password for this guest account before logging in")
	}
	if !profile.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt",
			zap.String("user_id", profile.ID.String()),
			zap.String("ip", input.IP))
		return nil, errInvalidCredentials
	}

	profile.RecordLogin()
	if err := s.profileRepo.Save(ctx, profile); err != nil {
		s.logger.Error("Failed to record login", zap.Error(err))
	}
	return s.issue(ctx, profile)
}

// Refresh exchanges a refresh token for a new pair reflecting the profile's
// current role and vendor
func (s *AuthService) Refresh(ctx context.Context, input RefreshTokenInput) (*AuthResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, mapTokenError(err)
	}
	if s.blacklist != nil {
		if revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID); err == nil && revoked {
			return nil, mapTokenError(auth.ErrTokenBlacklisted)
		}
		if revoked, err := s.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime()); err == nil && revoked {
			return nil, mapTokenError(auth.ErrTokenBlacklisted)
		}
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, mapTokenError(auth.ErrInvalidClaims)
	}

	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return nil, err
	}
	current, vendorID, err := s.tokenInput(ctx, profile)
	if err != nil {
		return nil, err
	}
	pair, err := s.jwtService.RefreshTokenPair(input.RefreshToken, current)
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, mapTokenError(err)
	}
	return newAuthResult(pair, ToProfileInfo(profile, vendorID)), nil
}

// Logout revokes the caller's access token, or all of its tokens
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if s.blacklist == nil {
		return nil
	}
	if input.AllTokens {
		return s.blacklist.AddUserTokensToBlacklist(ctx, input.UserID.String(), s.jwtService.GetRefreshTokenExpiration())
	}
	if input.TokenJTI == "" || input.TokenTTL <= 0 {
		return nil
	}
	s.logger.Info("User logout", zap.String("user_id", input.UserID.String()))
	return s.blacklist.AddToBlacklist(ctx, input.TokenJTI, input.TokenTTL)
}

// GetProfile returns the caller's profile
func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileInfo, error) {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	vendorID, err := s.vendorIDFor(ctx, profile)
	if err != nil {
		return nil, err
	}
	info := ToProfileInfo(profile, vendorID)
	return &info, nil
}

// EnsureCheckoutAccount resolves who a checkout is placed for. Authenticated
// callers use their own profile. Anonymous buyers reuse an existing guest
// profile with the same email or get a new guest profile with a token pair;
// the email of a registered account is refused with ACCOUNT_EXISTS.
func (s *AuthService) EnsureCheckoutAccount(ctx context.Context, input CheckoutAccountInput) (*CheckoutAccount, error) {
	if input.CallerID != nil {
		profile, err := s.profileRepo.FindByID(ctx, *input.CallerID)
		if err != nil {
			return nil, err
		}
		return &CheckoutAccount{Profile: ToProfileInfo(profile, nil)}, nil
	}

	email := identity.NormalizeEmail(input.Email)
	existing, err := s.profileRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.IsGuest {
			return nil, identity.ErrAccountExists
		}
		return &CheckoutAccount{Profile: ToProfileInfo(existing, nil)}, nil
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	guest, err := identity.NewGuestProfile(email, input.FullName, input.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.profileRepo.Save(ctx, guest); err != nil {
		return nil, err
	}
	s.publishProfile(ctx, guest)
	s.logger.Info("Guest account created for checkout", zap.String("user_id", guest.ID.String()))

	tokens, err := s.issue(ctx, guest)
	if err != nil {
		return nil, err
	}
	return &CheckoutAccount{Profile: tokens.Profile, Created: true, Tokens: tokens}, nil
}

// ClaimGuestAccount sets a password on a guest profile. Tokens issued to the
// guest are revoked and a fresh pair is returned.
func (s *AuthService) ClaimGuestAccount(ctx context.Context, input ClaimGuestInput) (*AuthResult, error) {
	profile, err := s.profileRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if err := profile.Claim(input.Password); err != nil {
		return nil, err
	}
	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, err
	}
	s.publishProfile(ctx, profile)

	if s.blacklist != nil {
		if err := s.blacklist.AddUserTokensToBlacklist(ctx, profile.ID.String(), s.jwtService.GetRefreshTokenExpiration()); err != nil {
			s.logger.Warn("Failed to revoke guest tokens", zap.Error(err))
		}
	}
	return s.issue(ctx, profile)
}

func (s *AuthService) issue(ctx context.Context, profile *identity.Profile) (*AuthResult, error) {
	input, vendorID, err := s.tokenInput(ctx, profile)
	if err != nil {
		return nil, err
	}
	pair, err := s.jwtService.GenerateTokenPair(input)
	if err != nil {
		s.logger.Error("Failed to generate tokens", zap.Error(err))
		return nil, shared.NewDomainError("TOKEN_ERROR", "Failed to issue tokens")
	}
	return newAuthResult(pair, ToProfileInfo(profile, vendorID)), nil
}

func (s *AuthService) tokenInput(ctx context.Context, profile *identity.Profile) (auth.GenerateTokenInput, *uuid.UUID, error) {
	vendorID, err := s.vendorIDFor(ctx, profile)
	if err != nil {
		return auth.GenerateTokenInput{}, nil, err
	}
	return auth.GenerateTokenInput{
		UserID:   profile.ID,
		Email:    profile.Email,
		Role:     profile.Role.String(),
		VendorID: vendorID,
		Guest:    profile.IsGuest,
	}, vendorID, nil
}

// vendorIDFor returns the vendor profile owned by a vendor-role profile
func (s *AuthService) vendorIDFor(ctx context.Context, profile *identity.Profile) (*uuid.UUID, error) {
	if profile.Role != identity.RoleVendor || s.vendorRepo == nil {
		return nil, nil
	}
	v, err := s.vendorRepo.FindByUserID(ctx, profile.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v.ID, nil
}

func (s *AuthService) publishProfile(ctx context.Context, profile *identity.Profile) {
	events := profile.PullDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish profile events", zap.Error(err))
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrSubjectMismatch):
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	default:
		return shared.NewDomainError("TOKEN_ERROR", "Failed to refresh token")
	}
}
