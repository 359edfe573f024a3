package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/repository"
	"github.com/nimbuschat/nimbus/pkg/jwt"
	"github.com/nimbuschat/nimbus/pkg/log"
)

// friendCodeAttempts bounds retries on friend-code collisions. With an
// 8-hex-digit code a collision is already unlikely at any realistic user
// count.
const friendCodeAttempts = 5

// authServiceImpl implements AuthService.
type authServiceImpl struct {
	repo        repository.UserRepository
	tokens      *jwt.Manager
	attachments *AttachmentStore
	bcryptCost  int
}

// NewAuthService creates a new auth service.
func NewAuthService(repo repository.UserRepository, tokens *jwt.Manager, attachments *AttachmentStore, bcryptCost int) AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &authServiceImpl{
		repo:        repo,
		tokens:      tokens,
		attachments: attachments,
		bcryptCost:  bcryptCost,
	}
}

// Register creates a user and returns a signed-in session.
func (s *authServiceImpl) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, *domain.TokenPair, error) {
	l := log.Ctx(ctx)

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, nil, err
	}

	user := &domain.UserModel{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(req.Email),
		Username:     req.Username,
		PasswordHash: string(hashed),
	}

	for attempt := 0; ; attempt++ {
		user.FriendCode = newFriendCode()
		err = s.repo.Create(ctx, user)
		if err == nil {
			break
		}
		// A duplicate can be the email or a friend-code collision; retry
		// the code a few times before giving up.
		if errors.Is(err, repository.ErrEmailExists) && attempt < friendCodeAttempts {
			if _, lookupErr := s.repo.GetByEmail(ctx, user.Email); errors.Is(lookupErr, repository.ErrUserNotFound) {
				continue
			}
		}
		return nil, nil, err
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate tokens after register")
		return nil, nil, err
	}

	l.Info().Str(log.FieldUserID, user.ID).Msg("user registered")
	return s.toDomain(ctx, user), pair, nil
}

// Login authenticates a user by email and password.
func (s *authServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.User, *domain.TokenPair, error) {
	l := log.Ctx(ctx)

	user, err := s.repo.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Msg("failed to get user by email")
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate tokens")
		return nil, nil, err
	}

	return s.toDomain(ctx, user), pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The user record
// is re-read so the new access token carries current claims.
func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil || claims.Type != "refresh" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return s.issueTokens(user)
}

// Logout revokes every outstanding token of the user.
func (s *authServiceImpl) Logout(ctx context.Context, userID string) {
	s.tokens.RevokeUserTokens(userID)
	log.Ctx(ctx).Info().Str(log.FieldUserID, userID).Msg("user logged out")
}

// GetProfile returns the user's profile.
func (s *authServiceImpl) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toDomain(ctx, user), nil
}

// UpdateProfile changes username and/or avatar.
func (s *authServiceImpl) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.User, error) {
	fields := make(map[string]interface{})
	if req.Username != "" {
		fields["username"] = req.Username
	}
	if req.Avatar != "" {
		key, err := s.attachments.SaveImage(ctx, "avatars/"+userID, req.Avatar)
		if err != nil {
			return nil, err
		}
		fields["avatar_key"] = key
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.GetProfile(ctx, userID)
}

func (s *authServiceImpl) issueTokens(user *domain.UserModel) (*domain.TokenPair, error) {
	access, refresh, accessExp, refreshExp, err := s.tokens.GenerateTokenPair(user.ID, user.Email, user.Username)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *authServiceImpl) toDomain(ctx context.Context, user *domain.UserModel) *domain.User {
	return &domain.User{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		FriendCode: user.FriendCode,
		AvatarURL:  s.attachments.avatarURL(ctx, user),
		CreatedAt:  user.CreatedAt,
	}
}

// newFriendCode returns a short shareable code. Uniqueness is enforced by
// the database; collisions are retried by the caller.
func newFriendCode() string {
	return strings.ToUpper(uuid.New().String()[:8])
}
