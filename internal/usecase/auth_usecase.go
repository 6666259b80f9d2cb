package usecase

import (
	"context"
	"errors"
	"strings"

	"clinic-scheduling/internal/converter"
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/access"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/domain/repository"
	"clinic-scheduling/internal/service"
	"clinic-scheduling/pkg/jwt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists      = errors.New("email already exists")
	ErrExternalIDAlreadyExists = errors.New("a user with this identity number already exists")
	ErrInvalidCredentials      = errors.New("invalid identity number or password")
	ErrInvalidToken            = errors.New("invalid or expired token")
	ErrTokenRevoked            = errors.New("token has been revoked")
	ErrUserNotFound            = errors.New("user not found")
)

// Unique index names, see the embedded migrations.
const (
	constraintUserExternalID    = "uq_users_external_id"
	constraintUserEmail         = "uq_users_email"
	constraintDoctorLicense     = "uq_doctor_profiles_license_number"
	constraintAppointmentActive = "uq_appointments_active_slot"
)

type AuthUsecase interface {
	RegisterPatient(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, userID uuid.UUID, accessTokenID string, refreshToken string) error
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
}

type authUsecase struct {
	txm          repository.TxManager
	log          *logrus.Logger
	userRepo     repository.UserRepository
	jwtService   *jwt.JWTService
	tokenStore   service.TokenStore
	auditService service.AuditService
}

func NewAuthUsecase(
	txm repository.TxManager,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	jwtService *jwt.JWTService,
	tokenStore service.TokenStore,
	auditService service.AuditService,
) AuthUsecase {
	return &authUsecase{
		txm:          txm,
		log:          log,
		userRepo:     userRepo,
		jwtService:   jwtService,
		tokenStore:   tokenStore,
		auditService: auditService,
	}
}

func (u *authUsecase) RegisterPatient(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.UserResponse, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	user := &entity.User{
		ExternalID: strings.TrimSpace(req.ExternalID),
		RoleID:     entity.RoleIDPatient,
		Email:      strings.TrimSpace(req.Email),
		Password:   string(hashedPassword),
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Phone:      req.Phone,
		City:       req.City,
		Parish:     req.Parish,
		Address:    req.Address,
	}

	err = u.txm.WithTx(ctx, func(tx *gorm.DB) error {
		if err := ensureUniqueIdentity(ctx, tx, u.userRepo, user.ExternalID, user.Email, uuid.Nil); err != nil {
			return err
		}

		if err := u.userRepo.Create(ctx, tx, user); err != nil {
			if mapped := mapUserConstraintError(err); mapped != nil {
				return mapped
			}
			u.log.Warnf("Failed to create user: %+v", err)
			return err
		}

		return u.auditService.LogCreate(ctx, tx, &user.ID, entity.AuditActionUserRegister, "user", user.ID.String(), converter.UserToResponse(user))
	})
	if err != nil {
		return nil, err
	}

	return converter.UserToResponse(user), nil
}

func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := u.userRepo.FindByExternalID(ctx, u.txm.DB(ctx), strings.TrimSpace(req.ExternalID))
	if err != nil {
		u.log.Warnf("Failed to find user by external id: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	tokens, err := u.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := u.auditService.LogEvent(ctx, u.txm.DB(ctx), &user.ID, entity.AuditActionUserLogin, entity.JSON{"external_id": user.ExternalID}); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return tokens, nil
}

// Logout revokes the access token of the request and, when given, the
// refresh token of the same user.
func (u *authUsecase) Logout(ctx context.Context, userID uuid.UUID, accessTokenID string, refreshToken string) error {
	if err := u.tokenStore.Revoke(ctx, jwt.AccessToken, userID, accessTokenID); err != nil {
		return err
	}

	if refreshToken != "" {
		claims, err := u.jwtService.ValidateToken(refreshToken)
		if err != nil || claims.TokenType != jwt.RefreshToken || claims.UserID != userID {
			return ErrInvalidToken
		}
		if err := u.tokenStore.Revoke(ctx, jwt.RefreshToken, userID, claims.TokenID); err != nil {
			return err
		}
	}

	if err := u.auditService.LogEvent(ctx, u.txm.DB(ctx), &userID, entity.AuditActionUserLogout, nil); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return nil
}

// RefreshToken rotates the pair: the presented refresh token is revoked and
// a new access/refresh pair is issued with the user's current role.
func (u *authUsecase) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := u.jwtService.ValidateToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != jwt.RefreshToken {
		return nil, ErrInvalidToken
	}

	exists, err := u.tokenStore.Exists(ctx, jwt.RefreshToken, claims.UserID, claims.TokenID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrTokenRevoked
	}

	if err := u.tokenStore.Revoke(ctx, jwt.RefreshToken, claims.UserID, claims.TokenID); err != nil {
		return nil, err
	}

	user, err := u.userRepo.FindByID(ctx, u.txm.DB(ctx), claims.UserID)
	if err != nil {
		u.log.Warnf("Failed to find user by ID: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	return u.issueTokens(ctx, user)
}

func (u *authUsecase) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := u.userRepo.FindByID(ctx, u.txm.DB(ctx), userID)
	if err != nil {
		u.log.Warnf("Failed to find user by ID: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return converter.UserToResponse(user), nil
}

func (u *authUsecase) issueTokens(ctx context.Context, user *entity.User) (*dto.TokenResponse, error) {
	accessToken, accessTokenID, err := u.jwtService.GenerateAccessToken(user.ID, user.Email, user.RoleID)
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, err
	}

	refreshToken, refreshTokenID, err := u.jwtService.GenerateRefreshToken(user.ID, user.Email, user.RoleID)
	if err != nil {
		u.log.Warnf("Failed to generate refresh token: %+v", err)
		return nil, err
	}

	if err := u.tokenStore.Save(ctx, jwt.AccessToken, user.ID, accessTokenID, u.jwtService.GetAccessExpiry()); err != nil {
		return nil, err
	}
	if err := u.tokenStore.Save(ctx, jwt.RefreshToken, user.ID, refreshTokenID, u.jwtService.GetRefreshExpiry()); err != nil {
		return nil, err
	}

	role, _ := access.RoleFromID(user.RoleID)

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(u.jwtService.GetAccessExpiry().Seconds()),
		Role:         role.String(),
	}, nil
}

// ensureUniqueIdentity reports a friendly conflict before the insert hits the
// unique indexes. selfID is skipped so a user can keep its own values.
func ensureUniqueIdentity(ctx context.Context, db *gorm.DB, userRepo repository.UserRepository, externalID, email string, selfID uuid.UUID) error {
	if externalID != "" {
		existing, err := userRepo.FindByExternalID(ctx, db, externalID)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			return ErrExternalIDAlreadyExists
		}
	}
	if email != "" {
		existing, err := userRepo.FindByEmail(ctx, db, email)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			return ErrEmailAlreadyExists
		}
	}
	return nil
}

// mapUserConstraintError turns a unique violation on users into its
// domain error, or returns nil.
func mapUserConstraintError(err error) error {
	switch {
	case isDuplicateKeyError(err, constraintUserExternalID):
		return ErrExternalIDAlreadyExists
	case isDuplicateKeyError(err, constraintUserEmail):
		return ErrEmailAlreadyExists
	}
	return nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}

// isForeignKeyError checks if the error is a PostgreSQL foreign key violation
// containing the specified constraint name
func isForeignKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23503 = foreign_key_violation
		if pgErr.Code == "23503" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}
