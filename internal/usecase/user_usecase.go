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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidRoleData         = errors.New("specialty and license number are required for doctors")
	ErrNegativeFee             = errors.New("consultation fee cannot be negative")
	ErrLicenseAlreadyExists    = errors.New("a doctor with this license number already exists")
	ErrDoctorHasAppointments   = errors.New("the doctor still has appointments, reassign or delete them before changing the role")
	ErrCannotDeleteCurrentUser = errors.New("you cannot delete your own account")
)

type UserUsecase interface {
	CreateUser(ctx context.Context, actor access.Principal, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetUser(ctx context.Context, actor access.Principal, userID uuid.UUID) (*dto.UserResponse, error)
	ListUsers(ctx context.Context, actor access.Principal, query dto.ListQuery) (*dto.UserListResponse, error)
	UpdateUser(ctx context.Context, actor access.Principal, userID uuid.UUID, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeleteUser(ctx context.Context, actor access.Principal, userID uuid.UUID) error
}

type userUsecase struct {
	txm               repository.TxManager
	log               *logrus.Logger
	userRepo          repository.UserRepository
	doctorProfileRepo repository.DoctorProfileRepository
	appointmentRepo   repository.AppointmentRepository
	auditService      service.AuditService
	tokenStore        service.TokenStore
}

func NewUserUsecase(
	txm repository.TxManager,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	doctorProfileRepo repository.DoctorProfileRepository,
	appointmentRepo repository.AppointmentRepository,
	auditService service.AuditService,
	tokenStore service.TokenStore,
) UserUsecase {
	return &userUsecase{
		txm:               txm,
		log:               log,
		userRepo:          userRepo,
		doctorProfileRepo: doctorProfileRepo,
		appointmentRepo:   appointmentRepo,
		auditService:      auditService,
		tokenStore:        tokenStore,
	}
}

func (u *userUsecase) CreateUser(ctx context.Context, actor access.Principal, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := access.Check(actor, access.OpUserCreate, false).Err(); err != nil {
		return nil, err
	}

	role, err := access.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	var profile *entity.DoctorProfile
	if role == access.RoleDoctor {
		profile, err = newDoctorProfile(req.Specialty, req.LicenseNumber, req.ConsultationFee)
		if err != nil {
			return nil, err
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	user := &entity.User{
		ExternalID: strings.TrimSpace(req.ExternalID),
		RoleID:     role.ID(),
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
		if profile != nil {
			if err := u.ensureUniqueLicense(ctx, tx, profile.LicenseNumber, uuid.Nil); err != nil {
				return err
			}
		}

		if err := u.userRepo.Create(ctx, tx, user); err != nil {
			if mapped := mapUserConstraintError(err); mapped != nil {
				return mapped
			}
			u.log.Warnf("Failed to create user: %+v", err)
			return err
		}

		if profile != nil {
			profile.UserID = user.ID
			if err := u.createDoctorProfile(ctx, tx, profile); err != nil {
				return err
			}
			user.DoctorProfile = profile
		}

		return u.auditService.LogCreate(ctx, tx, &actor.UserID, entity.AuditActionUserCreate, "user", user.ID.String(), converter.UserToResponse(user))
	})
	if err != nil {
		return nil, err
	}

	return converter.UserToResponse(user), nil
}

func (u *userUsecase) GetUser(ctx context.Context, actor access.Principal, userID uuid.UUID) (*dto.UserResponse, error) {
	if err := access.Check(actor, access.OpUserList, false).Err(); err != nil {
		return nil, err
	}

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

func (u *userUsecase) ListUsers(ctx context.Context, actor access.Principal, query dto.ListQuery) (*dto.UserListResponse, error) {
	if err := access.Check(actor, access.OpUserList, false).Err(); err != nil {
		return nil, err
	}

	users, total, err := u.userRepo.FindAll(ctx, u.txm.DB(ctx), entity.UserFilter{
		Search: query.Search,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		u.log.Warnf("Failed to find all users: %+v", err)
		return nil, err
	}

	return &dto.UserListResponse{
		Users: converter.UsersToResponses(users),
		Total: total,
	}, nil
}

// UpdateUser applies the present fields. Moving a user to the doctor role
// creates its doctor profile; moving a doctor away deletes it.
func (u *userUsecase) UpdateUser(ctx context.Context, actor access.Principal, userID uuid.UUID, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := access.Check(actor, access.OpUserUpdate, false).Err(); err != nil {
		return nil, err
	}

	var user *entity.User
	roleChanged := false

	err := u.txm.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		user, err = u.userRepo.FindByID(ctx, tx, userID)
		if err != nil {
			u.log.Warnf("Failed to find user by ID: %+v", err)
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		oldValue := converter.UserToResponse(user)
		currentRole, err := access.RoleFromID(user.RoleID)
		if err != nil {
			return err
		}
		newRole := currentRole
		if req.Role != nil {
			if newRole, err = access.ParseRole(*req.Role); err != nil {
				return err
			}
		}

		externalID, email := "", ""
		if req.ExternalID != nil && strings.TrimSpace(*req.ExternalID) != user.ExternalID {
			externalID = strings.TrimSpace(*req.ExternalID)
			user.ExternalID = externalID
		}
		if req.Email != nil && !strings.EqualFold(strings.TrimSpace(*req.Email), user.Email) {
			email = strings.TrimSpace(*req.Email)
			user.Email = email
		}
		if err := ensureUniqueIdentity(ctx, tx, u.userRepo, externalID, email, user.ID); err != nil {
			return err
		}

		if req.Password != nil && *req.Password != "" {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				u.log.Warnf("Failed to hash password: %+v", err)
				return err
			}
			user.Password = string(hashedPassword)
		}
		applyString(&user.FirstName, req.FirstName)
		applyString(&user.LastName, req.LastName)
		applyString(&user.Phone, req.Phone)
		applyString(&user.City, req.City)
		applyString(&user.Parish, req.Parish)
		applyString(&user.Address, req.Address)

		if err := u.syncDoctorProfile(ctx, tx, user, currentRole, newRole, req); err != nil {
			return err
		}

		if newRole != currentRole {
			roleChanged = true
			user.RoleID = newRole.ID()
			user.Role = entity.Role{ID: newRole.ID(), RoleName: newRole.String()}
		}

		if err := u.userRepo.Update(ctx, tx, user); err != nil {
			if mapped := mapUserConstraintError(err); mapped != nil {
				return mapped
			}
			u.log.Warnf("Failed to update user: %+v", err)
			return err
		}

		return u.auditService.LogUpdate(ctx, tx, &actor.UserID, entity.AuditActionUserUpdate, "user", user.ID.String(), oldValue, converter.UserToResponse(user))
	})
	if err != nil {
		return nil, err
	}

	// Tokens carry the role claim, so a role change ends existing sessions.
	if roleChanged {
		if err := u.tokenStore.RevokeAll(ctx, user.ID); err != nil {
			u.log.Warnf("Failed to revoke tokens after role change: %+v", err)
		}
	}

	return converter.UserToResponse(user), nil
}

// syncDoctorProfile keeps the doctor profile present exactly while the user
// has the doctor role.
func (u *userUsecase) syncDoctorProfile(ctx context.Context, tx *gorm.DB, user *entity.User, currentRole, newRole access.Role, req *dto.UpdateUserRequest) error {
	switch {
	case newRole == access.RoleDoctor && user.DoctorProfile == nil:
		profile, err := newDoctorProfile(deref(req.Specialty), deref(req.LicenseNumber), req.ConsultationFee)
		if err != nil {
			return err
		}
		if err := u.ensureUniqueLicense(ctx, tx, profile.LicenseNumber, user.ID); err != nil {
			return err
		}
		profile.UserID = user.ID
		if err := u.createDoctorProfile(ctx, tx, profile); err != nil {
			return err
		}
		user.DoctorProfile = profile

	case newRole == access.RoleDoctor:
		profile := user.DoctorProfile
		changed := false
		if req.Specialty != nil && strings.TrimSpace(*req.Specialty) != profile.Specialty {
			if strings.TrimSpace(*req.Specialty) == "" {
				return ErrInvalidRoleData
			}
			profile.Specialty = strings.TrimSpace(*req.Specialty)
			changed = true
		}
		if req.LicenseNumber != nil && strings.TrimSpace(*req.LicenseNumber) != profile.LicenseNumber {
			license := strings.TrimSpace(*req.LicenseNumber)
			if license == "" {
				return ErrInvalidRoleData
			}
			if err := u.ensureUniqueLicense(ctx, tx, license, user.ID); err != nil {
				return err
			}
			profile.LicenseNumber = license
			changed = true
		}
		if req.ConsultationFee != nil {
			if req.ConsultationFee.IsNegative() {
				return ErrNegativeFee
			}
			profile.ConsultationFee = *req.ConsultationFee
			changed = true
		}
		if !changed {
			return nil
		}
		if err := u.doctorProfileRepo.Update(ctx, tx, profile); err != nil {
			if isDuplicateKeyError(err, constraintDoctorLicense) {
				return ErrLicenseAlreadyExists
			}
			u.log.Warnf("Failed to update doctor profile: %+v", err)
			return err
		}

	case currentRole == access.RoleDoctor && user.DoctorProfile != nil:
		doctorID := user.ID
		_, total, err := u.appointmentRepo.FindAll(ctx, tx, entity.AppointmentFilter{DoctorID: &doctorID, Limit: 1})
		if err != nil {
			u.log.Warnf("Failed to count doctor appointments: %+v", err)
			return err
		}
		if total > 0 {
			return ErrDoctorHasAppointments
		}
		if err := u.doctorProfileRepo.Delete(ctx, tx, user.ID); err != nil {
			u.log.Warnf("Failed to delete doctor profile: %+v", err)
			return err
		}
		user.DoctorProfile = nil
	}
	return nil
}

// DeleteUser removes the user together with its doctor profile and every
// appointment where it is the patient or the doctor.
func (u *userUsecase) DeleteUser(ctx context.Context, actor access.Principal, userID uuid.UUID) error {
	if err := access.Check(actor, access.OpUserDelete, false).Err(); err != nil {
		return err
	}
	if actor.Owns(userID) {
		return ErrCannotDeleteCurrentUser
	}

	err := u.txm.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := u.userRepo.FindByID(ctx, tx, userID)
		if err != nil {
			u.log.Warnf("Failed to find user by ID: %+v", err)
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		oldValue := converter.UserToResponse(user)

		removed, err := u.appointmentRepo.DeleteByParticipant(ctx, tx, userID)
		if err != nil {
			u.log.Warnf("Failed to delete user appointments: %+v", err)
			return err
		}

		if user.DoctorProfile != nil {
			if err := u.doctorProfileRepo.Delete(ctx, tx, userID); err != nil {
				u.log.Warnf("Failed to delete doctor profile: %+v", err)
				return err
			}
		}

		affectedRows, err := u.userRepo.Delete(ctx, tx, userID)
		if err != nil {
			u.log.Warnf("Failed delete user: %+v", err)
			return err
		}
		if affectedRows == 0 {
			return ErrUserNotFound
		}

		u.log.Infof("User %s deleted with %d appointment(s)", userID, removed)
		return u.auditService.LogDelete(ctx, tx, &actor.UserID, entity.AuditActionUserDelete, "user", userID.String(), oldValue)
	})
	if err != nil {
		return err
	}

	if err := u.tokenStore.RevokeAll(ctx, userID); err != nil {
		u.log.Warnf("Failed to revoke tokens of deleted user: %+v", err)
	}
	return nil
}

func (u *userUsecase) ensureUniqueLicense(ctx context.Context, tx *gorm.DB, license string, selfID uuid.UUID) error {
	existing, err := u.doctorProfileRepo.FindByLicenseNumber(ctx, tx, license)
	if err != nil {
		u.log.Warnf("Failed to find doctor by license: %+v", err)
		return err
	}
	if existing != nil && existing.UserID != selfID {
		return ErrLicenseAlreadyExists
	}
	return nil
}

func (u *userUsecase) createDoctorProfile(ctx context.Context, tx *gorm.DB, profile *entity.DoctorProfile) error {
	if err := u.doctorProfileRepo.Create(ctx, tx, profile); err != nil {
		if isDuplicateKeyError(err, constraintDoctorLicense) {
			return ErrLicenseAlreadyExists
		}
		u.log.Warnf("Failed to create doctor profile: %+v", err)
		return err
	}
	return nil
}

func newDoctorProfile(specialty, license string, fee *decimal.Decimal) (*entity.DoctorProfile, error) {
	specialty = strings.TrimSpace(specialty)
	license = strings.TrimSpace(license)
	if specialty == "" || license == "" {
		return nil, ErrInvalidRoleData
	}
	profile := &entity.DoctorProfile{
		Specialty:       specialty,
		LicenseNumber:   license,
		ConsultationFee: decimal.Zero,
	}
	if fee != nil {
		if fee.IsNegative() {
			return nil, ErrNegativeFee
		}
		profile.ConsultationFee = *fee
	}
	return profile, nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
