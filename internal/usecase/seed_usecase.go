package usecase

import (
	"context"
	"errors"
	"strings"

	"clinic-scheduling/config"
	"clinic-scheduling/internal/domain/access"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrAdminConfigIncomplete = errors.New("ADMIN_EXTERNAL_ID, ADMIN_EMAIL and ADMIN_PASSWORD are required to seed the administrator")

var roleDescriptions = map[access.Role]string{
	access.RoleAdmin:     "Clinic administrator",
	access.RolePatient:   "Patient",
	access.RoleDoctor:    "Doctor",
	access.RoleSecretary: "Front desk secretary",
}

// SeedUsecase makes sure the fixed roles and the bootstrap administrator exist.
type SeedUsecase interface {
	Seed(ctx context.Context, admin config.AdminConfig) error
}

type seedUsecase struct {
	txm      repository.TxManager
	log      *logrus.Logger
	roleRepo repository.RoleRepository
	userRepo repository.UserRepository
}

func NewSeedUsecase(
	txm repository.TxManager,
	log *logrus.Logger,
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
) SeedUsecase {
	return &seedUsecase{
		txm:      txm,
		log:      log,
		roleRepo: roleRepo,
		userRepo: userRepo,
	}
}

// Seed is idempotent: roles are upserted and an existing administrator with
// the same identity number is left untouched.
func (u *seedUsecase) Seed(ctx context.Context, admin config.AdminConfig) error {
	if admin.ExternalID == "" || admin.Email == "" || admin.Password == "" {
		return ErrAdminConfigIncomplete
	}

	return u.txm.WithTx(ctx, func(tx *gorm.DB) error {
		for _, role := range access.AllRoles {
			if err := u.roleRepo.Upsert(ctx, tx, &entity.Role{
				ID:          role.ID(),
				RoleName:    role.String(),
				Description: roleDescriptions[role],
			}); err != nil {
				u.log.Warnf("Failed to upsert role %s: %+v", role, err)
				return err
			}
		}

		existing, err := u.userRepo.FindByExternalID(ctx, tx, admin.ExternalID)
		if err != nil {
			u.log.Warnf("Failed to find administrator: %+v", err)
			return err
		}
		if existing != nil {
			u.log.Infof("Administrator %s already exists", admin.ExternalID)
			return nil
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
		if err != nil {
			u.log.Warnf("Failed to hash password: %+v", err)
			return err
		}

		user := &entity.User{
			ExternalID: admin.ExternalID,
			RoleID:     access.RoleAdmin.ID(),
			Email:      strings.TrimSpace(admin.Email),
			Password:   string(hashedPassword),
			FirstName:  admin.FirstName,
			LastName:   admin.LastName,
		}
		if err := u.userRepo.Create(ctx, tx, user); err != nil {
			if mapped := mapUserConstraintError(err); mapped != nil {
				return mapped
			}
			u.log.Warnf("Failed to create administrator: %+v", err)
			return err
		}

		u.log.Infof("Administrator %s created", admin.ExternalID)
		return nil
	})
}
