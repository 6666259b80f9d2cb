package repository

import (
	"context"
	"errors"
	"strings"

	"clinic-scheduling/internal/domain/entity"
	domainRepo "clinic-scheduling/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct{}

func NewUserRepository() domainRepo.UserRepository {
	return &userRepository{}
}

func (r *userRepository) Create(ctx context.Context, db *gorm.DB, user *entity.User) error {
	return db.WithContext(ctx).Omit("Role", "DoctorProfile").Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	return r.findOne(ctx, db, "users.id = ?", id)
}

func (r *userRepository) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*entity.User, error) {
	return r.findOne(ctx, db, "users.external_id = ?", externalID)
}

func (r *userRepository) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.User, error) {
	return r.findOne(ctx, db, "LOWER(users.email) = LOWER(?)", email)
}

func (r *userRepository) findOne(ctx context.Context, db *gorm.DB, query string, arg interface{}) (*entity.User, error) {
	var user entity.User
	err := db.WithContext(ctx).Preload("Role").Preload("DoctorProfile").Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindAll returns one page of users ordered by last and first name, plus the
// total number of matches.
func (r *userRepository) FindAll(ctx context.Context, db *gorm.DB, filter entity.UserFilter) ([]entity.User, int64, error) {
	query := db.WithContext(ctx).Model(&entity.User{}).
		Joins("JOIN roles ON roles.id = users.role_id")

	if filter.RoleID != 0 {
		query = query.Where("users.role_id = ?", filter.RoleID)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(
			"users.external_id ILIKE ? OR users.first_name ILIKE ? OR users.last_name ILIKE ? OR users.email ILIKE ? OR "+
				"users.phone ILIKE ? OR users.city ILIKE ? OR users.parish ILIKE ? OR users.address ILIKE ? OR roles.role_name ILIKE ?",
			pattern, pattern, pattern, pattern, pattern, pattern, pattern, pattern, pattern,
		)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []entity.User
	err := paginate(query, filter.Limit, filter.Offset).
		Preload("Role").Preload("DoctorProfile").
		Order("users.last_name ASC, users.first_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, db *gorm.DB, user *entity.User) error {
	return db.WithContext(ctx).Omit("Role", "DoctorProfile").Save(user).Error
}

func (r *userRepository) Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&entity.User{})
	return result.RowsAffected, result.Error
}

// paginate applies LIMIT/OFFSET; a non-positive limit returns every row.
func paginate(db *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps a search term for ILIKE, escaping its wildcards so they
// match literally.
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}
