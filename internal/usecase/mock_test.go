package usecase

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeTxManager runs fn without a database; mock repositories ignore the handle.
type fakeTxManager struct{}

func (fakeTxManager) DB(ctx context.Context) *gorm.DB { return nil }

func (fakeTxManager) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// grantingLocker always hands out the lock, leaving the store to arbitrate.
type grantingLocker struct {
	mu       sync.Mutex
	acquired int
}

func (l *grantingLocker) Acquire(ctx context.Context, key service.SlotKey) (func(), error) {
	l.mu.Lock()
	l.acquired++
	l.mu.Unlock()
	return func() {}, nil
}

// busyLocker behaves like a lock that stayed held for its whole TTL.
type busyLocker struct{}

func (busyLocker) Acquire(ctx context.Context, key service.SlotKey) (func(), error) {
	return nil, service.ErrSlotLocked
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// mockUserRepo

type mockUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newMockUserRepo(users ...*entity.User) *mockUserRepo {
	r := &mockUserRepo{users: make(map[uuid.UUID]*entity.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *mockUserRepo) Create(ctx context.Context, db *gorm.DB, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ExternalID == user.ExternalID {
			return uniqueViolation(constraintUserExternalID)
		}
		if strings.EqualFold(u.Email, user.Email) {
			return uniqueViolation(constraintUserEmail)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *mockUserRepo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *mockUserRepo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*entity.User, error) {
	return r.findBy(func(u *entity.User) bool { return u.ExternalID == externalID })
}

func (r *mockUserRepo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.User, error) {
	return r.findBy(func(u *entity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *mockUserRepo) findBy(match func(*entity.User) bool) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *mockUserRepo) FindAll(ctx context.Context, db *gorm.DB, filter entity.UserFilter) ([]entity.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []entity.User
	for _, u := range r.users {
		if filter.Search == "" || strings.Contains(strings.ToLower(u.FullName()), strings.ToLower(filter.Search)) {
			users = append(users, *u)
		}
	}
	return users, int64(len(users)), nil
}

func (r *mockUserRepo) Update(ctx context.Context, db *gorm.DB, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *mockUserRepo) Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return 0, nil
	}
	delete(r.users, id)
	return 1, nil
}

// mockDoctorProfileRepo

type mockDoctorProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*entity.DoctorProfile
}

func newMockDoctorProfileRepo(profiles ...*entity.DoctorProfile) *mockDoctorProfileRepo {
	r := &mockDoctorProfileRepo{profiles: make(map[uuid.UUID]*entity.DoctorProfile)}
	for _, p := range profiles {
		r.profiles[p.UserID] = p
	}
	return r
}

func (r *mockDoctorProfileRepo) Create(ctx context.Context, db *gorm.DB, profile *entity.DoctorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.LicenseNumber == profile.LicenseNumber {
			return uniqueViolation(constraintDoctorLicense)
		}
	}
	copied := *profile
	r.profiles[profile.UserID] = &copied
	return nil
}

func (r *mockDoctorProfileRepo) FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (r *mockDoctorProfileRepo) FindByLicenseNumber(ctx context.Context, db *gorm.DB, licenseNumber string) (*entity.DoctorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.LicenseNumber == licenseNumber {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *mockDoctorProfileRepo) FindAll(ctx context.Context, db *gorm.DB, filter entity.DoctorFilter) ([]entity.DoctorProfile, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var profiles []entity.DoctorProfile
	for _, p := range r.profiles {
		profiles = append(profiles, *p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].User.LastName < profiles[j].User.LastName })
	return profiles, int64(len(profiles)), nil
}

func (r *mockDoctorProfileRepo) Update(ctx context.Context, db *gorm.DB, profile *entity.DoctorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *profile
	r.profiles[profile.UserID] = &copied
	return nil
}

func (r *mockDoctorProfileRepo) Delete(ctx context.Context, db *gorm.DB, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, userID)
	return nil
}

// mockAppointmentRepo enforces the active-slot unique index like the database.

type mockAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*entity.Appointment
}

func newMockAppointmentRepo(appointments ...*entity.Appointment) *mockAppointmentRepo {
	r := &mockAppointmentRepo{appointments: make(map[uuid.UUID]*entity.Appointment)}
	for _, a := range appointments {
		r.appointments[a.ID] = a
	}
	return r
}

func (r *mockAppointmentRepo) conflicts(a *entity.Appointment) bool {
	if !a.IsActive() {
		return false
	}
	for _, other := range r.appointments {
		if other.ID != a.ID && other.IsActive() && other.DoctorID == a.DoctorID &&
			sameDate(other.Date, a.Date) && other.Time == a.Time {
			return true
		}
	}
	return false
}

func (r *mockAppointmentRepo) Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	if r.conflicts(appointment) {
		return uniqueViolation(constraintAppointmentActive)
	}
	copied := *appointment
	r.appointments[appointment.ID] = &copied
	return nil
}

func (r *mockAppointmentRepo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.appointments[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (r *mockAppointmentRepo) FindAll(ctx context.Context, db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.Appointment
	for _, a := range r.appointments {
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.DoctorID != nil && a.DoctorID != *filter.DoctorID {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool {
		if !sameDate(result[i].Date, result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Time < result[j].Time
	})
	return result, int64(len(result)), nil
}

func (r *mockAppointmentRepo) FindActiveByDoctorAndDate(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && sameDate(a.Date, date) && a.IsActive() {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *mockAppointmentRepo) Update(ctx context.Context, db *gorm.DB, appointment *entity.Appointment, from entity.AppointmentStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.appointments[appointment.ID]
	if !ok || stored.Status != from {
		return 0, nil
	}
	if r.conflicts(appointment) {
		return 0, uniqueViolation(constraintAppointmentActive)
	}
	copied := *appointment
	r.appointments[appointment.ID] = &copied
	return 1, nil
}

func (r *mockAppointmentRepo) UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return 0, nil
	}
	a.Status = to
	return 1, nil
}

func (r *mockAppointmentRepo) Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return 0, nil
	}
	delete(r.appointments, id)
	return 1, nil
}

func (r *mockAppointmentRepo) DeleteByParticipant(ctx context.Context, db *gorm.DB, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, a := range r.appointments {
		if a.PatientID == userID || a.DoctorID == userID {
			delete(r.appointments, id)
			removed++
		}
	}
	return removed, nil
}

func (r *mockAppointmentRepo) get(id uuid.UUID) *entity.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appointments[id]
}

// mockAuditLogRepo

type mockAuditLogRepo struct {
	mu   sync.Mutex
	logs []entity.AuditLog
}

func (r *mockAuditLogRepo) Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, *log)
	return nil
}

func (r *mockAuditLogRepo) FindAll(ctx context.Context, db *gorm.DB, limit, offset int) ([]entity.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.AuditLog(nil), r.logs...), int64(len(r.logs)), nil
}

func (r *mockAuditLogRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.logs {
		if r.logs[i].ID == id {
			copied := r.logs[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *mockAuditLogRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, len(r.logs))
	for i, l := range r.logs {
		actions[i] = l.Action
	}
	return actions
}

// mockRoleRepo

type mockRoleRepo struct {
	roles map[int]entity.Role
}

func (r *mockRoleRepo) FindByName(ctx context.Context, db *gorm.DB, name string) (*entity.Role, error) {
	for _, role := range r.roles {
		if role.RoleName == name {
			copied := role
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *mockRoleRepo) FindAll(ctx context.Context, db *gorm.DB) ([]entity.Role, error) {
	var roles []entity.Role
	for _, role := range r.roles {
		roles = append(roles, role)
	}
	return roles, nil
}

func (r *mockRoleRepo) Upsert(ctx context.Context, db *gorm.DB, role *entity.Role) error {
	if r.roles == nil {
		r.roles = make(map[int]entity.Role)
	}
	r.roles[role.ID] = *role
	return nil
}
