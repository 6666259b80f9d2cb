package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/access"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/service"
	"clinic-scheduling/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func newTestTokenStore(t *testing.T) service.TokenStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return service.NewTokenStore(client, newTestLogger())
}

type userFixture struct {
	uc           *userUsecase
	users        *mockUserRepo
	doctors      *mockDoctorProfileRepo
	appointments *mockAppointmentRepo
	audit        *mockAuditLogRepo
	tokens       service.TokenStore

	admin     access.Principal
	secretary access.Principal
	patient   *entity.User
	doctor    *entity.User
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	f := &userFixture{
		admin:     access.Principal{UserID: uuid.New(), Role: access.RoleAdmin},
		secretary: access.Principal{UserID: uuid.New(), Role: access.RoleSecretary},
		audit:     &mockAuditLogRepo{},
		tokens:    newTestTokenStore(t),
	}

	doctorID := uuid.New()
	profile := &entity.DoctorProfile{UserID: doctorID, Specialty: "Cardiology", LicenseNumber: "LIC-100", ConsultationFee: decimal.NewFromInt(40)}
	f.doctor = &entity.User{ID: doctorID, RoleID: entity.RoleIDDoctor, ExternalID: "0900000002", Email: "rosa@clinic.test", FirstName: "Rosa", LastName: "Vera", DoctorProfile: profile}
	f.patient = &entity.User{ID: uuid.New(), RoleID: entity.RoleIDPatient, ExternalID: "0900000003", Email: "luis@clinic.test", FirstName: "Luis", LastName: "Mora"}

	f.users = newMockUserRepo(
		&entity.User{ID: f.admin.UserID, RoleID: entity.RoleIDAdmin, ExternalID: "0900000001", Email: "admin@clinic.test", FirstName: "Ada"},
		f.doctor,
		f.patient,
	)
	f.doctors = newMockDoctorProfileRepo(profile)
	f.appointments = newMockAppointmentRepo()

	f.uc = NewUserUsecase(
		fakeTxManager{},
		newTestLogger(),
		f.users,
		f.doctors,
		f.appointments,
		service.NewAuditService(newTestLogger(), f.audit),
		f.tokens,
	).(*userUsecase)

	return f
}

func (f *userFixture) bookWithDoctor() {
	a := &entity.Appointment{
		ID:        uuid.New(),
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Time:      entity.NewTimeOfDay(9, 0),
		Status:    entity.AppointmentStatusPending,
	}
	f.appointments.appointments[a.ID] = a
}

func (f *userFixture) hasToken(t *testing.T, userID uuid.UUID, tokenID string) bool {
	t.Helper()
	ok, err := f.tokens.Exists(context.Background(), jwt.AccessToken, userID, tokenID)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	return ok
}

func newCreateUserRequest(role string) *dto.CreateUserRequest {
	return &dto.CreateUserRequest{
		ExternalID: "0911223344",
		Email:      "new.user@clinic.test",
		Password:   "secret123",
		FirstName:  "Nora",
		LastName:   "Leon",
		Role:       role,
	}
}

func TestUserUsecase_OnlyAdmin(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	if _, err := f.uc.CreateUser(ctx, f.secretary, newCreateUserRequest("patient")); !errors.Is(err, access.ErrDenied) {
		t.Errorf("CreateUser error = %v, want ErrDenied", err)
	}
	if _, err := f.uc.ListUsers(ctx, f.secretary, dto.ListQuery{}); !errors.Is(err, access.ErrDenied) {
		t.Errorf("ListUsers error = %v, want ErrDenied", err)
	}
	if _, err := f.uc.GetUser(ctx, f.secretary, f.patient.ID); !errors.Is(err, access.ErrDenied) {
		t.Errorf("GetUser error = %v, want ErrDenied", err)
	}
	if _, err := f.uc.UpdateUser(ctx, f.secretary, f.patient.ID, &dto.UpdateUserRequest{}); !errors.Is(err, access.ErrDenied) {
		t.Errorf("UpdateUser error = %v, want ErrDenied", err)
	}
	if err := f.uc.DeleteUser(ctx, f.secretary, f.patient.ID); !errors.Is(err, access.ErrDenied) {
		t.Errorf("DeleteUser error = %v, want ErrDenied", err)
	}
}

func TestCreateUser(t *testing.T) {
	fee := decimal.NewFromFloat(35.5)
	negative := decimal.NewFromInt(-1)

	tests := []struct {
		name    string
		mutate  func(req *dto.CreateUserRequest)
		wantErr error
	}{
		{
			name:   "patient",
			mutate: func(req *dto.CreateUserRequest) {},
		},
		{
			name: "doctor with profile",
			mutate: func(req *dto.CreateUserRequest) {
				req.Role = "doctor"
				req.Specialty = "Dermatology"
				req.LicenseNumber = "LIC-200"
				req.ConsultationFee = &fee
			},
		},
		{
			name:    "doctor without specialty",
			mutate:  func(req *dto.CreateUserRequest) { req.Role = "doctor"; req.LicenseNumber = "LIC-200" },
			wantErr: ErrInvalidRoleData,
		},
		{
			name: "doctor with negative fee",
			mutate: func(req *dto.CreateUserRequest) {
				req.Role = "doctor"
				req.Specialty = "Dermatology"
				req.LicenseNumber = "LIC-200"
				req.ConsultationFee = &negative
			},
			wantErr: ErrNegativeFee,
		},
		{
			name: "duplicate license",
			mutate: func(req *dto.CreateUserRequest) {
				req.Role = "doctor"
				req.Specialty = "Dermatology"
				req.LicenseNumber = "LIC-100"
			},
			wantErr: ErrLicenseAlreadyExists,
		},
		{
			name:    "duplicate identity number",
			mutate:  func(req *dto.CreateUserRequest) { req.ExternalID = "0900000003" },
			wantErr: ErrExternalIDAlreadyExists,
		},
		{
			name:    "duplicate email ignoring case",
			mutate:  func(req *dto.CreateUserRequest) { req.Email = "LUIS@clinic.test" },
			wantErr: ErrEmailAlreadyExists,
		},
		{
			name:    "unknown role",
			mutate:  func(req *dto.CreateUserRequest) { req.Role = "nurse" },
			wantErr: access.ErrUnknownRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)
			req := newCreateUserRequest("patient")
			tt.mutate(req)

			resp, err := f.uc.CreateUser(context.Background(), f.admin, req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateUser() error = %v, want %v", err, tt.wantErr)
				}
				if len(f.users.users) != 3 {
					t.Errorf("user written despite error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateUser() error = %v", err)
			}

			if resp.Role != req.Role {
				t.Errorf("role = %q, want %q", resp.Role, req.Role)
			}
			stored, _ := f.users.FindByID(context.Background(), nil, resp.ID)
			if stored == nil {
				t.Fatal("user not stored")
			}
			if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(req.Password)) != nil {
				t.Error("password not hashed with bcrypt")
			}

			profile, _ := f.doctors.FindByUserID(context.Background(), nil, resp.ID)
			if (req.Role == "doctor") != (profile != nil) {
				t.Errorf("doctor profile present = %v for role %s", profile != nil, req.Role)
			}
			if profile != nil && !profile.ConsultationFee.Equal(fee) {
				t.Errorf("fee = %s, want %s", profile.ConsultationFee, fee)
			}
			if got := f.audit.actions(); len(got) != 1 || got[0] != entity.AuditActionUserCreate {
				t.Errorf("audit actions = %v", got)
			}
		})
	}
}

func TestUpdateUser_PromoteToDoctor(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	if err := f.tokens.Save(ctx, jwt.AccessToken, f.patient.ID, "tid-1", time.Minute); err != nil {
		t.Fatal(err)
	}

	_, err := f.uc.UpdateUser(ctx, f.admin, f.patient.ID, &dto.UpdateUserRequest{Role: strPtr("doctor")})
	if !errors.Is(err, ErrInvalidRoleData) {
		t.Fatalf("promote without profile data: error = %v, want ErrInvalidRoleData", err)
	}

	resp, err := f.uc.UpdateUser(ctx, f.admin, f.patient.ID, &dto.UpdateUserRequest{
		Role:          strPtr("doctor"),
		Specialty:     strPtr("Neurology"),
		LicenseNumber: strPtr("LIC-300"),
	})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if resp.Role != "doctor" || resp.DoctorProfile == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if profile, _ := f.doctors.FindByUserID(ctx, nil, f.patient.ID); profile == nil || profile.Specialty != "Neurology" {
		t.Errorf("doctor profile = %+v", profile)
	}
	if f.hasToken(t, f.patient.ID, "tid-1") {
		t.Error("role change should revoke existing tokens")
	}
}

func TestUpdateUser_DemoteDoctor(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.bookWithDoctor()

	_, err := f.uc.UpdateUser(ctx, f.admin, f.doctor.ID, &dto.UpdateUserRequest{Role: strPtr("secretary")})
	if !errors.Is(err, ErrDoctorHasAppointments) {
		t.Fatalf("demote with appointments: error = %v, want ErrDoctorHasAppointments", err)
	}
	if profile, _ := f.doctors.FindByUserID(ctx, nil, f.doctor.ID); profile == nil {
		t.Fatal("profile removed although the demotion failed")
	}

	f.appointments = newMockAppointmentRepo()
	f.uc.appointmentRepo = f.appointments

	resp, err := f.uc.UpdateUser(ctx, f.admin, f.doctor.ID, &dto.UpdateUserRequest{Role: strPtr("secretary")})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if resp.Role != "secretary" || resp.DoctorProfile != nil {
		t.Errorf("unexpected response %+v", resp)
	}
	if profile, _ := f.doctors.FindByUserID(ctx, nil, f.doctor.ID); profile != nil {
		t.Error("doctor profile kept after demotion")
	}
}

func TestUpdateUser_Fields(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	_, err := f.uc.UpdateUser(ctx, f.admin, f.patient.ID, &dto.UpdateUserRequest{Email: strPtr("rosa@clinic.test")})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("email clash: error = %v, want ErrEmailAlreadyExists", err)
	}

	_, err = f.uc.UpdateUser(ctx, f.admin, f.doctor.ID, &dto.UpdateUserRequest{LicenseNumber: strPtr("")})
	if !errors.Is(err, ErrInvalidRoleData) {
		t.Fatalf("blank license: error = %v, want ErrInvalidRoleData", err)
	}

	resp, err := f.uc.UpdateUser(ctx, f.admin, f.patient.ID, &dto.UpdateUserRequest{
		FirstName: strPtr("  Luisa "),
		Email:     strPtr("luis@clinic.test"),
		Phone:     strPtr("0991234567"),
	})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if resp.FirstName != "Luisa" || resp.Phone != "0991234567" {
		t.Errorf("unexpected response %+v", resp)
	}

	if _, err := f.uc.UpdateUser(ctx, f.admin, uuid.New(), &dto.UpdateUserRequest{}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: error = %v, want ErrUserNotFound", err)
	}
}

func TestDeleteUser(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.bookWithDoctor()
	if err := f.tokens.Save(ctx, jwt.AccessToken, f.doctor.ID, "tid-1", time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := f.uc.DeleteUser(ctx, f.admin, f.admin.UserID); !errors.Is(err, ErrCannotDeleteCurrentUser) {
		t.Fatalf("self delete: error = %v, want ErrCannotDeleteCurrentUser", err)
	}

	if err := f.uc.DeleteUser(ctx, f.admin, f.doctor.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if u, _ := f.users.FindByID(ctx, nil, f.doctor.ID); u != nil {
		t.Error("user not deleted")
	}
	if p, _ := f.doctors.FindByUserID(ctx, nil, f.doctor.ID); p != nil {
		t.Error("doctor profile not deleted")
	}
	if len(f.appointments.appointments) != 0 {
		t.Error("appointments of the doctor not deleted")
	}
	if f.hasToken(t, f.doctor.ID, "tid-1") {
		t.Error("tokens of the deleted user still valid")
	}

	if err := f.uc.DeleteUser(ctx, f.admin, f.doctor.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second delete: error = %v, want ErrUserNotFound", err)
	}
}

func TestListUsers(t *testing.T) {
	f := newUserFixture(t)

	resp, err := f.uc.ListUsers(context.Background(), f.admin, dto.ListQuery{Search: "rosa"})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if resp.Total != 1 || resp.Users[0].ID != f.doctor.ID {
		t.Errorf("unexpected result %+v", resp)
	}
}
