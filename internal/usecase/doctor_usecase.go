package usecase

import (
	"context"
	"errors"

	"clinic-scheduling/internal/converter"
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/access"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

var (
	ErrDoctorNotFound = errors.New("doctor not found")
)

type DoctorUsecase interface {
	ListDoctors(ctx context.Context, actor access.Principal, query dto.ListQuery) (*dto.DoctorListResponse, error)
	ListDoctorOptions(ctx context.Context, actor access.Principal) ([]dto.DoctorOptionResponse, error)
}

type doctorUsecase struct {
	txm               repository.TxManager
	log               *logrus.Logger
	doctorProfileRepo repository.DoctorProfileRepository
}

func NewDoctorUsecase(
	txm repository.TxManager,
	log *logrus.Logger,
	doctorProfileRepo repository.DoctorProfileRepository,
) DoctorUsecase {
	return &doctorUsecase{
		txm:               txm,
		log:               log,
		doctorProfileRepo: doctorProfileRepo,
	}
}

func (u *doctorUsecase) ListDoctors(ctx context.Context, actor access.Principal, query dto.ListQuery) (*dto.DoctorListResponse, error) {
	if err := access.Check(actor, access.OpDoctorList, false).Err(); err != nil {
		return nil, err
	}

	profiles, total, err := u.doctorProfileRepo.FindAll(ctx, u.txm.DB(ctx), entity.DoctorFilter{
		Search: query.Search,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		u.log.Warnf("Failed to find all doctor profiles: %+v", err)
		return nil, err
	}

	return &dto.DoctorListResponse{
		Doctors: converter.DoctorProfilesToResponses(profiles),
		Total:   total,
	}, nil
}

// ListDoctorOptions returns every doctor ordered by last name, for the
// appointment request form.
func (u *doctorUsecase) ListDoctorOptions(ctx context.Context, actor access.Principal) ([]dto.DoctorOptionResponse, error) {
	if err := access.Check(actor, access.OpDoctorOptions, false).Err(); err != nil {
		return nil, err
	}

	profiles, _, err := u.doctorProfileRepo.FindAll(ctx, u.txm.DB(ctx), entity.DoctorFilter{})
	if err != nil {
		u.log.Warnf("Failed to find doctor options: %+v", err)
		return nil, err
	}

	return converter.DoctorProfilesToOptions(profiles), nil
}
