package usecase

import (
	"context"
	"errors"

	"clinic-scheduling/internal/converter"
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/access"
	"clinic-scheduling/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

var (
	ErrAuditLogNotFound = errors.New("audit log not found")
)

type AuditLogUsecase interface {
	GetAllAuditLogs(ctx context.Context, actor access.Principal, query dto.ListQuery) (*dto.AuditLogListResponse, error)
	GetAuditLog(ctx context.Context, actor access.Principal, id int64) (*dto.AuditLogResponse, error)
}

type auditLogUsecase struct {
	txm          repository.TxManager
	log          *logrus.Logger
	auditLogRepo repository.AuditLogRepository
}

func NewAuditLogUsecase(
	txm repository.TxManager,
	log *logrus.Logger,
	auditLogRepo repository.AuditLogRepository,
) AuditLogUsecase {
	return &auditLogUsecase{
		txm:          txm,
		log:          log,
		auditLogRepo: auditLogRepo,
	}
}

func (u *auditLogUsecase) GetAllAuditLogs(ctx context.Context, actor access.Principal, query dto.ListQuery) (*dto.AuditLogListResponse, error) {
	if err := access.Check(actor, access.OpAuditLogList, false).Err(); err != nil {
		return nil, err
	}

	logs, total, err := u.auditLogRepo.FindAll(ctx, u.txm.DB(ctx), query.Limit, query.Offset)
	if err != nil {
		u.log.Warnf("Failed to find all audit logs: %+v", err)
		return nil, err
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: total,
	}, nil
}

func (u *auditLogUsecase) GetAuditLog(ctx context.Context, actor access.Principal, id int64) (*dto.AuditLogResponse, error) {
	if err := access.Check(actor, access.OpAuditLogList, false).Err(); err != nil {
		return nil, err
	}

	auditLog, err := u.auditLogRepo.FindByID(ctx, u.txm.DB(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find audit log: %+v", err)
		return nil, err
	}
	if auditLog == nil {
		return nil, ErrAuditLogNotFound
	}

	return converter.AuditLogToResponse(auditLog), nil
}
