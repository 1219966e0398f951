package service

import (
	"context"

	"synthos-points/internal/models"
)

// UserStore 积分台账的存取接口，gorm 实现见 internal/repository，
// 测试用内存实现见 service 包测试
type UserStore interface {
	GetByAddress(ctx context.Context, address string) (*models.UserPoints, error)
	GetByReferralCode(ctx context.Context, code string) (*models.UserPoints, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, user *models.UserPoints) error
	BackfillReferralCode(ctx context.Context, address, code string) error
	BackfillEmail(ctx context.Context, address, email string) error
	SetReferredBy(ctx context.Context, address, code string) (bool, error)
	AwardReferral(ctx context.Context, refereeAddr, referrerAddr string, points int64) error
	AwardOnce(ctx context.Context, address string, kind models.AwardKind, points int64) (bool, error)
	ListPendingReferrals(ctx context.Context, limit int) ([]models.UserPoints, error)
	ListPaginated(ctx context.Context, offset, limit int) ([]models.UserPoints, error)
	Count(ctx context.Context) (int64, error)
	Totals(ctx context.Context) (*models.PointTotals, error)
}

type DepositStore interface {
	Create(ctx context.Context, deposit *models.Deposit) error
	ExistsByTxHash(ctx context.Context, txHash string) (bool, error)
	MaxDisplayAmount(ctx context.Context, address string) (float64, error)
	GetByAddress(ctx context.Context, address string, limit int) ([]models.Deposit, error)
	GetRecent(ctx context.Context, limit int) ([]models.Deposit, error)
	CountAll(ctx context.Context) (int64, error)
}

type BlockStore interface {
	GetLastProcessed(ctx context.Context, chainID string) (int64, error)
	MarkProcessed(ctx context.Context, chainID string, blockNumber int64) error
}
