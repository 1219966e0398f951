package service

import (
	"context"

	"synthos-points/internal/config"
	"synthos-points/internal/models"
	"synthos-points/pkg/errors"
	"synthos-points/pkg/logger"
)

type PointsService struct {
	users    UserStore
	deposits DepositStore
	cfg      *config.PointsConfig
}

func NewPointsService(users UserStore, deposits DepositStore, cfg *config.PointsConfig) *PointsService {
	return &PointsService{users: users, deposits: deposits, cfg: cfg}
}

// AwardOnce 一次性积分项发放（反馈 / 分享 / 测试网领取）
// 已经发放过返回 0，不报错，重复请求幂等
func (s *PointsService) AwardOnce(ctx context.Context, address string, kind models.AwardKind) (int64, error) {
	addr := NormalizeAddress(address)

	user, err := s.users.GetByAddress(ctx, addr)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, errors.New(errors.ErrUserNotFound, "user not found", nil)
	}

	points := s.awardPoints(kind)
	awarded, err := s.users.AwardOnce(ctx, addr, kind, points)
	if err != nil {
		return 0, err
	}
	if !awarded {
		return 0, nil
	}

	logger.WithFields(map[string]interface{}{
		"address": addr,
		"kind":    kind,
		"points":  points,
	}).Info("一次性积分已发放")

	return points, nil
}

func (s *PointsService) awardPoints(kind models.AwardKind) int64 {
	switch kind {
	case models.AwardDeposit:
		return s.cfg.DepositAward
	case models.AwardFeedback:
		return s.cfg.FeedbackAward
	case models.AwardShareX:
		return s.cfg.ShareXAward
	case models.AwardTestnetClaim:
		return s.cfg.TestnetClaim
	default:
		return 0
	}
}

// GetBreakdown 用户积分明细与合计
func (s *PointsService) GetBreakdown(ctx context.Context, address string) (*models.UserPoints, error) {
	user, err := s.users.GetByAddress(ctx, NormalizeAddress(address))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "user not found", nil)
	}
	return user, nil
}

func (s *PointsService) List(ctx context.Context, offset, limit int) ([]models.UserPoints, error) {
	return s.users.ListPaginated(ctx, offset, limit)
}

func (s *PointsService) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}

type Stats struct {
	Totals         *models.PointTotals `json:"totals"`
	DepositsCount  int64               `json:"deposits_count"`
	RecentDeposits []models.Deposit    `json:"recent_deposits"`
}

func (s *PointsService) GetStats(ctx context.Context) (*Stats, error) {
	totals, err := s.users.Totals(ctx)
	if err != nil {
		return nil, err
	}

	depositsCount, err := s.deposits.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.deposits.GetRecent(ctx, 10)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Totals:         totals,
		DepositsCount:  depositsCount,
		RecentDeposits: recent,
	}, nil
}
