package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"synthos-points/internal/config"
	"synthos-points/internal/service"
	"synthos-points/pkg/logger"
)

// AwardSweeper periodically retries pending referral awards. A deposit that
// qualified but failed to award (transaction abort, referrer race) leaves the
// referee at referral_status = 0; the sweep re-runs the award, which is safe
// because the award path is idempotent.
type AwardSweeper struct {
	cron     *cron.Cron
	referral *service.ReferralService
	users    service.UserStore
	deposits service.DepositStore
	cfg      *config.PointsConfig
}

func NewAwardSweeper(
	referral *service.ReferralService,
	users service.UserStore,
	deposits service.DepositStore,
	cfg *config.PointsConfig,
) *AwardSweeper {
	return &AwardSweeper{
		cron:     cron.New(cron.WithSeconds()),
		referral: referral,
		users:    users,
		deposits: deposits,
		cfg:      cfg,
	}
}

func (s *AwardSweeper) Start() error {
	expr := s.cfg.SweepCron
	if expr == "" {
		expr = "0 */10 * * * *"
	}

	if _, err := s.cron.AddFunc(expr, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("Referral award sweeper started")
	return nil
}

func (s *AwardSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Referral award sweeper stopped")
}

func (s *AwardSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pending, err := s.users.ListPendingReferrals(ctx, s.cfg.SweepBatchSize)
	if err != nil {
		logger.Error("Failed to list pending referrals:", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	logger.WithFields(map[string]interface{}{
		"pending_count": len(pending),
	}).Info("Sweeping pending referral awards")

	awarded := 0
	for _, user := range pending {
		maxDeposit, err := s.deposits.MaxDisplayAmount(ctx, user.Address)
		if err != nil {
			logger.Error("Failed to get max deposit for user:", user.Address, err)
			continue
		}
		if maxDeposit < s.cfg.MinDepositAmount {
			continue
		}

		result, err := s.referral.Award(ctx, user.Address, maxDeposit)
		if err != nil {
			logger.Error("Failed to award referral points for user:", user.Address, err)
			continue
		}
		if result.PointsAdded > 0 {
			awarded++
		}
	}

	logger.WithFields(map[string]interface{}{
		"pending_count": len(pending),
		"awarded_count": awarded,
	}).Info("Referral award sweep completed")
}
