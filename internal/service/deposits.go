package service

import (
	"context"
	"sync"
	"time"

	"synthos-points/internal/blockchain"
	"synthos-points/internal/config"
	"synthos-points/internal/models"
	"synthos-points/pkg/errors"
	"synthos-points/pkg/logger"
)

type DepositService struct {
	deposits DepositStore
	users    UserStore
	blocks   BlockStore
	referral *ReferralService
	cfg      *config.PointsConfig
	mu       sync.Mutex
}

func NewDepositService(
	deposits DepositStore,
	users UserStore,
	blocks BlockStore,
	referral *ReferralService,
	cfg *config.PointsConfig,
) *DepositService {
	return &DepositService{
		deposits: deposits,
		users:    users,
		blocks:   blocks,
		referral: referral,
		cfg:      cfg,
	}
}

// ProcessDeposit 处理一笔链上入金：建档、记账、触发积分发放
// 交易哈希去重保证重复处理幂等；达到门槛的入金发放首充积分并尝试邀请积分
func (s *DepositService) ProcessDeposit(ctx context.Context, chainCfg *config.ChainConfig, event *blockchain.DepositEvent, timestamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.deposits.ExistsByTxHash(ctx, event.TxHash)
	if err != nil {
		return errors.New(errors.ErrDepositRecord, "检查交易是否存在失败", err)
	}
	if exists {
		logger.WithFields(map[string]interface{}{
			"tx_hash": event.TxHash,
		}).Debug("交易已处理")
		return nil
	}

	addr := event.Depositor()
	displayAmount := event.DisplayAmount(chainCfg.TokenDecimals)

	// 首次入金即建档，与登录建档同一路径
	if _, err := s.referral.EnsureUser(ctx, addr, ""); err != nil {
		return errors.New(errors.ErrDepositRecord, "入金用户建档失败", err)
	}

	deposit := &models.Deposit{
		ChainID:       chainCfg.ID,
		Address:       addr,
		RawAmount:     event.Value.String(),
		DisplayAmount: displayAmount,
		TxHash:        event.TxHash,
		BlockNumber:   event.BlockNum,
		Timestamp:     timestamp,
	}
	if err := s.deposits.Create(ctx, deposit); err != nil {
		return errors.New(errors.ErrDepositRecord, "创建入金记录失败", err)
	}

	if displayAmount >= s.cfg.MinDepositAmount {
		awarded, err := s.users.AwardOnce(ctx, addr, models.AwardDeposit, s.cfg.DepositAward)
		if err != nil {
			logger.Error("首充积分发放失败:", err)
		} else if awarded {
			logger.WithFields(map[string]interface{}{
				"address": addr,
				"points":  s.cfg.DepositAward,
			}).Info("首充积分已发放")
		}

		// 邀请积分发放失败不阻塞入金记账，补发任务兜底
		if _, err := s.referral.Award(ctx, addr, displayAmount); err != nil {
			logger.Error("邀请积分发放失败:", err)
		}
	}

	logger.WithFields(map[string]interface{}{
		"chain_id":       chainCfg.ID,
		"address":        addr,
		"display_amount": displayAmount,
		"tx_hash":        event.TxHash,
	}).Info("入金已记账")

	return s.blocks.MarkProcessed(ctx, chainCfg.ID, event.BlockNum)
}
