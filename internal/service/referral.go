package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"synthos-points/internal/config"
	"synthos-points/internal/models"
	"synthos-points/pkg/errors"
	"synthos-points/pkg/logger"
)

// 邀请码字母表，8 位，生成时查库防撞
const (
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%&*"
	referralCodeLength   = 8
	maxCodeAttempts      = 64
)

type ReferralService struct {
	users UserStore
	cfg   *config.PointsConfig
}

func NewReferralService(users UserStore, cfg *config.PointsConfig) *ReferralService {
	return &ReferralService{users: users, cfg: cfg}
}

type AwardResult struct {
	PointsAdded     int64
	Message         string
	ReferrerAddress string
	StatusChanged   bool
}

// NormalizeAddress 地址统一小写，台账以小写地址为键
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// GenerateReferralCode 生成未被占用的邀请码
// 撞码重试，连续 maxCodeAttempts 次失败视为异常
func (s *ReferralService) GenerateReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode(referralCodeLength)
		if err != nil {
			return "", errors.New(errors.ErrCodeGenerate, "随机邀请码生成失败", err)
		}

		exists, err := s.users.CodeExists(ctx, code)
		if err != nil {
			return "", errors.New(errors.ErrCodeGenerate, "邀请码查重失败", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New(errors.ErrCodeGenerate,
		fmt.Sprintf("连续 %d 次撞码，放弃生成", maxCodeAttempts), nil)
}

func randomCode(length int) (string, error) {
	alphabetLen := big.NewInt(int64(len(referralCodeAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		b[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// EnsureUser 首次登录建档：种子登录积分 + 生成邀请码
// 已有记录时原样返回，只补写缺失的邀请码和邮箱
func (s *ReferralService) EnsureUser(ctx context.Context, address, email string) (*models.UserPoints, error) {
	addr := NormalizeAddress(address)

	user, err := s.users.GetByAddress(ctx, addr)
	if err != nil {
		return nil, err
	}

	if user == nil {
		code, err := s.GenerateReferralCode(ctx)
		if err != nil {
			return nil, err
		}

		user = &models.UserPoints{
			Address:      addr,
			PointsLogin:  s.cfg.LoginSeed,
			ReferralCode: code,
		}
		if email != "" {
			user.Email = &email
		}
		if err := s.users.Create(ctx, user); err != nil {
			// 并发首登时唯一键冲突，读已有行即可
			existing, getErr := s.users.GetByAddress(ctx, addr)
			if getErr != nil || existing == nil {
				return nil, err
			}
			user = existing
		}

		logger.WithFields(map[string]interface{}{
			"address":       addr,
			"referral_code": user.ReferralCode,
			"login_seed":    s.cfg.LoginSeed,
		}).Info("用户建档")
		return user, nil
	}

	if user.ReferralCode == "" {
		code, err := s.GenerateReferralCode(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.users.BackfillReferralCode(ctx, addr, code); err != nil {
			return nil, err
		}
		user.ReferralCode = code
	}

	if email != "" && user.Email == nil {
		if err := s.users.BackfillEmail(ctx, addr, email); err != nil {
			return nil, err
		}
		user.Email = &email
	}

	return user, nil
}

// ApplyCode 为用户绑定邀请码，只设置 referral_by，不发积分
// 校验顺序：码存在 -> 非自邀 -> 用户存在 -> 尚未绑定
func (s *ReferralService) ApplyCode(ctx context.Context, address, code string) (*models.UserPoints, error) {
	addr := NormalizeAddress(address)
	code = strings.TrimSpace(code)

	owner, err := s.users.GetByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, errors.New(errors.ErrInvalidRefCode, "invalid referral code", nil)
	}
	if owner.Address == addr {
		return nil, errors.New(errors.ErrSelfReferral, "cannot use your own referral code", nil)
	}

	user, err := s.users.GetByAddress(ctx, addr)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "user not found", nil)
	}
	if user.ReferralBy != "" {
		return nil, errors.New(errors.ErrAlreadyReferred, "referral code already applied", nil)
	}

	// 条件更新兜底并发：两个请求同时绑码只有一个生效
	applied, err := s.users.SetReferredBy(ctx, addr, code)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, errors.New(errors.ErrAlreadyReferred, "referral code already applied", nil)
	}

	user.ReferralBy = code

	logger.WithFields(map[string]interface{}{
		"address":     addr,
		"referral_by": code,
		"referrer":    owner.Address,
	}).Info("邀请码已绑定")

	return user, nil
}

// Award 邀请积分双方发放，见积分台账契约：
// 金额未达门槛、无邀请关系、已发放过均为成功的零发放，不是错误；
// 已发放检查先于一切写操作，保证重试安全
func (s *ReferralService) Award(ctx context.Context, address string, amount float64) (*AwardResult, error) {
	if amount < s.cfg.MinDepositAmount {
		return &AwardResult{
			PointsAdded: 0,
			Message:     "Deposit amount not eligible for referral points",
		}, nil
	}

	addr := NormalizeAddress(address)

	user, err := s.users.GetByAddress(ctx, addr)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "user not found", nil)
	}

	if user.ReferralStatus == models.ReferralProcessed {
		return &AwardResult{
			PointsAdded: 0,
			Message:     "Referral points already processed",
		}, nil
	}

	if user.ReferralBy == "" {
		return &AwardResult{
			PointsAdded: 0,
			Message:     "No referral relationship found",
		}, nil
	}

	referrer, err := s.users.GetByReferralCode(ctx, user.ReferralBy)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, errors.New(errors.ErrReferrerNotFound, "referrer not found", nil)
	}

	if err := s.users.AwardReferral(ctx, addr, referrer.Address, s.cfg.ReferralAward); err != nil {
		// 并发发放时输掉条件更新的一方等同已处理
		if errors.HasCode(err, errors.ErrAlreadyProcessed) {
			return &AwardResult{
				PointsAdded: 0,
				Message:     "Referral points already processed",
			}, nil
		}
		return nil, errors.New(errors.ErrReferralTx, "referral processing failed", err)
	}

	logger.WithFields(map[string]interface{}{
		"referee":  addr,
		"referrer": referrer.Address,
		"points":   s.cfg.ReferralAward,
	}).Info("邀请积分已发放")

	return &AwardResult{
		PointsAdded:     s.cfg.ReferralAward,
		Message:         "Referral points awarded",
		ReferrerAddress: referrer.Address,
		StatusChanged:   true,
	}, nil
}

// State 查询用户当前邀请状态，用户不存在返回 USER_NOT_FOUND
func (s *ReferralService) State(ctx context.Context, address string) (*models.UserPoints, error) {
	user, err := s.users.GetByAddress(ctx, NormalizeAddress(address))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "user not found", nil)
	}
	return user, nil
}
