package repository

import (
	"context"
	"errors"

	"synthos-points/internal/models"
	apperrors "synthos-points/pkg/errors"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByAddress 按钱包地址获取积分记录，不存在时返回 (nil, nil)
func (r *UserRepository) GetByAddress(ctx context.Context, address string) (*models.UserPoints, error) {
	var user models.UserPoints
	err := r.db.WithContext(ctx).
		Where("address = ?", address).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &user, err
}

// GetByReferralCode 按邀请码查找码主，不存在时返回 (nil, nil)
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*models.UserPoints, error) {
	var user models.UserPoints
	err := r.db.WithContext(ctx).
		Where("referral_code = ?", code).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &user, err
}

// CodeExists 邀请码是否已被占用
func (r *UserRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserPoints{}).
		Where("referral_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Create(ctx context.Context, user *models.UserPoints) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// BackfillReferralCode 仅在邀请码为空时补写，不会覆盖已有码
func (r *UserRepository) BackfillReferralCode(ctx context.Context, address, code string) error {
	return r.db.WithContext(ctx).
		Model(&models.UserPoints{}).
		Where("address = ? AND (referral_code = '' OR referral_code IS NULL)", address).
		Update("referral_code", code).Error
}

// BackfillEmail 仅在邮箱为 NULL 时补写，唯一键 uk_email 拦截重复邮箱
func (r *UserRepository) BackfillEmail(ctx context.Context, address, email string) error {
	return r.db.WithContext(ctx).
		Model(&models.UserPoints{}).
		Where("address = ? AND email IS NULL", address).
		Update("email", email).Error
}

// SetReferredBy 条件更新绑定邀请码，referral_by 已有值时不生效
// 返回是否真正写入，并发下靠 WHERE 条件而不是先读后写保证只绑定一次
func (r *UserRepository) SetReferredBy(ctx context.Context, address, code string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserPoints{}).
		Where("address = ? AND (referral_by = '' OR referral_by IS NULL)", address).
		Update("referral_by", code)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AwardReferral 双方邀请积分发放，单个数据库事务内完成
// 受邀人更新带 referral_status = 0 条件，并发重试时只有一次能通过，
// 任一步失败整体回滚，两行要么同时提交要么都不变
func (r *UserRepository) AwardReferral(ctx context.Context, refereeAddr, referrerAddr string, points int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(`
			UPDATE user_points
			SET points_referral = points_referral + ?, referral_status = 1, updated_at = NOW()
			WHERE address = ? AND referral_status = 0
		`, points, refereeAddr)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.New(apperrors.ErrAlreadyProcessed, "referral already processed", nil)
		}

		result = tx.Exec(`
			UPDATE user_points
			SET points_referral = points_referral + ?, updated_at = NOW()
			WHERE address = ?
		`, points, referrerAddr)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.New(apperrors.ErrReferrerNotFound, "referrer row missing", nil)
		}

		return nil
	})
}

// AwardOnce 一次性积分发放，对应计数项已非零时不再发放
// 返回是否真正加分
func (r *UserRepository) AwardOnce(ctx context.Context, address string, kind models.AwardKind, points int64) (bool, error) {
	column, ok := models.AwardColumns[kind]
	if !ok {
		return false, apperrors.New(apperrors.ErrInvalidAward, "unknown award kind: "+string(kind), nil)
	}

	result := r.db.WithContext(ctx).
		Exec(`UPDATE user_points SET `+column+` = ?, updated_at = NOW() WHERE address = ? AND `+column+` = 0`,
			points, address)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListPendingReferrals 已绑定邀请码但奖励未发放的用户，供补发任务扫描
func (r *UserRepository) ListPendingReferrals(ctx context.Context, limit int) ([]models.UserPoints, error) {
	var users []models.UserPoints
	query := r.db.WithContext(ctx).
		Where("referral_by <> '' AND referral_status = 0")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&users).Error
	return users, err
}

// ListPaginated 按邀请积分倒序分页
func (r *UserRepository) ListPaginated(ctx context.Context, offset, limit int) ([]models.UserPoints, error) {
	var users []models.UserPoints
	err := r.db.WithContext(ctx).
		Order("points_login + points_deposit + points_feedback + points_share_x + points_testnet_claim + points_referral DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserPoints{}).
		Count(&count).Error
	return count, err
}

// Totals 全站各项积分合计
func (r *UserRepository) Totals(ctx context.Context) (*models.PointTotals, error) {
	var totals models.PointTotals
	err := r.db.WithContext(ctx).
		Model(&models.UserPoints{}).
		Select(`COUNT(*) as users,
			COALESCE(SUM(points_login), 0) as login,
			COALESCE(SUM(points_deposit), 0) as deposit,
			COALESCE(SUM(points_feedback), 0) as feedback,
			COALESCE(SUM(points_share_x), 0) as share_x,
			COALESCE(SUM(points_testnet_claim), 0) as testnet_claim,
			COALESCE(SUM(points_referral), 0) as referral`).
		Scan(&totals).Error
	return &totals, err
}
