package repository

import (
	"context"

	"synthos-points/internal/models"

	"gorm.io/gorm"
)

type DepositRepository struct {
	db *gorm.DB
}

func NewDepositRepository(db *gorm.DB) *DepositRepository {
	return &DepositRepository{db: db}
}

func (r *DepositRepository) Create(ctx context.Context, deposit *models.Deposit) error {
	return r.db.WithContext(ctx).Create(deposit).Error
}

// ExistsByTxHash 交易是否已入库，重放保护
func (r *DepositRepository) ExistsByTxHash(ctx context.Context, txHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Deposit{}).
		Where("tx_hash = ?", txHash).
		Count(&count).Error
	return count > 0, err
}

// MaxDisplayAmount 用户最大单笔入金（展示单位），无记录返回 0
func (r *DepositRepository) MaxDisplayAmount(ctx context.Context, address string) (float64, error) {
	var max float64
	err := r.db.WithContext(ctx).
		Model(&models.Deposit{}).
		Where("address = ?", address).
		Select("COALESCE(MAX(display_amount), 0)").
		Scan(&max).Error
	return max, err
}

func (r *DepositRepository) GetByAddress(ctx context.Context, address string, limit int) ([]models.Deposit, error) {
	var deposits []models.Deposit
	query := r.db.WithContext(ctx).
		Where("address = ?", address).
		Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&deposits).Error
	return deposits, err
}

func (r *DepositRepository) GetRecent(ctx context.Context, limit int) ([]models.Deposit, error) {
	var deposits []models.Deposit
	if limit <= 0 {
		limit = 10
	}
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&deposits).Error
	return deposits, err
}

func (r *DepositRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Deposit{}).
		Count(&count).Error
	return count, err
}
