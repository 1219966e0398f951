package models

import (
	"time"

	"gorm.io/gorm"
)

type ReferralStatus int

const (
	// ReferralPending 已绑定邀请码，奖励尚未发放
	ReferralPending ReferralStatus = 0
	// ReferralProcessed 邀请奖励已发放，只允许 0 -> 1 单向变更
	ReferralProcessed ReferralStatus = 1
)

type UserPoints struct {
	ID                 uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Address            string         `gorm:"uniqueIndex:uk_address;size:42;not null" json:"address"`
	Email              *string        `gorm:"size:255;uniqueIndex:uk_email" json:"email,omitempty"`
	PointsLogin        int64          `gorm:"not null;default:0" json:"points_login"`
	PointsDeposit      int64          `gorm:"not null;default:0" json:"points_deposit"`
	PointsFeedback     int64          `gorm:"not null;default:0" json:"points_feedback"`
	PointsShareX       int64          `gorm:"not null;default:0" json:"points_share_x"`
	PointsTestnetClaim int64          `gorm:"not null;default:0" json:"points_testnet_claim"`
	PointsReferral     int64          `gorm:"not null;default:0" json:"points_referral"`
	ReferralCode       string         `gorm:"uniqueIndex:uk_referral_code;size:16" json:"referral_code"`
	ReferralBy         string         `gorm:"size:16;index" json:"referral_by,omitempty"`
	ReferralStatus     ReferralStatus `gorm:"not null;default:0" json:"referral_status"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (UserPoints) TableName() string {
	return "user_points"
}

// TotalPoints 各项积分之和，只读展示用
func (u *UserPoints) TotalPoints() int64 {
	return u.PointsLogin + u.PointsDeposit + u.PointsFeedback +
		u.PointsShareX + u.PointsTestnetClaim + u.PointsReferral
}

// CanEarnReferralPoints 已绑定邀请码且奖励未发放
func (u *UserPoints) CanEarnReferralPoints() bool {
	return u.ReferralBy != "" && u.ReferralStatus == ReferralPending
}
