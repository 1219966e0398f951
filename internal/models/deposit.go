package models

import (
	"time"
)

// Deposit 链上入金记录，tx_hash 唯一约束保证重复处理幂等
type Deposit struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ChainID       string    `gorm:"size:50;not null;index:idx_chain_addr" json:"chain_id"`
	Address       string    `gorm:"size:42;not null;index:idx_chain_addr" json:"address"`
	RawAmount     string    `gorm:"type:decimal(65,0);not null" json:"raw_amount"`
	DisplayAmount float64   `gorm:"type:decimal(30,18);not null" json:"display_amount"`
	TxHash        string    `gorm:"size:66;not null;uniqueIndex:uk_tx" json:"tx_hash"`
	BlockNumber   int64     `gorm:"not null;index" json:"block_number"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Deposit) TableName() string {
	return "deposits"
}

// ProcessedBlock 每条链一行水位，chain_id 唯一键防止并发写出多行
type ProcessedBlock struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ChainID     string    `gorm:"uniqueIndex:uk_chain;size:50;not null" json:"chain_id"`
	BlockNumber int64     `gorm:"not null" json:"block_number"`
	ProcessedAt time.Time `gorm:"autoCreateTime" json:"processed_at"`
}

func (ProcessedBlock) TableName() string {
	return "processed_blocks"
}
