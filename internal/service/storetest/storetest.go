// Package storetest 提供 UserStore / DepositStore / BlockStore 的内存实现，
// 行为与 gorm 仓储对齐（含条件更新与事务回滚语义），供服务层与 HTTP 层测试注入
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"synthos-points/internal/models"
	"synthos-points/pkg/errors"
)

type Users struct {
	mu    sync.Mutex
	rows  map[string]*models.UserPoints
	ops   int
	seq   uint64

	// CodeExistsFunc 覆盖查重结果，模拟撞码
	CodeExistsFunc func(code string) (bool, error)
	// AwardReferralErr 注入发放事务失败，等同整体回滚，不落任何写入
	AwardReferralErr error
}

func NewUsers() *Users {
	return &Users{rows: map[string]*models.UserPoints{}}
}

// Ops 累计访问次数，用于断言某操作未触库
func (s *Users) Ops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops
}

// Seed 直接放入一行，测试布置初始状态用
func (s *Users) Seed(user *models.UserPoints) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	u := *user
	u.ID = s.seq
	s.rows[strings.ToLower(u.Address)] = &u
}

// Snapshot 返回某行的拷贝，不存在返回 nil
func (s *Users) Snapshot(address string) *models.UserPoints {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.rows[strings.ToLower(address)]; ok {
		c := *u
		return &c
	}
	return nil
}

func (s *Users) GetByAddress(_ context.Context, address string) (*models.UserPoints, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	if u, ok := s.rows[address]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (s *Users) GetByReferralCode(_ context.Context, code string) (*models.UserPoints, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	for _, u := range s.rows {
		if u.ReferralCode == code && code != "" {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Users) CodeExists(_ context.Context, code string) (bool, error) {
	if s.CodeExistsFunc != nil {
		return s.CodeExistsFunc(code)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	for _, u := range s.rows {
		if u.ReferralCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *Users) Create(_ context.Context, user *models.UserPoints) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	if _, ok := s.rows[user.Address]; ok {
		return errors.New(errors.ErrDatabaseConnect, "duplicate address", nil)
	}
	if s.emailTaken(user.Email) {
		return errors.New(errors.ErrDatabaseConnect, "duplicate email", nil)
	}
	s.seq++
	c := *user
	c.ID = s.seq
	s.rows[c.Address] = &c
	user.ID = c.ID
	return nil
}

func (s *Users) BackfillReferralCode(_ context.Context, address, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	if u, ok := s.rows[address]; ok && u.ReferralCode == "" {
		u.ReferralCode = code
	}
	return nil
}

func (s *Users) BackfillEmail(_ context.Context, address, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	u, ok := s.rows[address]
	if !ok || u.Email != nil {
		return nil
	}
	if s.emailTaken(&email) {
		return errors.New(errors.ErrDatabaseConnect, "duplicate email", nil)
	}
	u.Email = &email
	return nil
}

// emailTaken 对齐 uk_email 唯一键，NULL 不参与查重
func (s *Users) emailTaken(email *string) bool {
	if email == nil {
		return false
	}
	for _, row := range s.rows {
		if row.Email != nil && *row.Email == *email {
			return true
		}
	}
	return false
}

func (s *Users) SetReferredBy(_ context.Context, address, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	u, ok := s.rows[address]
	if !ok || u.ReferralBy != "" {
		return false, nil
	}
	u.ReferralBy = code
	return true, nil
}

func (s *Users) AwardReferral(_ context.Context, refereeAddr, referrerAddr string, points int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++

	if s.AwardReferralErr != nil {
		return s.AwardReferralErr
	}

	referee, ok := s.rows[refereeAddr]
	if !ok || referee.ReferralStatus != models.ReferralPending {
		return errors.New(errors.ErrAlreadyProcessed, "referral already processed", nil)
	}
	referrer, ok := s.rows[referrerAddr]
	if !ok {
		return errors.New(errors.ErrReferrerNotFound, "referrer row missing", nil)
	}

	referee.PointsReferral += points
	referee.ReferralStatus = models.ReferralProcessed
	referrer.PointsReferral += points
	return nil
}

func (s *Users) AwardOnce(_ context.Context, address string, kind models.AwardKind, points int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++

	if _, ok := models.AwardColumns[kind]; !ok {
		return false, errors.New(errors.ErrInvalidAward, "unknown award kind: "+string(kind), nil)
	}
	u, ok := s.rows[address]
	if !ok {
		return false, nil
	}

	switch kind {
	case models.AwardDeposit:
		if u.PointsDeposit != 0 {
			return false, nil
		}
		u.PointsDeposit = points
	case models.AwardFeedback:
		if u.PointsFeedback != 0 {
			return false, nil
		}
		u.PointsFeedback = points
	case models.AwardShareX:
		if u.PointsShareX != 0 {
			return false, nil
		}
		u.PointsShareX = points
	case models.AwardTestnetClaim:
		if u.PointsTestnetClaim != 0 {
			return false, nil
		}
		u.PointsTestnetClaim = points
	}
	return true, nil
}

func (s *Users) ListPendingReferrals(_ context.Context, limit int) ([]models.UserPoints, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	var out []models.UserPoints
	for _, u := range s.rows {
		if u.ReferralBy != "" && u.ReferralStatus == models.ReferralPending {
			out = append(out, *u)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Users) ListPaginated(_ context.Context, offset, limit int) ([]models.UserPoints, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	all := make([]models.UserPoints, 0, len(s.rows))
	for _, u := range s.rows {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].TotalPoints() > all[j].TotalPoints()
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *Users) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	return int64(len(s.rows)), nil
}

func (s *Users) Totals(_ context.Context) (*models.PointTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	totals := &models.PointTotals{Users: int64(len(s.rows))}
	for _, u := range s.rows {
		totals.Login += u.PointsLogin
		totals.Deposit += u.PointsDeposit
		totals.Feedback += u.PointsFeedback
		totals.ShareX += u.PointsShareX
		totals.TestnetClaim += u.PointsTestnetClaim
		totals.Referral += u.PointsReferral
	}
	return totals, nil
}

type Deposits struct {
	mu   sync.Mutex
	rows []models.Deposit
	seq  uint64
}

func NewDeposits() *Deposits {
	return &Deposits{}
}

func (s *Deposits) Create(_ context.Context, deposit *models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.rows {
		if d.TxHash == deposit.TxHash {
			return errors.New(errors.ErrDepositRecord, "duplicate tx hash", nil)
		}
	}
	s.seq++
	c := *deposit
	c.ID = s.seq
	s.rows = append(s.rows, c)
	return nil
}

func (s *Deposits) ExistsByTxHash(_ context.Context, txHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.rows {
		if d.TxHash == txHash {
			return true, nil
		}
	}
	return false, nil
}

func (s *Deposits) MaxDisplayAmount(_ context.Context, address string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max float64
	for _, d := range s.rows {
		if d.Address == address && d.DisplayAmount > max {
			max = d.DisplayAmount
		}
	}
	return max, nil
}

func (s *Deposits) GetByAddress(_ context.Context, address string, limit int) ([]models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Deposit
	for _, d := range s.rows {
		if d.Address == address {
			out = append(out, d)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Deposits) GetRecent(_ context.Context, limit int) ([]models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.rows) {
		limit = len(s.rows)
	}
	out := make([]models.Deposit, limit)
	copy(out, s.rows[len(s.rows)-limit:])
	return out, nil
}

func (s *Deposits) CountAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

type Blocks struct {
	mu   sync.Mutex
	rows map[string]int64
}

func NewBlocks() *Blocks {
	return &Blocks{rows: map[string]int64{}}
}

func (s *Blocks) GetLastProcessed(_ context.Context, chainID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[chainID], nil
}

func (s *Blocks) MarkProcessed(_ context.Context, chainID string, blockNumber int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if blockNumber > s.rows[chainID] {
		s.rows[chainID] = blockNumber
	}
	return nil
}
