package service_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"synthos-points/internal/blockchain"
	"synthos-points/internal/config"
	"synthos-points/internal/models"
	"synthos-points/internal/service"
	"synthos-points/internal/service/storetest"
	"synthos-points/pkg/errors"
)

func TestAwardOnceIdempotent(t *testing.T) {
	users := storetest.NewUsers()
	users.Seed(&models.UserPoints{Address: addrA, ReferralCode: "AAAA1111"})
	svc := service.NewPointsService(users, storetest.NewDeposits(), testPointsConfig())

	added, err := svc.AwardOnce(context.Background(), addrA, models.AwardFeedback)
	require.NoError(t, err)
	assert.Equal(t, int64(50), added)

	added, err = svc.AwardOnce(context.Background(), addrA, models.AwardFeedback)
	require.NoError(t, err)
	assert.Equal(t, int64(0), added)

	assert.Equal(t, int64(50), users.Snapshot(addrA).PointsFeedback)
}

func TestAwardOnceUserNotFound(t *testing.T) {
	svc := service.NewPointsService(storetest.NewUsers(), storetest.NewDeposits(), testPointsConfig())

	_, err := svc.AwardOnce(context.Background(), addrA, models.AwardShareX)
	require.Error(t, err)
	assert.Equal(t, errors.ErrUserNotFound, errors.CodeOf(err))
}

func depositEvent(from string, value *big.Int, txHash string, block int64) *blockchain.DepositEvent {
	return &blockchain.DepositEvent{
		From:     common.HexToAddress(from),
		To:       common.HexToAddress("0x00000000000000000000000000000000000000ff"),
		Value:    value,
		TxHash:   txHash,
		BlockNum: block,
	}
}

func testChainConfig() *config.ChainConfig {
	return &config.ChainConfig{
		ID:            "scroll",
		TokenDecimals: 6,
	}
}

func TestProcessDepositAwardsPoints(t *testing.T) {
	users := storetest.NewUsers()
	deposits := storetest.NewDeposits()
	blocks := storetest.NewBlocks()
	cfg := testPointsConfig()

	referralSvc := service.NewReferralService(users, cfg)
	depositSvc := service.NewDepositService(deposits, users, blocks, referralSvc, cfg)

	seedReferralPair(users)

	// 25.5 个代币（6 位精度），达到门槛
	event := depositEvent(addrA, big.NewInt(25_500_000), "0xtx1", 1200)
	err := depositSvc.ProcessDeposit(context.Background(), testChainConfig(), event, time.Now())
	require.NoError(t, err)

	referee := users.Snapshot(addrA)
	assert.Equal(t, int64(100), referee.PointsDeposit, "first qualifying deposit award")
	assert.Equal(t, int64(100), referee.PointsReferral, "referral award piggybacks on the deposit")
	assert.Equal(t, models.ReferralProcessed, referee.ReferralStatus)
	assert.Equal(t, int64(150), users.Snapshot(addrB).PointsReferral)

	count, err := deposits.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	watermark, err := blocks.GetLastProcessed(context.Background(), "scroll")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), watermark)
}

func TestProcessDepositKeepsOneWatermarkPerChain(t *testing.T) {
	users := storetest.NewUsers()
	blocks := storetest.NewBlocks()
	cfg := testPointsConfig()

	referralSvc := service.NewReferralService(users, cfg)
	depositSvc := service.NewDepositService(storetest.NewDeposits(), users, blocks, referralSvc, cfg)

	ctx := context.Background()
	chain := testChainConfig()
	require.NoError(t, depositSvc.ProcessDeposit(ctx, chain, depositEvent(addrC, big.NewInt(15_000_000), "0xtx5", 2000), time.Now()))
	// 乱序到达的旧区块不回退水位
	require.NoError(t, depositSvc.ProcessDeposit(ctx, chain, depositEvent(addrC, big.NewInt(15_000_000), "0xtx6", 1900), time.Now()))

	watermark, err := blocks.GetLastProcessed(ctx, chain.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), watermark)
}

func TestProcessDepositDuplicateTxIsNoop(t *testing.T) {
	users := storetest.NewUsers()
	deposits := storetest.NewDeposits()
	cfg := testPointsConfig()

	referralSvc := service.NewReferralService(users, cfg)
	depositSvc := service.NewDepositService(deposits, users, storetest.NewBlocks(), referralSvc, cfg)

	event := depositEvent(addrC, big.NewInt(50_000_000), "0xtx2", 1300)
	require.NoError(t, depositSvc.ProcessDeposit(context.Background(), testChainConfig(), event, time.Now()))
	require.NoError(t, depositSvc.ProcessDeposit(context.Background(), testChainConfig(), event, time.Now()))

	count, err := deposits.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(100), users.Snapshot(addrC).PointsDeposit)
}

func TestProcessDepositBelowThreshold(t *testing.T) {
	users := storetest.NewUsers()
	deposits := storetest.NewDeposits()
	cfg := testPointsConfig()

	referralSvc := service.NewReferralService(users, cfg)
	depositSvc := service.NewDepositService(deposits, users, storetest.NewBlocks(), referralSvc, cfg)

	// 5 个代币，低于 10 的门槛：记账但不发积分
	event := depositEvent(addrC, big.NewInt(5_000_000), "0xtx3", 1400)
	require.NoError(t, depositSvc.ProcessDeposit(context.Background(), testChainConfig(), event, time.Now()))

	count, err := deposits.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	user := users.Snapshot(addrC)
	assert.Equal(t, int64(0), user.PointsDeposit)
	assert.Equal(t, int64(50), user.PointsLogin, "enrollment still seeds login points")
}

func TestProcessDepositCreatesUser(t *testing.T) {
	users := storetest.NewUsers()
	cfg := testPointsConfig()

	referralSvc := service.NewReferralService(users, cfg)
	depositSvc := service.NewDepositService(storetest.NewDeposits(), users, storetest.NewBlocks(), referralSvc, cfg)

	event := depositEvent(addrC, big.NewInt(12_000_000), "0xtx4", 1500)
	require.NoError(t, depositSvc.ProcessDeposit(context.Background(), testChainConfig(), event, time.Now()))

	user := users.Snapshot(addrC)
	require.NotNil(t, user)
	assert.Len(t, user.ReferralCode, 8)
	assert.Equal(t, int64(50), user.PointsLogin)
	assert.Equal(t, int64(100), user.PointsDeposit)
}
