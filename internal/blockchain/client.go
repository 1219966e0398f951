package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"synthos-points/internal/config"
	"synthos-points/pkg/errors"
	"synthos-points/pkg/logger"
)

type Client struct {
	chainCfg *config.ChainConfig
	client   *ethclient.Client
}

// NewClient 创建指定链的区块链客户端
func NewClient(chainCfg *config.ChainConfig) (*Client, error) {
	client, err := ethclient.Dial(chainCfg.RPCURL)
	if err != nil {
		return nil, errors.New(errors.ErrRPConnect,
			fmt.Sprintf("连接RPC失败: %s", chainCfg.RPCURL), err)
	}

	return &Client{
		chainCfg: chainCfg,
		client:   client,
	}, nil
}

func (c *Client) Close() {
	c.client.Close()
}

// GetLatestBlockNumber 获取链上最新区块号
func (c *Client) GetLatestBlockNumber(ctx context.Context) (int64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, errors.New(errors.ErrBlockFetch, "获取最新区块失败", err)
	}
	return header.Number.Int64(), nil
}

// GetConfirmedBlockNumber 扣除确认深度后的最新可处理区块号
func (c *Client) GetConfirmedBlockNumber(ctx context.Context) (int64, error) {
	latest, err := c.GetLatestBlockNumber(ctx)
	if err != nil {
		return 0, err
	}

	confirmed := latest - int64(c.chainCfg.ConfirmationBlocks)
	if confirmed < 0 {
		confirmed = 0
	}

	return confirmed, nil
}

// GetDepositLogs 拉取区块范围内转入金库地址的Transfer事件
// 通过第二个indexed参数(to)在节点侧过滤，只返回入金日志
func (c *Client) GetDepositLogs(ctx context.Context, startBlock, endBlock int64) ([]types.Log, error) {
	tokenAddr := common.HexToAddress(c.chainCfg.TokenAddress)
	vaultAddr := common.HexToAddress(c.chainCfg.VaultAddress)
	transferSig := crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	vaultTopic := common.BytesToHash(common.LeftPadBytes(vaultAddr.Bytes(), 32))

	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(startBlock),
		ToBlock:   big.NewInt(endBlock),
		Addresses: []common.Address{tokenAddr},
		Topics:    [][]common.Hash{{transferSig}, nil, {vaultTopic}},
	}

	logs, err := c.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, errors.New(errors.ErrEventParse, "过滤入金事件失败", err)
	}

	logger.WithFields(map[string]interface{}{
		"chain_id":    c.chainCfg.ID,
		"start_block": startBlock,
		"end_block":   endBlock,
		"logs_count":  len(logs),
	}).Debug("获取入金事件日志")

	return logs, nil
}

// GetBlockTimestamp 获取区块时间戳，只取header不拉全块
func (c *Client) GetBlockTimestamp(ctx context.Context, blockNumber int64) (time.Time, error) {
	header, err := c.client.HeaderByNumber(ctx, big.NewInt(blockNumber))
	if err != nil {
		return time.Time{}, errors.New(errors.ErrBlockFetch,
			fmt.Sprintf("获取区块 %d 头失败", blockNumber), err)
	}
	return time.Unix(int64(header.Time), 0), nil
}
