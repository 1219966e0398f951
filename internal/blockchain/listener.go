package blockchain

import (
	"context"
	"sync/atomic"
	"time"

	"synthos-points/internal/config"
	"synthos-points/pkg/logger"
)

// BlockWatermark 区块处理水位，repository.BlockRepository 实现
type BlockWatermark interface {
	MarkProcessed(ctx context.Context, chainID string, blockNumber int64) error
}

type DepositListener struct {
	chainCfg     *config.ChainConfig
	client       *Client
	blocks       BlockWatermark
	eventChan    chan *DepositEvent
	stopChan     chan struct{}
	isProcessing int32
}

func NewDepositListener(chainCfg *config.ChainConfig, client *Client, blocks BlockWatermark) *DepositListener {
	return &DepositListener{
		chainCfg:  chainCfg,
		client:    client,
		blocks:    blocks,
		eventChan: make(chan *DepositEvent, 1000),
		stopChan:  make(chan struct{}),
	}
}

// Start 轮询拉取已确认区块内的入金事件
func (l *DepositListener) Start(ctx context.Context, startBlock int64) {
	interval := l.chainCfg.PullInterval
	if interval <= 0 {
		interval = 15
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	lastProcessedBlock := startBlock

	for {
		select {
		case <-ctx.Done():
			logger.Info("入金监听器已停止：上下文已取消")
			return
		case <-l.stopChan:
			logger.Info("入金监听器已停止：收到停止信号")
			return
		case <-ticker.C:
			// 上一轮还没处理完就跳过本轮
			if !atomic.CompareAndSwapInt32(&l.isProcessing, 0, 1) {
				logger.WithFields(map[string]interface{}{
					"chain_id": l.chainCfg.ID,
				}).Warn("上一次处理尚未完成，跳过本次触发")
				continue
			}

			pullCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			block, err := l.processNewBlocks(pullCtx, lastProcessedBlock)
			cancel()
			if err != nil {
				logger.Error("处理区块失败:", err)
			} else if block > lastProcessedBlock {
				lastProcessedBlock = block
			}

			atomic.StoreInt32(&l.isProcessing, 0)
		}
	}
}

func (l *DepositListener) Stop() {
	close(l.stopChan)
}

func (l *DepositListener) Events() <-chan *DepositEvent {
	return l.eventChan
}

// processNewBlocks 拉取并解析 (lastBlock, confirmed] 区间的入金日志
// 无事件时直接推进水位；有事件时由入金服务处理完成后推进
func (l *DepositListener) processNewBlocks(ctx context.Context, lastBlock int64) (int64, error) {
	confirmedBlock, err := l.client.GetConfirmedBlockNumber(ctx)
	if err != nil {
		return lastBlock, err
	}

	if confirmedBlock <= lastBlock {
		return lastBlock, nil
	}

	startBlock := lastBlock + 1
	if startBlock == 1 && l.chainCfg.StartBlock > 0 {
		startBlock = l.chainCfg.StartBlock
	}

	batchSize := int64(l.chainCfg.BatchSize)
	if batchSize <= 0 {
		batchSize = 100
	}
	if batchSize > 5000 {
		batchSize = 5000
	}
	if confirmedBlock-startBlock >= batchSize {
		confirmedBlock = startBlock + batchSize - 1
	}

	logs, err := l.client.GetDepositLogs(ctx, startBlock, confirmedBlock)
	if err != nil {
		return lastBlock, err
	}

	if len(logs) == 0 {
		if err := l.blocks.MarkProcessed(ctx, l.chainCfg.ID, confirmedBlock); err != nil {
			logger.Error("标记区块已处理失败:", err)
			return lastBlock, err
		}
		return confirmedBlock, nil
	}

	for _, log := range logs {
		event, err := ParseDepositLog(log)
		if err != nil {
			logger.Error("解析入金日志失败:", err)
			continue
		}

		select {
		case l.eventChan <- event:
		default:
			logger.Warn("事件通道已满，丢弃事件")
		}
	}

	return confirmedBlock, nil
}
