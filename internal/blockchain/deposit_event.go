package blockchain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DepositEvent 一笔转入金库的ERC-20转账
type DepositEvent struct {
	From     common.Address
	To       common.Address
	Value    *big.Int
	TxHash   string
	BlockNum int64
}

func ParseDepositLog(log types.Log) (*DepositEvent, error) {
	if len(log.Topics) < 3 {
		return nil, ErrInvalidLogFormat
	}

	from := common.BytesToAddress(log.Topics[1].Bytes())
	to := common.BytesToAddress(log.Topics[2].Bytes())

	value := new(big.Int)
	if len(log.Data) > 0 {
		value.SetBytes(log.Data)
	}

	return &DepositEvent{
		From:     from,
		To:       to,
		Value:    value,
		TxHash:   log.TxHash.Hex(),
		BlockNum: int64(log.BlockNumber),
	}, nil
}

// Depositor 入金人地址，统一小写
func (e *DepositEvent) Depositor() string {
	return strings.ToLower(e.From.Hex())
}

// DisplayAmount 按代币精度换算为展示单位
func (e *DepositEvent) DisplayAmount(decimals int) float64 {
	if e.Value == nil || e.Value.Sign() == 0 {
		return 0
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	amount := new(big.Float).Quo(
		new(big.Float).SetInt(e.Value),
		new(big.Float).SetInt(scale),
	)

	result, _ := amount.Float64()
	return result
}

var ErrInvalidLogFormat = &InvalidLogFormatError{}

type InvalidLogFormatError struct{}

func (e *InvalidLogFormatError) Error() string {
	return "invalid log format: insufficient topics"
}
