package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf 提取错误链中的业务错误码，非 AppError 返回空串
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func HasCode(err error, code string) bool {
	return CodeOf(err) == code
}

var (
	ErrConfigLoad      = "CONFIG_LOAD_ERROR"
	ErrDatabaseConnect = "DATABASE_CONNECT_ERROR"
	ErrRPConnect       = "RPC_CONNECT_ERROR"
	ErrBlockFetch      = "BLOCK_FETCH_ERROR"
	ErrEventParse      = "EVENT_PARSE_ERROR"
	ErrDepositRecord   = "DEPOSIT_RECORD_ERROR"
	ErrInvalidChain    = "INVALID_CHAIN_ERROR"

	ErrUserNotFound     = "USER_NOT_FOUND"
	ErrAlreadyProcessed = "REFERRAL_ALREADY_PROCESSED"
	ErrInvalidAward     = "INVALID_AWARD_KIND"
	ErrReferrerNotFound = "REFERRER_NOT_FOUND"
	ErrAlreadyReferred  = "ALREADY_REFERRED"
	ErrInvalidRefCode   = "INVALID_REFERRAL_CODE"
	ErrSelfReferral     = "SELF_REFERRAL"
	ErrReferralTx       = "REFERRAL_TX_ERROR"
	ErrCodeGenerate     = "REFERRAL_CODE_GENERATE_ERROR"
)
