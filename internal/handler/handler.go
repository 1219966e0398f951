package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"synthos-points/internal/models"
	"synthos-points/pkg/errors"
)

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// writeServiceError 业务错误映射为状态码，内部错误一律返回通用文案
func writeServiceError(w http.ResponseWriter, err error) {
	switch errors.CodeOf(err) {
	case errors.ErrUserNotFound:
		writeError(w, http.StatusNotFound, "User not found")
	case errors.ErrReferrerNotFound:
		writeError(w, http.StatusNotFound, "Referrer not found")
	case errors.ErrInvalidRefCode:
		writeError(w, http.StatusBadRequest, "Invalid referral code")
	case errors.ErrSelfReferral:
		writeError(w, http.StatusBadRequest, "Cannot use your own referral code")
	case errors.ErrAlreadyReferred:
		writeError(w, http.StatusBadRequest, "Referral code already applied")
	case errors.ErrReferralTx:
		writeError(w, http.StatusInternalServerError, "Failed to process referral points, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// flexAmount 同时接受 JSON 数字和数字字符串两种形态的金额
// 字段缺失时 set 为 false，null 和不可解析的字符串按错误处理
type flexAmount struct {
	value float64
	set   bool
}

func (a *flexAmount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("amount must not be null")
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		a.value = n
		a.set = true
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a number or numeric string")
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("amount is not a valid number: %q", s)
	}

	a.value = n
	a.set = true
	return nil
}

// pointsSummary 对外的积分明细投影
func pointsSummary(user *models.UserPoints) map[string]interface{} {
	return map[string]interface{}{
		"address":      user.Address,
		"referralCode": user.ReferralCode,
		"points": map[string]interface{}{
			"login":        user.PointsLogin,
			"deposit":      user.PointsDeposit,
			"feedback":     user.PointsFeedback,
			"shareX":       user.PointsShareX,
			"testnetClaim": user.PointsTestnetClaim,
			"referral":     user.PointsReferral,
			"total":        user.TotalPoints(),
		},
	}
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
