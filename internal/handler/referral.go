package handler

import (
	"encoding/json"
	"net/http"

	"synthos-points/internal/models"
	"synthos-points/internal/service"
)

type ReferralHandler struct {
	referralSvc *service.ReferralService
}

func NewReferralHandler(referralSvc *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralSvc: referralSvc}
}

// HandleReferralPoints POST 触发邀请积分发放，GET 查询邀请状态
func (h *ReferralHandler) HandleReferralPoints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.awardReferralPoints(w, r)
	case http.MethodGet:
		h.getReferralState(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *ReferralHandler) awardReferralPoints(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string      `json:"address"`
		Amount  *flexAmount `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}
	if req.Amount == nil || !req.Amount.set {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}

	result, err := h.referralSvc.Award(r.Context(), req.Address, req.Amount.value)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]interface{}{
		"success":     true,
		"message":     result.Message,
		"pointsAdded": result.PointsAdded,
	}
	if result.ReferrerAddress != "" {
		resp["referrerAddress"] = result.ReferrerAddress
	}
	if result.StatusChanged {
		resp["newStatus"] = int(models.ReferralProcessed)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ReferralHandler) getReferralState(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	user, err := h.referralSvc.State(r.Context(), address)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"referralData": map[string]interface{}{
			"address":               user.Address,
			"referralBy":            user.ReferralBy,
			"referralStatus":        int(user.ReferralStatus),
			"pointsReferral":        user.PointsReferral,
			"canEarnReferralPoints": user.CanEarnReferralPoints(),
		},
	})
}

// HandleReferral POST 绑定邀请码或建档，GET 查询邀请码与积分明细
func (h *ReferralHandler) HandleReferral(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.applyReferral(w, r)
	case http.MethodGet:
		h.getReferral(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *ReferralHandler) applyReferral(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address      string `json:"address"`
		ReferralCode string `json:"referralCode"`
		Email        string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	// 不带邀请码时等同建档/查档
	if req.ReferralCode == "" {
		user, err := h.referralSvc.EnsureUser(r.Context(), req.Address, req.Email)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := pointsSummary(user)
		resp["success"] = true
		writeJSON(w, http.StatusOK, resp)
		return
	}

	user, err := h.referralSvc.ApplyCode(r.Context(), req.Address, req.ReferralCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Referral code applied",
		"address":    user.Address,
		"referralBy": user.ReferralBy,
	})
}

func (h *ReferralHandler) getReferral(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	// 建档路径兜底：老用户缺码时在这里补生成
	user, err := h.referralSvc.EnsureUser(r.Context(), address, "")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := pointsSummary(user)
	resp["success"] = true
	resp["referralBy"] = user.ReferralBy
	resp["referralStatus"] = int(user.ReferralStatus)
	writeJSON(w, http.StatusOK, resp)
}
