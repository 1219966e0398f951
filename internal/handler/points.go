package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"synthos-points/internal/models"
	"synthos-points/internal/service"
)

type PointsHandler struct {
	pointsSvc   *service.PointsService
	referralSvc *service.ReferralService
}

func NewPointsHandler(pointsSvc *service.PointsService, referralSvc *service.ReferralService) *PointsHandler {
	return &PointsHandler{pointsSvc: pointsSvc, referralSvc: referralSvc}
}

// HandleLogin 钱包登录建档/触达，首次登录种子积分并生成邀请码
func (h *PointsHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Address string `json:"address"`
		Email   string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	user, err := h.referralSvc.EnsureUser(r.Context(), req.Address, req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := pointsSummary(user)
	resp["success"] = true
	writeJSON(w, http.StatusOK, resp)
}

// HandleFeedback / HandleShare / HandleTestnetClaim 一次性积分项
func (h *PointsHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	h.awardOnce(w, r, models.AwardFeedback)
}

func (h *PointsHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	h.awardOnce(w, r, models.AwardShareX)
}

func (h *PointsHandler) HandleTestnetClaim(w http.ResponseWriter, r *http.Request) {
	h.awardOnce(w, r, models.AwardTestnetClaim)
}

func (h *PointsHandler) awardOnce(w http.ResponseWriter, r *http.Request, kind models.AwardKind) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	added, err := h.pointsSvc.AwardOnce(r.Context(), req.Address, kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	message := "Points awarded"
	if added == 0 {
		message = "Points already awarded"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     message,
		"pointsAdded": added,
	})
}

// GetPoints GET /api/points/{address} 积分明细
func (h *PointsHandler) GetPoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 3 || pathParts[2] == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/points/{address}")
		return
	}
	address := pathParts[2]

	user, err := h.pointsSvc.GetBreakdown(r.Context(), address)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := pointsSummary(user)
	resp["success"] = true
	writeJSON(w, http.StatusOK, resp)
}

// ListPoints 积分排行榜，分页
func (h *PointsHandler) ListPoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize
	ctx := r.Context()

	users, err := h.pointsSvc.List(ctx, offset, pageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	total, err := h.pointsSvc.Count(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]map[string]interface{}, 0, len(users))
	for i := range users {
		items = append(items, pointsSummary(&users[i]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"items":    items,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (h *PointsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := h.pointsSvc.GetStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}
