package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"synthos-points/internal/config"
	"synthos-points/internal/handler"
	"synthos-points/internal/models"
	"synthos-points/internal/service"
	"synthos-points/internal/service/storetest"
)

const (
	addrA = "0xaaa0000000000000000000000000000000000001"
	addrB = "0xbbb0000000000000000000000000000000000002"
	addrC = "0xccc0000000000000000000000000000000000003"
)

func newTestServer(users *storetest.Users) *httptest.Server {
	cfg := &config.PointsConfig{
		LoginSeed:        50,
		DepositAward:     100,
		FeedbackAward:    50,
		ShareXAward:      50,
		TestnetClaim:     50,
		ReferralAward:    100,
		MinDepositAmount: 10,
	}

	referralSvc := service.NewReferralService(users, cfg)
	pointsSvc := service.NewPointsService(users, storetest.NewDeposits(), cfg)

	referralHandler := handler.NewReferralHandler(referralSvc)
	pointsHandler := handler.NewPointsHandler(pointsSvc, referralSvc)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/referral-points", referralHandler.HandleReferralPoints)
	mux.HandleFunc("/api/referral", referralHandler.HandleReferral)
	mux.HandleFunc("/api/points/login", pointsHandler.HandleLogin)
	mux.HandleFunc("/api/points/feedback", pointsHandler.HandleFeedback)
	mux.HandleFunc("/api/points/", pointsHandler.GetPoints)
	mux.HandleFunc("/health", handler.HandleHealth)

	return httptest.NewServer(mux)
}

func seededUsers() *storetest.Users {
	users := storetest.NewUsers()
	users.Seed(&models.UserPoints{
		Address:        addrA,
		ReferralCode:   "AAAA1111",
		ReferralBy:     "CODE123",
		ReferralStatus: models.ReferralPending,
	})
	users.Seed(&models.UserPoints{
		Address:        addrB,
		ReferralCode:   "CODE123",
		PointsReferral: 50,
	})
	return users
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestAwardEndpointStringAmount(t *testing.T) {
	users := seededUsers()
	srv := newTestServer(users)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/api/referral-points",
		`{"address":"`+addrA+`","amount":"25.5"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(100), body["pointsAdded"])
	assert.Equal(t, addrB, body["referrerAddress"])
	assert.Equal(t, float64(1), body["newStatus"])

	assert.Equal(t, int64(100), users.Snapshot(addrA).PointsReferral)
	assert.Equal(t, int64(150), users.Snapshot(addrB).PointsReferral)
}

func TestAwardEndpointSecondCallAddsNothing(t *testing.T) {
	users := seededUsers()
	srv := newTestServer(users)
	defer srv.Close()

	body := `{"address":"` + addrA + `","amount":30}`
	resp, first := postJSON(t, srv.URL+"/api/referral-points", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(100), first["pointsAdded"])

	resp, second := postJSON(t, srv.URL+"/api/referral-points", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, second["success"])
	assert.Equal(t, float64(0), second["pointsAdded"])

	assert.Equal(t, int64(100), users.Snapshot(addrA).PointsReferral)
	assert.Equal(t, int64(150), users.Snapshot(addrB).PointsReferral)
}

func TestAwardEndpointNoReferral(t *testing.T) {
	users := storetest.NewUsers()
	users.Seed(&models.UserPoints{Address: addrC, ReferralCode: "CCCC2222"})
	srv := newTestServer(users)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/api/referral-points",
		`{"address":"`+addrC+`","amount":50}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["pointsAdded"])
	assert.Equal(t, "No referral relationship found", body["message"])
}

func TestAwardEndpointValidation(t *testing.T) {
	srv := newTestServer(seededUsers())
	defer srv.Close()

	cases := []struct {
		name string
		body string
	}{
		{"missing address", `{"amount":50}`},
		{"missing amount", `{"address":"` + addrA + `"}`},
		{"null amount", `{"address":"` + addrA + `","amount":null}`},
		{"garbage amount", `{"address":"` + addrA + `","amount":"lots"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := postJSON(t, srv.URL+"/api/referral-points", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAwardEndpointUnknownUser(t *testing.T) {
	srv := newTestServer(storetest.NewUsers())
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/api/referral-points",
		`{"address":"`+addrA+`","amount":50}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestReferralStateEndpoint(t *testing.T) {
	srv := newTestServer(seededUsers())
	defer srv.Close()

	resp, body := getJSON(t, srv.URL+"/api/referral-points?address="+addrA)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, ok := body["referralData"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, addrA, data["address"])
	assert.Equal(t, "CODE123", data["referralBy"])
	assert.Equal(t, float64(0), data["referralStatus"])
	assert.Equal(t, true, data["canEarnReferralPoints"])

	// 发放后派生布尔翻转
	postJSON(t, srv.URL+"/api/referral-points", `{"address":"`+addrA+`","amount":50}`)
	_, after := getJSON(t, srv.URL+"/api/referral-points?address="+addrA)
	data = after["referralData"].(map[string]interface{})
	assert.Equal(t, float64(1), data["referralStatus"])
	assert.Equal(t, false, data["canEarnReferralPoints"])
}

func TestReferralStateEndpointErrors(t *testing.T) {
	srv := newTestServer(storetest.NewUsers())
	defer srv.Close()

	resp, _ := getJSON(t, srv.URL+"/api/referral-points")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = getJSON(t, srv.URL+"/api/referral-points?address="+addrA)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApplyReferralCodeEndpoint(t *testing.T) {
	users := storetest.NewUsers()
	users.Seed(&models.UserPoints{Address: addrB, ReferralCode: "CODE123"})
	users.Seed(&models.UserPoints{Address: addrC, ReferralCode: "CCCC2222"})
	srv := newTestServer(users)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/api/referral",
		`{"address":"`+addrC+`","referralCode":"CODE123"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "CODE123", body["referralBy"])

	// 自邀与二次绑定都拒绝
	resp, body = postJSON(t, srv.URL+"/api/referral",
		`{"address":"`+addrB+`","referralCode":"CODE123"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, body = postJSON(t, srv.URL+"/api/referral",
		`{"address":"`+addrC+`","referralCode":"CCCC2222"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "CODE123", users.Snapshot(addrC).ReferralBy)
}

func TestReferralEnrollEndpoint(t *testing.T) {
	users := storetest.NewUsers()
	srv := newTestServer(users)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/api/referral", `{"address":"`+addrC+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["referralCode"], 8)

	points, ok := body["points"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(50), points["login"])
	assert.Equal(t, float64(50), points["total"])

	resp, body = getJSON(t, srv.URL+"/api/referral?address="+addrC)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, users.Snapshot(addrC).ReferralCode, body["referralCode"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(seededUsers())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/referral-points", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
