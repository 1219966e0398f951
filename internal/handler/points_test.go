package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"synthos-points/internal/models"
	"synthos-points/internal/service/storetest"
)

func TestLoginEndpointSeedsUser(t *testing.T) {
	users := storetest.NewUsers()
	srv := newTestServer(users)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/api/points/login",
		`{"address":"`+addrA+`","email":"a@example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	points := body["points"].(map[string]interface{})
	assert.Equal(t, float64(50), points["login"])

	user := users.Snapshot(addrA)
	require.NotNil(t, user)
	require.NotNil(t, user.Email)
	assert.Equal(t, "a@example.com", *user.Email)

	// 重复登录不再加分
	resp, body = postJSON(t, srv.URL+"/api/points/login", `{"address":"`+addrA+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	points = body["points"].(map[string]interface{})
	assert.Equal(t, float64(50), points["login"])
}

func TestFeedbackEndpointIdempotent(t *testing.T) {
	users := storetest.NewUsers()
	users.Seed(&models.UserPoints{Address: addrA, ReferralCode: "AAAA1111"})
	srv := newTestServer(users)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/api/points/feedback", `{"address":"`+addrA+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(50), body["pointsAdded"])

	resp, body = postJSON(t, srv.URL+"/api/points/feedback", `{"address":"`+addrA+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["pointsAdded"])
	assert.Equal(t, "Points already awarded", body["message"])
}

func TestGetPointsEndpoint(t *testing.T) {
	users := storetest.NewUsers()
	users.Seed(&models.UserPoints{
		Address:        addrA,
		ReferralCode:   "AAAA1111",
		PointsLogin:    50,
		PointsDeposit:  100,
		PointsReferral: 100,
	})
	srv := newTestServer(users)
	defer srv.Close()

	resp, body := getJSON(t, srv.URL+"/api/points/"+addrA)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	points := body["points"].(map[string]interface{})
	assert.Equal(t, float64(50), points["login"])
	assert.Equal(t, float64(100), points["deposit"])
	assert.Equal(t, float64(100), points["referral"])
	assert.Equal(t, float64(250), points["total"])

	resp, _ = getJSON(t, srv.URL+"/api/points/"+addrB)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
