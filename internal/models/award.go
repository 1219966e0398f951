package models

// AwardKind 一次性积分项，列名经白名单映射后才允许拼入 SQL
type AwardKind string

const (
	AwardDeposit      AwardKind = "deposit"
	AwardFeedback     AwardKind = "feedback"
	AwardShareX       AwardKind = "share_x"
	AwardTestnetClaim AwardKind = "testnet_claim"
)

var AwardColumns = map[AwardKind]string{
	AwardDeposit:      "points_deposit",
	AwardFeedback:     "points_feedback",
	AwardShareX:       "points_share_x",
	AwardTestnetClaim: "points_testnet_claim",
}

type PointTotals struct {
	Users        int64 `json:"users"`
	Login        int64 `json:"login"`
	Deposit      int64 `json:"deposit"`
	Feedback     int64 `json:"feedback"`
	ShareX       int64 `json:"share_x"`
	TestnetClaim int64 `json:"testnet_claim"`
	Referral     int64 `json:"referral"`
}
