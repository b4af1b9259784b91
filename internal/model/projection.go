package model

type ProjectionMode string

const (
	ProjectionPerDay   ProjectionMode = "perDay"
	ProjectionPerTrade ProjectionMode = "perTrade"
)

type ProjectionParams struct {
	Mode         ProjectionMode
	Amount       float64
	DailyPct     float64
	PerTradePct  float64
	TradesPerDay int
	Days         int
}

type ProjectionRow struct {
	Day    int     `json:"day"`
	Start  float64 `json:"start"`
	Profit float64 `json:"profit"`
	End    float64 `json:"end"`
}
