package service

import (
	"math"

	"trustme_backend/internal/model"
)

const maxProjectionDays = 365

// ProjectionService computes the compounding projection table shown to
// prospects. Display figures only; ledger money never goes through here.
type ProjectionService struct{}

func NewProjectionService() *ProjectionService {
	return &ProjectionService{}
}

func (s *ProjectionService) Project(p model.ProjectionParams) []model.ProjectionRow {
	p = sanitize(p)

	rows := make([]model.ProjectionRow, 0, p.Days)
	balance := p.Amount
	for day := 1; day <= p.Days; day++ {
		growth := 1 + p.DailyPct/100
		if p.Mode == model.ProjectionPerTrade {
			growth = math.Pow(1+p.PerTradePct/100, float64(p.TradesPerDay))
		}
		end := balance * growth
		rows = append(rows, model.ProjectionRow{
			Day:    day,
			Start:  balance,
			Profit: end - balance,
			End:    end,
		})
		balance = end
	}
	return rows
}

func sanitize(p model.ProjectionParams) model.ProjectionParams {
	if p.Mode != model.ProjectionPerTrade {
		p.Mode = model.ProjectionPerDay
	}
	p.Amount = finiteOrZero(p.Amount)
	p.DailyPct = finiteOrZero(p.DailyPct)
	p.PerTradePct = finiteOrZero(p.PerTradePct)
	if p.TradesPerDay < 1 {
		p.TradesPerDay = 1
	}
	if p.Days < 0 {
		p.Days = 0
	}
	if p.Days > maxProjectionDays {
		p.Days = maxProjectionDays
	}
	return p
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
