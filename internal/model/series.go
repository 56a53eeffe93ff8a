package model

import "github.com/shopspring/decimal"

// SeriesPoint is one sample of a chart line.
type SeriesPoint struct {
	Timestamp uint64          `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// Series maps a line label (account, bot) to its chronologically ordered points.
type Series map[string][]SeriesPoint

// ChartRequest is everything a renderer needs to draw one chart.
type ChartRequest struct {
	Title  string `json:"title"`
	Unit   string `json:"unit"`
	Series Series `json:"series"`
}

// Empty reports whether the request has no points to draw.
func (r ChartRequest) Empty() bool {
	for _, pts := range r.Series {
		if len(pts) > 0 {
			return false
		}
	}
	return true
}
