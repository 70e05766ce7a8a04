package models

// Candle is one OHLC bar of market data supplied alongside a prompt.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume,omitempty"`
}

// AnalysisRequest is the body of an analysis request.
type AnalysisRequest struct {
	Prompt     string   `json:"prompt"`
	MarketData []Candle `json:"market_data,omitempty"`
}

// AnalysisResponse carries the model commentary and whether it came from cache.
type AnalysisResponse struct {
	Analysis string `json:"analysis"`
	Cached   bool   `json:"cached"`
}
