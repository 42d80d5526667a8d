package models

// PositionRecord is the raw exchange-shaped position row returned by the
// position query. Numeric fields arrive as text and are parsed by the
// snapshot normalizer; a parse failure skips the record, never the pass.
type PositionRecord struct {
	Symbol           string `json:"symbol"`
	HoldSide         string `json:"holdSide"`
	Total            string `json:"total"`
	AverageOpenPrice string `json:"averageOpenPrice"`
	StopLossPrice    string `json:"stopLossPrice"`
	TakeProfitPrice  string `json:"takeProfitPrice"`
}

// PlanOrderRecord is the raw exchange-shaped conditional order row returned
// by the plan order query.
type PlanOrderRecord struct {
	OrderID      string `json:"orderId"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	Size         string `json:"size"`
	TriggerPrice string `json:"triggerPrice"`
	OrderType    string `json:"orderType"`
}
