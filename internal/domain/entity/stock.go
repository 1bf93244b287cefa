package entity

import "time"

// PricePoint is one daily quote observation.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// DividendPayment is one historical dividend record.
type DividendPayment struct {
	ExDate time.Time `json:"ex_date"`
	Amount float64   `json:"amount"`
}

// FinancialInfo holds the fundamentals the screening heuristics consume.
type FinancialInfo struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	Market           string    `json:"market"`
	Sector           string    `json:"sector"`
	Price            float64   `json:"price"`
	PER              float64   `json:"per"`
	PBR              float64   `json:"pbr"`
	DividendYield    float64   `json:"dividend_yield"`
	MarketCap        float64   `json:"market_cap"`
	AnnualRevenues   []float64 `json:"annual_revenues"`   // oldest first
	AnnualNetIncomes []float64 `json:"annual_net_incomes"` // oldest first
	AnnualPERs       []float64 `json:"annual_pers"`        // oldest first
	RetrievedAt      time.Time `json:"retrieved_at"`
}

// StockData is the full per-symbol payload assembled by the workflow.
type StockData struct {
	Symbol    string            `json:"symbol"`
	Info      FinancialInfo     `json:"info"`
	Prices    []PricePoint      `json:"prices"`
	Dividends []DividendPayment `json:"dividends"`
}

// ValueStock is a screening candidate with its computed metrics.
type ValueStock struct {
	Symbol              string  `json:"symbol"`
	Name                string  `json:"name"`
	Price               float64 `json:"price"`
	PER                 float64 `json:"per"`
	PBR                 float64 `json:"pbr"`
	DividendYield       float64 `json:"dividend_yield"`
	DividendGrowthYears int     `json:"dividend_growth_years"`
	RevenueGrowthYears  int     `json:"revenue_growth_years"`
	ProfitGrowthYears   int     `json:"profit_growth_years"`
	PERStability        float64 `json:"per_stability"`
	Score               float64 `json:"score"`
}

// ListedIssue is one row of the exchange's listed-issues workbook.
type ListedIssue struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Market   string `json:"market"`
	Sector   string `json:"sector"`
	Category string `json:"category"`
}
