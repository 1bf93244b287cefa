package service

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"stocknotifier/internal/domain/entity"
)

// ScreeningCriteria holds the value-screening thresholds.
type ScreeningCriteria struct {
	MaxPER           float64 `yaml:"max_per"`
	MaxPBR           float64 `yaml:"max_pbr"`
	MinDividendYield float64 `yaml:"min_dividend_yield"`
	MinGrowthYears   int     `yaml:"min_growth_years"`
	MaxPERVolatility float64 `yaml:"max_per_volatility"`
}

// DefaultScreeningCriteria returns the standard value-screening thresholds.
func DefaultScreeningCriteria() ScreeningCriteria {
	return ScreeningCriteria{
		MaxPER:           15.0,
		MaxPBR:           1.5,
		MinDividendYield: 2.0,
		MinGrowthYears:   3,
		MaxPERVolatility: 30.0,
	}
}

// LoadScreeningCriteria reads criteria overrides from a YAML file. Fields
// omitted from the file keep their defaults.
func LoadScreeningCriteria(path string) (ScreeningCriteria, error) {
	criteria := DefaultScreeningCriteria()

	data, err := os.ReadFile(path)
	if err != nil {
		return criteria, fmt.Errorf("screening criteria: %w", err)
	}
	if err := yaml.Unmarshal(data, &criteria); err != nil {
		return criteria, fmt.Errorf("screening criteria: %w", err)
	}
	if err := criteria.Validate(); err != nil {
		return criteria, err
	}
	return criteria, nil
}

// Validate checks criteria invariants.
func (c ScreeningCriteria) Validate() error {
	if c.MaxPER <= 0 || c.MaxPBR <= 0 {
		return fmt.Errorf("screening criteria: PER and PBR ceilings must be positive")
	}
	if c.MinDividendYield < 0 {
		return fmt.Errorf("screening criteria: dividend yield floor cannot be negative")
	}
	if c.MinGrowthYears < 0 {
		return fmt.Errorf("screening criteria: growth years floor cannot be negative")
	}
	return nil
}

// ScreeningService screens fetched stock data against value heuristics and
// ranks the survivors by composite score.
type ScreeningService struct {
	criteria ScreeningCriteria
}

// NewScreeningService creates a screening service with the given criteria.
func NewScreeningService(criteria ScreeningCriteria) *ScreeningService {
	return &ScreeningService{criteria: criteria}
}

// Criteria returns the service's active criteria.
func (s *ScreeningService) Criteria() ScreeningCriteria { return s.criteria }

// ScreenValueStocks filters stock data against the basic and growth criteria
// and returns surviving candidates ranked by score, highest first.
func (s *ScreeningService) ScreenValueStocks(data []entity.StockData) []entity.ValueStock {
	var candidates []entity.ValueStock

	for _, stock := range data {
		if !s.meetsBasicCriteria(stock.Info) {
			continue
		}

		dividendGrowth := dividendGrowthYears(stock.Dividends)
		revenueGrowth := consecutiveGrowthYears(stock.Info.AnnualRevenues)
		profitGrowth := consecutiveGrowthYears(stock.Info.AnnualNetIncomes)
		perStability := perStability(stock.Info.AnnualPERs)

		if dividendGrowth < s.criteria.MinGrowthYears ||
			revenueGrowth < s.criteria.MinGrowthYears ||
			profitGrowth < s.criteria.MinGrowthYears {
			continue
		}

		candidates = append(candidates, entity.ValueStock{
			Symbol:              stock.Symbol,
			Name:                stock.Info.Name,
			Price:               stock.Info.Price,
			PER:                 stock.Info.PER,
			PBR:                 stock.Info.PBR,
			DividendYield:       stock.Info.DividendYield,
			DividendGrowthYears: dividendGrowth,
			RevenueGrowthYears:  revenueGrowth,
			ProfitGrowthYears:   profitGrowth,
			PERStability:        perStability,
		})
	}

	return s.RankStocks(candidates)
}

// meetsBasicCriteria applies the PER ceiling, PBR ceiling and dividend-yield
// floor. Non-finite ratios and non-positive prices never pass.
func (s *ScreeningService) meetsBasicCriteria(info entity.FinancialInfo) bool {
	if math.IsNaN(info.PER) || math.IsInf(info.PER, 0) ||
		math.IsNaN(info.PBR) || math.IsInf(info.PBR, 0) {
		return false
	}
	if info.Price <= 0 {
		return false
	}
	if info.PER > s.criteria.MaxPER {
		return false
	}
	if info.PBR > s.criteria.MaxPBR {
		return false
	}
	if info.DividendYield < s.criteria.MinDividendYield {
		return false
	}
	return true
}

// RankStocks assigns composite scores and sorts candidates, highest first.
// The score weights: PER headroom 25, PBR headroom 25, dividend yield 20,
// each growth streak 15 (5 per year), PER stability 10.
func (s *ScreeningService) RankStocks(candidates []entity.ValueStock) []entity.ValueStock {
	for i := range candidates {
		stock := &candidates[i]
		score := 0.0

		score += math.Max(0, (s.criteria.MaxPER-stock.PER)/s.criteria.MaxPER*25)
		score += math.Max(0, (s.criteria.MaxPBR-stock.PBR)/s.criteria.MaxPBR*25)
		if s.criteria.MinDividendYield > 0 {
			score += math.Min(stock.DividendYield/s.criteria.MinDividendYield*20, 20)
		}

		score += math.Min(float64(stock.DividendGrowthYears)*5, 15)
		score += math.Min(float64(stock.RevenueGrowthYears)*5, 15)
		score += math.Min(float64(stock.ProfitGrowthYears)*5, 15)

		if stock.PERStability <= s.criteria.MaxPERVolatility {
			score += math.Max(0,
				(s.criteria.MaxPERVolatility-stock.PERStability)/s.criteria.MaxPERVolatility*10)
		}

		stock.Score = score
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// dividendGrowthYears counts consecutive year-over-year dividend increases,
// newest streak first, breaking at the first non-increase.
func dividendGrowthYears(dividends []entity.DividendPayment) int {
	if len(dividends) < 2 {
		return 0
	}

	sorted := make([]entity.DividendPayment, len(dividends))
	copy(sorted, dividends)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ExDate.Before(sorted[j].ExDate)
	})

	years := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Amount > sorted[i-1].Amount && sorted[i-1].Amount > 0 {
			years++
		} else {
			break
		}
	}
	return years
}

// consecutiveGrowthYears counts consecutive increases in an oldest-first
// annual series, breaking at the first non-increase or non-positive base.
func consecutiveGrowthYears(values []float64) int {
	if len(values) < 2 {
		return 0
	}

	years := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[i-1] && values[i-1] > 0 {
			years++
		} else {
			break
		}
	}
	return years
}

// perStability returns the coefficient of variation of positive PER values
// as a percentage. Fewer than two usable values reports +Inf (unstable).
func perStability(pers []float64) float64 {
	var usable []float64
	for _, per := range pers {
		if per > 0 {
			usable = append(usable, per)
		}
	}
	if len(usable) < 2 {
		return math.Inf(1)
	}

	var sum float64
	for _, per := range usable {
		sum += per
	}
	mean := sum / float64(len(usable))
	if mean == 0 {
		return math.Inf(1)
	}

	var variance float64
	for _, per := range usable {
		variance += (per - mean) * (per - mean)
	}
	stddev := math.Sqrt(variance / float64(len(usable)))

	return stddev / mean * 100
}
