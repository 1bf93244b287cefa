package service

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocknotifier/internal/domain/entity"
)

func growingDividends(start float64, years int) []entity.DividendPayment {
	payments := make([]entity.DividendPayment, 0, years+1)
	base := time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < years+1; i++ {
		payments = append(payments, entity.DividendPayment{
			ExDate: base.AddDate(i, 0, 0),
			Amount: start + float64(i)*5,
		})
	}
	return payments
}

func qualifyingStock(symbol string) entity.StockData {
	return entity.StockData{
		Symbol: symbol,
		Info: entity.FinancialInfo{
			Symbol:           symbol,
			Name:             "Test Industries",
			Price:            1200,
			PER:              10.0,
			PBR:              0.9,
			DividendYield:    3.5,
			AnnualRevenues:   []float64{100, 110, 125, 140},
			AnnualNetIncomes: []float64{10, 12, 14, 16},
			AnnualPERs:       []float64{9.5, 10.0, 10.5, 10.2},
		},
		Dividends: growingDividends(20, 4),
	}
}

func TestScreeningService_BasicCriteria(t *testing.T) {
	service := NewScreeningService(DefaultScreeningCriteria())

	tests := []struct {
		name   string
		mutate func(*entity.StockData)
		passes bool
	}{
		{"qualifying stock passes", func(_ *entity.StockData) {}, true},
		{"PER above ceiling fails", func(s *entity.StockData) { s.Info.PER = 15.1 }, false},
		{"PBR above ceiling fails", func(s *entity.StockData) { s.Info.PBR = 1.6 }, false},
		{"yield below floor fails", func(s *entity.StockData) { s.Info.DividendYield = 1.9 }, false},
		{"NaN PER fails", func(s *entity.StockData) { s.Info.PER = math.NaN() }, false},
		{"infinite PBR fails", func(s *entity.StockData) { s.Info.PBR = math.Inf(1) }, false},
		{"zero price fails", func(s *entity.StockData) { s.Info.Price = 0 }, false},
		{"negative price fails", func(s *entity.StockData) { s.Info.Price = -100 }, false},
		{"PER at ceiling passes", func(s *entity.StockData) { s.Info.PER = 15.0 }, true},
		{"yield at floor passes", func(s *entity.StockData) { s.Info.DividendYield = 2.0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stock := qualifyingStock("7203.T")
			tt.mutate(&stock)

			candidates := service.ScreenValueStocks([]entity.StockData{stock})
			if tt.passes {
				assert.Len(t, candidates, 1)
			} else {
				assert.Empty(t, candidates)
			}
		})
	}
}

func TestScreeningService_GrowthGates(t *testing.T) {
	service := NewScreeningService(DefaultScreeningCriteria())

	tests := []struct {
		name   string
		mutate func(*entity.StockData)
		passes bool
	}{
		{
			name:   "revenue growth streak too short",
			mutate: func(s *entity.StockData) { s.Info.AnnualRevenues = []float64{100, 110, 105, 140} },
			passes: false,
		},
		{
			name:   "profit growth streak too short",
			mutate: func(s *entity.StockData) { s.Info.AnnualNetIncomes = []float64{10, 9, 14, 16} },
			passes: false,
		},
		{
			name:   "dividend cut breaks the streak",
			mutate: func(s *entity.StockData) { s.Dividends[2].Amount = 10 },
			passes: false,
		},
		{
			name:   "too little dividend history",
			mutate: func(s *entity.StockData) { s.Dividends = s.Dividends[:1] },
			passes: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stock := qualifyingStock("7203.T")
			tt.mutate(&stock)

			assert.Empty(t, service.ScreenValueStocks([]entity.StockData{stock}))
		})
	}
}

func TestConsecutiveGrowthYears(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected int
	}{
		{"steady growth", []float64{100, 110, 120, 130}, 3},
		{"growth broken midway", []float64{100, 110, 105, 130}, 1},
		{"flat year breaks the streak", []float64{100, 100, 120}, 0},
		{"non-positive base breaks the streak", []float64{-5, 10, 20}, 0},
		{"too few values", []float64{100}, 0},
		{"empty series", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, consecutiveGrowthYears(tt.values))
		})
	}
}

func TestPerStability(t *testing.T) {
	t.Run("identical values have zero variation", func(t *testing.T) {
		assert.InDelta(t, 0, perStability([]float64{10, 10, 10}), 1e-9)
	})

	t.Run("known coefficient of variation", func(t *testing.T) {
		// mean 10, population stddev 2 -> 20%
		assert.InDelta(t, 20.0, perStability([]float64{8, 12}), 1e-9)
	})

	t.Run("negative values are discarded", func(t *testing.T) {
		assert.InDelta(t, 20.0, perStability([]float64{8, -3, 12, -1}), 1e-9)
	})

	t.Run("fewer than two usable values is unstable", func(t *testing.T) {
		assert.True(t, math.IsInf(perStability([]float64{10}), 1))
		assert.True(t, math.IsInf(perStability([]float64{-1, -2}), 1))
		assert.True(t, math.IsInf(perStability(nil), 1))
	})
}

func TestScreeningService_RankStocks(t *testing.T) {
	service := NewScreeningService(DefaultScreeningCriteria())

	cheap := entity.ValueStock{
		Symbol: "1001.T", PER: 8, PBR: 0.7, DividendYield: 4,
		DividendGrowthYears: 4, RevenueGrowthYears: 4, ProfitGrowthYears: 4,
		PERStability: 10,
	}
	expensive := entity.ValueStock{
		Symbol: "1002.T", PER: 14.5, PBR: 1.45, DividendYield: 2.1,
		DividendGrowthYears: 3, RevenueGrowthYears: 3, ProfitGrowthYears: 3,
		PERStability: 28,
	}

	ranked := service.RankStocks([]entity.ValueStock{expensive, cheap})

	require.Len(t, ranked, 2)
	assert.Equal(t, "1001.T", ranked[0].Symbol, "the cheaper stock must rank first")
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
	for _, stock := range ranked {
		assert.Greater(t, stock.Score, 0.0)
		assert.LessOrEqual(t, stock.Score, 115.0)
	}
}

func TestScreeningService_ScreenAndRankEndToEnd(t *testing.T) {
	service := NewScreeningService(DefaultScreeningCriteria())

	better := qualifyingStock("1001.T")
	better.Info.PER = 7
	worse := qualifyingStock("1002.T")
	worse.Info.PER = 14
	rejected := qualifyingStock("1003.T")
	rejected.Info.PBR = 2.5

	candidates := service.ScreenValueStocks([]entity.StockData{worse, rejected, better})

	require.Len(t, candidates, 2)
	assert.Equal(t, "1001.T", candidates[0].Symbol)
	assert.Equal(t, "1002.T", candidates[1].Symbol)
	assert.Equal(t, 4, candidates[0].DividendGrowthYears)
}

func TestLoadScreeningCriteria(t *testing.T) {
	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "criteria.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_per: 12\nmin_dividend_yield: 3.0\n"), 0o644))

		criteria, err := LoadScreeningCriteria(path)

		require.NoError(t, err)
		assert.InDelta(t, 12.0, criteria.MaxPER, 1e-9)
		assert.InDelta(t, 3.0, criteria.MinDividendYield, 1e-9)
		assert.InDelta(t, 1.5, criteria.MaxPBR, 1e-9, "omitted fields keep their defaults")
	})

	t.Run("missing file returns an error", func(t *testing.T) {
		_, err := LoadScreeningCriteria(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "criteria.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_per: -1\n"), 0o644))

		_, err := LoadScreeningCriteria(path)
		assert.Error(t, err)
	})
}

func TestScreeningCriteria_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScreeningCriteria)
		wantErr bool
	}{
		{"defaults are valid", func(_ *ScreeningCriteria) {}, false},
		{"non-positive PER ceiling", func(c *ScreeningCriteria) { c.MaxPER = 0 }, true},
		{"non-positive PBR ceiling", func(c *ScreeningCriteria) { c.MaxPBR = -1 }, true},
		{"negative yield floor", func(c *ScreeningCriteria) { c.MinDividendYield = -0.5 }, true},
		{"negative growth years", func(c *ScreeningCriteria) { c.MinGrowthYears = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria := DefaultScreeningCriteria()
			tt.mutate(&criteria)

			err := criteria.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
