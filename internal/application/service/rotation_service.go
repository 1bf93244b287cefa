package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stocknotifier/internal/application/common/logging"
)

// RotationConfig configures the symbol rotation schedule.
type RotationConfig struct {
	Enabled     bool `json:"enabled"     yaml:"enabled"`
	TotalGroups int  `json:"total_groups" yaml:"total_groups"`
}

// DefaultRotationConfig returns a five-group weekday rotation.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{Enabled: false, TotalGroups: 5}
}

// GroupInfo describes the rotation group selected for a date.
type GroupInfo struct {
	GroupIndex  int    `json:"group_index"`
	GroupNumber int    `json:"group_number"` // 1-based for display
	TotalGroups int    `json:"total_groups"`
	Weekday     string `json:"weekday"`
	Date        string `json:"date"`
	IsWeekday   bool   `json:"is_weekday"`
	Progress    string `json:"progress"`
}

// RotationValidation reports whether a symbol universe splits evenly.
type RotationValidation struct {
	Valid               bool   `json:"valid"`
	Error               string `json:"error,omitempty"`
	TotalSymbols        int    `json:"total_symbols"`
	TotalGroups         int    `json:"total_groups"`
	MaxGroupSize        int    `json:"max_group_size"`
	MinGroupSize        int    `json:"min_group_size"`
	EstimatedDailyCount int    `json:"estimated_daily_count"`
	CoverageDays        int    `json:"coverage_days"`
}

// RotationService splits the symbol universe into equal groups and selects
// the group of the day, so the full universe is covered across the week
// without exceeding the provider's daily budget. Grouping is deterministic:
// the same universe always yields the same groups.
type RotationService struct {
	config RotationConfig
	logger logging.ApplicationLogger
}

// NewRotationService creates a rotation service.
func NewRotationService(config RotationConfig, logger logging.ApplicationLogger) *RotationService {
	if config.TotalGroups <= 0 {
		config.TotalGroups = DefaultRotationConfig().TotalGroups
	}
	return &RotationService{config: config, logger: logger}
}

// Enabled reports whether rotation is active.
func (s *RotationService) Enabled() bool { return s.config.Enabled }

// SplitIntoGroups distributes symbols round-robin over sorted input, so
// group sizes differ by at most one and grouping is reproducible.
func (s *RotationService) SplitIntoGroups(symbols []string) [][]string {
	groups := make([][]string, s.config.TotalGroups)
	if len(symbols) == 0 {
		return groups
	}

	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	for i, symbol := range sorted {
		idx := i % s.config.TotalGroups
		groups[idx] = append(groups[idx], symbol)
	}
	return groups
}

// GroupIndexFor maps a date's weekday to a group index. Weekend dates fall
// back to Monday's group.
func (s *RotationService) GroupIndexFor(date time.Time) int {
	// time.Weekday counts Sunday as 0; the schedule counts Monday as 0.
	weekday := int(date.Weekday()) - 1
	if weekday < 0 || weekday > 4 {
		return 0
	}
	return weekday % s.config.TotalGroups
}

// SymbolsFor returns the rotation group to screen on the given date.
func (s *RotationService) SymbolsFor(ctx context.Context, symbols []string, date time.Time) []string {
	groups := s.SplitIntoGroups(symbols)
	idx := s.GroupIndexFor(date)
	selected := groups[idx]

	if s.logger != nil {
		s.logger.Info(ctx, "Rotation group selected", logging.Fields{
			"date":         date.Format("2006-01-02"),
			"group_index":  idx,
			"total_groups": s.config.TotalGroups,
			"group_size":   len(selected),
			"universe":     len(symbols),
		})
	}
	return selected
}

// GroupInfoFor describes the group selected for a date, for notifications
// and the rotation command.
func (s *RotationService) GroupInfoFor(date time.Time) GroupInfo {
	idx := s.GroupIndexFor(date)
	weekday := date.Weekday()
	isWeekday := weekday >= time.Monday && weekday <= time.Friday

	return GroupInfo{
		GroupIndex:  idx,
		GroupNumber: idx + 1,
		TotalGroups: s.config.TotalGroups,
		Weekday:     weekday.String(),
		Date:        date.Format("2006-01-02"),
		IsWeekday:   isWeekday,
		Progress:    fmt.Sprintf("%s group (%d/%d)", weekday.String(), idx+1, s.config.TotalGroups),
	}
}

// ValidateSetup checks that a universe splits into acceptably even groups.
func (s *RotationService) ValidateSetup(symbols []string) RotationValidation {
	if len(symbols) == 0 {
		return RotationValidation{
			Valid:       false,
			Error:       "no symbols provided for validation",
			TotalGroups: s.config.TotalGroups,
		}
	}

	groups := s.SplitIntoGroups(symbols)
	maxSize, minSize := 0, len(symbols)
	for _, group := range groups {
		if len(group) > maxSize {
			maxSize = len(group)
		}
		if len(group) < minSize {
			minSize = len(group)
		}
	}

	validation := RotationValidation{
		Valid:               maxSize-minSize <= 1,
		TotalSymbols:        len(symbols),
		TotalGroups:         s.config.TotalGroups,
		MaxGroupSize:        maxSize,
		MinGroupSize:        minSize,
		EstimatedDailyCount: len(symbols) / s.config.TotalGroups,
		CoverageDays:        s.config.TotalGroups,
	}
	if !validation.Valid {
		validation.Error = fmt.Sprintf(
			"uneven distribution: max group %d, min group %d", maxSize, minSize)
	}
	return validation
}
