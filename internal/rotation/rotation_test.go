package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/jobs-newsroom/internal/types"
)

func ptr[T any](v T) *T { return &v }

func TestNextContentType_NoPriorState(t *testing.T) {
	assert.Equal(t, types.ContentTypeRoundup, NextContentType(types.GenerationState{}))
}

func TestNextContentType_Cycles(t *testing.T) {
	tests := []struct {
		last types.ContentType
		want types.ContentType
	}{
		{types.ContentTypeRoundup, types.ContentTypeSpotlight},
		{types.ContentTypeSpotlight, types.ContentTypeTrend},
		{types.ContentTypeTrend, types.ContentTypeRoundup},
	}

	for _, tt := range tests {
		t.Run(string(tt.last), func(t *testing.T) {
			state := types.GenerationState{LastContentType: ptr(tt.last)}
			assert.Equal(t, tt.want, NextContentType(state))
		})
	}
}

func TestNextContentType_UnknownRestartsCycle(t *testing.T) {
	state := types.GenerationState{LastContentType: ptr(types.ContentType("retired_type"))}
	assert.Equal(t, types.ContentTypeRoundup, NextContentType(state))
}

func TestNextContentType_PeriodEqualsSetSize(t *testing.T) {
	var state types.GenerationState
	var seen []types.ContentType

	n := len(types.ContentTypeRotation)
	for i := 0; i < 3*n; i++ {
		next := NextContentType(state)
		seen = append(seen, next)
		state.LastContentType = ptr(next)
	}

	for i := range seen {
		assert.Equal(t, types.ContentTypeRotation[i%n], seen[i], "position %d", i)
	}
}

func TestNextCategory_EmptyCountsPicksFirst(t *testing.T) {
	assert.Equal(t, types.CategoryFinance, NextCategory(nil))
	assert.Equal(t, types.CategoryFinance, NextCategory(map[types.Category]int{}))
}

func TestNextCategory_PicksMinimum(t *testing.T) {
	counts := map[types.Category]int{
		types.CategoryFinance:     4,
		types.CategoryMarketing:   3,
		types.CategoryEngineering: 1,
		types.CategoryOperations:  2,
		types.CategorySales:       5,
		types.CategoryGeneral:     6,
	}
	assert.Equal(t, types.CategoryEngineering, NextCategory(counts))
}

func TestNextCategory_TieBreaksOnCanonicalOrder(t *testing.T) {
	counts := map[types.Category]int{
		types.CategoryFinance:     2,
		types.CategoryMarketing:   2,
		types.CategoryEngineering: 2,
		types.CategoryOperations:  1,
		types.CategorySales:       1,
		types.CategoryGeneral:     1,
	}
	assert.Equal(t, types.CategoryOperations, NextCategory(counts))
}

func TestNextCategory_MissingCategoryCountsAsZero(t *testing.T) {
	counts := map[types.Category]int{
		types.CategoryFinance:   1,
		types.CategoryMarketing: 1,
	}
	assert.Equal(t, types.CategoryEngineering, NextCategory(counts))
}

func TestNextCategory_IgnoresHR(t *testing.T) {
	counts := map[types.Category]int{types.CategoryHR: 0, types.CategoryFinance: 1}
	got := NextCategory(counts)
	assert.NotEqual(t, types.CategoryHR, got)
	assert.Equal(t, types.CategoryMarketing, got)
}

func TestNextCategory_ResultIsAlwaysMinimal(t *testing.T) {
	counts := map[types.Category]int{}
	for round := 0; round < 20; round++ {
		got := NextCategory(counts)
		for _, c := range types.CategoryRotation {
			assert.LessOrEqual(t, counts[got], counts[c])
		}
		counts[got]++
	}
	// Twenty roundups over six categories: no category is more than one ahead.
	for _, c := range types.CategoryRotation {
		assert.InDelta(t, 20.0/6.0, float64(counts[c]), 1.0)
	}
}

func TestCadence_ShouldRun(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCadence(time.Hour)

	tests := []struct {
		name string
		last *time.Time
		want bool
	}{
		{"no prior run", nil, true},
		{"ten minutes ago", ptr(now.Add(-10 * time.Minute)), false},
		{"just under interval", ptr(now.Add(-time.Hour + time.Second)), false},
		{"exactly interval", ptr(now.Add(-time.Hour)), true},
		{"well past interval", ptr(now.Add(-3 * time.Hour)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := types.GenerationState{LastGeneratedAt: tt.last}
			assert.Equal(t, tt.want, c.ShouldRun(state, now))
		})
	}
}

func TestCadence_DefaultsInterval(t *testing.T) {
	assert.Equal(t, DefaultMinInterval, NewCadence(0).MinInterval)
	assert.Equal(t, DefaultMinInterval, NewCadence(-time.Minute).MinInterval)
	assert.Equal(t, 30*time.Minute, NewCadence(30*time.Minute).MinInterval)
}

func TestCadence_NextAllowedAt(t *testing.T) {
	c := NewCadence(time.Hour)
	assert.True(t, c.NextAllowedAt(types.GenerationState{}).IsZero())

	last := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	got := c.NextAllowedAt(types.GenerationState{LastGeneratedAt: &last})
	assert.Equal(t, last.Add(time.Hour), got)
}
