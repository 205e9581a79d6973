package calendar

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sally/internal/models"
)

func sampleOpps() []models.Opportunity {
	return []models.Opportunity{
		{UUID: "a", CompanyName: "Acme", Stage: models.StageDiscovery},
		{UUID: "b", CompanyName: "Globex", Stage: models.StageProposal},
		{UUID: "c", CompanyName: "Initech", Stage: models.StageNegotiation},
		{UUID: "d", CompanyName: "Umbrella", Stage: models.StageClosedWon},
		{UUID: "e", CompanyName: "Hooli", Stage: models.StageClosedLost},
		{UUID: "f", CompanyName: "Stark", Stage: models.StageDiscovery},
	}
}

func TestWeekStartIsMonday(t *testing.T) {
	// 2026-01-07 is a Wednesday
	wed := time.Date(2026, 1, 7, 15, 30, 0, 0, time.UTC)
	start := WeekStart(wed)
	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), start)

	// Sunday belongs to the week that started the previous Monday
	sun := time.Date(2026, 1, 11, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, start, WeekStart(sun))

	// Monday maps to itself
	assert.Equal(t, start, WeekStart(start))
}

func TestWeekEventsDeterministic(t *testing.T) {
	week := WeekStart(time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC))

	a := WeekEvents(sampleOpps(), week, rand.New(rand.NewSource(42)))
	b := WeekEvents(sampleOpps(), week, rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b, "same seed, same schedule")
}

func TestWeekEventsSkipsClosed(t *testing.T) {
	week := WeekStart(time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC))
	events := WeekEvents(sampleOpps(), week, rand.New(rand.NewSource(1)))

	require.Len(t, events, 4, "closed opportunities get no slot")
	for _, e := range events {
		assert.NotEqual(t, "d", e.OpportunityID)
		assert.NotEqual(t, "e", e.OpportunityID)
	}
}

func TestWeekEventsSortedAndNonOverlapping(t *testing.T) {
	week := WeekStart(time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC))

	// many opportunities force collisions
	var opps []models.Opportunity
	for i := 0; i < 40; i++ {
		opps = append(opps, models.Opportunity{
			UUID:        string(rune('A' + i)),
			CompanyName: "Co",
			Stage:       models.StageDiscovery,
		})
	}

	for seed := int64(0); seed < 10; seed++ {
		events := WeekEvents(opps, week, rand.New(rand.NewSource(seed)))
		for i := 1; i < len(events); i++ {
			assert.False(t, events[i].Start.Before(events[i-1].Start), "sorted by start")
			assert.False(t, events[i].Start.Before(events[i-1].End), "no overlap")
		}
	}
}

func TestWeekEventsSlotShape(t *testing.T) {
	week := WeekStart(time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC))
	events := WeekEvents(sampleOpps(), week, rand.New(rand.NewSource(7)))

	for _, e := range events {
		assert.Equal(t, slotDuration, e.End.Sub(e.Start))
		assert.False(t, e.Start.Before(week))
		assert.NotEmpty(t, e.Title)
	}
}
