// Package calendar proposes meeting slots for the dashboard's week view.
// The schedule is mock data: one slot per open opportunity, placed
// pseudo-randomly but deterministically for a given random source.
package calendar

import (
	"math/rand"
	"sort"
	"time"

	"sally/internal/models"
)

type Event struct {
	OpportunityID string    `json:"opportunity_id"`
	Title         string    `json:"title"`
	Stage         string    `json:"stage"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}

const slotDuration = time.Hour

// WeekStart normalizes an anchor date to Monday 00:00 UTC of its week.
func WeekStart(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, -(weekday - 1))
}

// WeekEvents lays one sync-call slot per open opportunity onto the work week
// starting at weekStart. Slots are drawn from rng (Mon-Fri, 09:00-16:00),
// then overlaps are removed by sorting on start time and pushing each
// colliding slot forward to the end of the previous one.
func WeekEvents(opps []models.Opportunity, weekStart time.Time, rng *rand.Rand) []Event {
	events := make([]Event, 0, len(opps))
	for i := range opps {
		o := &opps[i]
		if o.Closed() {
			continue
		}
		day := rng.Intn(5)
		hour := 9 + rng.Intn(8)
		start := weekStart.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
		events = append(events, Event{
			OpportunityID: o.UUID,
			Title:         o.CompanyName + " sync",
			Stage:         o.Stage,
			Start:         start,
			End:           start.Add(slotDuration),
		})
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	for i := 1; i < len(events); i++ {
		if events[i].Start.Before(events[i-1].End) {
			events[i].Start = events[i-1].End
			events[i].End = events[i].Start.Add(slotDuration)
		}
	}
	return events
}
