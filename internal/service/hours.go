package service

import (
	"time"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
)

// HoursGate evaluates a channel number's work schedule. Instants outside the
// schedule suppress auto-routing in favor of the out-of-work notice.
type HoursGate struct {
	location *time.Location
}

// NewHoursGate constructs the gate. Evaluation happens in the given location;
// nil means the process local time.
func NewHoursGate(location *time.Location) *HoursGate {
	if location == nil {
		location = time.Local
	}
	return &HoursGate{location: location}
}

// IsWithinBusinessHours reports whether now falls inside the channel number's
// configured window. A disabled schedule admits every instant, as does a
// window that fails to parse.
func (g *HoursGate) IsWithinBusinessHours(channelNumber *domain.ChannelNumber, now time.Time) bool {
	schedule := channelNumber.Schedule
	if !schedule.Enabled {
		return true
	}

	now = now.In(g.location)
	if !schedule.Days[now.Weekday()] {
		return false
	}

	start, end := schedule.StartHour, schedule.EndHour
	if isWeekend(now.Weekday()) && schedule.WeekendStart != "" && schedule.WeekendEnd != "" {
		start, end = schedule.WeekendStart, schedule.WeekendEnd
	}

	startAt, ok := atClock(now, start)
	if !ok {
		return true
	}
	endAt, ok := atClock(now, end)
	if !ok {
		return true
	}
	return !now.Before(startAt) && now.Before(endAt)
}

func isWeekend(day time.Weekday) bool {
	return day == time.Saturday || day == time.Sunday
}

// atClock anchors an "HH:MM" clock string on now's date.
func atClock(now time.Time, value string) (time.Time, bool) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location()), true
}
