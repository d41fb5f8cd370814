package bitrix

import (
	"context"
	"net/url"
	"time"
)

// offsetFormat serializes window bounds with an explicit UTC offset;
// a bare date would shift the window on portals in other zones.
const offsetFormat = "2006-01-02T15:04:05-07:00"

// CalendarOptions controls the event window query.
type CalendarOptions struct {
	// Location anchors "today". Required.
	Location *time.Location
	// Span is the window length from start of today. Defaults to 24h.
	Span time.Duration
	// CheckPermissions asks the portal to apply calendar ACLs server-side.
	CheckPermissions bool
}

// TodayEvents fetches the user's calendar events for today's window via
// calendar.event.get. The window is [start of today, start + span - 1s],
// both bounds in the configured timezone. A null result is an empty day,
// not an error.
func (c *Client) TodayEvents(ctx context.Context, userID string, opt CalendarOptions) ([]Event, error) {
	span := opt.Span
	if span <= 0 {
		span = 24 * time.Hour
	}
	loc := opt.Location
	if loc == nil {
		loc = time.UTC
	}

	now := c.now().In(loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	to := from.Add(span - time.Second)

	params := url.Values{}
	params.Set("type", "user")
	params.Set("ownerId", userID)
	params.Set("from", from.Format(offsetFormat))
	params.Set("to", to.Format(offsetFormat))
	if opt.CheckPermissions {
		params.Set("checkPermissions", "Y")
	} else {
		params.Set("checkPermissions", "N")
	}

	var events []Event
	if _, err := c.Call(ctx, MethodCalendarGet, params, &events); err != nil {
		return nil, err
	}
	return events, nil
}
