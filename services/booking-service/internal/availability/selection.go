package availability

import "github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"

// Notice explains why the selected day differs from the requested one.
type Notice string

const (
	NoticeNone          Notice = ""
	NoticeNotOpen       Notice = "not_open"
	NoticeFullyBooked   Notice = "fully_booked"
	// NoticeMisconfigured marks a requested date whose hours are broken, as
	// opposed to an ordinary closure.
	NoticeMisconfigured Notice = "misconfigured"
)

type Selection struct {
	Date   clock.Date
	Notice Notice
}

// SelectDay picks the day whose slots are shown.
//
//   - no request: the soonest available date, else today
//   - a past date is clamped to today before the checks below
//   - not open: redirect to the soonest available date with NoticeNotOpen,
//     or NoticeMisconfigured when the date's hours are broken
//   - open but full: redirect with NoticeFullyBooked
//
// Without a soonest available date the (clamped) request is kept.
func SelectDay(requested *clock.Date, today clock.Date, res ScanResult) Selection {
	if requested == nil {
		if res.SoonestAvailable != nil {
			return Selection{Date: *res.SoonestAvailable}
		}
		return Selection{Date: today}
	}

	d := *requested
	if d.Before(today) {
		d = today
	}

	var notice Notice
	switch {
	case isMisconfigured(res, d):
		notice = NoticeMisconfigured
	case !res.IsOpen(d):
		notice = NoticeNotOpen
	case !res.IsAvailable(d):
		notice = NoticeFullyBooked
	default:
		return Selection{Date: d}
	}

	sel := Selection{Date: d, Notice: notice}
	if res.SoonestAvailable != nil {
		sel.Date = *res.SoonestAvailable
	}
	return sel
}

func isMisconfigured(res ScanResult, d clock.Date) bool {
	status, ok := res.Day(d)
	return ok && status.State == DayMisconfigured
}
