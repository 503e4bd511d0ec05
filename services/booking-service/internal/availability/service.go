package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability")

// Snapshot is everything a scan reads, taken from one consistent view.
type Snapshot struct {
	Week      schedule.Week
	Overrides []schedule.Override
	// Booked holds the intervals of scheduled appointments touching the range.
	Booked []schedule.Interval
}

type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, from, to clock.Date) (Snapshot, error)
}

type Config struct {
	Slots             SlotConfig
	DefaultWindowDays int
	MaxWindowDays     int
}

func (c Config) withDefaults() Config {
	c.Slots = c.Slots.WithDefaults()
	if c.DefaultWindowDays <= 0 {
		c.DefaultWindowDays = 30
	}
	if c.MaxWindowDays <= 0 {
		c.MaxWindowDays = 90
	}
	if c.DefaultWindowDays > c.MaxWindowDays {
		c.DefaultWindowDays = c.MaxWindowDays
	}
	return c
}

// Availability is the calendar for a window plus the slots of the selected day.
type Availability struct {
	Today     clock.Date
	Scan      ScanResult
	Selection Selection
	Slots     []time.Time
	Duration  time.Duration
}

type Service struct {
	reader  SnapshotReader
	clock   clock.Clock
	loc     *time.Location
	cfg     Config
	metrics *metrics.Metrics
}

func NewService(reader SnapshotReader, clk clock.Clock, loc *time.Location, cfg Config, m *metrics.Metrics) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{reader: reader, clock: clk, loc: loc, cfg: cfg.withDefaults(), metrics: m}
}

func (s *Service) SlotConfig() SlotConfig { return s.cfg.Slots }

// DefaultWindow asks Availability for the configured default window.
const DefaultWindow = -1

// Availability scans today plus windowDays following days, so 0 means today
// only. A negative windowDays uses the default; a requested date past the
// window widens it up to the configured maximum.
func (s *Service) Availability(ctx context.Context, requested *clock.Date, windowDays int) (Availability, error) {
	ctx, span := tracer.Start(ctx, "availability.scan")
	defer span.End()
	started := time.Now()

	now := s.clock.Now().In(s.loc)
	today := clock.DateOf(now)

	if windowDays < 0 {
		windowDays = s.cfg.DefaultWindowDays
	}
	if windowDays > s.cfg.MaxWindowDays {
		return Availability{}, &schedule.ValidationError{Field: "window_days", Msg: fmt.Sprintf("must be at most %d", s.cfg.MaxWindowDays)}
	}
	if requested != nil {
		ahead := today.DaysUntil(*requested)
		if ahead > s.cfg.MaxWindowDays {
			return Availability{}, &schedule.ValidationError{Field: "date", Msg: fmt.Sprintf("must be within %d days", s.cfg.MaxWindowDays)}
		}
		if ahead > windowDays {
			windowDays = ahead
		}
	}
	span.SetAttributes(attribute.Int("window_days", windowDays))

	to := today.AddDays(windowDays)
	snap, err := s.reader.ReadSnapshot(ctx, today, to)
	if err != nil {
		span.RecordError(err)
		return Availability{}, fmt.Errorf("read availability snapshot: %w", err)
	}

	booked := bookedByDate(snap.Booked, s.loc)

	result := Scan(ScanInput{
		From:       today,
		WindowDays: windowDays,
		Week:       snap.Week,
		Overrides:  snap.Overrides,
		Booked:     booked,
		Now:        now,
		Slots:      s.cfg.Slots,
		Loc:        s.loc,
	})
	sel := SelectDay(requested, today, result)

	out := Availability{Today: today, Scan: result, Selection: sel, Duration: s.cfg.Slots.Duration}
	if result.IsOpen(sel.Date) {
		r := schedule.NewResolver(snap.Week, snap.Overrides, s.loc).Resolve(sel.Date)
		out.Slots = GenerateSlots(r.Interval, booked[sel.Date], now, s.cfg.Slots)
	}

	s.metrics.ObserveScan(started, len(result.MisconfiguredDates))
	span.SetAttributes(
		attribute.String("selected_date", sel.Date.String()),
		attribute.Int("available_dates", len(result.AvailableDates)),
	)
	return out, nil
}

// bookedByDate files each interval under every date it covers.
func bookedByDate(intervals []schedule.Interval, loc *time.Location) map[clock.Date]BookedSet {
	booked := make(map[clock.Date]BookedSet)
	for _, iv := range intervals {
		start, end := iv.Start.In(loc), iv.End.In(loc)
		last := clock.DateOf(end.Add(-time.Nanosecond))
		for d := clock.DateOf(start); !d.After(last); d = d.AddDays(1) {
			set := booked[d]
			set.Add(start, end)
			booked[d] = set
		}
	}
	return booked
}
