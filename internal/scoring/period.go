package scoring

import (
	"strings"
	"time"

	"github.com/Jair0305/battleship/internal/domain"
)

// Period tags accepted by the ranking API.
const (
	PeriodDay     = "dia"
	PeriodWeek    = "semana"
	PeriodMonth   = "mes"
	PeriodAllTime = "historico"
)

// Periods lists every supported window, in publish order.
var Periods = []string{PeriodDay, PeriodWeek, PeriodMonth, PeriodAllTime}

// Window is a half-open time range starting at Start. A zero Start covers all
// records.
type Window struct {
	Period string
	Start  time.Time
}

func (w Window) Contains(t time.Time) bool {
	return w.Start.IsZero() || !t.Before(w.Start)
}

func midnightUTC(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// WindowFor resolves a period tag relative to now.
func WindowFor(period string, now time.Time) (Window, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case PeriodDay:
		return Window{Period: p, Start: midnightUTC(now)}, nil
	case PeriodWeek:
		return Window{Period: p, Start: midnightUTC(now.AddDate(0, 0, -7))}, nil
	case PeriodMonth:
		return Window{Period: p, Start: midnightUTC(now.AddDate(0, 0, -30))}, nil
	case PeriodAllTime:
		return Window{Period: p}, nil
	}
	return Window{}, domain.ErrInvalidPeriod.Detail("unknown ranking period %q", period)
}
