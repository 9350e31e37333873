package engine

import (
	"fmt"
	"time"

	"github.com/scmhub/calendar"

	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// MarketClock decides whether NEPSE is currently trading. The schedule lives
// in config (Sun-Thu 11:00-15:00 NPT plus MM-DD holidays); when a calendar
// MIC is configured, trading-day decisions are delegated to the exchange
// calendar library instead. NPT has no DST, so a fixed UTC+5:45 zone is
// correct year-round.
// -----------------------------------------------------------------------------

type MarketClock struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Calendar *calendar.Calendar
	Location *time.Location

	// Now is the time source; tests replace it.
	Now func() time.Time
}

// -----------------------------------------------------------------------------

func NewMarketClock(cfg *models.MConfig, log *logger.Logger) *MarketClock {
	mc := &MarketClock{
		Config:   cfg,
		Logger:   log,
		Location: time.FixedZone("NPT", cfg.Market.TimezoneOffsetMinutes*60),
		Now:      time.Now,
	}

	if mic := cfg.Market.CalendarMIC; mic != "" {
		if cal := calendar.GetCalendar(mic); cal != nil {
			mc.Calendar = cal
			log.Info("Market clock using exchange calendar '%s'", mic)
		} else {
			log.Warning("Unknown calendar MIC '%s', using configured schedule", mic)
		}
	}

	return mc
}

// -----------------------------------------------------------------------------

// isTradingDay checks the weekday schedule and the MM-DD holiday list, or the
// exchange calendar when one is configured.
func (mc *MarketClock) isTradingDay(t time.Time) bool {
	if mc.Calendar != nil {
		return mc.Calendar.IsBusinessDay(t)
	}

	weekday := int(t.Weekday())
	found := false
	for _, d := range mc.Config.Market.TradingDays {
		if d == weekday {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	monthDay := t.Format("01-02")
	for _, h := range mc.Config.Market.Holidays {
		if h == monthDay {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

// isWithinHours checks [open, close) against minutes since local midnight.
func (mc *MarketClock) isWithinHours(t time.Time) bool {
	m := mc.Config.Market
	nowMin := t.Hour()*60 + t.Minute()
	openMin := m.OpenHour*60 + m.OpenMinute
	closeMin := m.CloseHour*60 + m.CloseMinute
	return nowMin >= openMin && nowMin < closeMin
}

// -----------------------------------------------------------------------------

func (mc *MarketClock) IsMarketOpen() bool {
	if mc.Config.Market.ForceOpen {
		return true
	}
	now := mc.Now().In(mc.Location)
	return mc.isTradingDay(now) && mc.isWithinHours(now)
}

// -----------------------------------------------------------------------------

// GetMarketStatus assembles the full status snapshot, including minutes to
// close while open and the next opening time while closed.
func (mc *MarketClock) GetMarketStatus() models.MMarketStatus {
	m := mc.Config.Market
	now := mc.Now().In(mc.Location)

	tradingDay := mc.isTradingDay(now)
	withinHours := mc.isWithinHours(now)
	isOpen := m.ForceOpen || (tradingDay && withinHours)

	status := models.MMarketStatus{
		IsOpen:        isOpen,
		IsTradingDay:  tradingDay,
		IsWithinHours: withinHours,
		CurrentTime:   now.Format("2006-01-02 15:04:05"),
		TradingHours: fmt.Sprintf("%02d:%02d - %02d:%02d NPT",
			m.OpenHour, m.OpenMinute, m.CloseHour, m.CloseMinute),
		TradingDays: mc.tradingDayNames(),
		ForceOpen:   m.ForceOpen,
	}

	if isOpen {
		close := time.Date(now.Year(), now.Month(), now.Day(),
			m.CloseHour, m.CloseMinute, 0, 0, mc.Location)
		remaining := close.Sub(now).Minutes()
		if remaining < 0 {
			remaining = 0
		}
		status.TimeToCloseMinutes = float64(int(remaining*10)) / 10
	} else if next, ok := mc.nextOpen(now); ok {
		status.NextOpen = next.Format("2006-01-02 15:04 NPT")
	}

	return status
}

// -----------------------------------------------------------------------------

// nextOpen finds the next session start, scanning up to two weeks ahead so a
// holiday cluster cannot loop forever.
func (mc *MarketClock) nextOpen(now time.Time) (time.Time, bool) {
	m := mc.Config.Market
	for i := 0; i < 14; i++ {
		day := now.AddDate(0, 0, i)
		open := time.Date(day.Year(), day.Month(), day.Day(),
			m.OpenHour, m.OpenMinute, 0, 0, mc.Location)
		if open.After(now) && mc.isTradingDay(open) {
			return open, true
		}
	}
	return time.Time{}, false
}

// -----------------------------------------------------------------------------

func (mc *MarketClock) tradingDayNames() string {
	names := ""
	for i, d := range mc.Config.Market.TradingDays {
		if d < 0 || d > 6 {
			continue
		}
		if i > 0 {
			names += ", "
		}
		names += time.Weekday(d).String()
	}
	return names
}
