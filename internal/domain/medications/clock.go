package medications

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrBadClock = errors.New("invalid clock time")

// ClockTime es una hora del día sin fecha (HH:MM, 24h).
type ClockTime struct {
	Hour   int
	Minute int
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t ClockTime) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// ClockOf extrae la hora del día de un instante.
func ClockOf(at time.Time) ClockTime {
	return ClockTime{Hour: at.Hour(), Minute: at.Minute()}
}

// ParseClock acepta "HH:MM" (o "HH:MM:SS", ignorando segundos).
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return ClockTime{}, ErrBadClock
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, ErrBadClock
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, ErrBadClock
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}
