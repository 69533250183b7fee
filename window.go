package proximity

import "time"

const (
	ENIntervalLength  = 10 * time.Minute
	ENIntervalSeconds = int64(ENIntervalLength / time.Second)
	ENIntervalsPerDay = int(24 * time.Hour / ENIntervalLength)

	// MaxScheduleWindows caps identifier schedules at one closed day.
	MaxScheduleWindows = ENIntervalsPerDay + 1

	EpochLength  = 15 * time.Minute
	EpochsPerDay = int(24 * time.Hour / EpochLength)
)

// ENIntervalNumber floors unix time to its 10-minute interval.
func ENIntervalNumber(unixSeconds int64) int64 {
	n := unixSeconds / ENIntervalSeconds
	if unixSeconds%ENIntervalSeconds < 0 {
		n--
	}
	return n
}

// EpochOfDay returns the UTC 15-minute epoch t falls into, in [0, EpochsPerDay).
func EpochOfDay(t time.Time) int {
	u := t.UTC()
	return int(u.Sub(DayStart(u)) / EpochLength)
}

func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// CalculateKeyRotation returns how many rotation windows of rotationDuration
// the closed range [from, to] touches, and the index of the first one counted
// from initialTime.
func CalculateKeyRotation(from, to, initialTime time.Time, rotationDuration time.Duration) (int, int) {
	realFrom := initialTime.Add(from.Sub(initialTime).Truncate(rotationDuration))
	if realFrom.Before(initialTime) {
		realFrom = initialTime
	}
	if to.Before(realFrom) {
		return 0, int(realFrom.Sub(initialTime) / rotationDuration)
	}

	rotationsFrom := int(realFrom.Sub(initialTime) / rotationDuration)
	rotationsTo := int(to.Sub(initialTime) / rotationDuration)

	return rotationsTo - rotationsFrom + 1, rotationsFrom
}
