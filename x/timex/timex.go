package timex

import "time"

// Ms returns whole milliseconds of an uptime duration.
func Ms(d time.Duration) int64 { return int64(d / time.Millisecond) }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

// MHz converts a frequency in Hz to whole megahertz (truncating).
func MHz(hz uint32) uint32 { return hz / 1_000_000 }
