package xrpl

import "time"

// RippleEpochOffset is the Unix time of 2000-01-01T00:00:00Z.
const RippleEpochOffset = 946684800

// FromRippleTime converts seconds since the Ripple epoch to UTC time.
func FromRippleTime(sec int64) time.Time {
	return time.Unix(sec+RippleEpochOffset, 0).UTC()
}

// ToRippleTime converts a time to seconds since the Ripple epoch.
func ToRippleTime(t time.Time) int64 {
	return t.Unix() - RippleEpochOffset
}
