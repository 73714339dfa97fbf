// internal/auction/extension.go
package auction

import "time"

// Anti-snipe extension: a bid landing inside the trailing window pushes the
// deadline forward so the auction cannot be won by a last-second bid nobody
// could answer.
const (
	ExtensionWindow   = 5 * time.Minute
	ExtensionDuration = 5 * time.Minute
)

// ExtendDeadline returns the deadline that results from a bid accepted at
// "now". The deadline only ever moves forward.
func ExtendDeadline(endAt, now time.Time) (time.Time, bool) {
	if endAt.Sub(now) <= ExtensionWindow {
		return endAt.Add(ExtensionDuration), true
	}
	return endAt, false
}
