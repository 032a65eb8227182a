package domain

import "github.com/jonboulle/clockwork"

// clock stamps ProcessedAt on gridded profiles. Tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// MarkProcessed returns g with ProcessedAt set to the current UTC time.
func MarkProcessed(g GriddedProfile) GriddedProfile {
	g.ProcessedAt = clock.Now().UTC()
	return g
}
