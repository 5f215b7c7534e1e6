package playback

import (
	"fmt"
	"math"
)

// PlaybackRatePresets are the rates offered to listeners.
var PlaybackRatePresets = []float64{0.5, 0.75, 1, 1.25, 1.5, 1.75, 2}

// FormatTime renders seconds as "M:SS", or "H:MM:SS" from one hour up.
// Non-finite and negative values render as "0:00".
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	total := int64(math.Floor(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
