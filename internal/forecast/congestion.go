package forecast

import "github.com/smartcity/traffic/internal/domain"

// Classify maps a speed in km/h to a congestion state.
// Each band is closed on its lower bound.
func Classify(speed float64) domain.CongestionState {
	switch {
	case speed >= 50:
		return domain.CongestionFreeFlow
	case speed >= 35:
		return domain.CongestionLight
	case speed >= 20:
		return domain.CongestionModerate
	case speed >= 10:
		return domain.CongestionHeavy
	default:
		return domain.CongestionSevere
	}
}
