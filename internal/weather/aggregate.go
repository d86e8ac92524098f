package weather

import "github.com/i474232898/climate-trip-planner/internal/common"

const dateLayout = "2006-01-02"

// Reduce collapses forecast samples into one DailyForecast per calendar day.
// TempMax is the highest sample maximum of the day, TempMin the lowest sample
// minimum, and Rain is set when any sample of the day reports rain.
// Days are returned in the order they first appear in samples, which is not
// necessarily chronological.
func Reduce(samples []Sample) []DailyForecast {
	type day struct {
		max  float64
		min  float64
		rain bool
	}

	var (
		order []string
		days  = make(map[string]*day)
	)

	for _, s := range samples {
		k := s.Time.Format(dateLayout)

		d, ok := days[k]
		if !ok {
			d = &day{max: s.TempMax, min: s.TempMin}
			days[k] = d
			order = append(order, k)
		}

		d.max = max(d.max, s.TempMax)
		d.min = min(d.min, s.TempMin)
		if s.Condition == ConditionRain {
			d.rain = true
		}
	}

	out := make([]DailyForecast, 0, len(order))
	for _, k := range order {
		d := days[k]
		out = append(out, DailyForecast{
			Date:    k,
			TempMax: common.RoundTo(d.max, 2),
			TempMin: common.RoundTo(d.min, 2),
			Rain:    d.rain,
		})
	}
	return out
}
