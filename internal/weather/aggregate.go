package weather

import (
	"sort"
	"time"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/common"
)

const dateLayout = "2006-01-02"

type dailySample struct {
	date time.Time
	mean float64
}

// AggregateMonthly reduces daily mean temperatures into per-month averages.
// Samples are bucketed by month label (years collapsed), averaged and rounded
// to one decimal. Output order is the first occurrence of each month when the
// samples are read in date order. Unparsable dates and unpaired values are skipped.
func AggregateMonthly(dates []string, means []float64) MonthlyAverages {
	n := min(len(dates), len(means))

	samples := make([]dailySample, 0, n)
	for i := 0; i < n; i++ {
		d, err := time.Parse(dateLayout, dates[i])
		if err != nil {
			continue
		}
		samples = append(samples, dailySample{date: d, mean: means[i]})
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].date.Before(samples[j].date)
	})

	type bucket struct {
		sum   float64
		count int
	}

	var order []string
	buckets := make(map[string]*bucket)
	for _, s := range samples {
		label := s.date.Format("Jan")
		b, ok := buckets[label]
		if !ok {
			b = &bucket{}
			buckets[label] = b
			order = append(order, label)
		}
		b.sum += s.mean
		b.count++
	}

	out := make(MonthlyAverages, 0, len(order))
	for _, label := range order {
		b := buckets[label]
		out = append(out, MonthlyAverage{
			Month: label,
			AvgC:  common.RoundHalfAwayFromZero(b.sum/float64(b.count), 1),
		})
	}

	return out
}
