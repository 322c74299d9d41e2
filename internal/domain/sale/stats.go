package sale

import (
	"fmt"
	"time"

	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/validation"
)

// Timeframe selects the bucket width of the sales dashboard.
type Timeframe string

const (
	TimeframeDay   Timeframe = "day"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
)

// ParseTimeframe defaults to month when s is empty.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case "":
		return TimeframeMonth, nil
	case TimeframeDay, TimeframeMonth, TimeframeYear:
		return Timeframe(s), nil
	default:
		return "", validation.NewError("timeframe", "must be one of day month year")
	}
}

// Since returns the start of the reporting window ending at now:
// 30 days, 12 months or 5 years.
func (tf Timeframe) Since(now time.Time) time.Time {
	y, m, d := now.Date()
	switch tf {
	case TimeframeDay:
		return time.Date(y, m, d-30, 0, 0, 0, 0, now.Location())
	case TimeframeYear:
		return time.Date(y-5, time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(y, m-12, 1, 0, 0, 0, 0, now.Location())
	}
}

// Key is the bucket label for t.
func (tf Timeframe) Key(t time.Time) string {
	switch tf {
	case TimeframeDay:
		return t.Format("2006-01-02")
	case TimeframeYear:
		return fmt.Sprintf("%04d", t.Year())
	default:
		return t.Format("2006-01")
	}
}

// Bucket is one point of the sales chart.
type Bucket struct {
	Period       string      `json:"date"`
	Amount       money.Money `json:"amount"`
	Transactions int         `json:"transactions"`
}

// Aggregate groups sales into buckets. sales must be ordered by CreatedAt
// ascending; the buckets keep that order and empty periods are omitted.
func Aggregate(sales []*Sale, tf Timeframe, loc *time.Location) []Bucket {
	buckets := make([]Bucket, 0)
	index := make(map[string]int)
	for _, s := range sales {
		key := tf.Key(s.CreatedAt.In(loc))
		i, ok := index[key]
		if !ok {
			buckets = append(buckets, Bucket{Period: key})
			i = len(buckets) - 1
			index[key] = i
		}
		buckets[i].Amount = buckets[i].Amount.Add(s.Amount)
		buckets[i].Transactions++
	}
	return buckets
}
