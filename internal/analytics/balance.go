package analytics

import (
	"time"

	"ledgerdash/internal/core"
)

// ReconstructBalances derives a closing balance for every bucket from one
// known balance.
//
// anchor is the balance holding at anchorDate. The bucket containing
// anchorDate (or the nearest later one; the last one if anchorDate is past
// the series) receives the anchor value. Earlier buckets are filled by
// walking backward and subtracting each bucket's net delta; later buckets
// by adding theirs. Buckets must be in chronological order.
func ReconstructBalances(anchor core.Money, anchorDate time.Time, buckets []core.Bucket) []core.BalancePoint {
	if len(buckets) == 0 {
		return []core.BalancePoint{{Date: anchorDate, Balance: anchor}}
	}

	ai := anchorIndex(anchorDate, buckets)
	points := make([]core.BalancePoint, len(buckets))

	running := anchor
	for i := ai; i >= 0; i-- {
		points[i] = core.BalancePoint{Date: buckets[i].Start, Balance: running}
		running = running.Sub(buckets[i].Net())
	}

	running = anchor
	for i := ai + 1; i < len(buckets); i++ {
		running = running.Add(buckets[i].Net())
		points[i] = core.BalancePoint{Date: buckets[i].Start, Balance: running}
	}
	return points
}

// anchorIndex finds the bucket holding t, clamping to the nearest later bucket.
func anchorIndex(t time.Time, buckets []core.Bucket) int {
	for i, b := range buckets {
		if b.Contains(t) || t.Before(b.Start) {
			return i
		}
	}
	return len(buckets) - 1
}

// ReplayForward applies each bucket's net delta after the first to start,
// returning the running balance at every bucket. It is the inverse of the
// backward walk in ReconstructBalances.
func ReplayForward(start core.Money, buckets []core.Bucket) []core.Money {
	out := make([]core.Money, len(buckets))
	running := start
	for i, b := range buckets {
		if i > 0 {
			running = running.Add(b.Net())
		}
		out[i] = running
	}
	return out
}

// OpeningBalance is the balance before the first bucket's activity.
func OpeningBalance(points []core.BalancePoint, buckets []core.Bucket) core.Money {
	if len(points) == 0 || len(buckets) == 0 {
		return core.Money{}
	}
	return points[0].Balance.Sub(buckets[0].Net())
}
