package format

import (
	"fmt"
	"math"
	"time"

	"github.com/jabl/fancyquota/internal/quota"
)

var sizeSuffixes = []string{"", "k", "M", "G", "T", "P"}

// SizeToHuman scales bytes by powers of 1000 up to peta, e.g. 1500 -> "1.5k".
func SizeToHuman(bytes uint64) string {
	val := float64(bytes)
	i := 0
	for i < len(sizeSuffixes)-1 && val >= 1000 {
		val /= 1000
		i++
	}
	return fmt.Sprintf("%.1f%s", val, sizeSuffixes[i])
}

// GraceToHuman renders a deadline as the number of calendar days left
// relative to now, passes textual grace through and renders no grace as "".
func GraceToHuman(g quota.Grace, now time.Time) string {
	if epoch, ok := g.Deadline(); ok {
		return fmt.Sprintf("%ddays", daysBetween(now, time.Unix(epoch, 0)))
	}
	if text, ok := g.Text(); ok {
		return text
	}
	return ""
}

// daysBetween counts calendar days from a to b in a's location.
func daysBetween(a, b time.Time) int {
	b = b.In(a.Location())
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

// PercentUsed is used/soft*100, +Inf when soft is zero.
func PercentUsed(used, soft uint64) float64 {
	if soft == 0 {
		return math.Inf(1)
	}
	return float64(used) / float64(soft) * 100
}

// Percent renders a percentage without decimals.
func Percent(p float64) string {
	if math.IsInf(p, 1) {
		return "Inf"
	}
	return fmt.Sprintf("%.0f", p)
}
