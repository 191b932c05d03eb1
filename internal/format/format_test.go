package format_test

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/jabl/fancyquota/internal/format"
	"github.com/jabl/fancyquota/internal/quota"
	"github.com/stretchr/testify/assert"
)

func TestSizeToHuman(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    uint64
		expected string
	}{
		{0, "0.0"},
		{999, "999.0"},
		{1000, "1.0k"},
		{1500, "1.5k"},
		{1024 * 1024, "1.0M"},
		{2048 * 1024, "2.1M"},
		{1e9, "1.0G"},
		{1e12, "1.0T"},
		{1e15, "1.0P"},
		{2500e15, "2500.0P"},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, format.SizeToHuman(test.input), "SizeToHuman(%d)", test.input)
	}
}

func TestSizeToHuman_MonotonicWithinSuffix(t *testing.T) {
	t.Parallel()

	prev := format.SizeToHuman(1000)
	for v := uint64(1100); v < 1e6; v += 100 {
		cur := format.SizeToHuman(v)
		assert.GreaterOrEqual(t, len(cur), len(prev))
		if len(cur) == len(prev) {
			assert.GreaterOrEqual(t, cur, prev)
		}
		prev = cur
	}
}

func TestGraceToHuman(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)

	assert.Equal(t, "", format.GraceToHuman(quota.NoGrace, now))
	assert.Equal(t, "6days", format.GraceToHuman(quota.GraceText("6days"), now))
	assert.Equal(t, "none", format.GraceToHuman(quota.GraceText("none"), now))

	for _, n := range []int{0, 1, 7, 30} {
		deadline := now.AddDate(0, 0, n)
		got := format.GraceToHuman(quota.GraceDeadline(deadline.Unix()), now)
		assert.Equal(t, strconv.Itoa(n)+"days", got)
	}

	// calendar days, not 24h periods
	tomorrowEarly := time.Date(2026, 3, 11, 1, 0, 0, 0, time.Local)
	assert.Equal(t, "1days", format.GraceToHuman(quota.GraceDeadline(tomorrowEarly.Unix()), now))

	past := now.AddDate(0, 0, -2)
	assert.Equal(t, "-2days", format.GraceToHuman(quota.GraceDeadline(past.Unix()), now))
}

func TestPercentUsed(t *testing.T) {
	t.Parallel()

	assert.True(t, math.IsInf(format.PercentUsed(0, 0), 1))
	assert.True(t, math.IsInf(format.PercentUsed(10, 0), 1))
	assert.InDelta(t, 50.0, format.PercentUsed(50, 100), 1e-9)
	assert.InDelta(t, 150.0, format.PercentUsed(3, 2), 1e-9)

	assert.Equal(t, "Inf", format.Percent(math.Inf(1)))
	assert.Equal(t, "50", format.Percent(50))
}
