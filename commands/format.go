package commands

import (
	"fmt"
	"time"
)

// fmtBigNum renders n with a k/M/B suffix the way the original's
// fmt_big_num helper does, for trailing summary log lines like
// "deleted 1.2k objects in 3s".
func fmtBigNum(n int64) string {
	neg := ""
	if n < 0 {
		neg = "-"
		n = -n
	}
	switch {
	case n < 1000:
		return fmt.Sprintf("%s%d", neg, n)
	case n < 1000*1000:
		return fmt.Sprintf("%s%.1fk", neg, float64(n)/1000)
	case n < 1000*1000*1000:
		return fmt.Sprintf("%s%.1fM", neg, float64(n)/(1000*1000))
	default:
		return fmt.Sprintf("%s%.1fB", neg, float64(n)/(1000*1000*1000))
	}
}

// fmtDuration renders d the way the original's fmt_duration helper
// does: whole seconds below a minute, "Xm Ys" beyond it.
func fmtDuration(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}
