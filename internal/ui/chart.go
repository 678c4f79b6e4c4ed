package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/nimbus/internal/dashboard"
)

// blocks are the eight vertical eighths used by sparklines and bars.
var blocks = []rune("▁▂▃▄▅▆▇█")

// resample averages values into at most width buckets. Shorter input is
// returned unchanged.
func resample(values []float64, width int) []float64 {
	n := len(values)
	if width <= 0 || n <= width {
		return values
	}
	out := make([]float64, width)
	for i := range out {
		lo := i * n / width
		hi := (i + 1) * n / width
		var sum float64
		for _, v := range values[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

// fit resamples values down to width, or repeats each value so short
// series fill the width. A non-positive width keeps values as they are.
func fit(values []float64, width int) []float64 {
	n := len(values)
	if width <= 0 || n == 0 || n == width {
		return values
	}
	if n > width {
		return resample(values, width)
	}
	k := width / n
	out := make([]float64, 0, n*k)
	for _, v := range values {
		for range k {
			out = append(out, v)
		}
	}
	return out
}

// sparkline draws values as one row of block characters scaled between the
// series minimum and maximum. A flat series sits at mid height.
func sparkline(values []float64, width int) string {
	values = fit(values, width)
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	var b strings.Builder
	for _, v := range values {
		idx := len(blocks)/2 - 1
		if hi > lo {
			idx = int(math.Round((v - lo) / (hi - lo) * float64(len(blocks)-1)))
		}
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

// barChart draws values as vertical bars height rows tall, scaled from zero
// to the maximum. Rows are returned top first.
func barChart(values []float64, width, height int) []string {
	values = fit(values, width)
	if len(values) == 0 || height <= 0 {
		return nil
	}
	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, v)
	}

	eighths := len(blocks)
	levels := make([]int, len(values))
	if peak > 0 {
		for i, v := range values {
			levels[i] = int(math.Round(math.Max(v, 0) / peak * float64(height*eighths)))
		}
	}

	rows := make([]string, height)
	for r := range rows {
		floor := (height - 1 - r) * eighths
		var b strings.Builder
		for _, lvl := range levels {
			fill := lvl - floor
			switch {
			case fill <= 0:
				b.WriteRune(' ')
			case fill >= eighths:
				b.WriteRune(blocks[eighths-1])
			default:
				b.WriteRune(blocks[fill-1])
			}
		}
		rows[r] = b.String()
	}
	return rows
}

// renderSeries renders a titled chart for one forecast series. Temperature
// and wind use sparklines; precipitation uses bars.
func renderSeries(s dashboard.Series, color string, bars bool, width int, styles Styles) string {
	title := styles.AccentText.Bold(true).Render(s.Label) + " " +
		styles.FaintText.Render(fmt.Sprintf("(%s)", s.Unit))
	if len(s.Values) == 0 {
		return title + "\n" + styles.FaintText.Render("no forecast")
	}

	rangeText := styles.MutedText.Render(fmt.Sprintf("%.1f to %.1f", s.Min(), s.Max()))
	chartStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color))

	var body string
	if bars {
		body = chartStyle.Render(strings.Join(barChart(s.Values, width, 3), "\n"))
	} else {
		body = chartStyle.Render(sparkline(s.Values, width))
	}

	axis := ""
	if len(s.Times) > 0 {
		first := s.Times[0].Format("15:04")
		last := s.Times[len(s.Times)-1].Format("15:04")
		span := len(fit(s.Values, width))
		axis = styles.FaintText.Render(first + strings.Repeat(" ", max(span-len(first)-len(last), 1)) + last)
	}

	return title + "  " + rangeText + "\n" + body + "\n" + axis
}
