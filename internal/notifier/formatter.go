package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"WealthPulse/internal/collector"
	"WealthPulse/internal/model"
)

// FormatStaleAlert reports that a dataset is being served from an old snapshot.
func FormatStaleAlert(dataset model.Dataset, fetchedAt time.Time, cause error, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ <b>Stale market data</b> | %s\n\n", dataset)
	fmt.Fprintf(&b, "Showing last known values as of %s (%s old)\n",
		fetchedAt.In(model.IST).Format("2006-01-02 15:04 MST"), now.Sub(fetchedAt).Round(time.Minute))
	if cause != nil {
		fmt.Fprintf(&b, "Refresh error: %s\n", html.EscapeString(cause.Error()))
	}
	return b.String()
}

// FormatOutage reports that no provider and no snapshot could serve a dataset.
func FormatOutage(dataset model.Dataset, cause error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ <b>No data available</b> | %s\n\n", dataset)
	b.WriteString("Every provider failed and no previous snapshot exists.\n")
	if cause != nil {
		fmt.Fprintf(&b, "Last error: %s\n", html.EscapeString(cause.Error()))
	}
	return b.String()
}

// FormatRecommendations lists recommendations, highest priority first. It
// returns "" when there is nothing to report.
func FormatRecommendations(recs []model.Recommendation) string {
	if len(recs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("📌 <b>Portfolio recommendations</b>\n\n")
	for _, p := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
		for _, r := range recs {
			if r.Priority != p {
				continue
			}
			fmt.Fprintf(&b, "%s <b>%s</b>: %s\n", priorityIcon(p), html.EscapeString(r.Investment), html.EscapeString(r.Message))
		}
	}
	return b.String()
}

// FormatProbeReport summarizes a provider connectivity probe.
func FormatProbeReport(results []collector.ProbeResult) string {
	var b strings.Builder
	b.WriteString("🔌 <b>Provider status</b>\n")
	var current model.Dataset
	for _, r := range results {
		if r.Dataset != current {
			current = r.Dataset
			fmt.Fprintf(&b, "\n<b>%s</b>\n", current)
		}
		if r.OK {
			fmt.Fprintf(&b, "  ✅ %s (%d quotes, %s)\n", r.Adapter, r.Quotes, r.Latency.Round(time.Millisecond))
		} else {
			fmt.Fprintf(&b, "  ❌ %s: %s\n", r.Adapter, html.EscapeString(r.Error))
		}
	}
	return b.String()
}

func priorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}

// FormatRecovered reports that fresh data flows again for a dataset.
func FormatRecovered(dataset model.Dataset, source string) string {
	return fmt.Sprintf("✅ <b>Market data recovered</b> | %s\n\nServing fresh quotes from %s.\n", dataset, html.EscapeString(source))
}
