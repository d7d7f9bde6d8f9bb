package pipeline

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jobinsight/jobinsight/internal/aggregator"
)

const emptySummaryLine = "No recorded activity in this period."

// Summary is the bounded textual form of the bucket list that gets embedded
// in the LLM prompt. Text never exceeds the budget it was built with.
type Summary struct {
	Text     string
	Included int
	RolledUp int
}

// Compress serializes buckets in input order (already sorted by importance)
// until the budget is reached. Buckets that do not fit are rolled into a
// single trailing line so the prompt still records what was excluded. The
// first bucket always appears, truncated if its own line exceeds the budget.
func Compress(buckets []aggregator.Bucket, budget int) Summary {
	if len(buckets) == 0 {
		text := emptySummaryLine
		if budget > 0 && len(text) > budget {
			text = truncateLine(text, budget)
		}
		return Summary{Text: text}
	}

	var lines []string
	used := 0
	included := 0

	for included < len(buckets) {
		line := formatBucket(buckets[included])
		cost := len(line)
		if len(lines) > 0 {
			cost++
		}
		if used+cost > budget {
			break
		}
		lines = append(lines, line)
		used += cost
		included++
	}

	if included == 0 {
		return Summary{
			Text:     truncateLine(formatBucket(buckets[0]), budget),
			Included: 1,
			RolledUp: len(buckets) - 1,
		}
	}

	rolled := len(buckets) - included
	if rolled == 0 {
		return Summary{Text: strings.Join(lines, "\n"), Included: included}
	}

	// Make room for the rollup line by dropping included buckets from the
	// tail; the top bucket is never dropped.
	for {
		tail := rollupLine(buckets[included:])
		cost := len(tail) + 1
		if used+cost <= budget {
			lines = append(lines, tail)
			return Summary{Text: strings.Join(lines, "\n"), Included: included, RolledUp: rolled}
		}
		if included <= 1 {
			return Summary{Text: lines[0], Included: 1, RolledUp: rolled}
		}
		last := lines[len(lines)-1]
		lines = lines[:len(lines)-1]
		used -= len(last) + 1
		included--
		rolled++
	}
}

func formatBucket(b aggregator.Bucket) string {
	app := b.Key.App
	if app == "" {
		app = "(unknown app)"
	}
	subject := b.Key.Subject
	if subject == "" {
		subject = "(untitled)"
	}
	return fmt.Sprintf("- %s | %s | %s | %d events", formatSeconds(b.TotalSeconds), app, subject, b.Count)
}

func rollupLine(rest []aggregator.Bucket) string {
	total := 0
	for _, b := range rest {
		total += b.TotalSeconds
	}
	return fmt.Sprintf("+%d other activities, %d minutes total", len(rest), (total+59)/60)
}

func formatSeconds(seconds int) string {
	d := time.Duration(seconds) * time.Second
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

func truncateLine(line string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if len(line) <= budget {
		return line
	}
	line = line[:budget]
	for len(line) > 0 && !utf8.ValidString(line) {
		line = line[:len(line)-1]
	}
	return line
}
