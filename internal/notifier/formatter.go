package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"PullbackScanner/internal/model"
	"PullbackScanner/internal/scanner"
)

// maxPerCategory caps how many tickers a report lists per category.
const maxPerCategory = 15

var categoryIcon = map[model.Category]string{
	model.CategoryBuy:      "🟢",
	model.CategorySetup:    "🟡",
	model.CategoryTrending: "🔵",
	model.CategoryNoTrade:  "⚪",
	model.CategoryNoData:   "⚫",
	model.CategoryError:    "❌",
}

func price(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) }

// FormatScanReport formats a full scan as a Telegram message. Only the
// actionable categories list tickers; the rest are counted.
func FormatScanReport(run *model.ScanRun) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Pullback scan</b> | %s | %s\n",
		run.FinishedAt.Format("2006-01-02 15:04"), html.EscapeString(run.Interval)))
	if !run.MarketOK {
		b.WriteString("⚠️ market filter failed, BUY held back as SETUP\n")
	}
	b.WriteString("\n")

	groups := scanner.Partition(run.Results)
	for _, c := range []model.Category{model.CategoryBuy, model.CategorySetup} {
		b.WriteString(formatGroup(c, groups[c]))
	}

	b.WriteString(fmt.Sprintf("%s TRENDING %d | %s NO_TRADE %d | %s NO_DATA %d | %s ERROR %d\n",
		categoryIcon[model.CategoryTrending], len(groups[model.CategoryTrending]),
		categoryIcon[model.CategoryNoTrade], len(groups[model.CategoryNoTrade]),
		categoryIcon[model.CategoryNoData], len(groups[model.CategoryNoData]),
		categoryIcon[model.CategoryError], len(groups[model.CategoryError])))

	if errs := groups[model.CategoryError]; len(errs) > 0 {
		names := make([]string, 0, len(errs))
		for _, r := range errs {
			names = append(names, r.Ticker)
		}
		b.WriteString(fmt.Sprintf("Errors: %s\n", html.EscapeString(strings.Join(names, ", "))))
	}
	return b.String()
}

// FormatCategory lists one category's results, as already ordered by the caller.
func FormatCategory(c model.Category, results []model.ScanResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("%s <b>%s</b>: none\n", categoryIcon[c], c)
	}
	return formatGroup(c, results)
}

func formatGroup(c model.Category, results []model.ScanResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b> (%d)\n", categoryIcon[c], c, len(results)))
	for i, r := range results {
		if i == maxPerCategory {
			b.WriteString(fmt.Sprintf("  … and %d more\n", len(results)-maxPerCategory))
			break
		}
		line := fmt.Sprintf("  %s %s  str %.2f", html.EscapeString(r.Ticker), price(r.Price), r.Strength)
		if r.Note != "" {
			line += " (" + html.EscapeString(r.Note) + ")"
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// FormatStatus summarises the latest run for /status.
func FormatStatus(run *model.ScanRun) string {
	if run == nil {
		return "📦 No scan has completed yet."
	}
	var b strings.Builder
	b.WriteString("📦 <b>Scanner status</b>\n\n")
	b.WriteString(fmt.Sprintf("Last scan: %s\n", run.FinishedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)))
	b.WriteString(fmt.Sprintf("Tickers: %d\n", len(run.Results)))
	b.WriteString(fmt.Sprintf("Market filter: %v\n", run.MarketOK))
	for _, c := range model.Categories {
		b.WriteString(fmt.Sprintf("%s %s: %d\n", categoryIcon[c], c, run.Count(c)))
	}
	return b.String()
}

// splitMessage breaks text into chunks of at most limit bytes on newline boundaries.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var parts []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if cur.Len()+len(line) > limit && cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		for len(line) > limit {
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
