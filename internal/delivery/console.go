package delivery

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"TrendWatch/internal/digest"
	"TrendWatch/internal/model"
)

// PrintDigest renders the digest as console tables. Output defaults to
// stdout; tests pass a buffer.
func PrintDigest(d *digest.Digest, out io.Writer) {
	summary := table.NewWriter()
	summary.SetOutputMirror(out)
	summary.SetTitle("TRENDWATCH DIGEST %s", d.RunDate.Format("2006-01-02"))
	summary.SetStyle(table.StyleRounded)
	summary.AppendRows([]table.Row{
		{"Tickers", d.Total},
		{"Uptrend", d.UptrendCount},
		{"Downtrend", d.DowntrendCount},
		{"Sideways", d.SidewaysCount},
		{"Avg strength", fmt.Sprintf("%.1f/100", d.AvgStrength)},
	})
	summary.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 14, Align: text.AlignLeft},
		{Number: 2, WidthMin: 12, Align: text.AlignRight},
	})
	summary.Render()
	fmt.Fprintln(out)

	printMovers(out, "TOP GAINERS (1-DAY)", d.TopGainers)
	printMovers(out, "TOP LOSERS (1-DAY)", d.TopLosers)
	if len(d.VolumeAnomalies) > 0 {
		printMovers(out, "VOLUME ANOMALIES", d.VolumeAnomalies)
	}
}

func printMovers(out io.Writer, title string, rows []model.IndicatorRow) {
	if len(rows) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Ticker", "Return 1D", "Trend", "Strength"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Ticker, formatReturn(r.Return1D), r.Trend, fmt.Sprintf("%.1f", r.Strength)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(out)
}

func formatReturn(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%+.2f%%", *v*100)
}
