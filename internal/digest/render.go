package digest

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// funcs are the nil-safe formatting helpers shared by all templates.
var funcs = map[string]interface{}{
	"pct": func(v *float64) string {
		if v == nil {
			return "—"
		}
		return fmt.Sprintf("%+.2f%%", *v*100)
	},
	"num": func(v *float64) string {
		if v == nil {
			return "—"
		}
		return fmt.Sprintf("%.1f", *v)
	},
	"date": func(d *Digest) string { return d.RunDate.Format("2006-01-02") },
}

const markdownTmpl = `# TrendWatch Digest — {{date .}}

**Tickers:** {{.Total}} · **Uptrend:** {{.UptrendCount}} · **Downtrend:** {{.DowntrendCount}} · **Sideways:** {{.SidewaysCount}} · **Avg strength:** {{.AvgStrength}}/100

{{if .TopGainers}}## Top gainers (1-day)
| Ticker | Return | Trend | Strength |
|--------|--------|-------|----------|
{{range .TopGainers}}| {{.Ticker}} | {{pct .Return1D}} | {{.Trend}} | {{.Strength}} |
{{end}}
{{end}}{{if .TopLosers}}## Top losers (1-day)
| Ticker | Return | Trend | Strength |
|--------|--------|-------|----------|
{{range .TopLosers}}| {{.Ticker}} | {{pct .Return1D}} | {{.Trend}} | {{.Strength}} |
{{end}}
{{end}}{{if .StrongestUp}}## Strongest uptrends
| Ticker | Strength | RSI(14) |
|--------|----------|---------|
{{range .StrongestUp}}| {{.Ticker}} | {{.Strength}} | {{num .RSI14}} |
{{end}}
{{end}}{{if .StrongestDown}}## Strongest downtrends
| Ticker | Strength | RSI(14) |
|--------|----------|---------|
{{range .StrongestDown}}| {{.Ticker}} | {{.Strength}} | {{num .RSI14}} |
{{end}}
{{end}}{{if .VolumeAnomalies}}## Volume anomalies
| Ticker | Trend | 1-day return |
|--------|-------|--------------|
{{range .VolumeAnomalies}}| {{.Ticker}} | {{.Trend}} | {{pct .Return1D}} |
{{end}}
{{end}}`

const emailTextTmpl = `TrendWatch Digest — {{date .}}

Tickers: {{.Total}}
Uptrend: {{.UptrendCount}}  Downtrend: {{.DowntrendCount}}  Sideways: {{.SidewaysCount}}
Average strength: {{.AvgStrength}}/100
{{if .TopGainers}}
TOP GAINERS (1-day)
{{range .TopGainers}}  {{printf "%-8s" .Ticker}} {{pct .Return1D}}  {{.Trend}} ({{.Strength}})
{{end}}{{end}}{{if .TopLosers}}
TOP LOSERS (1-day)
{{range .TopLosers}}  {{printf "%-8s" .Ticker}} {{pct .Return1D}}  {{.Trend}} ({{.Strength}})
{{end}}{{end}}{{if .VolumeAnomalies}}
VOLUME ANOMALIES
{{range .VolumeAnomalies}}  {{printf "%-8s" .Ticker}} {{.Trend}}  1d={{pct .Return1D}}
{{end}}{{end}}`

const emailHTMLTmpl = `<html><body>
<h2>TrendWatch Digest — {{date .}}</h2>
<p><b>{{.Total}}</b> tickers · <b>{{.UptrendCount}}</b> uptrend · <b>{{.DowntrendCount}}</b> downtrend · <b>{{.SidewaysCount}}</b> sideways · avg strength <b>{{.AvgStrength}}</b>/100</p>
{{if .TopGainers}}<h3>Top gainers (1-day)</h3>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Ticker</th><th>Return</th><th>Trend</th><th>Strength</th></tr>
{{range .TopGainers}}<tr><td>{{.Ticker}}</td><td>{{pct .Return1D}}</td><td>{{.Trend}}</td><td>{{.Strength}}</td></tr>
{{end}}</table>{{end}}
{{if .TopLosers}}<h3>Top losers (1-day)</h3>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Ticker</th><th>Return</th><th>Trend</th><th>Strength</th></tr>
{{range .TopLosers}}<tr><td>{{.Ticker}}</td><td>{{pct .Return1D}}</td><td>{{.Trend}}</td><td>{{.Strength}}</td></tr>
{{end}}</table>{{end}}
{{if .VolumeAnomalies}}<h3>Volume anomalies</h3>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Ticker</th><th>Trend</th><th>1-day return</th></tr>
{{range .VolumeAnomalies}}<tr><td>{{.Ticker}}</td><td>{{.Trend}}</td><td>{{pct .Return1D}}</td></tr>
{{end}}</table>{{end}}
</body></html>`

const tweetTmpl = `TrendWatch {{date .}}: ▲{{.UptrendCount}} ▼{{.DowntrendCount}} →{{.SidewaysCount}} | avg {{.AvgStrength}}/100{{if .TopGainers}}{{with index .TopGainers 0}} | Top: {{.Ticker}} {{pct .Return1D}}{{end}}{{end}}{{if .TopLosers}}{{with index .TopLosers 0}} | Worst: {{.Ticker}} {{pct .Return1D}}{{end}}{{end}} #stocks`

// Markdown renders the digest as a Markdown report.
func (d *Digest) Markdown() (string, error) {
	return renderText("markdown", markdownTmpl, d)
}

// EmailText renders the plain-text email body.
func (d *Digest) EmailText() (string, error) {
	return renderText("email_text", emailTextTmpl, d)
}

// EmailHTML renders the HTML email body.
func (d *Digest) EmailHTML() (string, error) {
	tmpl, err := htmltemplate.New("email_html").Funcs(funcs).Parse(emailHTMLTmpl)
	if err != nil {
		return "", fmt.Errorf("parse email_html template: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, d); err != nil {
		return "", fmt.Errorf("render email_html: %w", err)
	}
	return b.String(), nil
}

// Tweet renders the one-line social post, hard-truncated to maxChars runes.
func (d *Digest) Tweet(maxChars int) (string, error) {
	text, err := renderText("tweet", tweetTmpl, d)
	if err != nil {
		return "", err
	}
	if maxChars < 1 {
		maxChars = 1 // degenerate limit, still must not slice negatively
	}
	runes := []rune(text)
	if len(runes) > maxChars {
		text = string(runes[:maxChars-1]) + "…"
	}
	return text, nil
}

func renderText(name, tmpl string, d *Digest) (string, error) {
	t, err := texttemplate.New(name).Funcs(funcs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, d); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}
