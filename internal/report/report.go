// Package report renders a finished session into an operator-readable
// summary, used for the end-of-session email.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"matchbot/internal/store"
)

// Builder creates session reports
type Builder struct {
	maxDecisions int
	template     *template.Template
}

// New creates a new report builder. maxDecisions caps the per-decision rows
// included in the body.
func New(maxDecisions int) (*Builder, error) {
	tmpl, err := template.New("report").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{
		maxDecisions: maxDecisions,
		template:     tmpl,
	}, nil
}

// Report is a compiled session summary ready for sending
type Report struct {
	Subject   string
	HTMLBody  string
	PlainBody string
	CreatedAt time.Time
}

// reportData is the template data structure
type reportData struct {
	Title     string
	Date      string
	Duration  string
	Decisions []decisionData
	Stats     statsData
}

type decisionData struct {
	Name       string
	Age        int
	Action     string
	Confidence float64
	Rationale  string
	Comment    string
	Status     string
}

type statsData struct {
	Profiles   int
	Liked      int
	Passed     int
	Commented  int
	Abandoned  int
	HaltReason string
}

// Build creates a report from a closed session and its decisions
func (b *Builder) Build(sess *store.Session, decisions []store.DecisionRecord) (*Report, error) {
	if len(decisions) > b.maxDecisions {
		decisions = decisions[:b.maxDecisions]
	}

	now := time.Now()
	data := reportData{
		Title:     "matchbot session report",
		Date:      sess.StartedAt.Format("Monday, January 2"),
		Duration:  sess.EndedAt.Sub(sess.StartedAt).Round(time.Second).String(),
		Decisions: make([]decisionData, len(decisions)),
		Stats: statsData{
			Profiles:   sess.ProfilesProcessed,
			Liked:      sess.Liked,
			Passed:     sess.Passed,
			Commented:  sess.Commented,
			Abandoned:  sess.Abandoned,
			HaltReason: sess.HaltReason,
		},
	}

	for i, d := range decisions {
		data.Decisions[i] = decisionData{
			Name:       d.ProfileName,
			Age:        d.ProfileAge,
			Action:     d.Action,
			Confidence: d.Confidence,
			Rationale:  truncate(d.Rationale, 160),
			Comment:    truncate(d.Comment, 160),
			Status:     d.Status,
		}
	}

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Report{
		Subject: fmt.Sprintf("matchbot: %d profiles on %s (%d liked)",
			sess.ProfilesProcessed, sess.StartedAt.Format("Jan 2"), sess.Liked),
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		CreatedAt: now,
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func buildPlainText(data reportData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s\n%s (%s)\n\n", data.Title, data.Date, data.Duration))
	buf.WriteString(fmt.Sprintf("%d profiles: %d liked, %d passed, %d commented, %d abandoned\n",
		data.Stats.Profiles, data.Stats.Liked, data.Stats.Passed, data.Stats.Commented, data.Stats.Abandoned))
	if data.Stats.HaltReason != "" {
		buf.WriteString(fmt.Sprintf("Halted: %s\n", data.Stats.HaltReason))
	}
	buf.WriteString("\n")

	for i, d := range data.Decisions {
		buf.WriteString(fmt.Sprintf("%d. %s (%d): %s [%s] - %s\n", i+1, d.Name, d.Age, d.Action, d.Status, d.Rationale))
	}

	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #e8505b; margin-bottom: 5px; }
        .date { color: #666; margin-bottom: 20px; }
        .stats { background: #fdf0f1; border-radius: 8px; padding: 12px; margin-bottom: 15px; }
        .decision { border-bottom: 1px solid #eee; padding: 12px 0; }
        .decision:last-child { border-bottom: none; }
        .name { font-weight: bold; color: #333; }
        .action { color: #e8505b; text-transform: uppercase; font-size: 12px; margin-left: 8px; }
        .rationale { color: #666; margin: 6px 0; line-height: 1.4; }
        .comment { font-style: italic; color: #333; }
        .status { color: #999; font-size: 12px; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}} · {{.Duration}}</div>

        <div class="stats">
            {{.Stats.Profiles}} profiles · {{.Stats.Liked}} liked · {{.Stats.Passed}} passed · {{.Stats.Commented}} commented · {{.Stats.Abandoned}} abandoned
            {{if .Stats.HaltReason}}<br>Halted: {{.Stats.HaltReason}}{{end}}
        </div>

        {{range .Decisions}}
        <div class="decision">
            <span class="name">{{.Name}}{{if .Age}}, {{.Age}}{{end}}</span><span class="action">{{.Action}}</span>
            <div class="rationale">{{.Rationale}}</div>
            {{if .Comment}}<div class="comment">&ldquo;{{.Comment}}&rdquo;</div>{{end}}
            <div class="status">{{.Status}} · confidence {{printf "%.2f" .Confidence}}</div>
        </div>
        {{end}}

        <div class="footer">
            Generated by matchbot
        </div>
    </div>
</body>
</html>`
