package dashboard

import (
	"context"
	"fmt"
	"net/mail"
	"text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/nutridash/core"
	"github.com/trezcool/nutridash/core/calendar"
	"github.com/trezcool/nutridash/core/kpi"
	"github.com/trezcool/nutridash/core/timeframe"
)

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"date":  func(t time.Time) string { return t.Format(calendar.DateLayout) },
	"value": formatValue,
	"trend": formatTrend,
}).Parse(`Nutrition dashboard of district {{.DistrictID}}
{{.Window.Timeframe}}: {{date .Window.Range.Start}} to {{date .Window.Range.End}} ({{.Window.ServingDays}} serving days)
{{- if .Window.NonServingPeriod}}
No meals served: {{.Window.Reason}}.
{{- end}}
{{range .Reports}}
- {{.KPI.DisplayName}}: {{value .Value .KPI.Unit}} (trend {{trend .Trend}}, benchmark {{value .Benchmark .KPI.Unit}})
{{- end}}
`))

type DigestData struct {
	DistrictID string
	Window     timeframe.Window
	Reports    []Report
}

// Digest loads a throwaway session and renders its KPI reports into an email to the recipients.
func (svc *Service) Digest(ctx context.Context, districtID string, sel Selection, to ...mail.Address) (*core.EmailMessage, error) {
	sess := svc.newSession(districtID)
	defer sess.Close()

	if err := sess.SetSelection(ctx, sel); err != nil {
		return nil, errors.Wrap(err, "loading digest data")
	}
	reports, err := sess.Reports()
	if err != nil {
		return nil, err
	}
	window := sess.Window()

	msg := &core.EmailMessage{
		To:       to,
		Subject:  fmt.Sprintf("KPI digest: %s", window.Timeframe),
		Template: digestTmpl,
		TemplateData: DigestData{
			DistrictID: sess.DistrictID,
			Window:     window,
			Reports:    reports,
		},
	}
	if err := msg.Render(); err != nil {
		return nil, errors.Wrap(err, "rendering digest")
	}
	return msg, nil
}

// SendDigest renders the digest and hands it to mailer.
func (svc *Service) SendDigest(ctx context.Context, mailer core.EmailService, districtID string, sel Selection, to ...mail.Address) error {
	msg, err := svc.Digest(ctx, districtID, sel, to...)
	if err != nil {
		return err
	}
	if !msg.HasRecipients() {
		return errors.New("digest has no recipients")
	}
	mailer.SendMessages(msg)
	return nil
}

// formatValue accepts a float64 or a *float64, nil being "no data".
func formatValue(v interface{}, unit kpi.Unit) string {
	var f float64
	switch val := v.(type) {
	case *float64:
		if val == nil {
			return "n/a"
		}
		f = *val
	case float64:
		f = val
	default:
		return "n/a"
	}

	switch unit {
	case kpi.UnitPercent:
		return fmt.Sprintf("%.1f%%", f)
	case kpi.UnitCurrency:
		return fmt.Sprintf("$%.2f", f)
	case kpi.UnitCount:
		return fmt.Sprintf("%.0f", f)
	default:
		return fmt.Sprintf("%.2f", f)
	}
}

func formatTrend(t float64) string {
	return fmt.Sprintf("%+.2f", t)
}
