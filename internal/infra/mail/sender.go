package mail

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

var runReportTemplate = template.Must(template.New("run_report").Parse(`<html><body>
<h2>{{.Report.Message}}</h2>
<table>
<tr><td>Run</td><td>{{.Report.RunID}}</td></tr>
<tr><td>Outcome</td><td>{{.Report.Outcome}}</td></tr>
{{- if .Report.Failed}}
<tr><td>Failed stage</td><td>{{.Report.FailedStage}}</td></tr>
<tr><td>Error</td><td>{{.Report.Error}}</td></tr>
{{- end}}
<tr><td>Fetched</td><td>{{.Report.Fetched}}</td></tr>
<tr><td>Inserted</td><td>{{.Report.Inserted}}</td></tr>
<tr><td>Backup records</td><td>{{.Report.BackupRecords}}</td></tr>
<tr><td>Discrepancies</td><td>{{.Report.Discrepancies}}</td></tr>
<tr><td>Duration</td><td>{{.Duration}}</td></tr>
</table>
</body></html>`))

func NewEmailSender(host string, port int, user, password, from string, to []string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
	}
}

// BuildMessage monta o e-mail do fim do run (texto puro + HTML).
func (s *EmailSender) BuildMessage(report entity.RunReport) (*gomail.Message, error) {
	if len(s.To) == 0 {
		return nil, eris.New("no mail recipients configured")
	}

	data := RunReportEmailData{
		Report:   report,
		Duration: report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String(),
	}

	var body bytes.Buffer
	if err := runReportTemplate.Execute(&body, data); err != nil {
		return nil, eris.Wrap(err, "failed to render report template")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To...)
	m.SetHeader("Subject", entity.NotificationSubject)
	m.SetBody("text/plain", report.Text())
	m.AddAlternative("text/html", body.String())
	return m, nil
}

// Notify envia o relatório via SMTP. O gomail não aceita contexto; ctx só é checado antes do envio.
func (s *EmailSender) Notify(ctx context.Context, report entity.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := s.BuildMessage(report)
	if err != nil {
		return err
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return eris.Wrap(err, "failed to send SMTP email")
	}
	return nil
}
