package mail

import "github.com/xavierca1/zoho-lead-sync/internal/entity"

type RunReportEmailData struct {
	Report   entity.RunReport
	Duration string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string
}
