package notification

import (
	"bytes"
	"html/template"
	"strings"
)

// SubjectPrefix is prepended to every outgoing notification subject.
const SubjectPrefix = "[ReqNotify] "

// emailTmpl is the HTML wrapper applied to every outgoing notification.
// {{.Subject}} and {{.Lines}} are auto-escaped by html/template.
var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1.0">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f4f5;
     font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" role="presentation"
         style="background-color:#f4f4f5;padding:40px 16px;">
    <tr>
      <td align="center">
        <table width="600" cellpadding="0" cellspacing="0" role="presentation"
               style="max-width:600px;width:100%;">
          <tr>
            <td style="background-color:#0f1a14;padding:24px 40px;border-radius:12px 12px 0 0;">
              <span style="font-size:20px;font-weight:700;color:#ffffff;letter-spacing:-0.3px;">ReqNotify</span>
              <span style="display:block;font-size:11px;color:#6b7280;margin-top:1px;letter-spacing:0.3px;">
                Workflow Request Notifications
              </span>
            </td>
          </tr>
          <tr>
            <td style="background-color:#ffffff;padding:32px 40px;border-radius:0 0 12px 12px;">
              <h1 style="margin:0 0 16px;font-size:18px;color:#111827;">{{.Subject}}</h1>
              {{range .Lines}}<p style="margin:0 0 8px;font-size:14px;line-height:1.6;color:#374151;">{{.}}</p>
              {{end}}
            </td>
          </tr>
          <tr>
            <td style="padding:20px 8px;text-align:center;">
              <span style="font-size:11px;color:#9ca3af;">This is an automated notification. Replies are not monitored.</span>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

// BuildSubject prefixes subject with the standard notification prefix.
func BuildSubject(subject string) string {
	return SubjectPrefix + subject
}

// buildEmailHTML renders the plain-text body into the HTML wrapper, one
// paragraph per line.
func buildEmailHTML(subject, body string) (string, error) {
	data := struct {
		Subject string
		Lines   []string
	}{
		Subject: subject,
		Lines:   strings.Split(body, "\n"),
	}

	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
