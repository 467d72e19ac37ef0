package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/yugmi/sense-api/internal/domain"
)

// CaptureShare is the data rendered when a capture is shared
type CaptureShare struct {
	SiteName      string
	OperationType domain.OperationType
	CapturedAt    time.Time
	Analysis      *domain.AIAnalysis
	Latitude      *float64
	Longitude     *float64
	Altitude      *float64
	WBSID         string
	StructurePart string
	MediaURL      string
}

// ReportShare is the data rendered when a report is shared
type ReportShare struct {
	Title      string
	SiteName   string
	ReportType domain.ReportType
	Summary    string
	CreatedAt  time.Time
	Data       domain.ReportData
}

var funcs = map[string]interface{}{
	"orNA": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "N/A"
		}
		return s
	},
	"num": func(f *float64) string {
		if f == nil {
			return "N/A"
		}
		return strconv.FormatFloat(*f, 'f', -1, 64)
	},
	"date": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04 UTC")
	},
	"inc": func(i int) int { return i + 1 },
}

var captureEmailTmpl = htmltemplate.Must(htmltemplate.New("capture_email").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
.header { background-color: #f4f4f4; padding: 20px; border-radius: 5px; }
.summary { background-color: #e8f4f8; padding: 15px; border-radius: 5px; }
.defects { background-color: #fff2e8; padding: 15px; border-radius: 5px; margin-top: 10px; }
.metadata { font-size: 12px; color: #666; }
</style>
</head>
<body>
<div class="header">
<h1>Construction Capture Report</h1>
<p><strong>Site:</strong> {{orNA .SiteName}}</p>
<p><strong>Date:</strong> {{date .CapturedAt}}</p>
<p><strong>Operation Type:</strong> {{orNA (printf "%s" .OperationType)}}</p>
</div>
<div class="summary">
<h3>AI Analysis Summary</h3>
{{- if .Analysis}}
<p>{{orNA .Analysis.Summary}}</p>
{{- if .Analysis.ProgressStatus}}
<p><strong>Progress:</strong> {{num .Analysis.ProgressStatus}}%</p>
{{- end}}
{{- else}}
<p>No summary available</p>
{{- end}}
</div>
{{- if and .Analysis .Analysis.Defects}}
<div class="defects">
<h3>Identified Issues</h3>
<ul>
{{- range .Analysis.Defects}}
<li><strong>{{.Type}}:</strong> {{.Description}} ({{.Severity}})</li>
{{- end}}
</ul>
</div>
{{- end}}
<p><a href="{{.MediaURL}}">View capture</a></p>
<div class="metadata">
<h4>Capture Details</h4>
<p><strong>Location:</strong> {{num .Latitude}}, {{num .Longitude}}</p>
<p><strong>Altitude:</strong> {{num .Altitude}}m</p>
<p><strong>WBS ID:</strong> {{orNA .WBSID}}</p>
<p><strong>Structure Part:</strong> {{orNA .StructurePart}}</p>
</div>
</body>
</html>
`))

var captureMessageTmpl = texttemplate.Must(texttemplate.New("capture_message").Funcs(funcs).Parse(
	`*Construction Report*

*Site:* {{orNA .SiteName}}
*Date:* {{date .CapturedAt}}
*Operation:* {{orNA (printf "%s" .OperationType)}}
{{- if .Analysis}}
{{- if .Analysis.Summary}}

*AI Analysis:*
{{.Analysis.Summary}}
{{- end}}
{{- if .Analysis.ProgressStatus}}

*Progress:* {{num .Analysis.ProgressStatus}}%
{{- end}}
{{- if .Analysis.Defects}}

*Issues Found:*
{{- range $i, $d := .Analysis.Defects}}
{{inc $i}}. {{$d.Description}} ({{$d.Severity}})
{{- end}}
{{- end}}
{{- end}}

*Location:* {{num .Latitude}}, {{num .Longitude}}`))

var reportEmailTmpl = htmltemplate.Must(htmltemplate.New("report_email").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; margin: 20px;">
<h1>{{.Title}}</h1>
<p><strong>Site:</strong> {{orNA .SiteName}}</p>
<p><strong>Type:</strong> {{printf "%s" .ReportType}}</p>
<p><strong>Generated:</strong> {{date .CreatedAt}}</p>
{{- if .Summary}}
<p>{{.Summary}}</p>
{{- end}}
<ul>
<li>Captures: {{.Data.TotalCaptures}}</li>
<li>Defects found: {{.Data.DefectsFound}}</li>
<li>Progress: {{num .Data.ProgressPercentage}}%</li>
</ul>
{{- if .Data.Recommendations}}
<h3>Recommendations</h3>
<ul>
{{- range .Data.Recommendations}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
</body>
</html>
`))

var reportMessageTmpl = texttemplate.Must(texttemplate.New("report_message").Funcs(funcs).Parse(
	`*{{.Title}}*

*Site:* {{orNA .SiteName}}
*Type:* {{printf "%s" .ReportType}}
*Captures:* {{.Data.TotalCaptures}}
*Defects found:* {{.Data.DefectsFound}}
*Progress:* {{num .Data.ProgressPercentage}}%
{{- if .Summary}}

{{.Summary}}
{{- end}}
{{- if .Data.Recommendations}}

*Recommendations:*
{{- range $i, $r := .Data.Recommendations}}
{{inc $i}}. {{$r}}
{{- end}}
{{- end}}`))

// CaptureSubject is the email subject for a shared capture
func CaptureSubject(siteName string) string {
	if strings.TrimSpace(siteName) == "" {
		siteName = "Site"
	}
	return "Construction Capture Report - " + siteName
}

// RenderCaptureEmail renders the email for a shared capture
func RenderCaptureEmail(share CaptureShare) (Email, error) {
	var html bytes.Buffer
	if err := captureEmailTmpl.Execute(&html, share); err != nil {
		return Email{}, fmt.Errorf("failed to render capture email: %w", err)
	}
	text, err := RenderCaptureMessage(share)
	if err != nil {
		return Email{}, err
	}
	return Email{
		Subject: CaptureSubject(share.SiteName),
		HTML:    html.String(),
		Text:    text + "\n\n" + share.MediaURL,
	}, nil
}

// RenderCaptureMessage renders the WhatsApp caption for a shared capture
func RenderCaptureMessage(share CaptureShare) (string, error) {
	var out bytes.Buffer
	if err := captureMessageTmpl.Execute(&out, share); err != nil {
		return "", fmt.Errorf("failed to render capture message: %w", err)
	}
	return out.String(), nil
}

func RenderReportEmail(share ReportShare) (Email, error) {
	var html bytes.Buffer
	if err := reportEmailTmpl.Execute(&html, share); err != nil {
		return Email{}, fmt.Errorf("failed to render report email: %w", err)
	}
	text, err := RenderReportMessage(share)
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: share.Title, HTML: html.String(), Text: text}, nil
}

func RenderReportMessage(share ReportShare) (string, error) {
	var out bytes.Buffer
	if err := reportMessageTmpl.Execute(&out, share); err != nil {
		return "", fmt.Errorf("failed to render report message: %w", err)
	}
	return out.String(), nil
}
