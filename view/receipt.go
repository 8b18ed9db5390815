package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/shop"
	"github.com/k3a/html2text"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Job Receipt - {{.Job.Number}}</title>
<style>
body { font-family: 'Courier New', monospace; padding: 20px; max-width: 600px; margin: 0 auto; }
.header { text-align: center; border-bottom: 2px dashed #000; padding-bottom: 20px; margin-bottom: 20px; }
.title { font-size: 24px; font-weight: bold; }
.motto { font-style: italic; margin: 5px 0; }
.contacts { font-size: 12px; margin-top: 5px; }
.row { display: flex; justify-content: space-between; margin-bottom: 10px; }
.label { font-weight: bold; }
hr { border: 0; border-top: 1px dashed #000; margin: 15px 0; }
.signatures { display: flex; justify-content: space-between; margin-top: 50px; }
.signature { width: 45%; border-top: 1px solid #000; padding-top: 5px; text-align: center; font-size: 12px; }
.footer { margin-top: 40px; text-align: center; font-size: 12px; border-top: 1px solid #ddd; padding-top: 10px; }
</style>
</head>
<body>
<div class="header">
<div class="title">{{.Shop.Name}}</div>
<div class="motto">{{.Shop.Motto}}</div>
<div class="contacts">{{.Shop.Contacts}}</div>
<h3>Repair Receipt</h3>
</div>
<div class="row"><span class="label">Job ID:</span> <span>{{.Job.Number}}</span></div>
<div class="row"><span class="label">Date:</span> <span>{{.Job.ReceivedDate}}</span></div>
<div class="row"><span class="label">Customer:</span> <span>{{.Job.CustomerName}}</span></div>
<div class="row"><span class="label">Contact:</span> <span>{{.Job.Phone}}</span></div>
<hr>
<div class="row"><span class="label">Device:</span> <span>{{.Job.DeviceType}}{{with .Job.DeviceBrand}} {{.}}{{end}} - {{.Job.DeviceModel}}</span></div>
<div class="row"><span class="label">Serial:</span> <span>{{.Job.SerialNumber}}</span></div>
{{- with .Job.ReceivedItems}}
<div class="row"><span class="label">Received Items:</span> <span>{{.}}</span></div>
{{- end}}
<div class="row"><span class="label">Problem:</span> <span>{{.Job.Problem}}</span></div>
<div class="row"><span class="label">Est. Cost ({{.Shop.Currency}}):</span> <span>{{.Job.EstimatedCost}}</span></div>
<hr>
<div class="row"><span class="label">Current Status:</span> <span>{{.Job.Status}}</span></div>
<div class="signatures">
<div class="signature">Customer Signature</div>
<div class="signature">Technician Signature</div>
</div>
<div class="footer"><p>Thank you for trusting {{.Shop.Name}}!</p></div>
</body>
</html>
`))

type receiptData struct {
	Shop shop.Profile
	Job  *job.Job
}

// RenderReceipt writes the printable receipt page for j.
func RenderReceipt(w io.Writer, p shop.Profile, j *job.Job) error {
	if err := receiptTemplate.Execute(w, receiptData{Shop: p, Job: j}); err != nil {
		return fmt.Errorf("failed to render receipt: %w", err)
	}
	return nil
}

// RenderReceiptText renders the receipt as plain text for terminals and
// receipt printers.
func RenderReceiptText(p shop.Profile, j *job.Job) (string, error) {
	var buf bytes.Buffer
	if err := RenderReceipt(&buf, p, j); err != nil {
		return "", err
	}
	return html2text.HTML2TextWithOptions(buf.String(), html2text.WithUnixLineBreaks()), nil
}

// ReceiptFilename is the archive name of a job's receipt.
func ReceiptFilename(j *job.Job) string {
	return j.Number + ".html"
}
