package mailer

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"

	"rfp-relay-go/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templateFuncs = map[string]interface{}{
	"inc": func(i int) int { return i + 1 },
	"qty": func(q float64) string { return strconv.FormatFloat(q, 'f', -1, 64) },
}

var (
	textTemplates = texttemplate.Must(texttemplate.New("").Funcs(texttemplate.FuncMap(templateFuncs)).ParseFS(templateFS, "templates/*.txt.tmpl"))
	htmlTemplates = htmltemplate.Must(htmltemplate.New("").Funcs(htmltemplate.FuncMap(templateFuncs)).ParseFS(templateFS, "templates/*.html.tmpl"))
)

// Envelope is one outbound email
type Envelope struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type invitationData struct {
	Greeting  string
	Signature string
	RFP       *models.RFP
	Items     []models.RequirementItem
	Budget    string
	Deadline  string
}

// Invitation renders the RFP invitation for a vendor
func Invitation(rfp *models.RFP, vendor *models.Vendor, signature string) (*Envelope, error) {
	greeting := vendor.ContactPerson
	if greeting == "" {
		greeting = vendor.Name
	}
	if signature == "" {
		signature = "Procurement Team"
	}

	data := invitationData{
		Greeting:  greeting,
		Signature: signature,
		RFP:       rfp,
		Items:     rfp.Requirements.Data().Normalize().Items,
	}
	if rfp.Budget != nil {
		data.Budget = FormatMoney(*rfp.Budget)
	}
	if rfp.DeliveryDeadline != nil {
		data.Deadline = rfp.DeliveryDeadline.Format("January 2, 2006")
	}

	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, "invitation.txt.tmpl", data); err != nil {
		return nil, fmt.Errorf("failed to render text invitation: %w", err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, "invitation.html.tmpl", data); err != nil {
		return nil, fmt.Errorf("failed to render html invitation: %w", err)
	}

	return &Envelope{
		To:      vendor.Email,
		ToName:  vendor.Name,
		Subject: "RFP: " + rfp.Title,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// FormatMoney renders an amount as $1,234,567.89, dropping zero cents
func FormatMoney(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	whole, cents, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if cents != "00" {
		b.WriteString("." + cents)
	}
	return sign + "$" + b.String()
}
