package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Content is one rendered email before layout.
type Content struct {
	Locale      string
	Name        string
	Greeting    string
	Subject     string
	Body        string
	ActionLabel string
	ActionURL   string
	Footer      string
}

var layout = template.Must(template.New("email").Parse(`<!doctype html>
<html lang="{{.Locale}}">
<body style="font-family:Arial,sans-serif;background:#f6f7fb;padding:24px;color:#1f2933">
<table role="presentation" width="100%" style="max-width:560px;margin:0 auto;background:#ffffff;border-radius:8px;padding:24px">
<tr><td>
<p style="font-size:16px">{{.Greeting}}</p>
<p style="font-size:15px;line-height:1.5">{{.Body}}</p>
{{if .ActionURL}}<p><a href="{{.ActionURL}}" style="display:inline-block;background:#0f766e;color:#ffffff;padding:10px 18px;border-radius:6px;text-decoration:none">{{.ActionLabel}}</a></p>{{end}}
<p style="font-size:12px;color:#7b8794">{{.Footer}}</p>
</td></tr>
</table>
</body>
</html>
`))

// Render produces the HTML and plain-text bodies for c.
func Render(c Content) (string, string, error) {
	var html bytes.Buffer
	if err := layout.Execute(&html, c); err != nil {
		return "", "", fmt.Errorf("render email: %w", err)
	}
	var text strings.Builder
	text.WriteString(c.Greeting)
	text.WriteString("\n\n")
	text.WriteString(c.Body)
	text.WriteString("\n\n")
	if c.ActionURL != "" {
		fmt.Fprintf(&text, "%s: %s\n\n", c.ActionLabel, c.ActionURL)
	}
	text.WriteString("-- \n")
	text.WriteString(c.Footer)
	text.WriteString("\n")
	return html.String(), text.String(), nil
}
