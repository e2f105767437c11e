package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const (
	SubjectVerify = "Please verify your email"
	SubjectReset  = "Reset your password"
)

var (
	verifyTmpl = template.Must(template.New("verify").Parse(`<div style="font-family: sans-serif">
  <h2>Hi {{.Name}},</h2>
  <p>Thanks for registering. Click the link below to verify your email address:</p>
  <a href="{{.Link}}" style="color: blue;">Verify Email</a>
  <p>This link will expire in 15 minutes.</p>
  <p>If you didn't request this, please ignore this email.</p>
</div>`))

	resetTmpl = template.Must(template.New("reset").Parse(`<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. Click the link below to set a new password:</p>
<a href="{{.Link}}">Reset Password</a>
<p>This link will expire in <strong>15 minutes</strong> for your security.</p>
<p>If you did not request a password reset, you can safely ignore this email.</p>`))
)

type templateData struct {
	Name string
	Link string
}

// VerificationEmail renders the body of the email-verification message.
func VerificationEmail(name, link string) (string, error) {
	return render(verifyTmpl, name, link)
}

// ResetPasswordEmail renders the body of the password-reset message.
func ResetPasswordEmail(name, link string) (string, error) {
	return render(resetTmpl, name, link)
}

func render(t *template.Template, name, link string) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, templateData{Name: name, Link: link}); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
