package builtin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"yqhp/stepflow/internal/plugin"
)

// SendEmail sends a plain-text mail through an SMTP relay. STARTTLS is
// negotiated when the server offers it; PLAIN auth is used when both
// username and password are set.
type SendEmail struct{}

// NewSendEmail creates the send_email plugin.
func NewSendEmail() *SendEmail { return &SendEmail{} }

func (p *SendEmail) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "send_email",
		Version:     "1.0.0",
		Description: "Send a plain-text email over SMTP",
		Category:    "notification",
		Tags:        []string{"email", "smtp", "notification"},
	}
}

func (p *SendEmail) Schema() plugin.Schema {
	return plugin.Schema{
		"smtp_server": {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "SMTP relay host"},
		"smtp_port":   {Types: []plugin.ValueType{plugin.TypeInt}, Required: true, Description: "SMTP relay port"},
		"from_email":  {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "sender address"},
		"to_email":    {Types: []plugin.ValueType{plugin.TypeString, plugin.TypeList}, Required: true, Description: "recipient address or list"},
		"subject":     {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "subject line"},
		"body":        {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "plain-text body"},
		"username":    {Types: []plugin.ValueType{plugin.TypeString}, Description: "auth username"},
		"password":    {Types: []plugin.ValueType{plugin.TypeString}, Description: "auth password"},
	}
}

func (p *SendEmail) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	server, err := plugin.RequiredParam[string](req.Params, "smtp_server")
	if err != nil {
		return nil, err
	}
	port := plugin.OptionalInt(req.Params, "smtp_port", 0)
	if port <= 0 {
		return nil, errors.New("required parameter \"smtp_port\" missing")
	}
	from, err := plugin.RequiredParam[string](req.Params, "from_email")
	if err != nil {
		return nil, err
	}
	subject, err := plugin.RequiredParam[string](req.Params, "subject")
	if err != nil {
		return nil, err
	}
	body, err := plugin.RequiredParam[string](req.Params, "body")
	if err != nil {
		return nil, err
	}
	recipients := stringList(req.Params, "to_email")
	if len(recipients) == 0 {
		return nil, errors.New("required parameter \"to_email\" missing")
	}

	var auth smtp.Auth
	username := plugin.OptionalParam(req.Params, "username", "")
	password := plugin.OptionalParam(req.Params, "password", "")
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, server)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := net.JoinHostPort(server, strconv.Itoa(port))
	req.Logger.Info("sending email",
		zap.String("server", addr), zap.Int("recipients", len(recipients)))

	if err := smtp.SendMail(addr, auth, from, recipients, []byte(msg.String())); err != nil {
		return nil, fmt.Errorf("sending mail through %s: %w", addr, err)
	}

	return map[string]any{
		"smtp_server": server,
		"from":        from,
		"recipients":  recipients,
		"subject":     subject,
		"status":      "success",
	}, nil
}
