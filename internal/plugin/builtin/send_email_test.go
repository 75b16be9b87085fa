package builtin

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP speaks just enough SMTP for one plain-text delivery and
// hands the DATA payload back on the returned channel.
func fakeSMTP(t *testing.T) (host string, port int, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		write := func(line string) { fmt.Fprintf(conn, "%s\r\n", line) }
		write("220 fake ESMTP")

		var payload strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if inData {
				if line == "." {
					inData = false
					write("250 OK")
					out <- payload.String()
					continue
				}
				payload.WriteString(line)
				payload.WriteString("\n")
				continue
			}
			switch {
			case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
				write("250 fake")
			case line == "DATA":
				inData = true
				write("354 end with <CRLF>.<CRLF>")
			case line == "QUIT":
				write("221 bye")
				return
			default:
				write("250 OK")
			}
		}
	}()

	hostPart, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return hostPart, portNum, out
}

func TestSendEmail_DeliversThroughRelay(t *testing.T) {
	host, port, data := fakeSMTP(t)

	out, err := NewSendEmail().Execute(context.Background(), execReq(map[string]any{
		"smtp_server": host,
		"smtp_port":   port,
		"from_email":  "ops@example.com",
		"to_email":    "dev@example.com, qa@example.com",
		"subject":     "deploy finished",
		"body":        "all good",
	}))
	require.NoError(t, err)

	m := asMap(t, out)
	assert.Equal(t, "success", m["status"])
	assert.Equal(t, []string{"dev@example.com", "qa@example.com"}, m["recipients"])
	assert.Equal(t, "ops@example.com", m["from"])

	select {
	case payload := <-data:
		assert.Contains(t, payload, "Subject: deploy finished")
		assert.Contains(t, payload, "To: dev@example.com, qa@example.com")
		assert.Contains(t, payload, "Content-Type: text/plain; charset=utf-8")
		assert.Contains(t, payload, "all good")
	case <-time.After(2 * time.Second):
		t.Fatal("relay saw no message")
	}
}

func TestSendEmail_RequiresPort(t *testing.T) {
	_, err := NewSendEmail().Execute(context.Background(), execReq(map[string]any{
		"smtp_server": "mail.internal",
		"from_email":  "ops@example.com",
		"to_email":    "dev@example.com",
		"subject":     "s",
		"body":        "b",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required parameter "smtp_port" missing`)
}

func TestSendEmail_RequiresRecipients(t *testing.T) {
	_, err := NewSendEmail().Execute(context.Background(), execReq(map[string]any{
		"smtp_server": "mail.internal",
		"smtp_port":   25,
		"from_email":  "ops@example.com",
		"to_email":    " , ",
		"subject":     "s",
		"body":        "b",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required parameter "to_email" missing`)
}

func TestSendEmail_RelayUnreachable(t *testing.T) {
	_, err := NewSendEmail().Execute(context.Background(), execReq(map[string]any{
		"smtp_server": "127.0.0.1",
		"smtp_port":   1,
		"from_email":  "ops@example.com",
		"to_email":    []any{"dev@example.com"},
		"subject":     "deploy finished",
		"body":        "all good",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending mail through 127.0.0.1:1")
}
