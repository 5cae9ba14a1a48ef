package mailer

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"qrbook.backend/pkg/logger"
)

func TestBuildMessage(t *testing.T) {
	msg := string(BuildMessage("no-reply@qrbook.ca", "ada@example.com", "Reset code", "123456"))
	assert.True(t, strings.HasPrefix(msg, "From: no-reply@qrbook.ca\r\nTo: ada@example.com\r\nSubject: Reset code\r\n"))
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n123456"))
}

func TestLogMailer_Send(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(nil) })

	require.NoError(t, NewLogMailer().Send(context.Background(), "ada@example.com", "Reset code", "123456"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ada@example.com", logs.All()[0].ContextMap()["to"])
}

func TestSMTPMailer_DialFailure(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 465})
	m.dial = func(context.Context, string, *tls.Config) (net.Conn, error) {
		return nil, errors.New("refused")
	}
	err := m.Send(context.Background(), "ada@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial smtp")
}

// fakeSMTP answers just enough of the protocol for one unauthenticated message.
func fakeSMTP(t *testing.T, conn net.Conn, received chan<- string) {
	t.Helper()
	defer conn.Close()
	r := bufio.NewReader(conn)
	write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

	write("220 fake ESMTP")
	var data strings.Builder
	inData := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if inData {
			if line == ".\r\n" {
				inData = false
				write("250 queued")
				received <- data.String()
				continue
			}
			data.WriteString(line)
			continue
		}
		switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			write("250 fake")
		case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
			write("250 ok")
		case cmd == "DATA":
			inData = true
			write("354 go ahead")
		case cmd == "QUIT":
			write("221 bye")
			return
		default:
			write("502 unsupported")
		}
	}
}

func TestSMTPMailer_SendOverConnection(t *testing.T) {
	client, server := net.Pipe()
	received := make(chan string, 1)
	go fakeSMTP(t, server, received)

	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 465, From: "no-reply@qrbook.ca"})
	m.dial = func(context.Context, string, *tls.Config) (net.Conn, error) {
		return client, nil
	}

	require.NoError(t, m.Send(context.Background(), "ada@example.com", "Reset code", "123456"))
	body := <-received
	assert.Contains(t, body, "To: ada@example.com")
	assert.Contains(t, body, "123456")
}
