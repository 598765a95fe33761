package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	mail "github.com/go-mail/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertText(t *testing.T) {
	a := Alert{
		Body:   "orphaned tenant database",
		Fields: map[string]string{"tenant_id": "t1", "db_name": "tenant_x"},
	}
	assert.Equal(t, "orphaned tenant database\n\ndb_name: tenant_x\ntenant_id: t1\n", a.Text())
	assert.Equal(t, "only body", Alert{Body: "only body"}.Text())
}

func TestSMTPNotifier(t *testing.T) {
	n := NewSMTPNotifier("smtp.example.com", 587, "noreply@example.com", "ops@example.com", "u", "p")

	var captured *mail.Message
	var dialer *mail.Dialer
	n.send = func(d *mail.Dialer, m *mail.Message) error {
		captured, dialer = m, d
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), Alert{Subject: "orphan", Body: "check tenant"}))
	require.NotNil(t, captured)
	assert.Equal(t, []string{"[obvia] orphan"}, captured.GetHeader("Subject"))
	assert.Equal(t, []string{"ops@example.com"}, captured.GetHeader("To"))
	assert.Equal(t, "smtp.example.com", dialer.TLSConfig.ServerName)

	var buf bytes.Buffer
	_, err := captured.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "check tenant")
}

func TestSMTPNotifier_Error(t *testing.T) {
	n := NewSMTPNotifier("smtp.example.com", 465, "a@example.com", "b@example.com", "", "")
	n.TLSMode = "ssl"
	n.send = func(d *mail.Dialer, m *mail.Message) error {
		assert.True(t, d.SSL)
		return errors.New("dial failed")
	}
	assert.Error(t, n.Notify(context.Background(), Alert{Subject: "x"}))
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Notify(context.Background(), Alert{Subject: "x"}))
}
