package link

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvLine(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		require.True(t, ok, "channel closed")
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
		return ""
	}
}

func TestMux_SendCommandAppendsNewline(t *testing.T) {
	port := NewTestablePort()
	m := NewMux(port)

	require.NoError(t, m.SendCommand("AW3|"))
	require.NoError(t, m.SendCommand("AD|\n"))
	assert.Equal(t, "AW3|\nAD|\n", port.Written())
}

func TestMux_SendCommandErrors(t *testing.T) {
	port := NewTestablePort()
	m := NewMux(port)

	port.ShortWrite = true
	assert.ErrorIs(t, m.SendCommand("AW|"), ErrWriteFailed)

	boom := errors.New("unplugged")
	port.WriteError = boom
	assert.ErrorIs(t, m.SendCommand("AW|"), boom)

	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.SendCommand("AW|"), ErrClosed)
}

func TestMux_MonitorFansOutLines(t *testing.T) {
	port := NewTestablePort()
	m := NewMux(port)
	_, a := m.Subscribe()
	idB, b := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Monitor(ctx) }()

	port.AddReadData([]byte("F1:1|F2:2|\r\n\nBstatus\n"))
	assert.Equal(t, "F1:1|F2:2|", recvLine(t, a))
	assert.Equal(t, "F1:1|F2:2|", recvLine(t, b))
	assert.Equal(t, "Bstatus", recvLine(t, a), "blank lines are skipped")
	assert.Equal(t, "Bstatus", recvLine(t, b))

	m.Unsubscribe(idB)
	_, ok := <-b
	assert.False(t, ok, "unsubscribed channel is closed")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestMux_CloseClosesSubscribersAndPort(t *testing.T) {
	port := NewTestablePort()
	m := NewMux(port)
	_, ch := m.Subscribe()

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	_, ok := <-ch
	assert.False(t, ok)
	assert.True(t, port.IsClosed())

	_, late := m.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribing after close yields a closed channel")
}

func TestMux_MonitorEndsWhenPortCloses(t *testing.T) {
	port := NewTestablePort()
	m := NewMux(port)
	done := make(chan error, 1)
	go func() { done <- m.Monitor(context.Background()) }()

	port.Close()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not exit")
	}
}

func TestMux_AdminSendCommand(t *testing.T) {
	port := NewTestablePort()
	m := NewMux(port)
	mux := http.NewServeMux()
	m.AttachAdminRoutes(mux)

	form := url.Values{"command": {"AU|"}}
	req := httptest.NewRequest(http.MethodPost, "/debug/send-command-api", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "AU|\n", port.Written())

	req = httptest.NewRequest(http.MethodGet, "/debug/send-command-api", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMux_AdminPage(t *testing.T) {
	m := NewMux(NewTestablePort())
	mux := http.NewServeMux()
	m.AttachAdminRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/debug/send-command", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "send-command-api")
}
