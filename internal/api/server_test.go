package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sreeshanth-soma/erpScraper/internal/config"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	h, err := NewHandlers(zaptest.NewLogger(t), &fakeStore{goal: 75}, &fakeScraper{},
		config.ProfileConfig{Owner: "student-1", Timezone: "UTC"}, time.Minute, 1)
	require.NoError(t, err)
	srv := NewServer(config.ServerConfig{ShutdownTimeout: time.Second}, h, zaptest.NewLogger(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second}
	defer client.CloseIdleConnections()

	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_RunFailsOnBadAddress(t *testing.T) {
	h, err := NewHandlers(zaptest.NewLogger(t), &fakeStore{}, &fakeScraper{},
		config.ProfileConfig{Owner: "student-1", Timezone: "UTC"}, time.Minute, 1)
	require.NoError(t, err)
	srv := NewServer(config.ServerConfig{Addr: "256.0.0.1:http-nope"}, h, zaptest.NewLogger(t))

	err = srv.Run(context.Background())
	assert.Error(t, err)
}
