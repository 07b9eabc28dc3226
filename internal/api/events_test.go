package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/load-engine/internal/config"
	"github.com/campus-pulse/load-engine/internal/events"
	"github.com/campus-pulse/load-engine/internal/health"
	"github.com/campus-pulse/load-engine/internal/prompts"
	"github.com/campus-pulse/load-engine/internal/tips"
)

type fakeEventSource struct {
	mu      sync.Mutex
	ch      chan events.Event
	subCtx  context.Context
	stopped bool
}

func newFakeEventSource() *fakeEventSource {
	return &fakeEventSource{ch: make(chan events.Event)}
}

func (f *fakeEventSource) Subscribe(ctx context.Context) (<-chan events.Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subCtx = ctx
	return f.ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped = true
	}
}

func (f *fakeEventSource) subscriptionCtx() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subCtx
}

func (f *fakeEventSource) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func newEventsTestServer(t *testing.T, source events.Source) *httptest.Server {
	t.Helper()

	repo := newFakeRepo()
	tipService := tips.NewService(repo, staticGenerator{}, prompts.NewRenderer(), time.Hour)
	s := NewServer(config.ServerConfig{}, repo, nil, tipService, source, health.NewRegistry())

	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func dialEvents(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/events" + query
	header := http.Header{"Authorization": []string{"Bearer " + testAPIKey}}

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEventStreamDeliversEvents(t *testing.T) {
	source := newFakeEventSource()
	ts := newEventsTestServer(t, source)
	conn := dialEvents(t, ts, "")

	sent := events.Event{
		Type:      events.TypeSnapshot,
		StudentID: "stu-1",
		LoadScore: 85,
	}
	select {
	case source.ch <- sent:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never consumed the event")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got events.Event
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, events.TypeSnapshot, got.Type)
	assert.Equal(t, "stu-1", got.StudentID)
	assert.Equal(t, 85, got.LoadScore)
}

func TestEventStreamOutlivesRequestTimeout(t *testing.T) {
	source := newFakeEventSource()
	ts := newEventsTestServer(t, source)
	dialEvents(t, ts, "")

	// The router wraps requests in a timeout context; a subscription bound to
	// it would go dead once the deadline passed. The stream must subscribe on
	// a context with no deadline.
	require.Eventually(t, func() bool {
		return source.subscriptionCtx() != nil
	}, 2*time.Second, 10*time.Millisecond)

	_, hasDeadline := source.subscriptionCtx().Deadline()
	assert.False(t, hasDeadline, "subscription must not inherit the request deadline")
}

func TestEventStreamStudentFilter(t *testing.T) {
	source := newFakeEventSource()
	ts := newEventsTestServer(t, source)
	conn := dialEvents(t, ts, "?student_id=stu-2")

	for _, ev := range []events.Event{
		{Type: events.TypeSnapshot, StudentID: "stu-1"},
		{Type: events.TypeTipCreated, StudentID: "stu-2", TipID: "tip-9"},
	} {
		select {
		case source.ch <- ev:
		case <-time.After(2 * time.Second):
			t.Fatal("handler never consumed the event")
		}
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got events.Event
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "stu-2", got.StudentID)
	assert.Equal(t, "tip-9", got.TipID)
}

func TestEventStreamCleansUpOnClientClose(t *testing.T) {
	source := newFakeEventSource()
	ts := newEventsTestServer(t, source)
	conn := dialEvents(t, ts, "")

	require.NoError(t, conn.Close())

	require.Eventually(t, source.isStopped, 2*time.Second, 10*time.Millisecond,
		"subscription must be released when the client disconnects")
}

func TestEventStreamUnavailableWithoutBus(t *testing.T) {
	ts := newEventsTestServer(t, nil)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
