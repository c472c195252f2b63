package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/require"

	"github.com/CSmithy89/hyyve/pkg/logger"
)

func mustMessage(t *testing.T, raw string) *anthropic.Message {
	t.Helper()
	var msg anthropic.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return &msg
}

func mustEvents(t *testing.T, raws ...string) []anthropic.MessageStreamEventUnion {
	t.Helper()
	events := make([]anthropic.MessageStreamEventUnion, 0, len(raws))
	for _, raw := range raws {
		var ev anthropic.MessageStreamEventUnion
		require.NoError(t, json.Unmarshal([]byte(raw), &ev))
		events = append(events, ev)
	}
	return events
}

func messageJSON(content string, stopReason string, in, out int) string {
	stop := "null"
	if stopReason != "" {
		stop = fmt.Sprintf("%q", stopReason)
	}
	return fmt.Sprintf(`{"id":"msg_01","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",`+
		`"content":%s,"stop_reason":%s,"stop_sequence":null,"usage":{"input_tokens":%d,"output_tokens":%d}}`,
		content, stop, in, out)
}

// textStreamEvents renders the event sequence of a text-only streamed reply.
func textStreamEvents(in, out int, chunks ...string) []string {
	events := []string{
		fmt.Sprintf(`{"type":"message_start","message":{"id":"msg_01","type":"message","role":"assistant",`+
			`"model":"claude-sonnet-4-20250514","content":[],"stop_reason":null,"stop_sequence":null,`+
			`"usage":{"input_tokens":%d,"output_tokens":1}}}`, in),
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
	}
	for _, c := range chunks {
		events = append(events, fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, c))
	}
	events = append(events,
		`{"type":"content_block_stop","index":0}`,
		fmt.Sprintf(`{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},`+
			`"usage":{"input_tokens":%d,"output_tokens":%d}}`, in, out),
		`{"type":"message_stop"}`,
	)
	return events
}

type fakeStream struct {
	events []anthropic.MessageStreamEventUnion
	err    error
	pos    int
	cur    anthropic.MessageStreamEventUnion

	reads  atomic.Int32
	closes atomic.Int32
}

func (s *fakeStream) Next() bool {
	if s.pos >= len(s.events) {
		return false
	}
	s.reads.Add(1)
	s.cur = s.events[s.pos]
	s.pos++
	return true
}

func (s *fakeStream) Current() anthropic.MessageStreamEventUnion { return s.cur }
func (s *fakeStream) Err() error                                 { return s.err }

func (s *fakeStream) Close() error {
	s.closes.Add(1)
	return nil
}

type fakeTransport struct {
	mu      sync.Mutex
	msg     *anthropic.Message
	err     error
	events  []anthropic.MessageStreamEventUnion
	sErr    error
	calls   int
	streams []*fakeStream
	last    anthropic.MessageNewParams
}

func (f *fakeTransport) New(_ context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = params
	return f.msg, f.err
}

func (f *fakeTransport) NewStreaming(_ context.Context, params anthropic.MessageNewParams) EventStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = params
	s := &fakeStream{events: f.events, err: f.sErr}
	f.streams = append(f.streams, s)
	return s
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newFakeClient(t *testing.T, ft *fakeTransport, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithAPIKey("test-key"), WithTransport(ft), WithLogger(logger.Discard())}, opts...)
	c, err := NewClient(opts...)
	require.NoError(t, err)
	return c
}

// apiServer emulates the Messages endpoint, recording each decoded request body.
type apiServer struct {
	*httptest.Server
	hits atomic.Int32

	mu       sync.Mutex
	captured []map[string]any
}

func (s *apiServer) lastRequest(t *testing.T) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.captured)
	return s.captured[len(s.captured)-1]
}

func newAPIServer(t *testing.T, status int, body string) *apiServer {
	t.Helper()
	s := &apiServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		raw, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(raw, &req)
		s.mu.Lock()
		s.captured = append(s.captured, req)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After-Ms", "1")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

func newSSEServer(t *testing.T, events []string) *apiServer {
	t.Helper()
	s := &apiServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		raw, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(raw, &req)
		s.mu.Lock()
		s.captured = append(s.captured, req)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		var sb strings.Builder
		for _, ev := range events {
			var head struct {
				Type string `json:"type"`
			}
			_ = json.Unmarshal([]byte(ev), &head)
			fmt.Fprintf(&sb, "event: %s\ndata: %s\n\n", head.Type, ev)
		}
		_, _ = io.WriteString(w, sb.String())
	}))
	t.Cleanup(s.Close)
	return s
}

func newServerClient(t *testing.T, srv *apiServer, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithAPIKey("test-key"),
		WithBaseURL(srv.URL),
		WithMaxRetries(0),
		WithLogger(logger.Discard()),
	}, opts...)
	c, err := NewClient(opts...)
	require.NoError(t, err)
	return c
}
