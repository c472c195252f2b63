package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/require"

	"github.com/CSmithy89/hyyve/pkg/client/claude"
	"github.com/CSmithy89/hyyve/pkg/logger"
)

// scriptedTransport answers every call with the next scripted reply.
type scriptedTransport struct {
	t       *testing.T
	mu      sync.Mutex
	replies []string
	err     error
	seen    []anthropic.MessageNewParams
}

func (s *scriptedTransport) pop(params anthropic.MessageNewParams) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, params)
	require.NotEmpty(s.t, s.replies, "unexpected call")
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply
}

func (s *scriptedTransport) New(_ context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	if s.err != nil {
		s.mu.Lock()
		s.seen = append(s.seen, params)
		s.mu.Unlock()
		return nil, s.err
	}
	text := s.pop(params)
	// A reply starting with '[' is a raw content array; anything else is text.
	content, stopReason := fmt.Sprintf(`[{"type":"text","text":%q}]`, text), "end_turn"
	if strings.HasPrefix(text, "[") {
		content, stopReason = text, "tool_use"
	}
	var msg anthropic.Message
	raw := fmt.Sprintf(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",`+
		`"content":%s,"stop_reason":%q,"stop_sequence":null,`+
		`"usage":{"input_tokens":100,"output_tokens":20}}`, content, stopReason)
	require.NoError(s.t, json.Unmarshal([]byte(raw), &msg))
	return &msg, nil
}

func (s *scriptedTransport) NewStreaming(_ context.Context, params anthropic.MessageNewParams) claude.EventStream {
	text := s.pop(params)
	raws := []string{
		`{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",` +
			`"content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":100,"output_tokens":1}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
	}
	for _, r := range text {
		raws = append(raws, fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, string(r)))
	}
	raws = append(raws,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"input_tokens":100,"output_tokens":20}}`,
		`{"type":"message_stop"}`,
	)
	events := make([]anthropic.MessageStreamEventUnion, 0, len(raws))
	for _, raw := range raws {
		var ev anthropic.MessageStreamEventUnion
		require.NoError(s.t, json.Unmarshal([]byte(raw), &ev))
		events = append(events, ev)
	}
	return &sliceStream{events: events}
}

func (s *scriptedTransport) calls() []anthropic.MessageNewParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]anthropic.MessageNewParams(nil), s.seen...)
}

type sliceStream struct {
	events []anthropic.MessageStreamEventUnion
	pos    int
}

func (s *sliceStream) Next() bool {
	if s.pos >= len(s.events) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceStream) Current() anthropic.MessageStreamEventUnion { return s.events[s.pos-1] }
func (s *sliceStream) Err() error                                 { return nil }
func (s *sliceStream) Close() error                               { return nil }

func newScriptedClient(t *testing.T, replies ...string) (*claude.Client, *scriptedTransport) {
	t.Helper()
	st := &scriptedTransport{t: t, replies: replies}
	c, err := claude.NewClient(claude.WithAPIKey("test-key"), claude.WithTransport(st), claude.WithLogger(logger.Discard()))
	require.NoError(t, err)
	return c, st
}
