package claude

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/pkg/errors"

	"github.com/CSmithy89/hyyve/pkg/logger"
)

// TextStream is a lazily opened streaming completion. Nothing is sent until
// Text is ranged over, and it can be ranged over only once.
type TextStream struct {
	ctx       context.Context
	client    *Client
	model     ModelConfig
	req       anthropic.MessageNewParams
	log       *logger.Logger
	startOnce sync.Once

	mu     sync.Mutex
	done   bool
	result *CompletionResult
	err    error
}

// Stream validates params and returns a stream of text fragments. Unknown
// models and invalid parameters are reported here, before any network call.
func (c *Client) Stream(ctx context.Context, params Params) (*TextStream, error) {
	model, req, err := prepare(params)
	if err != nil {
		return nil, err
	}
	return &TextStream{
		ctx:    ctx,
		client: c,
		model:  model,
		req:    req,
	}, nil
}

// Text yields text fragments in arrival order. The provider session opens on
// the first iteration and is closed when the loop ends for any reason,
// including an early break. A transport failure is yielded as the final
// element; fragments already yielded are not retracted.
func (s *TextStream) Text() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		started := false
		s.startOnce.Do(func() { started = true })
		if !started {
			yield("", ErrStreamConsumed)
			return
		}
		s.run(yield)
	}
}

func (s *TextStream) run(yield func(string, error) bool) {
	s.log = s.client.callLogger(s.model)
	start := time.Now()

	stream := s.client.transport.NewStreaming(s.ctx, s.req)
	defer func() {
		if err := stream.Close(); err != nil {
			s.log.Debug("closing stream", "error", err)
		}
	}()

	var acc anthropic.Message
	opened := false
	for stream.Next() {
		opened = true
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			s.fail(yield, errors.Wrap(err, "claude: accumulate stream event"))
			return
		}
		delta, ok := textDelta(event)
		if !ok || delta == "" {
			continue
		}
		if !yield(delta, nil) {
			s.finish(nil, errors.Wrap(context.Canceled, "claude: stream abandoned by consumer"))
			s.log.Debug("stream stopped by consumer")
			return
		}
	}
	if err := stream.Err(); err != nil {
		// Once events have flowed the transport no longer retries.
		attempts := 1
		if !opened {
			attempts = s.client.attempts()
		}
		s.fail(yield, classifyError(err, attempts))
		return
	}

	result, err := newCompletionResult(s.model, &acc)
	if err != nil {
		s.fail(yield, err)
		return
	}
	s.finish(result, nil)
	logUsage(s.log, result, s.req.MaxTokens, time.Since(start))
}

func (s *TextStream) fail(yield func(string, error) bool, err error) {
	s.log.Warn("stream failed", "error", err)
	s.finish(nil, err)
	yield("", err)
}

func (s *TextStream) finish(result *CompletionResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.result = result
	s.err = err
}

// Result reports the final usage and cost once Text has been drained. Before
// that it returns ErrStreamIncomplete; after a failure it returns the failure.
func (s *TextStream) Result() (*CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		return nil, ErrStreamIncomplete
	}
	return s.result, s.err
}

// Collect drains the stream and returns the assembled result.
func (s *TextStream) Collect() (*CompletionResult, error) {
	for _, err := range s.Text() {
		if err != nil {
			return nil, err
		}
	}
	return s.Result()
}

func textDelta(event anthropic.MessageStreamEventUnion) (string, bool) {
	ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
	if !ok {
		return "", false
	}
	delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
	if !ok {
		return "", false
	}
	return delta.Text, true
}
