package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ors-proxy/ors-proxy/pkg/api"
	"github.com/ors-proxy/ors-proxy/pkg/framer"
	"github.com/ors-proxy/ors-proxy/pkg/lgc"
	"github.com/ors-proxy/ors-proxy/pkg/observability"
	"github.com/ors-proxy/ors-proxy/pkg/store"
	"github.com/ors-proxy/ors-proxy/pkg/transcoder"
	"github.com/ors-proxy/ors-proxy/pkg/translator"
	"github.com/ors-proxy/ors-proxy/pkg/transport"
	"github.com/ors-proxy/ors-proxy/pkg/upstream"
)

// Engine is the request orchestrator. It resolves conversation context,
// translates it to an upstream request, drives the upstream byte stream
// through the framer/decoder/transcoder pipeline, relays the resulting
// events to the client, and persists the turn.
type Engine struct {
	store    store.Store
	upstream *upstream.Client
	cfg      Config
	logger   *slog.Logger
}

var _ transport.ResponseCreator = (*Engine)(nil)
var _ transport.HealthChecker = (*Engine)(nil)

// New creates an Engine. logger defaults to slog.Default() if nil.
func New(st store.Store, up *upstream.Client, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, upstream: up, cfg: cfg, logger: logger}
}

// Ping reports whether the backing store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// CreateResponse implements transport.ResponseCreator.
func (e *Engine) CreateResponse(ctx context.Context, req *api.CreateResponseRequest, w transport.ResponseWriter) error {
	if req.Model == "" {
		req.Model = e.cfg.DefaultModel
	}
	if apiErr := api.ValidateRequest(req, api.DefaultValidationConfig()); apiErr != nil {
		return apiErr
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.requestTimeout())
	defer cancel()

	conversationID, history, apiErr := e.resolveConversation(ctx, req)
	if apiErr != nil {
		return apiErr
	}

	if apiErr := validateFunctionCallOutputs(history, req.Input); apiErr != nil {
		return apiErr
	}

	allItems := make([]api.Item, 0, len(history)+len(req.Input))
	allItems = append(allItems, history...)
	allItems = append(allItems, req.Input...)

	lgcReq := translator.Translate(allItems, req.Model, true)
	body, err := json.Marshal(lgcReq)
	if err != nil {
		return api.NewInternalError("marshaling upstream request: " + err.Error())
	}

	start := time.Now()
	upstreamBody, err := e.upstream.Do(ctx, body)
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			return api.NewUpstreamError(statusErr.Error())
		}
		return api.NewUpstreamError(err.Error())
	}
	defer upstreamBody.Close()

	tc := transcoder.New()
	var last *api.Response
	emit := func(events []api.StreamEvent) error {
		for _, ev := range events {
			if ev.Response != nil {
				last = ev.Response
			}
		}
		if !req.Stream {
			return nil
		}
		for _, ev := range events {
			if err := w.WriteEvent(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	}

	if err := emit(tc.Start(req.Model)); err != nil {
		return nil
	}

	finishErr, disconnected := e.runPipeline(ctx, tc, upstreamBody, emit)
	observability.UpstreamLatency.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	if disconnected != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(req.Model, "disconnected").Inc()
		return nil
	}
	if finishErr != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		if req.Stream {
			return nil
		}
		return finishErr
	}
	observability.UpstreamRequestsTotal.WithLabelValues(req.Model, "success").Inc()

	if api.ResolveStore(req) {
		e.persist(ctx, conversationID, req.Input, tc)
	}

	if req.Stream {
		return nil
	}
	if last == nil {
		return api.NewInternalError("upstream stream produced no response")
	}
	return w.WriteResponse(ctx, last)
}

// resolveConversation resolves or creates the conversation this turn belongs
// to and loads its existing items.
func (e *Engine) resolveConversation(ctx context.Context, req *api.CreateResponseRequest) (string, []api.Item, *api.APIError) {
	if req.PreviousResponseID == "" {
		convID, err := e.store.CreateConversation(ctx)
		if err != nil {
			return "", nil, api.NewStoreError("creating conversation: " + err.Error())
		}
		return convID, nil, nil
	}

	convID, err := e.store.ResolvePrevious(ctx, req.PreviousResponseID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, api.NewNotFoundError(fmt.Sprintf("previous_response_id %q not found", req.PreviousResponseID))
	}
	if err != nil {
		return "", nil, api.NewStoreError("resolving previous_response_id: " + err.Error())
	}

	history, err := e.store.LoadItems(ctx, convID)
	if err != nil {
		return "", nil, api.NewStoreError("loading conversation history: " + err.Error())
	}
	return convID, history, nil
}

// validateFunctionCallOutputs enforces that every function_call_output item
// in the combined history+input sequence has a preceding function_call item
// with a matching call_id, in history or earlier in the same input batch.
func validateFunctionCallOutputs(history, input []api.Item) *api.APIError {
	seen := make(map[string]bool)
	check := func(items []api.Item) *api.APIError {
		for _, item := range items {
			switch item.Type {
			case api.ItemTypeFunctionCall:
				if item.FunctionCall != nil {
					seen[item.FunctionCall.CallID] = true
				}
			case api.ItemTypeFunctionCallOutput:
				if item.FunctionCallOutput != nil && !seen[item.FunctionCallOutput.CallID] {
					return api.NewInvalidRequestError("input",
						fmt.Sprintf("function_call_output references call_id %q with no matching function_call", item.FunctionCallOutput.CallID))
				}
			}
		}
		return nil
	}
	if err := check(history); err != nil {
		return err
	}
	return check(input)
}

// eventSink receives a batch of events produced by one decoded chunk.
type eventSink func(events []api.StreamEvent) error

// runPipeline drives chunks from body through the framer, decoder, and
// transcoder until the upstream stream ends, sending each batch of produced
// events to sink. It returns a non-nil *api.APIError if the turn ended in
// error (already reflected in a response.error event via sink), or a non-nil
// disconnect error if sink itself failed or ctx was canceled by the client
// going away (a context.DeadlineExceeded from the wall-clock timeout is
// surfaced as a TimeoutError through the first return value instead, since
// it is a genuine error outcome rather than a disconnect).
func (e *Engine) runPipeline(ctx context.Context, tc *transcoder.Transcoder, body io.Reader, sink eventSink) (*api.APIError, error) {
	fr := framer.New()
	idle := e.cfg.idleTimeout()

	type readResult struct {
		n   int
		buf []byte
		err error
	}

	readOnce := func() <-chan readResult {
		ch := make(chan readResult, 1)
		go func() {
			buf := make([]byte, 4096)
			n, err := body.Read(buf)
			ch <- readResult{n: n, buf: buf[:n], err: err}
		}()
		return ch
	}

	pending := readOnce()
	for {
		timer := time.NewTimer(idle)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				apiErr := api.NewTimeoutError("request exceeded wall-clock timeout of " + e.cfg.requestTimeout().String())
				_ = sink(tc.FinishError(apiErr.Type, apiErr.Message))
				return apiErr, nil
			}
			return nil, ctx.Err()

		case <-timer.C:
			apiErr := api.NewTimeoutError("upstream stream idle for " + idle.String())
			_ = sink(tc.FinishError(apiErr.Type, apiErr.Message))
			return apiErr, nil

		case res := <-pending:
			timer.Stop()

			if res.n > 0 {
				records, ferr := fr.Push(res.buf)
				for _, rec := range records {
					delta, derr := lgc.Decode(rec)
					if derr != nil {
						e.logger.Warn("skipping malformed upstream chunk", "error", derr)
						continue
					}
					events := tc.Process(delta)
					if len(events) > 0 {
						if err := sink(events); err != nil {
							return nil, err
						}
					}
				}
				if ferr != nil {
					apiErr := api.NewUpstreamProtocolError(ferr.Error())
					_ = sink(tc.FinishError(apiErr.Type, apiErr.Message))
					return apiErr, nil
				}
				if fr.Done() {
					return e.finishClean(tc, sink)
				}
			}

			if res.err != nil {
				if res.err == io.EOF {
					return e.finishClean(tc, sink)
				}
				apiErr := api.NewUpstreamError(res.err.Error())
				_ = sink(tc.FinishError(apiErr.Type, apiErr.Message))
				return apiErr, nil
			}

			pending = readOnce()
		}
	}
}

// finishClean handles the normal end of the upstream byte stream: if the
// transcoder already closed on a finish_reason, FinishStream is a no-op;
// otherwise it synthesizes a terminal event.
func (e *Engine) finishClean(tc *transcoder.Transcoder, sink eventSink) (*api.APIError, error) {
	events := tc.FinishStream()
	if len(events) > 0 {
		if err := sink(events); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// persist appends the request's input items and the turn's produced output
// items to the conversation, then records the response id. Persistence
// failures are logged but do not fail a response the client already
// received.
func (e *Engine) persist(ctx context.Context, conversationID string, input []api.Item, tc *transcoder.Transcoder) {
	toAppend := make([]api.Item, 0, len(input)+len(tc.OutputItems()))
	toAppend = append(toAppend, input...)
	toAppend = append(toAppend, tc.OutputItems()...)

	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = e.store.AppendItems(ctx, conversationID, toAppend)
		if err == nil {
			break
		}
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			continue
		}
		break
	}
	if err != nil {
		e.logger.Error("failed to persist conversation items", "conversation_id", conversationID, "error", err)
		return
	}

	if err := e.store.RecordResponse(ctx, tc.ResponseID(), conversationID); err != nil {
		e.logger.Error("failed to record response mapping", "response_id", tc.ResponseID(), "error", err)
	}
}
