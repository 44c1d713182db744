package transcoder

import (
	"testing"

	"github.com/ors-proxy/ors-proxy/pkg/api"
	"github.com/ors-proxy/ors-proxy/pkg/lgc"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func eventTypes(events []api.StreamEvent) []api.StreamEventType {
	types := make([]api.StreamEventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func assertTypes(t *testing.T, got []api.StreamEventType, want ...api.StreamEventType) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

// S1: plain text response, no tool calls.
func TestTranscoder_PlainText(t *testing.T) {
	tc := New()

	created := tc.Start("test-model")
	assertTypes(t, eventTypes(created), api.EventResponseCreated)

	e1 := tc.Process(lgc.ChunkDelta{Choices: []lgc.ChunkChoice{
		{Delta: lgc.Delta{Content: strPtr("Hel")}},
	}})
	assertTypes(t, eventTypes(e1), api.EventOutputItemAdded, api.EventContentPartAdded, api.EventOutputTextDelta)

	e2 := tc.Process(lgc.ChunkDelta{Choices: []lgc.ChunkChoice{
		{Delta: lgc.Delta{Content: strPtr("lo")}},
	}})
	assertTypes(t, eventTypes(e2), api.EventOutputTextDelta)
	if e2[0].Delta != "lo" {
		t.Errorf("delta = %q, want %q", e2[0].Delta, "lo")
	}

	e3 := tc.Process(lgc.ChunkDelta{Choices: []lgc.ChunkChoice{
		{Delta: lgc.Delta{}, FinishReason: strPtr("stop")},
	}})
	assertTypes(t, eventTypes(e3), api.EventContentPartDone, api.EventOutputItemDone, api.EventResponseCompleted)

	final := e3[len(e3)-1]
	if final.Response.Status != api.ResponseStatusCompleted {
		t.Errorf("final status = %q, want completed", final.Response.Status)
	}
	if len(final.Response.Output) != 1 {
		t.Fatalf("output has %d items, want 1", len(final.Response.Output))
	}
	out := final.Response.Output[0]
	if out.Type != api.ItemTypeMessage || out.Message.Content[0].Text != "Hello" {
		t.Errorf("output item = %+v, want message \"Hello\"", out)
	}
}

// S2: a single tool call delivered across several fragments, identified by
// index with the id and name only present on the first fragment.
func TestTranscoder_ToolCallFragments(t *testing.T) {
	tc := New()
	tc.Start("test-model")

	e1 := tc.Process(lgc.ChunkDelta{Choices: []lgc.ChunkChoice{{
		Delta: lgc.Delta{ToolCalls: []lgc.ToolCallDelta{{
			Index: intPtr(0), ID: "call_abc",
			Function: lgc.ToolCallFunction{Name: "get_weather", Arguments: `{"loc`},
		}}},
	}}})
	assertTypes(t, eventTypes(e1), api.EventOutputItemAdded, api.EventFunctionCallArgumentsDelta)
	if e1[0].Item.FunctionCall.CallID != "call_abc" || e1[0].Item.FunctionCall.Name != "get_weather" {
		t.Errorf("item = %+v", e1[0].Item)
	}

	e2 := tc.Process(lgc.ChunkDelta{Choices: []lgc.ChunkChoice{{
		Delta: lgc.Delta{ToolCalls: []lgc.ToolCallDelta{{
			Index:    intPtr(0),
			Function: lgc.ToolCallFunction{Arguments: `ation":"SF"}`},
		}}},
	}}})
	assertTypes(t, eventTypes(e2), api.EventFunctionCallArgumentsDelta)

	e3 := tc.Process(lgc.ChunkDelta{Choices: []lgc.ChunkChoice{
		{Delta: lgc.Delta{}, FinishReason: strPtr("tool_calls")},
	}})
	assertTypes(t, eventTypes(e3), api.EventOutputItemDone, api.EventResponseCompleted)

	final := e3[len(e3)-1]
	out := final.Response.Output[0]
	if out.FunctionCall.Arguments != `{"location":"SF"}` {
		t.Errorf("arguments = %q", out.FunctionCall.Arguments)
	}
}

// S3: a delta carrying both a text fragment and a tool-call fragment in the
// same chunk must emit the text events before the tool-call events.
func TestTranscoder_MixedTextAndToolCallOrdering(t *testing.T) {
	tc := New()
	tc.Start("test-model")

	events := tc.Process(lgc.ChunkDelta{Choices: []lgc.ChunkChoice{{
		Delta: lgc.Delta{
			Content: strPtr("thinking..."),
			ToolCalls: []lgc.ToolCallDelta{{
				Index:    intPtr(0),
				ID:       "call_xyz",
				Function: lgc.ToolCallFunction{Name: "lookup", Arguments: "{}"},
			}},
		},
	}}})

	assertTypes(t, eventTypes(events),
		api.EventOutputItemAdded, api.EventContentPartAdded, api.EventOutputTextDelta,
		api.EventOutputItemAdded, api.EventFunctionCallArgumentsDelta)

	if events[0].Item.Type != api.ItemTypeMessage {
		t.Errorf("first item_added should be the message, got %q", events[0].Item.Type)
	}
	if events[3].Item.Type != api.ItemTypeFunctionCall {
		t.Errorf("second item_added should be the function call, got %q", events[3].Item.Type)
	}
	if events[0].OutputIndex != 0 || events[3].OutputIndex != 1 {
		t.Errorf("output indices = %d, %d, want 0, 1", events[0].OutputIndex, events[3].OutputIndex)
	}
}

// A tool call fragment with no id and no index falls back to its array
// position and gets a synthesized call_id.
func TestTranscoder_ToolCallWithoutIDOrIndexSynthesizesCallID(t *testing.T) {
	tc := New()
	tc.Start("test-model")

	events := tc.Process(lgc.ChunkDelta{Choices: []lgc.ChunkChoice{{
		Delta: lgc.Delta{ToolCalls: []lgc.ToolCallDelta{{
			Function: lgc.ToolCallFunction{Name: "fn", Arguments: "{}"},
		}}},
	}}})

	item := events[0].Item
	if item.FunctionCall.CallID == "" {
		t.Fatal("expected a synthesized call_id, got empty string")
	}
}

// A stream that ends without ever reporting finish_reason is completed via
// FinishStream; if no item was ever opened the response is incomplete.
func TestTranscoder_FinishStreamWithoutFinishReason(t *testing.T) {
	tc := New()
	tc.Start("test-model")
	tc.Process(lgc.ChunkDelta{Choices: []lgc.ChunkChoice{{Delta: lgc.Delta{Content: strPtr("partial")}}}})

	events := tc.FinishStream()
	assertTypes(t, eventTypes(events), api.EventContentPartDone, api.EventOutputItemDone, api.EventResponseCompleted)

	final := events[len(events)-1]
	if final.Response.Status != api.ResponseStatusCompleted {
		t.Errorf("status = %q, want completed", final.Response.Status)
	}
}

func TestTranscoder_FinishStreamWithNoItemsIsIncomplete(t *testing.T) {
	tc := New()
	tc.Start("test-model")

	events := tc.FinishStream()
	assertTypes(t, eventTypes(events), api.EventResponseCompleted)

	if events[0].Response.Status != api.ResponseStatusIncomplete {
		t.Errorf("status = %q, want incomplete", events[0].Response.Status)
	}
}

// FinishError closes open items as failed and emits a single response.error
// event carrying the error kind.
func TestTranscoder_FinishError(t *testing.T) {
	tc := New()
	tc.Start("test-model")
	tc.Process(lgc.ChunkDelta{Choices: []lgc.ChunkChoice{{Delta: lgc.Delta{Content: strPtr("partial")}}}})

	events := tc.FinishError(api.ErrorTypeUpstreamError, "connection reset")
	assertTypes(t, eventTypes(events), api.EventContentPartDone, api.EventOutputItemDone, api.EventResponseError)

	final := events[len(events)-1]
	if final.Error == nil || final.Error.Type != api.ErrorTypeUpstreamError {
		t.Errorf("error = %+v, want type %q", final.Error, api.ErrorTypeUpstreamError)
	}
}

// Once closed, the transcoder must not emit further events.
func TestTranscoder_ClosedIsTerminal(t *testing.T) {
	tc := New()
	tc.Start("test-model")
	tc.FinishStream()

	if got := tc.Process(lgc.ChunkDelta{Choices: []lgc.ChunkChoice{{Delta: lgc.Delta{Content: strPtr("late")}}}}); got != nil {
		t.Errorf("Process after close = %v, want nil", got)
	}
	if got := tc.FinishStream(); got != nil {
		t.Errorf("FinishStream after close = %v, want nil", got)
	}
	if got := tc.FinishError(api.ErrorTypeInternal, "x"); got != nil {
		t.Errorf("FinishError after close = %v, want nil", got)
	}
}
