// Package transcoder implements the core state machine of ors-proxy: it
// consumes a sequence of permissive LGC chunk deltas and emits a strictly
// ordered, strictly typed sequence of RSP streaming events, accumulating
// the text and tool-call state needed to persist the turn once the stream
// closes.
package transcoder

import (
	"strings"
	"time"

	"github.com/ors-proxy/ors-proxy/pkg/api"
	"github.com/ors-proxy/ors-proxy/pkg/lgc"
)

type state int

const (
	stateInit state = iota
	stateOpen
	stateClosed
)

type itemKind int

const (
	kindMessage itemKind = iota
	kindFunctionCall
)

// openItem is one OutputItem under construction: either the single current
// text message or one function call keyed by its upstream tool index.
type openItem struct {
	kind        itemKind
	itemID      string
	outputIndex int
	closed      bool

	textAcc strings.Builder

	callID  string
	name    string
	argsAcc strings.Builder
}

// Transcoder is the per-request state machine described by the transcoder
// component: it owns the monotonic sequence_number and output_index
// counters and the upstream-tool-index -> item mapping. It is not safe for
// concurrent use and must not outlive one request.
type Transcoder struct {
	state state

	responseID string
	model      string
	createdAt  int64
	seq        int
	nextOutput int

	order       []*openItem
	currentText *openItem
	toolByIndex map[int]*openItem
}

// New creates a Transcoder in its initial state.
func New() *Transcoder {
	return &Transcoder{toolByIndex: make(map[int]*openItem)}
}

func (t *Transcoder) nextSeq() int {
	s := t.seq
	t.seq++
	return s
}

// Start allocates a response id, emits response.created, and transitions to
// Open. It must be called exactly once before any call to Process.
func (t *Transcoder) Start(model string) []api.StreamEvent {
	if t.state != stateInit {
		return nil
	}
	t.responseID = api.NewResponseID()
	t.model = model
	t.createdAt = time.Now().Unix()
	t.state = stateOpen

	return []api.StreamEvent{{
		Type:           api.EventResponseCreated,
		SequenceNumber: t.nextSeq(),
		Response:       t.snapshot(api.ResponseStatusInProgress, nil),
	}}
}

// ResponseID returns the response id allocated by Start.
func (t *Transcoder) ResponseID() string {
	return t.responseID
}

// Process consumes one decoded upstream chunk and returns the RSP events it
// produces, in the deterministic order required by the spec: any text delta
// for this chunk before any tool-call deltas, and terminal close events last.
func (t *Transcoder) Process(delta lgc.ChunkDelta) []api.StreamEvent {
	if t.state != stateOpen {
		return nil
	}
	if len(delta.Choices) == 0 {
		return nil
	}
	choice := delta.Choices[0]

	var events []api.StreamEvent

	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		events = append(events, t.processText(*choice.Delta.Content)...)
	}

	for i, tc := range choice.Delta.ToolCalls {
		events = append(events, t.processToolCallFragment(i, tc)...)
	}

	if choice.FinishReason != nil {
		events = append(events, t.close(api.ItemStatusCompleted)...)
		events = append(events, api.StreamEvent{
			Type:           api.EventResponseCompleted,
			SequenceNumber: t.nextSeq(),
			Response:       t.snapshot(api.ResponseStatusCompleted, nil),
		})
		t.state = stateClosed
	}

	return events
}

func (t *Transcoder) processText(content string) []api.StreamEvent {
	var events []api.StreamEvent

	item := t.currentText
	if item == nil {
		item = &openItem{kind: kindMessage, itemID: api.NewItemID(), outputIndex: t.nextOutput}
		t.nextOutput++
		t.order = append(t.order, item)
		t.currentText = item

		events = append(events, api.StreamEvent{
			Type:           api.EventOutputItemAdded,
			SequenceNumber: t.nextSeq(),
			OutputIndex:    item.outputIndex,
			ItemID:         item.itemID,
			Item:           messageItem(item, api.ItemStatusInProgress),
		})

		part := api.NewOutputText("")
		events = append(events, api.StreamEvent{
			Type:           api.EventContentPartAdded,
			SequenceNumber: t.nextSeq(),
			ItemID:         item.itemID,
			OutputIndex:    item.outputIndex,
			ContentIndex:   0,
			Part:           &part,
		})
	}

	item.textAcc.WriteString(content)
	events = append(events, api.StreamEvent{
		Type:           api.EventOutputTextDelta,
		SequenceNumber: t.nextSeq(),
		ItemID:         item.itemID,
		OutputIndex:    item.outputIndex,
		ContentIndex:   0,
		Delta:          content,
	})

	return events
}

func (t *Transcoder) processToolCallFragment(arrayPos int, tc lgc.ToolCallDelta) []api.StreamEvent {
	var events []api.StreamEvent

	idx := arrayPos
	if tc.Index != nil {
		idx = *tc.Index
	}

	item, existed := t.toolByIndex[idx]
	if !existed {
		callID := tc.ID
		if callID == "" {
			callID = api.NewCallID()
		}
		item = &openItem{
			kind:        kindFunctionCall,
			itemID:      api.NewItemID(),
			outputIndex: t.nextOutput,
			callID:      callID,
			name:        tc.Function.Name,
		}
		t.nextOutput++
		t.order = append(t.order, item)
		t.toolByIndex[idx] = item

		events = append(events, api.StreamEvent{
			Type:           api.EventOutputItemAdded,
			SequenceNumber: t.nextSeq(),
			OutputIndex:    item.outputIndex,
			ItemID:         item.itemID,
			Item:           functionCallItem(item, api.ItemStatusInProgress),
		})
	}

	if tc.Function.Name != "" {
		item.name = tc.Function.Name
	}

	if tc.Function.Arguments != "" {
		item.argsAcc.WriteString(tc.Function.Arguments)
		events = append(events, api.StreamEvent{
			Type:           api.EventFunctionCallArgumentsDelta,
			SequenceNumber: t.nextSeq(),
			ItemID:         item.itemID,
			OutputIndex:    item.outputIndex,
			Delta:          tc.Function.Arguments,
		})
	}

	return events
}

// close emits content_part.done (text items only) and output_item.done for
// every still-open item, in insertion order, and marks them closed.
func (t *Transcoder) close(status api.ItemStatus) []api.StreamEvent {
	var events []api.StreamEvent
	for _, item := range t.order {
		if item.closed {
			continue
		}
		if item.kind == kindMessage {
			part := api.NewOutputText(item.textAcc.String())
			events = append(events, api.StreamEvent{
				Type:           api.EventContentPartDone,
				SequenceNumber: t.nextSeq(),
				ItemID:         item.itemID,
				OutputIndex:    item.outputIndex,
				ContentIndex:   0,
				Part:           &part,
			})
		}

		var closedItem *api.Item
		if item.kind == kindMessage {
			closedItem = messageItem(item, status)
		} else {
			closedItem = functionCallItem(item, status)
		}

		events = append(events, api.StreamEvent{
			Type:           api.EventOutputItemDone,
			SequenceNumber: t.nextSeq(),
			ItemID:         item.itemID,
			OutputIndex:    item.outputIndex,
			Item:           closedItem,
		})
		item.closed = true
	}
	return events
}

// FinishStream is called when the upstream byte stream ends without the
// upstream ever reporting a finish_reason. It synthesizes the same closing
// sequence Process would on finish_reason=stop, except the response is
// marked incomplete rather than completed when no item was ever opened.
func (t *Transcoder) FinishStream() []api.StreamEvent {
	if t.state != stateOpen {
		return nil
	}

	status := api.ResponseStatusCompleted
	itemStatus := api.ItemStatusCompleted
	if len(t.order) == 0 {
		status = api.ResponseStatusIncomplete
		itemStatus = api.ItemStatusIncomplete
	}

	events := t.close(itemStatus)
	events = append(events, api.StreamEvent{
		Type:           api.EventResponseCompleted,
		SequenceNumber: t.nextSeq(),
		Response:       t.snapshot(status, nil),
	})
	t.state = stateClosed
	return events
}

// FinishError closes any open items with status failed and emits a single
// terminal response.error event.
func (t *Transcoder) FinishError(kind api.ErrorType, message string) []api.StreamEvent {
	if t.state != stateOpen {
		return nil
	}

	events := t.close(api.ItemStatusFailed)
	apiErr := &api.APIError{Type: kind, Message: message}
	events = append(events, api.StreamEvent{
		Type:           api.EventResponseError,
		SequenceNumber: t.nextSeq(),
		Error:          apiErr,
	})
	t.state = stateClosed
	return events
}

// OutputItems returns the final, closed RSP items produced by this
// response, in output_index order, for the orchestrator to persist.
func (t *Transcoder) OutputItems() []api.Item {
	items := make([]api.Item, 0, len(t.order))
	for _, item := range t.order {
		status := api.ItemStatusCompleted
		if !item.closed {
			status = api.ItemStatusInProgress
		}
		if item.kind == kindMessage {
			items = append(items, *messageItem(item, status))
		} else {
			items = append(items, *functionCallItem(item, status))
		}
	}
	return items
}

func (t *Transcoder) snapshot(status api.ResponseStatus, errAPI *api.APIError) *api.Response {
	return &api.Response{
		ID:        t.responseID,
		Object:    "response",
		Status:    status,
		Model:     t.model,
		CreatedAt: t.createdAt,
		Output:    t.OutputItems(),
		Error:     errAPI,
	}
}

func messageItem(item *openItem, status api.ItemStatus) *api.Item {
	it := api.NewMessageItem(item.itemID, status, api.RoleAssistant,
		[]api.ContentPart{api.NewOutputText(item.textAcc.String())})
	return &it
}

func functionCallItem(item *openItem, status api.ItemStatus) *api.Item {
	it := api.NewFunctionCallItem(item.itemID, status, item.callID, item.name, item.argsAcc.String())
	return &it
}
