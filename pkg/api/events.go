package api

// StreamEventType identifies the tag of one RSP server-sent event.
type StreamEventType string

const (
	EventResponseCreated StreamEventType = "response.created"

	EventOutputItemAdded  StreamEventType = "response.output_item.added"
	EventContentPartAdded StreamEventType = "response.content_part.added"

	EventOutputTextDelta           StreamEventType = "response.output_text.delta"
	EventFunctionCallArgumentsDelta StreamEventType = "response.function_call_arguments.delta"

	EventContentPartDone StreamEventType = "response.content_part.done"
	EventOutputItemDone  StreamEventType = "response.output_item.done"

	EventResponseCompleted StreamEventType = "response.completed"
	EventResponseError     StreamEventType = "response.error"
)

// StreamEvent is a single RSP server-sent event. Every event carries
// SequenceNumber; item-scoped events additionally carry OutputIndex and
// ItemID; content-scoped events additionally carry ContentIndex.
type StreamEvent struct {
	Type           StreamEventType `json:"type"`
	SequenceNumber int             `json:"sequence_number"`

	Response *Response    `json:"response,omitempty"`
	Item     *Item        `json:"item,omitempty"`
	Part     *ContentPart `json:"part,omitempty"`
	Error    *APIError    `json:"error,omitempty"`

	ItemID       string `json:"item_id,omitempty"`
	OutputIndex  int    `json:"output_index,omitempty"`
	ContentIndex int    `json:"content_index,omitempty"`
	Delta        string `json:"delta,omitempty"`
}
