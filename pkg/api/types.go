package api

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Content parts
// ---------------------------------------------------------------------------

// ContentPartType identifies the kind of a ContentPart.
type ContentPartType string

const (
	ContentTypeInputText  ContentPartType = "input_text"
	ContentTypeInputImage ContentPartType = "input_image"
	ContentTypeOutputText ContentPartType = "output_text"
)

// ContentPart is one element of a Message's content array. Exactly one of
// Text or ImageURL is meaningful, depending on Type.
type ContentPart struct {
	Type     ContentPartType `json:"-"`
	Text     string          `json:"-"`
	ImageURL json.RawMessage `json:"-"`
}

// MarshalJSON produces the flat wire shape for each content part variant.
func (p ContentPart) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case ContentTypeInputText, ContentTypeOutputText:
		return json.Marshal(struct {
			Type ContentPartType `json:"type"`
			Text string          `json:"text"`
		}{p.Type, p.Text})
	case ContentTypeInputImage:
		return json.Marshal(struct {
			Type     ContentPartType `json:"type"`
			ImageURL json.RawMessage `json:"image_url"`
		}{p.Type, p.ImageURL})
	default:
		return nil, fmt.Errorf("api: content part has unknown type %q", p.Type)
	}
}

// UnmarshalJSON parses a flat content part from any of the three variants.
func (p *ContentPart) UnmarshalJSON(data []byte) error {
	var w struct {
		Type     ContentPartType `json:"type"`
		Text     string          `json:"text"`
		ImageURL json.RawMessage `json:"image_url"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.Type = w.Type
	p.Text = w.Text
	p.ImageURL = w.ImageURL
	return nil
}

// NewInputText builds an input_text content part.
func NewInputText(text string) ContentPart {
	return ContentPart{Type: ContentTypeInputText, Text: text}
}

// NewOutputText builds an output_text content part.
func NewOutputText(text string) ContentPart {
	return ContentPart{Type: ContentTypeOutputText, Text: text}
}

// NewInputImage builds an input_image content part from an opaque image_url value.
func NewInputImage(imageURL json.RawMessage) ContentPart {
	return ContentPart{Type: ContentTypeInputImage, ImageURL: imageURL}
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

// MessageRole is the sender of a Message item.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleDeveloper MessageRole = "developer"
)

// ItemType identifies the variant of an Item.
type ItemType string

const (
	ItemTypeMessage            ItemType = "message"
	ItemTypeFunctionCall       ItemType = "function_call"
	ItemTypeFunctionCallOutput ItemType = "function_call_output"
)

// ItemStatus is the processing status of an Item or OutputItem.
type ItemStatus string

const (
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusIncomplete ItemStatus = "incomplete"
	ItemStatusFailed     ItemStatus = "failed"
)

// MessageData is the payload of a Message item.
type MessageData struct {
	Role    MessageRole   `json:"role"`
	Content []ContentPart `json:"content"`
}

// FunctionCallData is the payload of a FunctionCall item. Arguments is the
// raw JSON-text of the call's arguments object, built incrementally by the
// transcoder from upstream argument-string fragments.
type FunctionCallData struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FunctionCallOutputData is the payload of a FunctionCallOutput item.
type FunctionCallOutputData struct {
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// Item is a typed, immutable record in a conversation: a Message, a
// FunctionCall, or a FunctionCallOutput.
type Item struct {
	ID     string     `json:"id,omitempty"`
	Type   ItemType   `json:"type"`
	Status ItemStatus `json:"status,omitempty"`

	Message            *MessageData            `json:"-"`
	FunctionCall       *FunctionCallData       `json:"-"`
	FunctionCallOutput *FunctionCallOutputData `json:"-"`
}

// NewMessageItem builds a Message item with the given role and content.
func NewMessageItem(id string, status ItemStatus, role MessageRole, content []ContentPart) Item {
	return Item{
		ID:      id,
		Type:    ItemTypeMessage,
		Status:  status,
		Message: &MessageData{Role: role, Content: content},
	}
}

// NewFunctionCallItem builds a FunctionCall item.
func NewFunctionCallItem(id string, status ItemStatus, callID, name, arguments string) Item {
	return Item{
		ID:           id,
		Type:         ItemTypeFunctionCall,
		Status:       status,
		FunctionCall: &FunctionCallData{CallID: callID, Name: name, Arguments: arguments},
	}
}

// NewFunctionCallOutputItem builds a FunctionCallOutput item.
func NewFunctionCallOutputItem(id, callID, output string) Item {
	return Item{
		ID:                 id,
		Type:               ItemTypeFunctionCallOutput,
		Status:             ItemStatusCompleted,
		FunctionCallOutput: &FunctionCallOutputData{CallID: callID, Output: output},
	}
}

type itemWireBase struct {
	ID     string     `json:"id,omitempty"`
	Type   ItemType   `json:"type"`
	Status ItemStatus `json:"status,omitempty"`
}

// MarshalJSON serializes an Item to its flat wire format: type-specific
// fields live at the top level rather than under a nested wrapper key.
func (item Item) MarshalJSON() ([]byte, error) {
	base := itemWireBase{ID: item.ID, Type: item.Type, Status: item.Status}

	switch item.Type {
	case ItemTypeMessage:
		w := struct {
			itemWireBase
			Role    MessageRole   `json:"role"`
			Content []ContentPart `json:"content"`
		}{itemWireBase: base}
		if item.Message != nil {
			w.Role = item.Message.Role
			w.Content = item.Message.Content
		}
		if w.Content == nil {
			w.Content = []ContentPart{}
		}
		return json.Marshal(w)

	case ItemTypeFunctionCall:
		w := struct {
			itemWireBase
			CallID    string `json:"call_id"`
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		}{itemWireBase: base}
		if item.FunctionCall != nil {
			w.CallID = item.FunctionCall.CallID
			w.Name = item.FunctionCall.Name
			w.Arguments = item.FunctionCall.Arguments
		}
		return json.Marshal(w)

	case ItemTypeFunctionCallOutput:
		w := struct {
			itemWireBase
			CallID string `json:"call_id"`
			Output string `json:"output"`
		}{itemWireBase: base}
		if item.FunctionCallOutput != nil {
			w.CallID = item.FunctionCallOutput.CallID
			w.Output = item.FunctionCallOutput.Output
		}
		return json.Marshal(w)

	default:
		return nil, fmt.Errorf("api: item has unknown type %q", item.Type)
	}
}

// UnmarshalJSON parses an Item from its flat wire format.
func (item *Item) UnmarshalJSON(data []byte) error {
	var base struct {
		ID        string          `json:"id"`
		Type      ItemType        `json:"type"`
		Status    ItemStatus      `json:"status"`
		Role      MessageRole     `json:"role"`
		Content   []ContentPart   `json:"content"`
		CallID    string          `json:"call_id"`
		Name      string          `json:"name"`
		Arguments string          `json:"arguments"`
		Output    json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}

	item.ID = base.ID
	item.Type = base.Type
	item.Status = base.Status
	item.Message = nil
	item.FunctionCall = nil
	item.FunctionCallOutput = nil

	switch base.Type {
	case ItemTypeMessage:
		item.Message = &MessageData{Role: base.Role, Content: base.Content}

	case ItemTypeFunctionCall:
		item.FunctionCall = &FunctionCallData{
			CallID:    base.CallID,
			Name:      base.Name,
			Arguments: base.Arguments,
		}

	case ItemTypeFunctionCallOutput:
		output := ""
		if len(base.Output) > 0 {
			if err := json.Unmarshal(base.Output, &output); err != nil {
				output = string(base.Output)
			}
		}
		item.FunctionCallOutput = &FunctionCallOutputData{CallID: base.CallID, Output: output}

	default:
		return fmt.Errorf("api: item has unknown type %q", base.Type)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Request and response
// ---------------------------------------------------------------------------

// CreateResponseRequest is the body of POST /v1/responses.
type CreateResponseRequest struct {
	Model              string `json:"model"`
	Input              []Item `json:"input"`
	Store              *bool  `json:"store,omitempty"`
	Stream             bool   `json:"stream,omitempty"`
	PreviousResponseID string `json:"previous_response_id,omitempty"`
}

// ResponseStatus is the overall status of a Response.
type ResponseStatus string

const (
	ResponseStatusInProgress ResponseStatus = "in_progress"
	ResponseStatusCompleted  ResponseStatus = "completed"
	ResponseStatusIncomplete ResponseStatus = "incomplete"
	ResponseStatusFailed     ResponseStatus = "failed"
)

// Response is the aggregated response body returned for stream=false
// requests, and the shape echoed by response.created/response.completed
// event payloads for stream=true requests.
type Response struct {
	ID                 string         `json:"id"`
	Object             string         `json:"object"`
	CreatedAt          int64          `json:"created_at"`
	Status             ResponseStatus `json:"status"`
	Model              string         `json:"model"`
	PreviousResponseID *string        `json:"previous_response_id"`
	Output             []Item         `json:"output"`
	Usage              *Usage         `json:"usage"`
	Error              *APIError      `json:"error"`
}

// Usage holds token accounting for a completed response, when the upstream
// provider reported it on its final chunk.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
