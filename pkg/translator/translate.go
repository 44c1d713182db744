// Package translator converts an ordered RSP item list into the flat LGC
// message list POSTed upstream.
package translator

import (
	"encoding/json"

	"github.com/ors-proxy/ors-proxy/pkg/api"
	"github.com/ors-proxy/ors-proxy/pkg/lgc"
)

// Translate builds the upstream Chat Completions request body from an
// ordered item list (conversation history followed by the new request
// input) and the target model. Adjacent assistant messages are not merged:
// doing so would scramble tool-call ordering against their outputs.
func Translate(items []api.Item, model string, stream bool) *lgc.Request {
	req := &lgc.Request{
		Model:  model,
		Stream: stream,
	}
	if stream {
		req.StreamOptions = &lgc.StreamOptions{IncludeUsage: true}
	}

	for _, item := range items {
		if msg := translateItem(item); msg != nil {
			req.Messages = append(req.Messages, *msg)
		}
	}

	return req
}

func translateItem(item api.Item) *lgc.Message {
	switch item.Type {
	case api.ItemTypeMessage:
		return translateMessage(item)
	case api.ItemTypeFunctionCall:
		return translateFunctionCall(item)
	case api.ItemTypeFunctionCallOutput:
		return translateFunctionCallOutput(item)
	default:
		return nil
	}
}

func translateMessage(item api.Item) *lgc.Message {
	if item.Message == nil {
		return nil
	}

	role := string(item.Message.Role)
	if item.Message.Role == api.RoleDeveloper {
		role = "system"
	}

	return &lgc.Message{
		Role:    role,
		Content: contentFor(item.Message.Content),
	}
}

// contentFor renders a message's content parts as the upstream sends them:
// a plain concatenated string when every part is text, or a content-part
// array (preserving RSP order) once any image part is present.
func contentFor(parts []api.ContentPart) any {
	if len(parts) == 0 {
		return ""
	}

	multimodal := false
	for _, p := range parts {
		if p.Type == api.ContentTypeInputImage {
			multimodal = true
			break
		}
	}

	if !multimodal {
		var text string
		for _, p := range parts {
			text += p.Text
		}
		return text
	}

	array := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case api.ContentTypeInputText, api.ContentTypeOutputText:
			array = append(array, map[string]any{"type": "text", "text": p.Text})
		case api.ContentTypeInputImage:
			var imageURL any
			if len(p.ImageURL) > 0 {
				_ = json.Unmarshal(p.ImageURL, &imageURL)
			}
			array = append(array, map[string]any{"type": "image_url", "image_url": imageURL})
		}
	}
	return array
}

func translateFunctionCall(item api.Item) *lgc.Message {
	if item.FunctionCall == nil {
		return nil
	}
	return &lgc.Message{
		Role:    "assistant",
		Content: nil,
		ToolCalls: []lgc.ToolCall{{
			ID:   item.FunctionCall.CallID,
			Type: "function",
			Function: lgc.FunctionCall{
				Name:      item.FunctionCall.Name,
				Arguments: item.FunctionCall.Arguments,
			},
		}},
	}
}

func translateFunctionCallOutput(item api.Item) *lgc.Message {
	if item.FunctionCallOutput == nil {
		return nil
	}
	return &lgc.Message{
		Role:       "tool",
		Content:    item.FunctionCallOutput.Output,
		ToolCallID: item.FunctionCallOutput.CallID,
	}
}
