// Package lgc models the loose, chunked Chat Completions wire protocol
// spoken at the upstream boundary: the permissive streaming delta shape
// decoded from each SSE record, and the request body built by the
// translator before it is POSTed upstream.
package lgc

import "encoding/json"

// ChunkDelta is one upstream streaming chunk. Every field is optional:
// providers omit fields freely and send keepalive chunks with no choices
// at all, so the decoder must never fail on a well-formed-but-sparse
// payload. Unknown top-level keys are preserved in Extra rather than
// rejected.
type ChunkDelta struct {
	ID      string        `json:"id,omitempty"`
	Model   string        `json:"model,omitempty"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *ChunkUsage   `json:"usage,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// ChunkChoice is one element of a chunk's choices array.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta is the incremental content of one choice in one chunk.
type Delta struct {
	Role      string          `json:"role,omitempty"`
	Content   *string         `json:"content"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is one fragment of one tool call. Index identifies which
// tool call this fragment continues; Id and Function.Name are only
// expected to be present on the first fragment for a given index.
type ToolCallDelta struct {
	Index    *int             `json:"index"`
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the name/arguments fragment of a tool call delta.
type ToolCallFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ChunkUsage is token accounting, usually present only on the final chunk
// when the request set stream_options.include_usage.
type ChunkUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Decode parses one SSE record's JSON payload into a ChunkDelta. A record
// with no "choices" key (e.g. a usage-only keepalive chunk some providers
// send) decodes successfully with an empty Choices slice rather than an
// error.
func Decode(record []byte) (ChunkDelta, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(record, &raw); err != nil {
		return ChunkDelta{}, &DecodeError{Record: record, Cause: err}
	}

	var chunk ChunkDelta
	if err := json.Unmarshal(record, &chunk); err != nil {
		return ChunkDelta{}, &DecodeError{Record: record, Cause: err}
	}

	chunk.Extra = make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		switch k {
		case "id", "model", "choices", "usage":
			continue
		default:
			chunk.Extra[k] = v
		}
	}

	return chunk, nil
}

// DecodeError wraps a malformed record. It is fatal only to the record
// that produced it; callers may continue decoding subsequent records.
type DecodeError struct {
	Record []byte
	Cause  error
}

func (e *DecodeError) Error() string {
	return "lgc: malformed chunk: " + e.Cause.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}
