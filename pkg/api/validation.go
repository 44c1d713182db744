package api

import "fmt"

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxInputItems int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{MaxInputItems: 1000}
}

// ValidateRequest checks a CreateResponseRequest for validity. It returns
// an *APIError describing the first validation failure, or nil.
func ValidateRequest(req *CreateResponseRequest, cfg ValidationConfig) *APIError {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}
	if len(req.Input) == 0 && req.PreviousResponseID == "" {
		return NewInvalidRequestError("input", "input must contain at least one item")
	}
	if cfg.MaxInputItems > 0 && len(req.Input) > cfg.MaxInputItems {
		return NewInvalidRequestError("input", fmt.Sprintf("input exceeds maximum of %d items", cfg.MaxInputItems))
	}
	for i := range req.Input {
		if err := ValidateItem(&req.Input[i]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateItem checks an Item for structural validity.
func ValidateItem(item *Item) *APIError {
	if item.ID != "" && !ValidateItemID(item.ID) {
		return NewInvalidRequestError("id", "invalid item ID format")
	}

	switch item.Type {
	case ItemTypeMessage:
		if item.Message == nil {
			return NewInvalidRequestError("message", "message field required for message type")
		}
		switch item.Message.Role {
		case RoleUser, RoleAssistant, RoleDeveloper:
		default:
			return NewInvalidRequestError("role", fmt.Sprintf("invalid message role %q", item.Message.Role))
		}
	case ItemTypeFunctionCall:
		if item.FunctionCall == nil || item.FunctionCall.CallID == "" {
			return NewInvalidRequestError("function_call", "function_call field with call_id is required for function_call type")
		}
	case ItemTypeFunctionCallOutput:
		if item.FunctionCallOutput == nil || item.FunctionCallOutput.CallID == "" {
			return NewInvalidRequestError("function_call_output", "function_call_output field with call_id is required for function_call_output type")
		}
	default:
		return NewInvalidRequestError("type", fmt.Sprintf("invalid item type %q", item.Type))
	}

	return nil
}

// IsStateless returns true if the request has store explicitly set to false.
func IsStateless(req *CreateResponseRequest) bool {
	return req.Store != nil && !*req.Store
}

// ResolveStore returns the effective store value, defaulting to true when nil.
func ResolveStore(req *CreateResponseRequest) bool {
	if req.Store != nil {
		return *req.Store
	}
	return true
}

