package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	responseIDPrefix     = "resp_"
	itemIDPrefix         = "item_"
	conversationIDPrefix = "conv_"
	callIDPrefix         = "call_"
)

var (
	responseIDPattern     = regexp.MustCompile(`^resp_[a-zA-Z0-9]{24}$`)
	itemIDPattern         = regexp.MustCompile(`^item_[a-zA-Z0-9]{24}$`)
	conversationIDPattern = regexp.MustCompile(`^conv_[a-zA-Z0-9]{24}$`)
)

// NewResponseID generates a new response id ("resp_" + 24 random alphanumerics).
func NewResponseID() string {
	return responseIDPrefix + randomAlphanumeric(idLength)
}

// NewItemID generates a new item id ("item_" + 24 random alphanumerics).
func NewItemID() string {
	return itemIDPrefix + randomAlphanumeric(idLength)
}

// NewConversationID generates a new conversation id ("conv_" + 24 random alphanumerics).
func NewConversationID() string {
	return conversationIDPrefix + randomAlphanumeric(idLength)
}

// NewCallID generates a synthetic call_id for an upstream tool call that
// arrived without one ("call_" + 24 random alphanumerics).
func NewCallID() string {
	return callIDPrefix + randomAlphanumeric(idLength)
}

// ValidateResponseID checks whether id matches "resp_" + 24 alphanumerics.
func ValidateResponseID(id string) bool {
	return responseIDPattern.MatchString(id)
}

// ValidateItemID checks whether id matches "item_" + 24 alphanumerics.
func ValidateItemID(id string) bool {
	return itemIDPattern.MatchString(id)
}

// ValidateConversationID checks whether id matches "conv_" + 24 alphanumerics.
func ValidateConversationID(id string) bool {
	return conversationIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
