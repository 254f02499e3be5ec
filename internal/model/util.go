package model

import (
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
)

func CreateID() string {
	uuid, _ := uuid.NewRandom()
	return base58.Encode(uuid[:])
}

// PairKey canonicalizes an unordered user pair into a stable key. The unique
// index on conversation.PairKey is what makes direct conversations unique per
// pair.
func PairKey(a, b UserID) string {
	if strings.Compare(string(a), string(b)) > 0 {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}
