package entitlement

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Receipt is what a payment callback drops into the inbox.
type Receipt struct {
	IsPro      *bool  `json:"is_pro"`
	ResetUsage bool   `json:"reset_usage"`
	Reference  string `json:"reference,omitempty"`
}

var ErrMalformedReceipt = errors.New("malformed receipt")

func ParseReceipt(data []byte) (Receipt, error) {
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}
	if r.IsPro == nil {
		return Receipt{}, fmt.Errorf("%w: is_pro is required", ErrMalformedReceipt)
	}
	return r, nil
}

func readReceipt(path string) (Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Receipt{}, err
	}
	return ParseReceipt(data)
}
