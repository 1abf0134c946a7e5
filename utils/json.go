package utils

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrBlankJSON is returned by DecodeJSONText for NULL-ish text columns.
var ErrBlankJSON = errors.New("empty document")

// EncodeJSONText renders v for a TEXT column.
func EncodeJSONText[T any](v T) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeJSONText decodes a TEXT column into out. Blank text gives ErrBlankJSON.
func DecodeJSONText(raw string, out any) error {
	if strings.TrimSpace(raw) == "" {
		return ErrBlankJSON
	}
	return json.Unmarshal([]byte(raw), out)
}
