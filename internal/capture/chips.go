package capture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"weekhours/internal/model"
)

// DeclinedFromHints folds the page's decline signals into one flag: an
// accessibility label mentioning "declined" or a DECLINED response status.
func DeclinedFromHints(ariaLabel, responseStatus string) bool {
	if strings.Contains(strings.ToLower(ariaLabel), "declined") {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(responseStatus), "declined")
}

// fileChip accepts both the model.Chip fields and the raw hint shapes a
// browser dump carries.
type fileChip struct {
	model.Chip
	ResponseStatus string `json:"response_status,omitempty"`
}

// DecodeChips decodes a JSON array whose elements are either plain strings
// (chip text) or chip objects.
func DecodeChips(data []byte) ([]model.Chip, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("capture: chips must be a JSON array: %w", err)
	}
	chips := make([]model.Chip, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var text string
			if err := json.Unmarshal(item, &text); err != nil {
				return nil, fmt.Errorf("capture: chip %d: %w", i, err)
			}
			chips = append(chips, model.Chip{Text: text})
			continue
		}
		var fc fileChip
		if err := json.Unmarshal(item, &fc); err != nil {
			return nil, fmt.Errorf("capture: chip %d: %w", i, err)
		}
		c := fc.Chip
		status := fc.ResponseStatus
		if status == "" {
			status = c.Attributes["response_status"]
		}
		c.Declined = c.Declined || DeclinedFromHints(c.AriaLabel, status)
		chips = append(chips, c)
	}
	return chips, nil
}

// LoadChips reads chips from a JSON file written by DecodeChips' format.
func LoadChips(path string) ([]model.Chip, error) {
	if path == "" {
		return nil, errors.New("capture: chips path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeChips(data)
}
