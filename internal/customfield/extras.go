// Package customfield wires the custom-field service and exposes the
// serialization helper that flattens resolved attributes onto an entity's
// public representation.
package customfield

import "encoding/json"

// FlattenJSON marshals base and lays each extra attribute alongside the
// native fields, keyed by its definition label. The raw value-row artifact
// never reaches the output; labels with no resolved value are simply absent.
func FlattenJSON(base any, extras map[string]any) ([]byte, error) {
	encoded, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	if len(extras) == 0 {
		return encoded, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(encoded, &merged); err != nil {
		return nil, err
	}
	for label, value := range extras {
		merged[label] = value
	}
	return json.Marshal(merged)
}
