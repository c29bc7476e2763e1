package utils

import (
	"encoding/json"
	"log/slog"
)

// SafeJSONParse parses JSON safely
func SafeJSONParse(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// JSONWriter is the part of a websocket connection SendJSON needs.
type JSONWriter interface {
	WriteJSON(v interface{}) error
}

// SendJSON writes a JSON payload to a connection. Websocket connections
// are not safe for concurrent writes; the caller serializes.
func SendJSON(c JSONWriter, payload interface{}) error {
	return c.WriteJSON(payload)
}

// LogError logs an error if it's not nil
func LogError(err error, context string) {
	if err != nil {
		slog.Error("operation failed", "context", context, "error", err)
	}
}
