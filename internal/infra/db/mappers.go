package db

import (
	"encoding/json"
	"log/slog"
)

func RawMessageToMap(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		slog.Error("error unmarshaling json column", "err", err)
	}
	return result
}

func MapToRawMessage(data map[string]interface{}) json.RawMessage {
	if data == nil {
		return nil
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		slog.Error("error marshaling json column", "err", err)
		return nil
	}
	return json.RawMessage(bytes)
}

func HeadersToRawMessage(headers map[string]string) json.RawMessage {
	if headers == nil {
		return nil
	}
	bytes, err := json.Marshal(headers)
	if err != nil {
		slog.Error("error marshaling headers", "err", err)
		return nil
	}
	return json.RawMessage(bytes)
}
