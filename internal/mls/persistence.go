package mls

import (
	"encoding/json"
	"errors"

	"github.com/secluso/secluso/internal/statefile"
)

func saveState(dir, prefix string, data []byte) (string, error) {
	return statefile.Save(dir, prefix, data)
}

func loadState(dir, prefix string, decode func([]byte) error) error {
	return statefile.Load(dir, prefix, decode)
}

func cleanState(dir, prefix string) error {
	return statefile.Clean(dir, prefix)
}

func isNotFound(err error) bool {
	return errors.Is(err, statefile.ErrNotFound)
}

func marshalGroupMessage(msg GroupMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func unmarshalGroupMessage(data []byte) (*GroupMessage, error) {
	var msg GroupMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func marshalWelcome(w Welcome) ([]byte, error) {
	return json.Marshal(w)
}

func unmarshalWelcome(data []byte) (*Welcome, error) {
	var w Welcome
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &w, nil
}
