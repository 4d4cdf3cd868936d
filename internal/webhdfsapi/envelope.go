// Package webhdfsapi holds the JSON envelope conventions of the WebHDFS REST
// API. Every JSON response wraps its payload in a single-key object whose key
// names the payload type ("FileStatus", "FileStatuses", "boolean",
// "Location", "RemoteException").
package webhdfsapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope keys used by the REST API.
const (
	KeyFileStatus      = "FileStatus"
	KeyFileStatuses    = "FileStatuses"
	KeyBoolean         = "boolean"
	KeyLocation        = "Location"
	KeyRemoteException = "RemoteException"
)

// ErrMissingEnvelope is returned when the response lacks the expected key.
var ErrMissingEnvelope = errors.New("webhdfsapi: missing envelope key")

// RemoteException is the error document returned by the NameNode and DataNodes.
type RemoteException struct {
	Exception     string `json:"exception"`
	JavaClassName string `json:"javaClassName"`
	Message       string `json:"message"`
}

// ExtractEnvelope returns the raw JSON stored under key.
func ExtractEnvelope(body []byte, key string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w %q: empty body", ErrMissingEnvelope, key)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("webhdfsapi: decode envelope: %w", err)
	}
	raw, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingEnvelope, key)
	}
	return raw, nil
}

// DecodeEnvelope decodes the payload stored under key into out.
func DecodeEnvelope(body []byte, key string, out any) error {
	raw, err := ExtractEnvelope(body, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("webhdfsapi: decode %s: %w", key, err)
	}
	return nil
}

// DecodeBoolean unwraps {"boolean": <bool>}.
func DecodeBoolean(body []byte) (bool, error) {
	var b bool
	if err := DecodeEnvelope(body, KeyBoolean, &b); err != nil {
		return false, err
	}
	return b, nil
}

// DecodeLocation unwraps {"Location": "<url>"} returned for noredirect requests.
func DecodeLocation(body []byte) (string, error) {
	var loc string
	if err := DecodeEnvelope(body, KeyLocation, &loc); err != nil {
		return "", err
	}
	if loc == "" {
		return "", fmt.Errorf("%w %q: empty location", ErrMissingEnvelope, KeyLocation)
	}
	return loc, nil
}

// DecodeRemoteException parses an error body. ok is false when body is not a
// RemoteException document.
func DecodeRemoteException(body []byte) (exc *RemoteException, ok bool) {
	var out RemoteException
	if err := DecodeEnvelope(body, KeyRemoteException, &out); err != nil {
		return nil, false
	}
	if out.Exception == "" && out.JavaClassName == "" && out.Message == "" {
		return nil, false
	}
	return &out, true
}

// Encode wraps v in a single-key envelope.
func Encode(key string, v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any{key: v}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
