package webhdfsapi

import (
	"errors"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	body := []byte(`{"FileStatus":{"length":12,"type":"FILE"}}`)
	var out struct {
		Length int64  `json:"length"`
		Type   string `json:"type"`
	}
	if err := DecodeEnvelope(body, KeyFileStatus, &out); err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if out.Length != 12 || out.Type != "FILE" {
		t.Fatalf("unexpected payload: %#v", out)
	}
}

func TestDecodeEnvelopeMissingKey(t *testing.T) {
	var out map[string]any
	err := DecodeEnvelope([]byte(`{"other":1}`), KeyFileStatus, &out)
	if !errors.Is(err, ErrMissingEnvelope) {
		t.Fatalf("expected ErrMissingEnvelope, got %v", err)
	}
	if err := DecodeEnvelope(nil, KeyFileStatus, &out); !errors.Is(err, ErrMissingEnvelope) {
		t.Fatalf("expected ErrMissingEnvelope for empty body, got %v", err)
	}
}

func TestDecodeBoolean(t *testing.T) {
	cases := map[string]bool{
		`{"boolean":true}`:  true,
		`{"boolean":false}`: false,
	}
	for body, want := range cases {
		got, err := DecodeBoolean([]byte(body))
		if err != nil {
			t.Fatalf("DecodeBoolean(%s): %v", body, err)
		}
		if got != want {
			t.Fatalf("DecodeBoolean(%s) = %v, want %v", body, got, want)
		}
	}
	if _, err := DecodeBoolean([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid body")
	}
}

func TestDecodeLocation(t *testing.T) {
	loc, err := DecodeLocation([]byte(`{"Location":"http://dn:9864/webhdfs/v1/a?op=CREATE"}`))
	if err != nil {
		t.Fatalf("DecodeLocation: %v", err)
	}
	if loc != "http://dn:9864/webhdfs/v1/a?op=CREATE" {
		t.Fatalf("unexpected location %q", loc)
	}
	if _, err := DecodeLocation([]byte(`{"Location":""}`)); err == nil {
		t.Fatalf("expected error for empty location")
	}
}

func TestDecodeRemoteException(t *testing.T) {
	body := []byte(`{"RemoteException":{"exception":"FileNotFoundException","javaClassName":"java.io.FileNotFoundException","message":"File does not exist: /x"}}`)
	exc, ok := DecodeRemoteException(body)
	if !ok {
		t.Fatalf("expected remote exception")
	}
	if exc.Exception != "FileNotFoundException" || exc.Message != "File does not exist: /x" {
		t.Fatalf("unexpected exception: %#v", exc)
	}
	if _, ok := DecodeRemoteException([]byte(`<html>bad gateway</html>`)); ok {
		t.Fatalf("html body must not decode as remote exception")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	data, err := Encode(KeyBoolean, true)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(data) != `{"boolean":true}` {
		t.Fatalf("unexpected encoding %s", data)
	}
}
