package session

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRecord(t *testing.T) {
	in := &Record{SessionID: "ignored", UserID: "42", Role: "User", CreatedAt: 1700000000}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if data[0] != CurrentSchemaVersion {
		t.Fatalf("expected schema version %d, got %d", CurrentSchemaVersion, data[0])
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.UserID != "42" || out.Role != "User" || out.CreatedAt != 1700000000 {
		t.Fatalf("unexpected record: %+v", out)
	}
	if out.SessionID != "" {
		t.Fatal("session id is not part of the encoding")
	}
}

func TestEncodeRejectsOversizedFields(t *testing.T) {
	long := strings.Repeat("x", 256)
	if _, err := Encode(&Record{UserID: long}); err == nil {
		t.Fatal("expected userID length error")
	}
	if _, err := Encode(&Record{UserID: "1", Role: long}); err == nil {
		t.Fatal("expected role length error")
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	valid, err := Encode(&Record{UserID: "1", Role: "User", CreatedAt: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cases := map[string][]byte{
		"empty":      {},
		"version":    {99},
		"truncated":  valid[:len(valid)-3],
		"short user": {CurrentSchemaVersion, 10, 'a'},
		"trailing":   append(append([]byte{}, valid...), 0),
	}
	for name, data := range cases {
		if _, err := Decode(data); !errors.Is(err, ErrRecordCorrupt) {
			t.Fatalf("%s: expected ErrRecordCorrupt, got %v", name, err)
		}
	}
}

func FuzzDecodeRecord(f *testing.F) {
	seed, _ := Encode(&Record{UserID: "7", Role: "User", CreatedAt: 1})
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{CurrentSchemaVersion, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := Decode(data)
		if err != nil {
			return
		}
		again, err := Encode(rec)
		if err != nil {
			t.Fatalf("re-encode decoded record: %v", err)
		}
		if string(again) != string(data) {
			t.Fatalf("encoding is not canonical")
		}
	})
}
