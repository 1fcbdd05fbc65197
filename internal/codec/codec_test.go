package codec

import (
	"bytes"
	"io"
	"testing"
)

func TestResolveFallback(t *testing.T) {
	cases := map[Tag]Tag{
		TagNone: TagNone,
		TagGzip: TagGzip,
		TagLZ4:  TagGzip,
		TagZstd: TagGzip,
	}
	for in, want := range cases {
		if got := Resolve(in); got != want {
			t.Errorf("Resolve(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestGzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, TagGzip)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	payload := []byte("the data to compress, repeated for a better ratio " +
		"the data to compress, repeated for a better ratio")
	if _, err := enc.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	dec, err := NewDecoder(&buf, TagGzip)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	out, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("round trip did not preserve payload")
	}
}

func TestPassthroughRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, TagNone)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	payload := []byte("raw bytes")
	enc.Write(payload)
	enc.Finish()

	dec, err := NewDecoder(&buf, TagNone)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	out, _ := io.ReadAll(dec)
	if !bytes.Equal(out, payload) {
		t.Error("passthrough did not preserve payload")
	}
}

func TestNewDecoderRejectsUnsupportedTag(t *testing.T) {
	_, err := NewDecoder(bytes.NewReader(nil), TagZstd)
	if err == nil {
		t.Fatal("expected error decoding an unimplemented tag")
	}
}
