package file

import (
	"strings"
	"testing"
)

func TestMD5Sum(t *testing.T) {
	data := []byte("hello world")
	expected := "5eb63bbbe01eeed093cb22bb8f5acdc3"
	if got := MD5Sum(data); got != expected {
		t.Fatalf("md5 mismatch got=%s expected=%s", got, expected)
	}
}

func TestDetectMIME(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	cases := []struct {
		name     string
		data     []byte
		filename string
		prefix   string
	}{
		{"plain", []byte("simple text content"), "a.txt", "text/plain"},
		{"json", []byte(`{ "k": 1 }`), "a.json", "application/json"},
		{"png", png, "logo.png", "image/png"},
		{"empty by extension", nil, "logo.png", "image/png"},
		{"empty unknown", nil, "blob", "application/octet-stream"},
	}
	for _, c := range cases {
		got := DetectMIME(c.data, c.filename)
		if !strings.HasPrefix(got, c.prefix) {
			t.Errorf("%s: got=%s expected prefix %s", c.name, got, c.prefix)
		}
	}
}

func TestIsImage(t *testing.T) {
	if !IsImage("image/png") {
		t.Error("expected image/png to be an image")
	}
	if IsImage("text/plain") {
		t.Error("expected text/plain not to be an image")
	}
}
