package httpengine_test

import (
	"testing"

	"github.com/nabbar/staticd/httpengine"
)

func TestParse_WellFormed(t *testing.T) {
	raw := []byte("GET /index.html HTTP/1.1\r\nHost: example.com\r\nX-Empty: \r\n\r\nbody-bytes")

	var req httpengine.Request
	if err := httpengine.Parse(raw, &req); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if string(req.Method) != "GET" {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if string(req.Target) != "/index.html" {
		t.Errorf("Target = %q, want /index.html", req.Target)
	}
	if string(req.Version) != "HTTP/1.1" {
		t.Errorf("Version = %q, want HTTP/1.1", req.Version)
	}
	if req.NumHdr != 2 {
		t.Fatalf("NumHdr = %d, want 2", req.NumHdr)
	}
	if v, ok := req.Header("Host"); !ok || string(v) != "example.com" {
		t.Errorf("Header(Host) = %q, %v", v, ok)
	}
	if v, ok := req.HeaderFold("host"); !ok || string(v) != "example.com" {
		t.Errorf("HeaderFold(host) = %q, %v", v, ok)
	}
	if string(req.Body) != "body-bytes" {
		t.Errorf("Body = %q, want body-bytes", req.Body)
	}
}

func TestParse_MissingSpaceAfterMethod(t *testing.T) {
	var req httpengine.Request
	if err := httpengine.Parse([]byte("GET\r\n\r\n"), &req); err == nil {
		t.Fatal("Parse() should reject a missing method/target delimiter")
	}
}

func TestParse_MissingSpaceAfterTarget(t *testing.T) {
	var req httpengine.Request
	if err := httpengine.Parse([]byte("GET /\r\n\r\n"), &req); err == nil {
		t.Fatal("Parse() should reject a missing target/version delimiter")
	}
}

func TestParse_IncompleteHeaders(t *testing.T) {
	var req httpengine.Request
	if err := httpengine.Parse([]byte("GET / HTTP/1.1\r\nHost: x"), &req); err == nil {
		t.Fatal("Parse() should reject a request missing the final CRLF")
	}
}

func TestParse_HeaderCountCap(t *testing.T) {
	raw := "GET / HTTP/1.1\r\n"
	for i := 0; i < httpengine.MaxHeaders+10; i++ {
		raw += "X-N: v\r\n"
	}
	raw += "\r\n"

	var req httpengine.Request
	if err := httpengine.Parse([]byte(raw), &req); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if req.NumHdr != httpengine.MaxHeaders {
		t.Fatalf("NumHdr = %d, want %d", req.NumHdr, httpengine.MaxHeaders)
	}
}

func TestParse_Reuse(t *testing.T) {
	var req httpengine.Request
	_ = httpengine.Parse([]byte("GET /a HTTP/1.1\r\nA: 1\r\n\r\n"), &req)
	if req.NumHdr != 1 {
		t.Fatalf("first parse NumHdr = %d, want 1", req.NumHdr)
	}

	_ = httpengine.Parse([]byte("POST /b HTTP/1.1\r\n\r\n"), &req)
	if req.NumHdr != 0 {
		t.Fatalf("second parse NumHdr = %d, want 0", req.NumHdr)
	}
	if string(req.Method) != "POST" {
		t.Fatalf("Method = %q, want POST", req.Method)
	}
}
