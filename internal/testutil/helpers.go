// Package testutil provides shared test utilities for the dCache exporter.
// It contains mock info servers, snapshot document builders, and common
// helpers to reduce duplication across test files.
package testutil

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

// TestNamespace is the XML namespace the dCache info service declares on
// its snapshot root.
const TestNamespace = "http://www.dcache.org/2008/01/Info"

// TestCluster is the cluster label value used across tests.
const TestCluster = "testcluster"

// SnapshotDoc wraps the given body in a namespaced snapshot root element,
// producing a complete document as the info service would serve it.
func SnapshotDoc(body string) string {
	return fmt.Sprintf("<?xml version=\"1.0\"?>\n<dCache xmlns=%q>%s</dCache>", TestNamespace, body)
}

// StartInfoServer starts a TCP server that mimics the info door: for every
// accepted connection it writes the document and closes the stream. The
// listener is closed automatically when the test finishes.
//
// Returns the host:port address to dial.
func StartInfoServer(t *testing.T, doc string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start mock info server: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_, _ = conn.Write([]byte(doc))
			_ = conn.Close()
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return ln.Addr().String()
}

// StartHangingInfoServer starts a TCP server that accepts connections but
// never writes nor closes them, for exercising fetch timeouts.
func StartHangingInfoServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start hanging info server: %v", err)
	}
	done := make(chan struct{})
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
			select {
			case <-done:
				return
			default:
			}
		}
	}()
	t.Cleanup(func() {
		close(done)
		_ = ln.Close()
		for _, conn := range conns {
			_ = conn.Close()
		}
	})
	return ln.Addr().String()
}

// RefusedAddr returns a local host:port with no listener behind it, so a
// dial fails with connection refused.
func RefusedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

// StartInfoServlet starts an HTTP server serving the document at /info,
// mimicking the httpd service of dCache. Closed when the test finishes.
func StartInfoServlet(t *testing.T, doc string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// SplitHostPort splits addr into host and port, failing the test on error.
func SplitHostPort(t *testing.T, addr string) (host, port string) {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("Failed to split address %q: %v", addr, err)
	}
	return host, port
}

// LoadTestData loads test data from a file.
// It uses t.Helper() to report errors at the caller's location.
func LoadTestData(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Failed to read test data file %s: %v", filename, err)
	}
	return data
}
