package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

func TestNewResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 0 {
		t.Errorf("Expected bytesWritten to be 0, got %d", rw.bytesWritten)
	}
	if rw.wroteHeader {
		t.Error("Expected wroteHeader to be false initially")
	}
}

func TestResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Status code = %d, want first value 404", rw.statusCode)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("Recorder code = %d, want 404", w.Code)
	}
}

func TestResponseWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	data := []byte("test data")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(data) || rw.bytesWritten != int64(len(data)) {
		t.Errorf("wrote %d bytes, counted %d, want %d", n, rw.bytesWritten, len(data))
	}
	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after Write")
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"line1\nline2", "line1 line2"},
		{"cr\rlf", "cr lf"},
		{"nul\x00byte", "nulbyte"},
		{"\x1b[31mred", "[31mred"},
		{"tab\tok", "tab\tok"},
		{"bell\x07", "bell"},
	}

	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.1:1234", "10.0.0.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "10.0.0.1:1", "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "3.3.3.3"}, "10.0.0.1:1", "3.3.3.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := getClientIP(r); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeW3CField(t *testing.T) {
	if got := escapeW3CField("curl/8.0"); got != "curl/8.0" {
		t.Errorf("got %q", got)
	}
	if got := escapeW3CField(`Mozilla "x" y`); got != `"Mozilla ""x"" y"` {
		t.Errorf("got %q", got)
	}
}

func TestLoggerMiddleware(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	config := DefaultLoggingConfig()
	config.Output = func(line string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, line)
	}

	handler := Logger(config)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	}))

	tests := []struct {
		path    string
		logged  bool
		contain string
	}{
		{"/api/stats?x=1", true, "GET /api/stats x=1 418 5"},
		{"/healthz", false, ""},
		{"/metrics", false, ""},
	}

	for _, tt := range tests {
		lines = nil
		r := httptest.NewRequest(http.MethodGet, tt.path, nil)
		handler.ServeHTTP(httptest.NewRecorder(), r)

		if got := len(lines) == 1; got != tt.logged {
			t.Errorf("%s: logged=%v, want %v", tt.path, got, tt.logged)
			continue
		}
		if tt.logged && !strings.Contains(lines[0], tt.contain) {
			t.Errorf("%s: line %q does not contain %q", tt.path, lines[0], tt.contain)
		}
		if tt.logged && !strings.HasSuffix(lines[0], serviceName) {
			t.Errorf("line %q does not end with the service name", lines[0])
		}
	}
}

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()
	want := map[string]bool{"/metrics": true, "/healthz": true}
	if len(config.SkipPaths) != len(want) {
		t.Fatalf("SkipPaths = %v", config.SkipPaths)
	}
	for _, p := range config.SkipPaths {
		if !want[p] {
			t.Errorf("unexpected skip path %s", p)
		}
	}
}

func TestMetricsMiddlewareRouteLabel(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))

	var label string
	router.HandleFunc("/api/hashes/{algorithm}/{value}", func(w http.ResponseWriter, r *http.Request) {
		label = routeLabel(r)
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hashes/md5/abc", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if label != "/api/hashes/{algorithm}/{value}" {
		t.Errorf("routeLabel = %q", label)
	}
}

func TestRouteLabelUnmatched(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if got := routeLabel(r); got != "unmatched" {
		t.Errorf("routeLabel = %q, want unmatched", got)
	}
}

func TestMetricsResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newMetricsResponseWriter(w)

	if rw.statusCode != http.StatusOK {
		t.Errorf("default status = %d", rw.statusCode)
	}
	rw.WriteHeader(http.StatusBadRequest)
	if rw.statusCode != http.StatusBadRequest || w.Code != http.StatusBadRequest {
		t.Errorf("status = %d/%d, want 400", rw.statusCode, w.Code)
	}
}

func TestCompressionMiddleware(t *testing.T) {
	compress, err := Compression(DefaultCompressionConfig())
	if err != nil {
		t.Fatal(err)
	}

	body := `{"items":"` + strings.Repeat("abcdef0123456789", 200) + `"}`
	handler := compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/small" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))

	tests := []struct {
		name           string
		path           string
		acceptEncoding string
		wantGzip       bool
	}{
		{"large with gzip", "/large", "gzip", true},
		{"large without gzip", "/large", "", false},
		{"small response", "/small", "gzip", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.acceptEncoding != "" {
				r.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)

			gotGzip := rec.Header().Get("Content-Encoding") == "gzip"
			if gotGzip != tt.wantGzip {
				t.Fatalf("Content-Encoding gzip = %v, want %v", gotGzip, tt.wantGzip)
			}
			if !gotGzip {
				return
			}

			zr, err := gzip.NewReader(rec.Body)
			if err != nil {
				t.Fatal(err)
			}
			decoded, err := io.ReadAll(zr)
			if err != nil {
				t.Fatal(err)
			}
			if string(decoded) != body {
				t.Error("decompressed body mismatch")
			}
		})
	}
}

func TestCompressionInvalidLevel(t *testing.T) {
	config := DefaultCompressionConfig()
	config.Level = 42
	if _, err := Compression(config); err == nil {
		t.Error("expected error for invalid compression level")
	}
}
