package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/zulfikawr/courier/internal/config"
	"github.com/zulfikawr/courier/internal/errors"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		raw       string
		wantName  string
		wantValue string
		wantErr   bool
	}{
		{"Accept: text/plain", "Accept", "text/plain", false},
		{"X-Empty:", "X-Empty", "", false},
		{"X-Colon: a:b", "X-Colon", "a:b", false},
		{"NoColon", "", "", true},
		{": value", "", "", true},
	}
	for _, tt := range tests {
		name, value, err := parseHeader(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseHeader(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if name != tt.wantName || value != tt.wantValue {
			t.Errorf("parseHeader(%q) = %q, %q", tt.raw, name, value)
		}
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"a=1", "b=x=y", "a=2"})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if params["a"] != "2" || params["b"] != "x=y" {
		t.Errorf("params = %v", params)
	}

	if params, _ := parseParams(nil); params != nil {
		t.Errorf("expected nil map for no params, got %v", params)
	}
	if _, err := parseParams([]string{"novalue"}); err == nil {
		t.Error("expected error for missing '='")
	}
}

func TestParseUser(t *testing.T) {
	user, password := parseUser("alice:s3:cret")
	if user != "alice" || password != "s3:cret" {
		t.Errorf("parseUser = %q, %q", user, password)
	}
	user, password = parseUser("bob")
	if user != "bob" || password != "" {
		t.Errorf("parseUser = %q, %q", user, password)
	}
}

func TestParseRateLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"2048", 2, false},
		{"100", 1, false},
		{"500K", 500, false},
		{"500k", 500, false},
		{"2M", 2048, false},
		{"1.5MB", 1536, false},
		{"1G", 1024 * 1024, false},
		{"10MB/s", 10240, false},
		{"fast", 0, true},
		{"-5", 0, true},
		{"xM", 0, true},
	}
	for _, tt := range tests {
		got, err := parseRateLimit(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRateLimit(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseRateLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestTransportOptions(t *testing.T) {
	c := config.DefaultConfig()
	c.ProxyURL = "http://config-proxy:8080"
	c.RateLimitKBps = 10

	opts, err := transportOptions(c, getFlags{proxy: "socks5://flag:1080", limitRate: "1M", insecure: true})
	if err != nil {
		t.Fatalf("transportOptions: %v", err)
	}
	if opts.ProxyURL != "socks5://flag:1080" {
		t.Errorf("ProxyURL = %s, flag should win", opts.ProxyURL)
	}
	if opts.RateLimitKBps != 1024 {
		t.Errorf("RateLimitKBps = %d", opts.RateLimitKBps)
	}
	if !opts.TrustAllCertificates {
		t.Error("--insecure should trust all certificates")
	}
	if opts.UserAgent != c.UserAgent {
		t.Errorf("UserAgent = %s", opts.UserAgent)
	}

	if _, err := transportOptions(c, getFlags{limitRate: "bogus"}); err == nil {
		t.Error("expected error for invalid rate")
	}
}

func TestRunGet_Memory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Trace") != "abc" {
			http.Error(w, "missing header", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("hello " + r.URL.Query().Get("name")))
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	g := getFlags{quiet: true, headers: []string{"X-Trace: abc"}, params: []string{"name=courier"}}
	if err := runGet(context.Background(), &stdout, &stderr, config.DefaultConfig(), g, server.URL); err != nil {
		t.Fatalf("runGet: %v", err)
	}
	if stdout.String() != "hello courier" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunGet_PostData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		_, _ = w.Write([]byte(r.Method + ":" + buf.String()))
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	g := getFlags{quiet: true, data: "payload"}
	if err := runGet(context.Background(), &stdout, &stderr, nil, g, server.URL); err != nil {
		t.Fatalf("runGet: %v", err)
	}
	if stdout.String() != "POST:payload" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunGet_JSONQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"name":"first"},{"name":"second"}]}`))
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	g := getFlags{quiet: true, query: "items.1.name"}
	if err := runGet(context.Background(), &stdout, &stderr, nil, g, server.URL); err != nil {
		t.Fatalf("runGet: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "second" {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	g = getFlags{quiet: true, jsonMode: true}
	if err := runGet(context.Background(), &stdout, &stderr, nil, g, server.URL); err != nil {
		t.Fatalf("runGet: %v", err)
	}
	if !strings.Contains(stdout.String(), `"name": "first"`) {
		t.Errorf("pretty JSON missing field: %q", stdout.String())
	}

	g = getFlags{quiet: true, query: "missing.path"}
	if err := runGet(context.Background(), &stdout, &stderr, nil, g, server.URL); err == nil {
		t.Error("expected error for missing JSON path")
	}
}

func TestRunGet_File(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 4096))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	var stdout, stderr bytes.Buffer
	g := getFlags{output: dest}
	if err := runGet(context.Background(), &stdout, &stderr, nil, g, server.URL); err != nil {
		t.Fatalf("runGet: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) != 4096 {
		t.Errorf("file size = %d, want 4096", len(data))
	}
	if stdout.Len() != 0 {
		t.Errorf("file downloads should not write to stdout, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Transfer Complete") {
		t.Errorf("summary missing from stderr: %q", stderr.String())
	}
}

func TestRunGet_ExistingOutput(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := runGet(context.Background(), &stdout, &stderr, nil, getFlags{output: dest, quiet: true}, server.URL)
	if err == nil || !errors.IsUserError(err) {
		t.Fatalf("expected user error for existing file, got %v", err)
	}
	if !strings.Contains(err.Error(), "already exists") || !strings.Contains(err.Error(), "--force") {
		t.Errorf("error = %q", err.Error())
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server hit %d times, want no request", n)
	}
	if data, _ := os.ReadFile(dest); string(data) != "old" {
		t.Errorf("existing file changed to %q", data)
	}

	err = runGet(context.Background(), &stdout, &stderr, nil, getFlags{output: dest, quiet: true, force: true}, server.URL)
	if err != nil {
		t.Fatalf("runGet --force: %v", err)
	}
	if data, _ := os.ReadFile(dest); string(data) != "fresh" {
		t.Errorf("file = %q, want overwritten", data)
	}
}

func TestFormatError(t *testing.T) {
	user := FormatError(errors.FileExistsError("a.txt"))
	if strings.Contains(user, "Error:") || !strings.Contains(user, "File already exists: a.txt") {
		t.Errorf("user error rendered as %q", user)
	}
	plain := FormatError(os.ErrClosed)
	if !strings.Contains(plain, "Error:") {
		t.Errorf("plain error rendered as %q", plain)
	}
}

func TestRunGet_FailOnStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	if err := runGet(context.Background(), &stdout, &stderr, nil, getFlags{quiet: true}, server.URL); err != nil {
		t.Fatalf("status codes are informational without --fail: %v", err)
	}
	if !strings.Contains(stdout.String(), "gone") {
		t.Errorf("stdout = %q", stdout.String())
	}

	err := runGet(context.Background(), &stdout, &stderr, nil, getFlags{quiet: true, failOnStatus: true}, server.URL)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected 404 error with --fail, got %v", err)
	}
}

func TestRunGet_Errors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := runGet(context.Background(), &stdout, &stderr, nil, getFlags{quiet: true}, "ftp://example.com/file")
	if err == nil || !strings.Contains(err.Error(), "Invalid URL") {
		t.Errorf("expected invalid URL error, got %v", err)
	}

	err = runGet(context.Background(), &stdout, &stderr, nil, getFlags{data: "a", params: []string{"b=c"}}, "http://example.com")
	if err == nil {
		t.Error("expected error when combining --data and --param")
	}

	err = runGet(context.Background(), &stdout, &stderr, nil, getFlags{headers: []string{"broken"}}, "http://example.com")
	if err == nil {
		t.Error("expected error for malformed header")
	}
}

func TestPrintConfig(t *testing.T) {
	c := config.DefaultConfig()
	c.GlobalHeaders = map[string]string{"x-b": "2", "x-a": "1"}

	var buf bytes.Buffer
	printConfig(&buf, "/tmp/courier.yaml", c)
	out := buf.String()

	for _, want := range []string{"/tmp/courier.yaml", "1m0s", "courier/1.0", "Rate Limit:", "x-a: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("printConfig output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "x-a") > strings.Index(out, "x-b") {
		t.Error("global headers should be sorted")
	}
}

func TestPrintConfigHidesPasswords(t *testing.T) {
	c := config.DefaultConfig()
	c.Credentials = []config.HostCredential{
		{Username: "alice", Password: "hunter2"},
		{Host: "api.example.com", Username: "bot", Password: "s3cret"},
	}

	var buf bytes.Buffer
	printConfig(&buf, "/tmp/courier.yaml", c)
	out := buf.String()

	for _, want := range []string{"all hosts: alice", "api.example.com: bot"} {
		if !strings.Contains(out, want) {
			t.Errorf("printConfig output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hunter2") || strings.Contains(out, "s3cret") {
		t.Errorf("password printed:\n%s", out)
	}
}

func TestRunGet_ConfigCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="courier"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(user + ":" + pass))
	}))
	defer server.Close()

	host := strings.TrimPrefix(server.URL, "http://")
	host = host[:strings.LastIndex(host, ":")]

	c := config.DefaultConfig()
	c.Credentials = []config.HostCredential{
		{Username: "everyone", Password: "x"},
		{Host: host, Username: "local", Password: "y"},
	}

	var stdout, stderr bytes.Buffer
	if err := runGet(context.Background(), &stdout, &stderr, c, getFlags{quiet: true}, server.URL); err != nil {
		t.Fatalf("runGet: %v", err)
	}
	if stdout.String() != "local:y" {
		t.Errorf("stdout = %q, want host credential", stdout.String())
	}

	stdout.Reset()
	if err := runGet(context.Background(), &stdout, &stderr, c, getFlags{quiet: true, user: "flag:z"}, server.URL); err != nil {
		t.Fatalf("runGet --user: %v", err)
	}
	if stdout.String() != "flag:z" {
		t.Errorf("stdout = %q, --user should win", stdout.String())
	}
}

func TestConfigInit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	if err := configInit(&buf, false); err != nil {
		t.Fatalf("configInit: %v", err)
	}
	if _, err := os.Stat(config.GetConfigPath()); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	buf.Reset()
	if err := configInit(&buf, false); err != nil {
		t.Fatalf("configInit: %v", err)
	}
	if !strings.Contains(buf.String(), "already exists") {
		t.Errorf("expected existing file notice, got %q", buf.String())
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"report.pdf", false},
		{"archive (1).tar.gz", false},
		{"", true},
		{"../etc/passwd", true},
		{"a/b", true},
		{"a\\b", true},
		{"0..", true},
		{"bad\x00name", true},
		{"tab\tname", true},
		{"   ", true},
		{strings.Repeat("a", 256), true},
	}
	for _, tt := range tests {
		_, err := sanitizeFilename(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("sanitizeFilename(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestRemoteFilename(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/files/report.pdf", "report.pdf"},
		{"https://example.com/files/report.pdf?token=1", "report.pdf"},
		{"https://example.com/", defaultRemoteName},
		{"https://example.com", defaultRemoteName},
		{"https://example.com/a/%2E%2E", defaultRemoteName},
		{"://bad", defaultRemoteName},
	}
	for _, tt := range tests {
		if got := remoteFilename(tt.url); got != tt.want {
			t.Errorf("remoteFilename(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	first := uniquePath(dir, "file.txt")
	if first != filepath.Join(dir, "file.txt") {
		t.Errorf("first = %s", first)
	}
	if err := os.WriteFile(first, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	second := uniquePath(dir, "file.txt")
	if second != filepath.Join(dir, "file (1).txt") {
		t.Errorf("second = %s", second)
	}
}

func TestRunGet_RemoteName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote"))
	}))
	defer server.Close()

	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	g := getFlags{quiet: true, remoteName: true, outputDir: dir}
	if err := runGet(context.Background(), &stdout, &stderr, nil, g, server.URL+"/data/notes.txt"); err != nil {
		t.Fatalf("runGet: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "remote" {
		t.Errorf("file content = %q", string(data))
	}
}
