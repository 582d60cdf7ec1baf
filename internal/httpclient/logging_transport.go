package httpclient

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	activeLoggingTransports []*LoggingTransport
	transportsMu            sync.Mutex
)

// LoggingTransport wraps an http.RoundTripper and dumps every request and
// response to a log file, gated behind the --log-api flag.
type LoggingTransport struct {
	Transport http.RoundTripper
	logFile   *os.File
	mu        sync.Mutex
	writer    *bufio.Writer
}

// NewLoggingTransport opens logFilePath for appending and wraps transport.
func NewLoggingTransport(transport http.RoundTripper, logFilePath string) (*LoggingTransport, error) {
	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open API log file %s: %w", logFilePath, err)
	}

	if transport == nil {
		transport = http.DefaultTransport
	}

	lt := &LoggingTransport{
		Transport: transport,
		logFile:   f,
		writer:    bufio.NewWriter(f),
	}

	transportsMu.Lock()
	activeLoggingTransports = append(activeLoggingTransports, lt)
	transportsMu.Unlock()
	log.Debugf("registered api logging transport for %s", logFilePath)

	return lt, nil
}

// RoundTrip executes the request, logging the request and response dump.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()

	if reqDump, err := httputil.DumpRequestOut(req, true); err != nil {
		log.WithError(err).Error("failed to dump api request for logging")
	} else {
		t.writeLog(fmt.Sprintf("--- Request (%s) ---\n%s\n", start.Format(time.RFC3339), string(reqDump)))
	}

	resp, err := t.Transport.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.writeLog(fmt.Sprintf("--- Response Error (%s, Duration: %v) ---\n%s\n", time.Now().Format(time.RFC3339), duration, err.Error()))
		t.flush()
		return resp, err
	}

	contentType := resp.Header.Get("Content-Type")
	logBody := strings.HasPrefix(contentType, "application/json")
	if !logBody {
		respDump, dumpErr := httputil.DumpResponse(resp, false)
		if dumpErr != nil {
			t.writeLog(fmt.Sprintf("--- Response Headers (%s, Duration: %v, Type: %s) ---\nStatus: %s\n(failed to dump headers)\n", time.Now().Format(time.RFC3339), duration, contentType, resp.Status))
		} else {
			t.writeLog(fmt.Sprintf("--- Response Headers (%s, Duration: %v, Type: %s) ---\n%s\n(body not logged)\n", time.Now().Format(time.RFC3339), duration, contentType, string(respDump)))
		}
		t.flush()
		return resp, err
	}

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		log.WithError(readErr).Error("failed to read response body for logging")
		t.flush()
		return resp, err
	}
	if closeErr := resp.Body.Close(); closeErr != nil {
		log.WithError(closeErr).Warn("failed to close original response body before replacing it")
	}
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	respDumpHeader, dumpErr := httputil.DumpResponse(resp, false)
	if dumpErr != nil {
		t.writeLog(fmt.Sprintf("--- Response (%s, Duration: %v) ---\nStatus: %s\n%s\n", time.Now().Format(time.RFC3339), duration, resp.Status, string(bodyBytes)))
	} else {
		t.writeLog(fmt.Sprintf("--- Response Headers (%s, Duration: %v) ---\n%s\n--- Response Body (%s) ---\n%s\n", time.Now().Format(time.RFC3339), duration, string(respDumpHeader), contentType, string(bodyBytes)))
	}
	t.flush()
	return resp, err
}

func (t *LoggingTransport) flush() {
	if err := t.writer.Flush(); err != nil {
		log.WithError(err).Error("failed to flush api log writer")
	}
}

func (t *LoggingTransport) writeLog(s string) {
	if _, err := t.writer.WriteString(s + "\n\n"); err != nil {
		fmt.Fprintf(os.Stderr, "error writing to api log file: %v\n", err)
	}
}

// Close flushes and closes the underlying log file.
func (t *LoggingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	flushErr := t.writer.Flush()
	closeErr := t.logFile.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush api log buffer: %w", flushErr)
	}
	return closeErr
}

// CloseAllLoggingTransports closes every transport created via
// NewLoggingTransport. Called once at CLI shutdown.
func CloseAllLoggingTransports() {
	transportsMu.Lock()
	defer transportsMu.Unlock()

	for _, t := range activeLoggingTransports {
		if err := t.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing api logging transport for %s: %v\n", t.logFile.Name(), err)
		}
	}
	activeLoggingTransports = nil
}
