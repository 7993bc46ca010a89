// Package telemetry reports internal errors out-of-band.
//
// Reporting is strictly best-effort: a Report call never blocks response
// rendering and never propagates a delivery failure to its caller.
package telemetry

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docserve/internal/logfields"
)

// Reporter delivers an error report to an external collector.
type Reporter interface {
	Report(err error)
}

var (
	mu       sync.RWMutex
	reporter Reporter = &LogReporter{}
)

// SetDefault installs the package-level reporter, mirroring slog.SetDefault.
func SetDefault(r Reporter) {
	mu.Lock()
	defer mu.Unlock()
	if r != nil {
		reporter = r
	}
}

// Report sends err through the default reporter. Safe to call with nil.
func Report(err error) {
	if err == nil {
		return
	}
	mu.RLock()
	r := reporter
	mu.RUnlock()
	r.Report(err)
}

// LogReporter writes error reports to the default slog logger. It is the
// fallback when no external collector is configured.
type LogReporter struct {
	Logger *slog.Logger
}

func (r *LogReporter) Report(err error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("internal error reported", logfields.Error(err))
}

// errorReport is the wire format published to the error subject.
type errorReport struct {
	Time    time.Time `json:"time"`
	Service string    `json:"service"`
	Error   string    `json:"error"`
}

// NATSReporter publishes error reports to a NATS subject, fire-and-forget.
// Publish failures are logged at warn level and otherwise swallowed.
type NATSReporter struct {
	conn    *nats.Conn
	subject string
}

// NewNATSReporter connects to the NATS server at url and reports to subject.
func NewNATSReporter(url, subject string) (*NATSReporter, error) {
	conn, err := nats.Connect(url, nats.Name("docserve-telemetry"))
	if err != nil {
		return nil, err
	}
	return &NATSReporter{conn: conn, subject: subject}, nil
}

func (r *NATSReporter) Report(err error) {
	report := errorReport{
		Time:    time.Now().UTC(),
		Service: "docserve",
		Error:   err.Error(),
	}
	data, merr := json.Marshal(report)
	if merr != nil {
		slog.Warn("error report marshal failed", logfields.Error(merr))
		return
	}
	if perr := r.conn.Publish(r.subject, data); perr != nil {
		slog.Warn("error report publish failed", logfields.Error(perr))
	}
}

// Close drains the underlying connection.
func (r *NATSReporter) Close() {
	if r.conn != nil {
		_ = r.conn.Drain()
	}
}
