package prometheus

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/authshift/authshift"
	"github.com/authshift/authshift/metrics/export/internaldefs"
)

const (
	contentType = "text/plain; version=0.0.4; charset=utf-8"

	auditDroppedName = "authshift_audit_dropped_total"
	auditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var helpEscaper = strings.NewReplacer("\\", "\\\\", "\n", "\\n")

type metricsSource interface {
	MetricsSnapshot() authshift.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders authshift metrics in Prometheus text exposition format.
//
//	Docs: docs/metrics.md
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from the given [authshift.Engine].
//
//	Docs: docs/metrics.md
func NewPrometheusExporter(engine *authshift.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from a
// custom metrics source.
//
//	Docs: docs/metrics.md
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
//
//	Docs: docs/metrics.md
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = io.WriteString(w, p.Render())
	})
}

// Render writes the current metrics in Prometheus text exposition format.
// With metrics disabled the snapshot is empty and Render returns "".
//
//	Docs: docs/metrics.md
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var buf bytes.Buffer
	buf.Grow(8 << 10)

	for _, def := range internaldefs.CounterDefs {
		header(&buf, def.Name, def.Help, "counter")
		fmt.Fprintf(&buf, "%s %d\n", def.Name, snap.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		header(&buf, def.Name, def.Help, "histogram")

		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID]))
		for i, le := range internaldefs.HistogramBounds {
			fmt.Fprintf(&buf, "%s_bucket{le=%q} %d\n", def.Name, le, cumulative[i])
		}
		fmt.Fprintf(&buf, "%s_count %d\n", def.Name, cumulative[len(cumulative)-1])
		// Core snapshots carry bucket counts only; the sum is pinned at zero
		// so the series shape stays stable.
		fmt.Fprintf(&buf, "%s_sum 0\n", def.Name)
	}

	header(&buf, auditDroppedName, auditDroppedHelp, "counter")
	fmt.Fprintf(&buf, "%s %d\n", auditDroppedName, dropped)

	return buf.String()
}

func header(buf *bytes.Buffer, name, help, kind string) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, helpEscaper.Replace(help))
	fmt.Fprintf(buf, "# TYPE %s %s\n", name, kind)
}
