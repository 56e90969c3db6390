package prometheus

import (
	"bufio"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/goPortal/metrics/export/internaldefs"
)

// ContentType is the text exposition format version the exporter writes.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// Exporter renders portal metrics in the Prometheus text exposition format.
type Exporter struct {
	source internaldefs.Source
}

// New returns an Exporter that reads source, usually a *goPortal.Portal, on
// every scrape.
func New(source internaldefs.Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves the current metrics. HEAD requests get headers only.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		if r.Method == http.MethodHead {
			return
		}
		bw := bufio.NewWriter(w)
		_ = e.WriteTo(bw)
		_ = bw.Flush()
	})
}

// Render returns the current metrics as one string.
func (e *Exporter) Render() string {
	var b strings.Builder
	_ = e.WriteTo(&b)
	return b.String()
}

// WriteTo writes every family to w. Nothing is written while metrics are off
// and no audit event was seen.
func (e *Exporter) WriteTo(w io.StringWriter) error {
	if e == nil || e.source == nil {
		return nil
	}
	for _, f := range internaldefs.Collect(e.source) {
		var err error
		switch f.Kind {
		case internaldefs.KindHistogram:
			err = writeHistogram(w, f)
		default:
			err = writeCounter(w, f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.StringWriter, f internaldefs.Family, kind string) error {
	_, err := w.WriteString("# HELP " + f.Name + " " + escapeHelp(f.Help) + "\n# TYPE " + f.Name + " " + kind + "\n")
	return err
}

func writeCounter(w io.StringWriter, f internaldefs.Family) error {
	if err := writeHeader(w, f, "counter"); err != nil {
		return err
	}
	_, err := w.WriteString(f.Name + " " + strconv.FormatUint(f.Value, 10) + "\n")
	return err
}

func writeHistogram(w io.StringWriter, f internaldefs.Family) error {
	if err := writeHeader(w, f, "histogram"); err != nil {
		return err
	}
	for i, le := range internaldefs.BucketBounds {
		line := f.Name + `_bucket{le="` + le + `"} ` + strconv.FormatUint(f.Buckets[i], 10) + "\n"
		if _, err := w.WriteString(line); err != nil {
			return err
		}
	}
	_, err := w.WriteString(
		f.Name + "_sum " + strconv.FormatFloat(f.Sum, 'g', -1, 64) + "\n" +
			f.Name + "_count " + strconv.FormatUint(f.Count(), 10) + "\n")
	return err
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(help string) string { return helpEscaper.Replace(help) }
