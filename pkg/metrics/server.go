package metrics

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// platformPrefixes select the families listed on the landing page; runtime
// and process collectors are only reachable through /metrics.
var platformPrefixes = []string{"mining_", "cache_", "circuit_breaker_", "http_"}

var indexTmpl = template.Must(template.New("index").Parse(`<html><head><title>{{.Component}} metrics</title></head><body>
<h1>Top-K Mining Metrics: {{.Component}}</h1>
<p><a href="/metrics">/metrics</a></p>
{{if .Families}}<table border="1" cellpadding="4">
<tr><th>family</th><th>type</th><th>series</th><th>help</th></tr>
{{range .Families}}<tr><td>{{.Name}}</td><td>{{.Type}}</td><td>{{.Series}}</td><td>{{.Help}}</td></tr>
{{end}}</table>{{else}}<p>No mining series recorded yet.</p>{{end}}
</body></html>
`))

type familyRow struct {
	Name   string
	Type   string
	Series int
	Help   string
}

// NewMux serves the scrape endpoint for g on /metrics and a landing page on
// / listing the mining, cache and HTTP families recorded so far.
func NewMux(component string, g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		families, err := g.Gather()
		if err != nil {
			slog.Warn("gathering metrics for index page", "error", err)
		}
		var rows []familyRow
		for _, f := range families {
			if !hasPlatformPrefix(f.GetName()) {
				continue
			}
			rows = append(rows, familyRow{
				Name:   f.GetName(),
				Type:   strings.ToLower(f.GetType().String()),
				Series: len(f.GetMetric()),
				Help:   f.GetHelp(),
			})
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTmpl.Execute(w, struct {
			Component string
			Families  []familyRow
		}{component, rows}); err != nil {
			slog.Error("rendering metrics index", "error", err)
		}
	})
	return mux
}

func hasPlatformPrefix(name string) bool {
	for _, p := range platformPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// StartServer serves the default registry for component on port. The
// returned function shuts the server down.
func StartServer(port int, component string) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewMux(component, prometheus.DefaultGatherer),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr, "component", component)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}
