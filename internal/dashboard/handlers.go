package dashboard

import (
	"encoding/json"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vettabase/query-viz/internal/health"
)

// indexFileName must match what the render pipeline writes.
const indexFileName = "_CHART_INDEX"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="30">
<title>query-viz</title>
<style>
body { font-family: sans-serif; margin: 2em; background: #fafafa; }
h1 { font-size: 1.4em; }
img { display: block; margin-bottom: 2em; max-width: 100%; border: 1px solid #ddd; background: #fff; }
.empty { color: #777; }
</style>
</head>
<body>
<h1>query-viz {{.Version}}</h1>
{{if .Charts}}{{range .Charts}}<img src="/charts/{{.}}" alt="{{.}}">
{{end}}{{else}}<p class="empty">No charts rendered yet.</p>{{end}}
</body>
</html>
`))

// handleIndex serves an HTML page embedding every chart listed in the
// chart index. Charts missing from the index are simply not shown.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var charts []string
	data, err := os.ReadFile(filepath.Join(s.outputDir, indexFileName))
	if err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				charts = append(charts, line)
			}
		}
	} else if !os.IsNotExist(err) {
		s.logger.Warn("reading chart index", "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, struct {
		Version string
		Charts  []string
	}{Version: s.version, Charts: charts}); err != nil {
		s.logger.Error("rendering index page", "error", err)
	}
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status      string                     `json:"status"`
	Time        time.Time                  `json:"time"`
	Connections map[string]health.Snapshot `json:"connections"`
}

// handleHealthz reports the state of every connection. Status is "ok"
// when everything is connected, "degraded" otherwise; the endpoint
// always answers 200 because the daemon itself is up either way.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	states := s.health.States()

	status := "ok"
	for _, snap := range states {
		if snap.State != health.StateConnected {
			status = "degraded"
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(healthResponse{
		Status:      status,
		Time:        time.Now().UTC(),
		Connections: states,
	}); err != nil {
		s.logger.Error("encoding health response", "error", err)
	}
}
