package http

import (
	"bytes"
	"net/http"

	"smartspend/internal/core"
	"smartspend/internal/insights"
	"smartspend/internal/log"
	"smartspend/internal/services"
	"smartspend/internal/storage/csvfile"
)

// insightsResponse is the JSON body of /api/insights.
type insightsResponse struct {
	Report     insights.Report `json:"report"`
	Highlights []string        `json:"highlights"`
	Runway     string          `json:"runway,omitempty"`
	Chart      chartData       `json:"chart"`
}

// chartData feeds the Chart.js pie directly.
type chartData struct {
	Labels   []string  `json:"labels"`
	Values   []float64 `json:"values"`
	Percents []float64 `json:"percents"`
}

func newChartData(shares []insights.CategoryShare) chartData {
	c := chartData{
		Labels:   make([]string, 0, len(shares)),
		Values:   make([]float64, 0, len(shares)),
		Percents: make([]float64, 0, len(shares)),
	}
	for _, sh := range shares {
		v, _ := sh.Amount.Float64()
		c.Labels = append(c.Labels, string(sh.Category))
		c.Values = append(c.Values, v)
		c.Percents = append(c.Percents, sh.Percent)
	}
	return c
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.FromRequest(w, r)
	sess, view, err := s.dashboard.Refresh(r.Context(), sess)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Ledger load failed", log.FieldError, err.Error())
		_ = NewHTMXResponse().Status(http.StatusInternalServerError).
			JSON(map[string]string{"error": "could not load expenses"}).Write(w)
		return
	}
	s.sessions.Save(sess)

	resp := insightsResponse{
		Report:     view.Report,
		Highlights: services.DescribeHighlights(view.Report, s.formatter),
		Chart:      newChartData(view.Report.Shares),
	}
	if p := view.Report.Projection; p != nil {
		resp.Runway = services.DescribeRunway(p.Runway)
	}
	s.respond(w, r, NewHTMXResponse().JSON(resp))
}

// handleExport streams the ledger in the on-disk CSV format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ledger, err := s.dashboard.Ledger().Load(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed", log.FieldError, err.Error())
		InternalServerError("Could not export expenses").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := csvfile.Encode(&buf, ledger); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export encoding failed", log.FieldError, err.Error())
		InternalServerError("Could not export expenses").Write(w)
		return
	}
	s.respond(w, r, NewHTMXResponse().Attachment("expenses.csv", "text/csv; charset=utf-8", buf.Bytes()))
}

// handleSuggest renders the category picker with the classifier's guess
// for the typed description preselected.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	desc := clean(r.URL.Query().Get("description"))
	choice := categoryChoice{Auto: true, Categories: core.Categories()}
	if desc != "" {
		choice.Suggested = insights.Classify(desc)
		choice.Selected = choice.Suggested
	}
	s.respond(w, r, NewHTMXResponse().Template(s.templates, "category_select", choice))
}
