package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/wser/internal/app"
	"github.com/okian/wser/internal/domain/types"
)

// handleSearch handles GET /runners?q=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sq := searchQuery{Q: strings.TrimSpace(r.URL.Query().Get("q"))}
	if err := check(&sq); err != nil {
		s.fail(w, r, err)
		return
	}
	found, err := s.deps.FindRunner(r.Context(), sq.Q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// handleRunnerPace handles GET /runners/{id}/pace. A runner without splits
// yields an empty series, not an error.
func (s *Server) handleRunnerPace(w http.ResponseWriter, r *http.Request) {
	id := types.RunnerID(chi.URLParam(r, "id"))
	info, err := s.deps.Runner(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	series, err := s.deps.BuildProfile(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.RunnerPace{Runner: info, Series: series})
}

// handleFieldPace handles GET /field/pace.
func (s *Server) handleFieldPace(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	agg, err := s.deps.FieldPace(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

// handleFieldSummary handles GET /field/summary.
func (s *Server) handleFieldSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sum, err := s.deps.SummarizeField(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleCompare handles GET /compare?a=&b=.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cq := compareQuery{A: strings.TrimSpace(q.Get("a")), B: strings.TrimSpace(q.Get("b"))}
	if err := check(&cq); err != nil {
		s.fail(w, r, err)
		return
	}
	cmp, err := s.deps.CompareRunners(r.Context(), cq.A, cq.B)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// handleCompareField handles GET /compare/field?runner=&<filter>.
func (s *Server) handleCompareField(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sq := searchQuery{Q: strings.TrimSpace(q.Get("runner"))}
	if err := check(&sq); err != nil {
		s.fail(w, r, err)
		return
	}
	filter, err := parseFilter(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cmp, err := s.deps.CompareToField(r.Context(), sq.Q, filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// handleFinishDistribution handles GET /distribution/finish?edges=&gender=.
func (s *Server) handleFinishDistribution(w http.ResponseWriter, r *http.Request) {
	fq, err := parseFinish(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.deps.BinByFixedEdges(r.Context(), fq.Edges, fq.Gender)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleAgeDistribution handles GET /distribution/age?bins=&gender=.
func (s *Server) handleAgeDistribution(w http.ResponseWriter, r *http.Request) {
	aq, err := parseAge(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.deps.BinByComputedAge(r.Context(), aq.Bins, aq.Gender)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
