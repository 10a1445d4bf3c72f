package assets

import (
	"net/http"

	"github.com/exploopio/vrx-portal/pkg/api"
)

type vulnerabilityStatusRequest struct {
	Status VulnerabilityStatus `json:"status"`
}

// RegisterAPI mounts the JSON endpoints under /api/v1/assets.
func (s *Service) RegisterAPI(mux *http.ServeMux) {
	mux.Handle("GET "+api.Prefix+"/assets", api.Handle(s.apiList))
	mux.Handle("GET "+api.Prefix+"/assets/stats", api.Handle(s.apiStats))
	mux.Handle("GET "+api.Prefix+"/assets/{id}", api.Handle(s.apiGet))
	mux.Handle("POST "+api.Prefix+"/assets/{id}/vulnerabilities/{vid}/status", api.Handle(s.apiUpdateVulnerability))
}

// apiList honours ?q= for search and type/status/environment/risk filters.
func (s *Service) apiList(r *http.Request) (int, any, error) {
	assets, err := s.Load(r.Context())
	if err != nil {
		return 0, nil, err
	}

	q := r.URL.Query()
	f := parseFilters(q)
	term := q.Get("q")
	if term == "" && f.IsZero() {
		return http.StatusOK, assets, nil
	}

	matched := make(map[string]bool)
	for _, a := range s.Search(term) {
		matched[a.ID] = true
	}
	out := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if matched[a.ID] && f.Match(a) {
			out = append(out, a)
		}
	}
	return http.StatusOK, out, nil
}

func (s *Service) apiStats(r *http.Request) (int, any, error) {
	return http.StatusOK, s.Statistics(), nil
}

func (s *Service) apiGet(r *http.Request) (int, any, error) {
	d, err := s.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, d, nil
}

func (s *Service) apiUpdateVulnerability(r *http.Request) (int, any, error) {
	var req vulnerabilityStatusRequest
	if err := api.Decode(r, &req); err != nil {
		return 0, nil, err
	}
	v, err := s.UpdateVulnerabilityStatus(r.Context(), r.PathValue("id"), r.PathValue("vid"), req.Status)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, v, nil
}
