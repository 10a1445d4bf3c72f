package findings

import (
	"net/http"

	"github.com/exploopio/vrx-portal/pkg/api"
)

type statusRequest struct {
	Status Status `json:"status"`
}

// RegisterAPI mounts the JSON endpoints under /api/v1/findings.
func (s *Service) RegisterAPI(mux *http.ServeMux) {
	mux.Handle("GET "+api.Prefix+"/findings", api.Handle(s.apiList))
	mux.Handle("GET "+api.Prefix+"/findings/stats", api.Handle(s.apiStats))
	mux.Handle("PATCH "+api.Prefix+"/findings/{id}", api.Handle(s.apiUpdate))
}

func (s *Service) apiList(r *http.Request) (int, any, error) {
	if _, err := s.Load(r.Context()); err != nil {
		return 0, nil, err
	}
	q := r.URL.Query()
	return http.StatusOK, s.Filter(q.Get("severity"), q.Get("status")), nil
}

func (s *Service) apiStats(r *http.Request) (int, any, error) {
	return http.StatusOK, s.Statistics(), nil
}

func (s *Service) apiUpdate(r *http.Request) (int, any, error) {
	var req statusRequest
	if err := api.Decode(r, &req); err != nil {
		return 0, nil, err
	}
	f, err := s.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, f, nil
}
