package settings

import (
	"net/http"

	"github.com/exploopio/vrx-portal/pkg/api"
)

// RegisterAPI mounts GET and PUT /api/v1/settings.
func (s *Service) RegisterAPI(mux *http.ServeMux) {
	mux.Handle("GET "+api.Prefix+"/settings", api.Handle(s.apiGet))
	mux.Handle("PUT "+api.Prefix+"/settings", api.Handle(s.apiPut))
}

func (s *Service) apiGet(r *http.Request) (int, any, error) {
	st, err := s.Get(r.Context())
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, st, nil
}

func (s *Service) apiPut(r *http.Request) (int, any, error) {
	var next Settings
	if err := api.Decode(r, &next); err != nil {
		return 0, nil, err
	}
	st, err := s.Replace(r.Context(), next)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, st, nil
}
