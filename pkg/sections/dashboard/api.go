package dashboard

import (
	"net/http"

	"github.com/exploopio/vrx-portal/pkg/api"
)

// RegisterAPI mounts GET /api/v1/dashboard.
func (s *Service) RegisterAPI(mux *http.ServeMux) {
	mux.Handle("GET "+api.Prefix+"/dashboard", api.Handle(func(r *http.Request) (int, any, error) {
		o, err := s.Overview(r.Context())
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, o, nil
	}))
}
