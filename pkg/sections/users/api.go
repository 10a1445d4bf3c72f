package users

import (
	"net/http"

	"github.com/exploopio/vrx-portal/pkg/api"
)

// RegisterAPI mounts the JSON endpoints under /api/v1/users.
func (s *Service) RegisterAPI(mux *http.ServeMux) {
	mux.Handle("GET "+api.Prefix+"/users", api.Handle(s.apiList))
	mux.Handle("POST "+api.Prefix+"/users", api.Handle(s.apiCreate))
	mux.Handle("GET "+api.Prefix+"/users/stats", api.Handle(s.apiStats))
	mux.Handle("GET "+api.Prefix+"/users/{id}", api.Handle(s.apiGet))
	mux.Handle("PATCH "+api.Prefix+"/users/{id}", api.Handle(s.apiUpdate))
	mux.Handle("DELETE "+api.Prefix+"/users/{id}", api.Handle(s.apiDelete))
}

func (s *Service) apiList(r *http.Request) (int, any, error) {
	users, err := s.List(r.Context())
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, users, nil
}

func (s *Service) apiCreate(r *http.Request) (int, any, error) {
	var req CreateRequest
	if err := api.Decode(r, &req); err != nil {
		return 0, nil, err
	}
	u, err := s.Create(r.Context(), req)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, u, nil
}

func (s *Service) apiStats(r *http.Request) (int, any, error) {
	st, err := s.Stats(r.Context())
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, st, nil
}

func (s *Service) apiGet(r *http.Request) (int, any, error) {
	u, err := s.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, u, nil
}

func (s *Service) apiUpdate(r *http.Request) (int, any, error) {
	var req UpdateRequest
	if err := api.Decode(r, &req); err != nil {
		return 0, nil, err
	}
	u, err := s.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, u, nil
}

func (s *Service) apiDelete(r *http.Request) (int, any, error) {
	if err := s.Delete(r.Context(), r.PathValue("id")); err != nil {
		return 0, nil, err
	}
	return http.StatusNoContent, nil, nil
}
