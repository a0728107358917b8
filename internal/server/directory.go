package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"rotaline/internal/engine"
)

func registerDirectory(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "Active users",
		Tags:        []string{"directory"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []UserResponse `json:"body"`
	}, error) {
		users, err := e.Repo.ListUsers(ctx, true)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []UserResponse `json:"body"`
		}{Body: mapUsers(users)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-companies",
		Method:      http.MethodGet,
		Path:        "/companies",
		Summary:     "Active companies",
		Tags:        []string{"directory"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []CompanyResponse `json:"body"`
	}, error) {
		companies, err := e.Repo.ListCompanies(ctx, true)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]CompanyResponse, 0, len(companies))
		for _, c := range companies {
			out = append(out, CompanyResponse{ID: c.ID, Name: c.Name})
		}
		return &struct {
			Body []CompanyResponse `json:"body"`
		}{Body: out}, nil
	})
}
