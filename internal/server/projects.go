package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"rotaline/internal/engine"
)

type projectPath struct {
	Number string `path:"number"`
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "project-users",
		Method:      http.MethodGet,
		Path:        "/projects/{number}/users",
		Summary:     "Users allowed to read a project",
		Tags:        []string{"projects"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body []UserResponse `json:"body"`
	}, error) {
		users, err := e.ProjectUsers(ctx, input.Number)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []UserResponse `json:"body"`
		}{Body: mapUsers(users)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-pid",
		Method:      http.MethodGet,
		Path:        "/projects/{number}/pid",
		Summary:     "Project initiation document",
		Tags:        []string{"projects"},
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body PIDResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.GetPID(ctx, principal.UserID, input.Number)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PIDResponse `json:"body"`
		}{Body: PIDResponse{Success: true, Data: p}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-pid",
		Method:      http.MethodPut,
		Path:        "/projects/{number}/pid",
		Summary:     "Update the project initiation document",
		Tags:        []string{"projects"},
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Number string           `path:"number"`
		Body   PIDUpdateRequest `json:"body"`
	}) (*struct {
		Body PIDResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b := input.Body
		p, err := e.UpdatePID(ctx, principal.UserID, input.Number, engine.PIDUpdate{
			Name:             b.Name,
			Status:           b.Status,
			CompanyID:        b.CompanyID,
			ProjectManagerID: b.ProjectManagerID,
			TeamManagerIDs:   b.TeamManagerIDs,
			Sponsor:          b.Sponsor,
			Description:      b.Description,
			BusinessCase:     b.BusinessCase,
			BusinessBenefits: b.BusinessBenefits,
			Scope:            b.Scope,
			Exclusions:       b.Exclusions,
			Assumptions:      b.Assumptions,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PIDResponse `json:"body"`
		}{Body: PIDResponse{Success: true, Data: p}}, nil
	})
}
