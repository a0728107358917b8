package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"rotaline/internal/engine"
	"rotaline/internal/export"
)

type rotaQuery struct {
	Scope string `query:"scope" doc:"all, team or anything else for the caller only"`
	Year  int    `query:"year" doc:"Any date inside the requested week; omit for the current week"`
	Month int    `query:"month"`
	Day   int    `query:"day"`
}

type fileOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

func viewRota(ctx context.Context, e engine.Engine, q *rotaQuery) (engine.RotaView, error) {
	principal, authErr := principalFromContext(ctx)
	if authErr != nil {
		return engine.RotaView{}, authErr
	}
	view, err := e.ViewRota(ctx, engine.ViewRotaOptions{
		RequesterID: principal.UserID,
		Scope:       q.Scope,
		Year:        q.Year,
		Month:       q.Month,
		Day:         q.Day,
	})
	if err != nil {
		return engine.RotaView{}, handleError(err)
	}
	return view, nil
}

func registerRota(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-rota-activities",
		Method:      http.MethodGet,
		Path:        "/rota/activities",
		Summary:     "Rota activity catalog",
		Tags:        []string{"rota"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ActivityResponse `json:"body"`
	}, error) {
		acts, err := e.Repo.ListActivities(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]ActivityResponse, 0, len(acts))
		for _, a := range acts {
			out = append(out, ActivityResponse{ID: a.ID, Name: a.Name, Description: a.Description})
		}
		return &struct {
			Body []ActivityResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "view-rota",
		Method:      http.MethodGet,
		Path:        "/rota",
		Summary:     "Weekly rota rows for a scope",
		Tags:        []string{"rota"},
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *rotaQuery) (*struct {
		Body []RotaRowResponse `json:"body"`
	}, error) {
		view, err := viewRota(ctx, e, input)
		if err != nil {
			return nil, err
		}
		rows := make([]RotaRowResponse, 0, len(view.Rows))
		for _, r := range view.Rows {
			rows = append(rows, mapRotaRow(r))
		}
		return &struct {
			Body []RotaRowResponse `json:"body"`
		}{Body: rows}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "export-rota-pdf",
		Method:      http.MethodGet,
		Path:        "/rota/pdf",
		Summary:     "Weekly rota as PDF",
		Tags:        []string{"rota"},
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *rotaQuery) (*fileOutput, error) {
		view, err := viewRota(ctx, e, input)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := export.WritePDF(&buf, view.Week, view.Rows); err != nil {
			return nil, handleError(err)
		}
		return &fileOutput{
			ContentType:        "application/pdf",
			ContentDisposition: fmt.Sprintf("attachment; filename=rota-%s.pdf", view.Week.Monday()),
			Body:               buf.Bytes(),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "view-rota-page",
		Method:      http.MethodGet,
		Path:        "/rota/page",
		Summary:     "Weekly rota as an HTML page",
		Tags:        []string{"rota"},
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *rotaQuery) (*fileOutput, error) {
		view, err := viewRota(ctx, e, input)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := export.WriteHTML(&buf, view.Week, view.Rows, input.Scope); err != nil {
			return nil, handleError(err)
		}
		return &fileOutput{ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-rota",
		Method:      http.MethodPost,
		Path:        "/rota/edit/{year}/{month}/{day}/{activity}/{username}",
		Summary:     "Set the activity of a person on a date",
		Tags:        []string{"rota"},
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Year     int    `path:"year"`
		Month    int    `path:"month"`
		Day      int    `path:"day"`
		Activity int64  `path:"activity"`
		Username string `path:"username"`
	}) (*fileOutput, error) {
		principal, authErr := principalFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		msg, err := e.EditRota(ctx, engine.EditRotaOptions{
			Year:       input.Year,
			Month:      input.Month,
			Day:        input.Day,
			ActivityID: input.Activity,
			Username:   input.Username,
			EditorID:   principal.UserID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &fileOutput{ContentType: "text/plain; charset=utf-8", Body: []byte(msg)}, nil
	})
}
