package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/engine"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/repo"
)

type TaskPath struct {
	TaskID string `path:"task_id"`
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			Kind    string `json:"kind" enum:"ads,comercial,department"`
			Title   string `json:"title"`
			OwnerID string `json:"owner_id"`
			DueDate string `json:"due_date" format:"date"`
		} `json:"body"`
	}) (*struct {
		Body domain.TaskItem `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			Kind:    domain.TaskKind(input.Body.Kind),
			Title:   input.Body.Title,
			OwnerID: input.Body.OwnerID,
			DueDate: input.Body.DueDate,
			ActorID: principal.UserID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TaskItem `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		Kind            string `query:"kind"`
		OwnerID         string `query:"owner_id"`
		Status          string `query:"status"`
		IncludeArchived bool   `query:"include_archived"`
	}) (*struct {
		Body []domain.TaskItem `json:"body"`
	}, error) {
		items, err := e.Repo.ListTasks(ctx, repo.TaskFilters{
			Kind:            input.Kind,
			OwnerID:         input.OwnerID,
			Status:          input.Status,
			IncludeArchived: input.IncludeArchived,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.TaskItem `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-status",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}/status",
		Summary:     "Set task status",
	}, func(ctx context.Context, input *struct {
		TaskPath
		Body struct {
			Status string `json:"status" enum:"todo,doing,done"`
		} `json:"body"`
	}) (*struct {
		Body domain.TaskItem `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.SetTaskStatus(ctx, input.TaskID, input.Body.Status, principal.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TaskItem `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "archive-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{task_id}",
		Summary:       "Archive task",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *TaskPath) (*struct{}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.ArchiveTask(ctx, input.TaskID, principal.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "justify-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/justification",
		Summary:     "Justify an overdue task",
	}, func(ctx context.Context, input *struct {
		TaskPath
		Body struct {
			Text string `json:"text"`
		} `json:"body"`
	}) (*struct {
		Body domain.TaskItem `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.JustifyTask(ctx, input.TaskID, input.Body.Text, principal.UserID); err != nil {
			return nil, handleError(err)
		}
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TaskItem `json:"body"`
		}{Body: t}, nil
	})
}

func registerOKRs(api huma.API, e engine.Engine) {
	type OKRPath struct {
		OKRID string `path:"okr_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-okr",
		Method:        http.MethodPost,
		Path:          "/okrs",
		Summary:       "Create OKR",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			Type        string   `json:"type" enum:"annual,weekly"`
			Title       string   `json:"title"`
			TargetValue *float64 `json:"target_value,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.OKR `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.CreateOKR(ctx, engine.OKRCreateOptions{
			Type:        input.Body.Type,
			Title:       input.Body.Title,
			TargetValue: input.Body.TargetValue,
			ActorID:     principal.UserID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.OKR `json:"body"`
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-okrs",
		Method:      http.MethodGet,
		Path:        "/okrs",
		Summary:     "List OKRs",
	}, func(ctx context.Context, input *struct {
		Type   string `query:"type"`
		Status string `query:"status"`
	}) (*struct {
		Body []domain.OKR `json:"body"`
	}, error) {
		items, err := e.Repo.ListOKRs(ctx, input.Type, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.OKR `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-okr-progress",
		Method:      http.MethodPut,
		Path:        "/okrs/{okr_id}/progress",
		Summary:     "Update OKR progress",
	}, func(ctx context.Context, input *struct {
		OKRPath
		Body struct {
			CurrentValue float64 `json:"current_value"`
		} `json:"body"`
	}) (*struct {
		Body domain.OKR `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.UpdateOKRProgress(ctx, input.OKRID, input.Body.CurrentValue, principal.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.OKR `json:"body"`
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "archive-okr",
		Method:        http.MethodDelete,
		Path:          "/okrs/{okr_id}",
		Summary:       "Archive OKR",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *OKRPath) (*struct{}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.ArchiveOKR(ctx, input.OKRID, principal.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-weekly-okrs",
		Method:      http.MethodPost,
		Path:        "/okrs/week-rollover",
		Summary:     "Archive all active weekly OKRs",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			Archived int64 `json:"archived"`
		} `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.ArchiveWeeklyOKRs(ctx, principal.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Archived int64 `json:"archived"`
			} `json:"body"`
		}{}
		out.Body.Archived = n
		return out, nil
	})
}
