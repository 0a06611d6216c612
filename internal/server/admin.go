package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/engine"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/report"
)

// Admin endpoints. Role enforcement happens in the engine against the
// stored user record, not the token claim.
func registerAdmin(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/admin/users",
		Summary:       "Create user",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			Email   string `json:"email"`
			Name    string `json:"name,omitempty"`
			Role    string `json:"role"`
			GroupID string `json:"group_id,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.CreateUser(ctx, engine.UserCreateOptions{
			Email:   input.Body.Email,
			Name:    input.Body.Name,
			Role:    input.Body.Role,
			GroupID: input.Body.GroupID,
			ActorID: principal.UserID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/admin/users",
		Summary:     "List users",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListUsers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-user",
		Method:        http.MethodDelete,
		Path:          "/admin/users/{user_id}",
		Summary:       "Delete user",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct{}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteUser(ctx, input.UserID, principal.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-group",
		Method:        http.MethodPost,
		Path:          "/admin/groups",
		Summary:       "Create group",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name string `json:"name"`
		} `json:"body"`
	}) (*struct {
		Body domain.Group `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.CreateGroup(ctx, input.Body.Name, principal.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Group `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-group",
		Method:        http.MethodDelete,
		Path:          "/admin/groups/{group_id}",
		Summary:       "Delete group",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		GroupID     string `path:"group_id"`
		DeleteUsers bool   `query:"delete_users"`
	}) (*struct{}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteGroup(ctx, input.GroupID, input.DeleteUsers, principal.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "manager-report",
		Method:      http.MethodGet,
		Path:        "/reports/managers",
		Summary:     "Per-manager portfolio summary",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []report.ManagerStats `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		now := time.Now()
		if e.Now != nil {
			now = e.Now()
		}
		stats, err := e.ManagerReport(ctx, now)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []report.ManagerStats `json:"body"`
		}{Body: stats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pending-actions",
		Method:      http.MethodGet,
		Path:        "/reports/pending",
		Summary:     "Pending items for a manager",
	}, func(ctx context.Context, input *struct {
		ManagerID string `query:"manager_id"`
	}) (*struct {
		Body []workflowItemResponse `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		managerID := input.ManagerID
		if managerID == "" {
			managerID = principal.UserID
		}
		now := time.Now()
		if e.Now != nil {
			now = e.Now()
		}
		items, err := e.PendingActions(ctx, managerID, now)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]workflowItemResponse, 0, len(items))
		for _, item := range items {
			out = append(out, workflowItemResponse{ID: item.ID, Kind: string(item.Kind), Title: item.Title})
		}
		return &struct {
			Body []workflowItemResponse `json:"body"`
		}{Body: out}, nil
	})
}

type workflowItemResponse struct {
	ID    string `json:"id"`
	Kind  string `json:"kind" enum:"task,tracking"`
	Title string `json:"title"`
}

// registerChanges exposes the durable change feed. Dashboards poll
// with the last event id they processed.
func registerChanges(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-changes",
		Method:      http.MethodGet,
		Path:        "/changes",
		Summary:     "Change feed",
	}, func(ctx context.Context, input *struct {
		After int64 `query:"cursor"`
		Limit int   `query:"limit"`
	}) (*struct {
		Body struct {
			Events []domain.Event `json:"events"`
			Cursor int64          `json:"cursor"`
		} `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.EventsAfter(ctx, input.After, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		cursor := input.After
		for _, evt := range items {
			if evt.ID > cursor {
				cursor = evt.ID
			}
		}
		out := &struct {
			Body struct {
				Events []domain.Event `json:"events"`
				Cursor int64          `json:"cursor"`
			} `json:"body"`
		}{}
		out.Body.Events = items
		out.Body.Cursor = cursor
		return out, nil
	})
}
