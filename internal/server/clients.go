package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/engine"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/repo"
)

type ClientPath struct {
	ClientID string `path:"client_id"`
}

func registerManagers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-manager",
		Method:        http.MethodPost,
		Path:          "/managers",
		Summary:       "Create manager",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name       string `json:"name"`
			Email      string `json:"email,omitempty"`
			Department string `json:"department,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Manager `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		m, err := e.CreateManager(ctx, input.Body.Name, input.Body.Email, input.Body.Department)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Manager `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-managers",
		Method:      http.MethodGet,
		Path:        "/managers",
		Summary:     "List managers",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Manager `json:"body"`
	}, error) {
		items, err := e.Repo.ListManagers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Manager `json:"body"`
		}{Body: items}, nil
	})
}

func registerClients(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-client",
		Method:        http.MethodPost,
		Path:          "/clients",
		Summary:       "Create client",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name         string  `json:"name"`
			ManagerID    string  `json:"manager_id"`
			Status       string  `json:"status,omitempty" enum:"active,onboarding,paused,churned"`
			MonthlyValue float64 `json:"monthly_value,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Client `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateClient(ctx, engine.ClientCreateOptions{
			Name:         input.Body.Name,
			ManagerID:    input.Body.ManagerID,
			Status:       input.Body.Status,
			MonthlyValue: input.Body.MonthlyValue,
			ActorID:      principal.UserID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Client `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-clients",
		Method:      http.MethodGet,
		Path:        "/clients",
		Summary:     "List clients",
	}, func(ctx context.Context, input *struct {
		ManagerID       string `query:"manager_id"`
		Status          string `query:"status"`
		IncludeArchived bool   `query:"include_archived"`
	}) (*struct {
		Body []domain.Client `json:"body"`
	}, error) {
		items, err := e.Repo.ListClients(ctx, repo.ClientFilters{
			ManagerID:       input.ManagerID,
			Status:          input.Status,
			IncludeArchived: input.IncludeArchived,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Client `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-client",
		Method:      http.MethodGet,
		Path:        "/clients/{client_id}",
		Summary:     "Get client",
	}, func(ctx context.Context, input *ClientPath) (*struct {
		Body domain.Client `json:"body"`
	}, error) {
		c, err := e.Repo.GetClient(ctx, input.ClientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Client `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-client-label",
		Method:      http.MethodPut,
		Path:        "/clients/{client_id}/label",
		Summary:     "Set client label",
	}, func(ctx context.Context, input *struct {
		ClientPath
		Body struct {
			Label string `json:"label" enum:"otimo,bom,medio,ruim,"`
		} `json:"body"`
	}) (*struct {
		Body domain.Client `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.SetClientLabel(ctx, input.ClientID, input.Body.Label, principal.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Client `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-client-status",
		Method:      http.MethodPut,
		Path:        "/clients/{client_id}/status",
		Summary:     "Set client status",
	}, func(ctx context.Context, input *struct {
		ClientPath
		Body struct {
			Status string `json:"status" enum:"active,onboarding,paused,churned"`
		} `json:"body"`
	}) (*struct {
		Body domain.Client `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.SetClientStatus(ctx, input.ClientID, input.Body.Status, principal.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Client `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "record-client-contact",
		Method:      http.MethodPost,
		Path:        "/clients/{client_id}/contact",
		Summary:     "Record client contact",
	}, func(ctx context.Context, input *ClientPath) (*struct {
		Body domain.Client `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.RecordContact(ctx, input.ClientID, principal.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Client `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "archive-client",
		Method:        http.MethodDelete,
		Path:          "/clients/{client_id}",
		Summary:       "Archive client",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *ClientPath) (*struct{}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.ArchiveClient(ctx, input.ClientID, principal.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsert-client-product",
		Method:      http.MethodPut,
		Path:        "/clients/{client_id}/products/{product_slug}",
		Summary:     "Upsert client product value",
	}, func(ctx context.Context, input *struct {
		ClientPath
		ProductSlug string `path:"product_slug"`
		Body        struct {
			Value float64 `json:"value"`
		} `json:"body"`
	}) (*struct {
		Body []domain.ClientProduct `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.UpsertClientProduct(ctx, input.ClientID, input.ProductSlug, input.Body.Value, principal.UserID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListClientProducts(ctx, input.ClientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ClientProduct `json:"body"`
		}{Body: items}, nil
	})
}

func registerTracking(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "mark-client-moved",
		Method:      http.MethodPost,
		Path:        "/clients/{client_id}/moves",
		Summary:     "Record a pipeline card move",
	}, func(ctx context.Context, input *ClientPath) (*struct {
		Body domain.TrackingRecord `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := e.MarkMoved(ctx, input.ClientID, principal.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TrackingRecord `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tracking",
		Method:      http.MethodGet,
		Path:        "/tracking",
		Summary:     "List tracking records",
	}, func(ctx context.Context, input *struct {
		ManagerID string `query:"manager_id"`
	}) (*struct {
		Body []domain.TrackingRecord `json:"body"`
	}, error) {
		items, err := e.Repo.ListTracking(ctx, input.ManagerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.TrackingRecord `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "justify-tracking",
		Method:      http.MethodPost,
		Path:        "/clients/{client_id}/justification",
		Summary:     "Justify a delayed client",
	}, func(ctx context.Context, input *struct {
		ClientPath
		Body struct {
			Text string `json:"text"`
		} `json:"body"`
	}) (*struct {
		Body domain.TrackingRecord `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.JustifyTracking(ctx, input.ClientID, input.Body.Text, principal.UserID); err != nil {
			return nil, handleError(err)
		}
		rec, err := e.Repo.GetTracking(ctx, input.ClientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TrackingRecord `json:"body"`
		}{Body: rec}, nil
	})
}
