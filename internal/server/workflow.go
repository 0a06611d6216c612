package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/engine"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/workflow"
)

// sessionStore keeps one justification session per authenticated user.
// Sessions are in-memory only; a server restart starts everyone fresh,
// which matches the session-scoped dismissal contract.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*workflow.Session
	engine   engine.Engine
}

func newSessionStore(e engine.Engine) *sessionStore {
	return &sessionStore{sessions: map[string]*workflow.Session{}, engine: e}
}

func (s *sessionStore) get(userID string) *workflow.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		delay := 500 * time.Millisecond
		if s.engine.Config != nil {
			delay = s.engine.Config.AdvanceDelay()
		}
		sess = workflow.NewSession(delay, s.engine.Now)
		s.sessions[userID] = sess
	}
	return sess
}

// sync refreshes the session's pending set from the store before any
// read or mutation. The manager whose items are shown is the caller.
func (s *sessionStore) sync(ctx context.Context, userID string, now time.Time) (*workflow.Session, error) {
	items, err := s.engine.PendingActions(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	sess := s.get(userID)
	sess.Sync(items)
	return sess, nil
}

type workflowState struct {
	Item      *workflow.Item `json:"item,omitempty"`
	Remaining int            `json:"remaining"`
}

func registerWorkflow(api huma.API, e engine.Engine, store *sessionStore) {
	now := func() time.Time {
		if e.Now != nil {
			return e.Now()
		}
		return time.Now()
	}

	state := func(sess *workflow.Session) workflowState {
		st := workflowState{Remaining: sess.Remaining()}
		if item, ok := sess.Current(); ok {
			st.Item = &item
		}
		return st
	}

	huma.Register(api, huma.Operation{
		OperationID: "workflow-current",
		Method:      http.MethodGet,
		Path:        "/workflow/current",
		Summary:     "Currently shown pending item",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body workflowState `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		sess, err := store.sync(ctx, principal.UserID, now())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body workflowState `json:"body"`
		}{Body: state(sess)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "workflow-justify",
		Method:      http.MethodPost,
		Path:        "/workflow/justify",
		Summary:     "Justify the shown item",
	}, func(ctx context.Context, input *struct {
		Body struct {
			Text string `json:"text"`
		} `json:"body"`
	}) (*struct {
		Body workflowState `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		sess, err := store.sync(ctx, principal.UserID, now())
		if err != nil {
			return nil, handleError(err)
		}
		err = sess.Justify(ctx, input.Body.Text, func(ctx context.Context, item workflow.Item, text string, _ time.Time) error {
			switch item.Kind {
			case workflow.ItemTask:
				return e.JustifyTask(ctx, item.ID, text, principal.UserID)
			default:
				return e.JustifyTracking(ctx, item.ID, text, principal.UserID)
			}
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body workflowState `json:"body"`
		}{Body: state(sess)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "workflow-dismiss",
		Method:      http.MethodPost,
		Path:        "/workflow/dismiss",
		Summary:     "Dismiss the shown item for this session",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body workflowState `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		sess, err := store.sync(ctx, principal.UserID, now())
		if err != nil {
			return nil, handleError(err)
		}
		if err := sess.Dismiss(); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body workflowState `json:"body"`
		}{Body: state(sess)}, nil
	})
}
