package app

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/flisboa999/guiaturismo/internal/store"
)

const defaultResetConcurrency = 8

// TurnAdmin is the destructive side of the chat collection.
type TurnAdmin interface {
	IDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, fields store.Update) error
}

// Confirmations issues single-use tokens for the explicit reset confirmation step.
type Confirmations interface {
	Issue(ctx context.Context, subject string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, subject, token string) (bool, error)
}

type ResetRecorder interface {
	ObserveResetDelete(failed bool)
}

type ResetChallenge struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type DeleteOutcome struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

type ResetReport struct {
	Outcomes []DeleteOutcome `json:"outcomes"`
	Deleted  int             `json:"deleted"`
	Failed   int             `json:"failed"`
}

type AdminService struct {
	turns         TurnAdmin
	confirmations Confirmations
	confirmTTL    time.Duration
	concurrency   int
	recorder      ResetRecorder
}

func NewAdminService(turns TurnAdmin, confirmations Confirmations, confirmTTL time.Duration, recorder ResetRecorder) *AdminService {
	if confirmTTL <= 0 {
		confirmTTL = time.Minute
	}
	return &AdminService{
		turns:         turns,
		confirmations: confirmations,
		confirmTTL:    confirmTTL,
		concurrency:   defaultResetConcurrency,
		recorder:      recorder,
	}
}

func requireAdmin(session *SessionContext) (*Identity, error) {
	if session == nil || session.Identity() == nil {
		return nil, &Error{Code: CodeUnauthenticated, Message: ErrLoginRequired.Error(), cause: ErrLoginRequired}
	}
	if !session.IsAdmin() {
		return nil, &Error{Code: CodePermissionDenied, Message: ErrAdminOnly.Error(), cause: ErrAdminOnly}
	}
	return session.Identity(), nil
}

// RequestReset is the first half of the reset: it hands the admin a token to confirm with.
func (s *AdminService) RequestReset(ctx context.Context, session *SessionContext) (*ResetChallenge, error) {
	identity, err := requireAdmin(session)
	if err != nil {
		return nil, err
	}
	token, err := s.confirmations.Issue(ctx, strings.ToLower(identity.Email), s.confirmTTL)
	if err != nil {
		return nil, Internal(err, "")
	}
	log.WithField("admin", identity.Email).Warn("bulk reset requested, waiting for confirmation")
	return &ResetChallenge{Token: token, ExpiresAt: time.Now().Add(s.confirmTTL)}, nil
}

// ConfirmReset consumes the token and deletes every turn.
func (s *AdminService) ConfirmReset(ctx context.Context, session *SessionContext, token string) (*ResetReport, error) {
	identity, err := requireAdmin(session)
	if err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, InvalidArgument(ErrResetUnconfirmed)
	}
	ok, err := s.confirmations.Consume(ctx, strings.ToLower(identity.Email), token)
	if err != nil {
		return nil, Internal(err, "")
	}
	if !ok {
		return nil, &Error{Code: CodePermissionDenied, Message: ErrResetUnconfirmed.Error(), cause: ErrResetUnconfirmed}
	}
	log.WithField("admin", identity.Email).Warn("bulk reset confirmed")
	return s.BulkReset(ctx)
}

// BulkReset deletes every turn, unordered. Individual failures are logged and
// reported but never stop the remaining deletes.
func (s *AdminService) BulkReset(ctx context.Context) (*ResetReport, error) {
	ctx = context.WithoutCancel(ctx)

	ids, err := s.turns.IDs(ctx)
	if err != nil {
		return nil, Internal(err, "")
	}

	outcomes := make([]DeleteOutcome, len(ids))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			outcome := DeleteOutcome{ID: id}
			if err := s.turns.Delete(ctx, id); err != nil {
				log.WithError(err).WithField("turn_id", id).Error("delete during reset failed, skipping")
				outcome.Err = err
				outcome.Error = err.Error()
			}
			if s.recorder != nil {
				s.recorder.ObserveResetDelete(outcome.Err != nil)
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	report := &ResetReport{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Err != nil {
			report.Failed++
		} else {
			report.Deleted++
		}
	}
	log.WithFields(log.Fields{"deleted": report.Deleted, "failed": report.Failed}).Warn("bulk reset finished")
	return report, nil
}

// EditTurn replaces a turn's prompt. The stored response is kept as is.
func (s *AdminService) EditTurn(ctx context.Context, session *SessionContext, id, prompt string) error {
	if _, err := requireAdmin(session); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return InvalidArgument(ErrInvalidInput)
	}
	if strings.TrimSpace(prompt) == "" {
		return InvalidArgument(ErrPromptEmpty)
	}
	if err := s.turns.Update(ctx, id, store.Update{Prompt: prompt}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &Error{Code: CodeNotFound, Message: ErrTurnNotFound.Error(), cause: err}
		}
		return Internal(err, "")
	}
	return nil
}
