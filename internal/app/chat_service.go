package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/flisboa999/guiaturismo/internal/ai"
	"github.com/flisboa999/guiaturismo/internal/model"
)

type Mode string

const (
	ModeGenerate Mode = "generate"
	ModePlain    Mode = "plain"
)

// ParseMode maps the client's selector; "gemini" is what the page sends.
func ParseMode(raw string) Mode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "generate":
		return ModeGenerate
	default:
		return ModePlain
	}
}

// TurnAppender is the write side of the chat collection.
type TurnAppender interface {
	Append(ctx context.Context, turn model.ChatTurn) (string, error)
}

// SubmissionRecorder receives per-submission telemetry.
type SubmissionRecorder interface {
	ObserveSubmission(mode string, code string)
	ObserveGeneration(d time.Duration, err error)
}

type SubmitInput struct {
	Prompt    string
	SessionID string
	UserAgent string
	Mode      Mode
	// ControlID names the input control instance; defaults to SessionID, then
	// to the caller's user id. Anonymous calls with neither are never gated.
	ControlID string
	Identity  *Identity
}

type SubmitResult struct {
	Reply     string `json:"reply"`
	TurnID    string `json:"id"`
	SessionID string `json:"sessionId"`
	Mode      Mode   `json:"mode"`
}

// SubmissionService turns one user prompt into exactly one stored chat turn.
type SubmissionService struct {
	turns        TurnAppender
	generator    ai.Generator
	gate         *InputGate
	recorder     SubmissionRecorder
	requireLogin bool
}

type SubmissionConfig struct {
	RequireLogin bool
}

func NewSubmissionService(
	turns TurnAppender,
	generator ai.Generator,
	gate *InputGate,
	recorder SubmissionRecorder,
	cfg SubmissionConfig,
) *SubmissionService {
	if gate == nil {
		gate = NewInputGate(nil)
	}
	return &SubmissionService{
		turns:        turns,
		generator:    generator,
		gate:         gate,
		recorder:     recorder,
		requireLogin: cfg.RequireLogin,
	}
}

func (s *SubmissionService) Gate() *InputGate {
	return s.gate
}

// Submit validates, optionally generates, then writes one turn. The input
// control stays disabled for the whole call and is released on every path.
// Submissions are not cancellable once accepted.
func (s *SubmissionService) Submit(ctx context.Context, input SubmitInput) (result *SubmitResult, err error) {
	ctx = context.WithoutCancel(ctx)

	mode := input.Mode
	if mode == "" {
		mode = ModePlain
	}
	sessionID := strings.TrimSpace(input.SessionID)
	controlID := strings.TrimSpace(input.ControlID)
	if controlID == "" {
		controlID = sessionID
	}
	// Signed-in callers without a control or session share one control per user.
	if uid := input.Identity.userIDString(); controlID == "" && uid != nil {
		controlID = "user-" + *uid
	}
	if sessionID == "" {
		sessionID = "sess-" + uuid.NewString()
	}
	if controlID == "" {
		controlID = sessionID
	}

	release, ok := s.gate.Acquire(controlID)
	if !ok {
		busy := &Error{Code: CodeResourceExhausted, Message: ErrSubmissionBusy.Error(), cause: ErrSubmissionBusy}
		s.observe(mode, busy)
		return nil, busy
	}
	defer release()
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("submission panicked")
			result = nil
			err = &Error{Code: CodeUnknown, Message: "failed to process the message", Details: fmt.Sprint(r)}
		}
		s.observe(mode, err)
	}()

	entry := log.WithFields(log.Fields{
		"mode":       mode,
		"session_id": sessionID,
	})

	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		entry.Debug("rejected empty prompt")
		return nil, InvalidArgument(ErrPromptEmpty)
	}
	if s.requireLogin && input.Identity == nil {
		return nil, &Error{Code: CodeUnauthenticated, Message: ErrLoginRequired.Error(), cause: ErrLoginRequired}
	}

	turn := model.ChatTurn{
		Prompt:    prompt,
		SessionID: sessionID,
		UserAgent: input.UserAgent,
		UserID:    input.Identity.userIDString(),
		UserName:  input.Identity.displayName(),
	}

	var reply string
	if mode == ModeGenerate {
		reply, err = s.generate(ctx, prompt)
		if err != nil {
			entry.WithError(err).Error("generation failed, nothing stored")
			return nil, err
		}
		turn.Response = &reply
	}

	id, writeErr := s.turns.Append(ctx, turn)
	if writeErr != nil {
		entry.WithError(writeErr).Error("persist chat turn failed")
		return nil, &Error{
			Code:    CodeInternal,
			Message: ErrPersistence.Error(),
			Details: writeErr.Error(),
			cause:   fmt.Errorf("%w: %w", ErrPersistence, writeErr),
		}
	}

	entry.WithField("turn_id", id).Info("chat turn stored")
	return &SubmitResult{Reply: reply, TurnID: id, SessionID: sessionID, Mode: mode}, nil
}

func (s *SubmissionService) generate(ctx context.Context, prompt string) (string, error) {
	if s.generator == nil {
		return "", &Error{
			Code:    CodeInternal,
			Message: "server configuration error: generation api key missing",
			cause:   ai.ErrMissingCredential,
		}
	}

	started := time.Now()
	reply, err := s.generator.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ai.ErrEmptyResponse
	}
	if s.recorder != nil {
		s.recorder.ObserveGeneration(time.Since(started), err)
	}
	if err != nil {
		if errors.Is(err, ai.ErrMissingCredential) {
			return "", &Error{
				Code:    CodeInternal,
				Message: "server configuration error: generation api key missing",
				cause:   err,
			}
		}
		return "", &Error{
			Code:    CodeInternal,
			Message: ErrGeneration.Error(),
			Details: err.Error(),
			cause:   fmt.Errorf("%w: %w", ErrGeneration, err),
		}
	}
	return reply, nil
}

func (s *SubmissionService) observe(mode Mode, err error) {
	if s.recorder == nil {
		return
	}
	code := "ok"
	if err != nil {
		code = string(CodeOf(err))
	}
	s.recorder.ObserveSubmission(string(mode), code)
}
