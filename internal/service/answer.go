package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_answer_service.go -package=mocks -mock_names=AnswerService=MockAnswerService groundedkb/internal/service AnswerService

import (
	"context"
	"strings"
	"unicode/utf8"

	"groundedkb/internal/contextutil"
	"groundedkb/internal/rag"
)

// Request limits enforced before the engine runs.
const (
	MaxQueryRunes = 4000
	MaxFileIDs    = 100
)

// AnswerService validates answer requests and runs the engine.
type AnswerService interface {
	// Answer returns a *ValidationError for malformed requests. Engine
	// outcomes, including failures, are reported through the result.
	Answer(ctx context.Context, req rag.Request) (rag.Result, error)
}

// answerService implements AnswerService.
type answerService struct {
	engine rag.Engine
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(engine rag.Engine) AnswerService {
	return &answerService{engine: engine}
}

// Answer implements AnswerService.
func (s *answerService) Answer(ctx context.Context, req rag.Request) (rag.Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid answer request", "error", err)
		return rag.Result{}, err
	}

	res := s.engine.Answer(ctx, req)

	logger.InfoContext(ctx, "answer request processed",
		"tenant_id", req.TenantID,
		"error_code", string(res.ErrorCode),
		"sources", len(res.Usage.Sources),
		"total_tokens", res.Usage.Tokens.TotalTokens,
	)
	return res, nil
}

func validateRequest(req rag.Request) error {
	if strings.TrimSpace(req.TenantID) == "" {
		return &ValidationError{Field: "tenant_id", Message: "cannot be empty"}
	}
	if utf8.RuneCountInString(req.Query) > MaxQueryRunes {
		return &ValidationError{Field: "query", Message: "is too long"}
	}
	if len(req.FileIDs) > MaxFileIDs {
		return &ValidationError{Field: "file_ids", Message: "too many files"}
	}
	for _, id := range req.FileIDs {
		if strings.TrimSpace(id) == "" {
			return &ValidationError{Field: "file_ids", Message: "cannot contain empty ids"}
		}
	}
	return nil
}
