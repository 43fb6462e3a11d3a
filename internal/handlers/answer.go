package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"groundedkb/internal/config"
	"groundedkb/internal/contextutil"
	"groundedkb/internal/rag"
	"groundedkb/internal/service"
)

// maxBodyBytes bounds the answer request body.
const maxBodyBytes = 1 << 20

// AnswerHandler handles HTTP requests for grounded answers.
type AnswerHandler struct {
	answerService service.AnswerService
}

// NewAnswerHandler creates a new AnswerHandler.
func NewAnswerHandler(answerService service.AnswerService) *AnswerHandler {
	return &AnswerHandler{answerService: answerService}
}

// AnswerRequest represents the HTTP request payload for a question.
//
// swagger:model AnswerRequest
type AnswerRequest struct {
	// Tenant whose knowledge base is searched
	TenantID string `json:"tenant_id"`

	// The user's question
	Query string `json:"query"`

	// Dialog identifier; enables follow-up questions when set
	DialogID string `json:"dialog_id,omitempty"`

	// "staff" or "client"; anything else is treated as client
	Audience string `json:"audience,omitempty"`

	// Optional restriction to these files
	FileIDs []string `json:"file_ids,omitempty"`

	// Per-call settings layered over tenant settings. Provider endpoints
	// and models are not accepted here.
	Overrides *config.CallOverrides `json:"overrides,omitempty"`
}

// AnswerResponse represents the HTTP response payload.
// Answer and ErrorCode are null when absent.
//
// swagger:model AnswerResponse
type AnswerResponse struct {
	Answer    *string   `json:"answer"`
	ErrorCode *string   `json:"error_code"`
	Usage     rag.Usage `json:"usage"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ServeHTTP handles HTTP requests for answers.
//
// swagger:route POST /api/v1/answer answer
//
// Answers a question from the tenant knowledge base with citations.
//
// responses:
//
//	'200': AnswerResponse
//	'400': AnswerResponse
//	'500': AnswerResponse
//	'502': AnswerResponse
func (h *AnswerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	res, err := h.answerService.Answer(ctx, rag.Request{
		TenantID:  req.TenantID,
		Query:     req.Query,
		DialogID:  req.DialogID,
		Audience:  req.Audience,
		FileIDs:   req.FileIDs,
		Overrides: req.Overrides,
		Debug:     r.URL.Query().Get("debug") == "true",
	})
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, http.StatusBadRequest, ErrorResponse{Error: validationErr.Error(), Field: validationErr.Field})
			return
		}
		logger.ErrorContext(ctx, "answer service error", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to process answer request"})
		return
	}

	resp := AnswerResponse{Usage: res.Usage}
	if res.Answer != "" {
		resp.Answer = &res.Answer
	}
	if res.ErrorCode != "" {
		code := string(res.ErrorCode)
		resp.ErrorCode = &code
	}

	writeJSON(w, statusForCode(res.ErrorCode), resp)
}

// statusForCode maps an answer error code to an HTTP status.
func statusForCode(code rag.ErrorCode) int {
	err := service.CodeError(code)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	writeJSON(w, statusCode, resp)
}
