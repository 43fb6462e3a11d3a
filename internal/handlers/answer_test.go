package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"groundedkb/internal/config"
	"groundedkb/internal/rag"
	"groundedkb/internal/service"
	"groundedkb/internal/service/mocks"
)

func TestAnswerHandler_ServeHTTP(t *testing.T) {
	okResult := rag.Result{
		Answer: "Ivan lifts 180 kg.",
		Usage: rag.Usage{
			Kind: "numeric_fact",
			Sources: []rag.SourceItem{{
				FileID: "f1", ChunkID: "c1", FileName: "training.md",
				AnchorKind: rag.AnchorChunk, AnchorValue: "0",
			}},
		},
	}

	tests := []struct {
		name          string
		method        string
		target        string
		body          any
		mockSetup     func(*mocks.MockAnswerService)
		wantStatus    int
		checkResponse func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:   "answer",
			method: http.MethodPost,
			target: "/api/v1/answer",
			body:   AnswerRequest{TenantID: "acme", Query: "How much does Ivan lift?", Audience: "client"},
			mockSetup: func(m *mocks.MockAnswerService) {
				m.EXPECT().
					Answer(gomock.Any(), rag.Request{TenantID: "acme", Query: "How much does Ivan lift?", Audience: "client"}).
					Return(okResult, nil)
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp AnswerResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Answer == nil || *resp.Answer != "Ivan lifts 180 kg." {
					t.Errorf("answer = %v, want %q", resp.Answer, "Ivan lifts 180 kg.")
				}
				if resp.ErrorCode != nil {
					t.Errorf("error_code = %v, want null", *resp.ErrorCode)
				}
				if len(resp.Usage.Sources) != 1 || resp.Usage.Sources[0].ChunkID != "c1" {
					t.Errorf("sources = %+v", resp.Usage.Sources)
				}
			},
		},
		{
			name:   "debug flag from query string",
			method: http.MethodPost,
			target: "/api/v1/answer?debug=true",
			body:   AnswerRequest{TenantID: "acme", Query: "q"},
			mockSetup: func(m *mocks.MockAnswerService) {
				m.EXPECT().
					Answer(gomock.Any(), rag.Request{TenantID: "acme", Query: "q", Debug: true}).
					Return(okResult, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "refusal is a regular answer",
			method: http.MethodPost,
			target: "/api/v1/answer",
			body:   AnswerRequest{TenantID: "acme", Query: "Where can I park my bicycle?"},
			mockSetup: func(m *mocks.MockAnswerService) {
				m.EXPECT().Answer(gomock.Any(), gomock.Any()).Return(rag.Result{
					Answer:    "I could not find this in the knowledge base.",
					ErrorCode: rag.CodeLowConfidence,
					Usage:     rag.Usage{Reason: rag.CodeLowConfidence, Sources: []rag.SourceItem{}},
				}, nil)
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var raw map[string]json.RawMessage
				if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if string(raw["error_code"]) != `"low_confidence_context"` {
					t.Errorf("error_code = %s", raw["error_code"])
				}
				var usage map[string]json.RawMessage
				if err := json.Unmarshal(raw["usage"], &usage); err != nil {
					t.Fatalf("decode usage: %v", err)
				}
				if string(usage["sources"]) != "[]" {
					t.Errorf("sources = %s, want []", usage["sources"])
				}
			},
		},
		{
			name:   "empty query",
			method: http.MethodPost,
			target: "/api/v1/answer",
			body:   AnswerRequest{TenantID: "acme"},
			mockSetup: func(m *mocks.MockAnswerService) {
				m.EXPECT().Answer(gomock.Any(), gomock.Any()).Return(rag.Result{ErrorCode: rag.CodeEmptyQuery}, nil)
			},
			wantStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var raw map[string]json.RawMessage
				if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if string(raw["answer"]) != "null" {
					t.Errorf("answer = %s, want null", raw["answer"])
				}
			},
		},
		{
			name:   "provider failure",
			method: http.MethodPost,
			target: "/api/v1/answer",
			body:   AnswerRequest{TenantID: "acme", Query: "q"},
			mockSetup: func(m *mocks.MockAnswerService) {
				m.EXPECT().Answer(gomock.Any(), gomock.Any()).Return(rag.Result{ErrorCode: rag.CodeEmbeddingFailed}, nil)
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:   "configuration failure",
			method: http.MethodPost,
			target: "/api/v1/answer",
			body:   AnswerRequest{TenantID: "acme", Query: "q"},
			mockSetup: func(m *mocks.MockAnswerService) {
				m.EXPECT().Answer(gomock.Any(), gomock.Any()).Return(rag.Result{ErrorCode: rag.CodeMissingChatModel}, nil)
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:   "validation error",
			method: http.MethodPost,
			target: "/api/v1/answer",
			body:   AnswerRequest{Query: "q"},
			mockSetup: func(m *mocks.MockAnswerService) {
				m.EXPECT().Answer(gomock.Any(), gomock.Any()).
					Return(rag.Result{}, &service.ValidationError{Field: "tenant_id", Message: "cannot be empty"})
			},
			wantStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Field != "tenant_id" {
					t.Errorf("field = %q, want tenant_id", resp.Field)
				}
			},
		},
		{
			name:   "unexpected service error",
			method: http.MethodPost,
			target: "/api/v1/answer",
			body:   AnswerRequest{TenantID: "acme", Query: "q"},
			mockSetup: func(m *mocks.MockAnswerService) {
				m.EXPECT().Answer(gomock.Any(), gomock.Any()).Return(rag.Result{}, errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "invalid JSON body",
			method:     http.MethodPost,
			target:     "/api/v1/answer",
			body:       "invalid json",
			mockSetup:  func(m *mocks.MockAnswerService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "method not allowed",
			method:     http.MethodGet,
			target:     "/api/v1/answer",
			mockSetup:  func(m *mocks.MockAnswerService) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := mocks.NewMockAnswerService(ctrl)
			tt.mockSetup(mockService)

			var body bytes.Buffer
			switch b := tt.body.(type) {
			case nil:
			case string:
				body.WriteString(b)
			default:
				if err := json.NewEncoder(&body).Encode(b); err != nil {
					t.Fatalf("encode body: %v", err)
				}
			}

			req := httptest.NewRequest(tt.method, tt.target, &body)
			w := httptest.NewRecorder()
			NewAnswerHandler(mockService).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %v, want %v (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
		})
	}
}

func TestAnswerHandler_ProviderOverridesDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockAnswerService(ctrl)

	var got rag.Request
	mockService.EXPECT().Answer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req rag.Request) (rag.Result, error) {
			got = req
			return rag.Result{Answer: "ok", Usage: rag.Usage{Sources: []rag.SourceItem{}}}, nil
		})

	body := `{"tenant_id":"acme","query":"q","overrides":{
		"embedding_api_base":"https://collector.example.net",
		"chat_api_base":"https://collector.example.net",
		"chat_model":"other","timeout_seconds":600,"top_k":3}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/answer", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	NewAnswerHandler(mockService).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.Overrides == nil || got.Overrides.TopK == nil || *got.Overrides.TopK != 3 {
		t.Fatalf("overrides = %+v, want top_k 3", got.Overrides)
	}

	base := config.DefaultSettings()
	base.ChatAPIBase = "https://llm.internal"
	base.EmbeddingAPIBase = "https://emb.internal"
	base.ChatModel = "chat"
	s, err := config.Resolve(base, got.Overrides.Layer())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.ChatAPIBase != base.ChatAPIBase || s.EmbeddingAPIBase != base.EmbeddingAPIBase {
		t.Errorf("api bases = %q, %q; want operator values", s.ChatAPIBase, s.EmbeddingAPIBase)
	}
	if s.ChatModel != "chat" || s.ProviderTimeout != base.ProviderTimeout {
		t.Errorf("model = %q timeout = %v; want operator values", s.ChatModel, s.ProviderTimeout)
	}
	if s.TopK != 3 {
		t.Errorf("top_k = %d, want 3", s.TopK)
	}
}

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code rag.ErrorCode
		want int
	}{
		{"", http.StatusOK},
		{rag.CodeKBEmpty, http.StatusOK},
		{rag.CodeEmptyAnswer, http.StatusOK},
		{rag.CodeEmptyQuery, http.StatusBadRequest},
		{rag.CodeMissingAccessToken, http.StatusInternalServerError},
		{rag.CodeCompletionFailed, http.StatusBadGateway},
		{rag.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForCode(tt.code); got != tt.want {
			t.Errorf("statusForCode(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		checks     map[string]CheckFunc
		wantStatus int
		wantIssues []string
	}{
		{
			name:   "healthy",
			method: http.MethodGet,
			checks: map[string]CheckFunc{
				"database":     func(ctx context.Context) error { return nil },
				"vector_store": func(ctx context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "vector store down",
			method: http.MethodGet,
			checks: map[string]CheckFunc{
				"database":     func(ctx context.Context) error { return nil },
				"vector_store": func(ctx context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantIssues: []string{"vector_store_unavailable"},
		},
		{
			name:       "method not allowed",
			method:     http.MethodPost,
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/health", nil)
			w := httptest.NewRecorder()
			NewHealthHandler(tt.checks).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.method != http.MethodGet {
				return
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if len(resp.Issues) != len(tt.wantIssues) {
				t.Fatalf("issues = %v, want %v", resp.Issues, tt.wantIssues)
			}
			for i := range tt.wantIssues {
				if resp.Issues[i] != tt.wantIssues[i] {
					t.Errorf("issues[%d] = %q, want %q", i, resp.Issues[i], tt.wantIssues[i])
				}
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("checks = %v", resp.Checks)
			}
		})
	}
}
