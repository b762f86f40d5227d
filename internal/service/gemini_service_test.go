package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fadilmartias/ai-grader/internal/grading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

// geminiStub speaks the slice of the Gemini REST API the services use: the
// resumable upload handshake, file lookup and deletion, and generateContent.
type geminiStub struct {
	baseURL string

	// uploadState is the state returned when the upload is finalized.
	// getStates answers successive files.get calls; the last one repeats.
	uploadState string
	getStates   []string

	generateStatus int
	generateText   string

	uploads   atomic.Int32
	gets      atomic.Int32
	generates atomic.Int32
	deletes   atomic.Int32

	lastGenerate string
	deletedPath  string
}

func (s *geminiStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "resumable", r.Header.Get("X-Goog-Upload-Protocol"))
		assert.Equal(t, "start", r.Header.Get("X-Goog-Upload-Command"))
		assert.Equal(t, "application/pdf", r.Header.Get("X-Goog-Upload-Header-Content-Type"))
		w.Header().Set("X-Goog-Upload-URL", s.baseURL+"/upload-session/1")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /upload-session/1", func(w http.ResponseWriter, r *http.Request) {
		s.uploads.Add(1)
		assert.Equal(t, "upload, finalize", r.Header.Get("X-Goog-Upload-Command"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, testPDF.Data, body)
		w.Header().Set("X-Goog-Upload-Status", "final")
		writeJSON(w, map[string]any{"file": s.file(s.uploadState)})
	})
	mux.HandleFunc("GET /v1beta/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := int(s.gets.Add(1)) - 1
		assert.Equal(t, "essay", r.PathValue("id"))
		state := "ACTIVE"
		if len(s.getStates) > 0 {
			state = s.getStates[min(n, len(s.getStates)-1)]
		}
		writeJSON(w, s.file(state))
	})
	mux.HandleFunc("DELETE /v1beta/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.deletes.Add(1)
		s.deletedPath = r.URL.Path
		writeJSON(w, map[string]any{})
	})
	mux.HandleFunc("POST /v1beta/models/{call}", func(w http.ResponseWriter, r *http.Request) {
		s.generates.Add(1)
		assert.Equal(t, "gemini-test:generateContent", r.PathValue("call"))
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		s.lastGenerate = string(body)
		if s.generateStatus != 0 {
			w.WriteHeader(s.generateStatus)
			writeJSON(w, map[string]any{"error": map[string]any{
				"code": s.generateStatus, "message": "model overloaded", "status": "UNAVAILABLE",
			}})
			return
		}
		writeJSON(w, map[string]any{"candidates": []any{map[string]any{
			"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": s.generateText}}},
		}}})
	})
	return mux
}

func (s *geminiStub) file(state string) map[string]any {
	if state == "" {
		state = "ACTIVE"
	}
	f := map[string]any{"name": "files/essay", "mimeType": "application/pdf", "state": state}
	if state == "ACTIVE" {
		f["uri"] = s.baseURL + "/v1beta/files/essay"
	}
	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newGeminiStub(t *testing.T, stub *geminiStub) *genai.Client {
	t.Helper()
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)
	stub.baseURL = srv.URL

	prev := geminiPollInterval
	geminiPollInterval = time.Millisecond
	t.Cleanup(func() { geminiPollInterval = prev })

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  srv.Client(),
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	require.NoError(t, err)
	return client
}

const geminiGrade = `{"totalAwarded":0,"totalPossible":0,"items":[` +
	`{"id":"a","label":"A","maxPoints":10,"points":8,"comments":"good"},` +
	`{"id":"b","label":"B","maxPoints":5,"points":5,"comments":"full"}],"overallFeedback":"solid"}`

func TestGeminiGradeFlow(t *testing.T) {
	stub := &geminiStub{uploadState: "PROCESSING", getStates: []string{"PROCESSING", "ACTIVE"}, generateText: geminiGrade}
	svc := &GeminiService{Client: newGeminiStub(t, stub), Model: "gemini-test"}

	got, err := grading.NewGrader(svc).Grade(context.Background(), testRubric, testPDF)
	require.NoError(t, err)

	assert.Equal(t, 13.0, got.TotalAwarded)
	assert.Equal(t, 15.0, got.TotalPossible)
	assert.Equal(t, "solid", got.OverallFeedback)
	assert.EqualValues(t, 1, stub.uploads.Load())
	assert.EqualValues(t, 2, stub.gets.Load())
	assert.EqualValues(t, 1, stub.generates.Load())
	assert.EqualValues(t, 1, stub.deletes.Load())
	assert.Equal(t, "/v1beta/files/essay", stub.deletedPath)

	req := gjson.Parse(stub.lastGenerate)
	assert.Equal(t, stub.baseURL+"/v1beta/files/essay", req.Get("contents.0.parts.1.fileData.fileUri").String())
	assert.Equal(t, "application/json", req.Get("generationConfig.responseMimeType").String())
	assert.True(t, req.Get("generationConfig.responseSchema.properties.items").Exists())
	assert.Contains(t, req.Get("systemInstruction.parts.0.text").String(), "rubric")
}

func TestGeminiFailedProcessingStillDeletesFile(t *testing.T) {
	stub := &geminiStub{uploadState: "PROCESSING", getStates: []string{"FAILED"}}
	svc := &GeminiService{Client: newGeminiStub(t, stub), Model: "gemini-test"}

	handle, err := svc.Upload(context.Background(), testPDF)
	require.Error(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, "files/essay", handle.ID)
	assert.ErrorIs(t, err, grading.ErrUpstreamUnavailable)

	_, err = grading.NewGrader(svc).Grade(context.Background(), testRubric, testPDF)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, grading.StatusCode(err))
	assert.Equal(t, "Failed to upload PDF file", grading.PublicMessage(err))
	assert.Zero(t, stub.generates.Load())
	assert.EqualValues(t, 1, stub.deletes.Load())
}

func TestGeminiUnavailableIsRetryable(t *testing.T) {
	stub := &geminiStub{generateStatus: http.StatusServiceUnavailable}
	svc := &GeminiService{Client: newGeminiStub(t, stub), Model: "gemini-test"}
	handle := &grading.FileHandle{ID: "files/essay", URI: "https://files.example/essay", MIMEType: "application/pdf"}

	_, err := svc.Complete(context.Background(), grading.Request{System: "s", User: "u"}, testPDF, handle)
	require.Error(t, err)
	var gerr *grading.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, grading.ErrUpstreamUnavailable, gerr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, gerr.StatusCode)
	assert.Equal(t, "Failed to process with Gemini API", gerr.Message)
	assert.True(t, grading.IsRetryable(err))

	_, err = grading.NewGrader(svc, grading.WithRetries(2, time.Millisecond)).Grade(context.Background(), testRubric, testPDF)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, grading.StatusCode(err))
	assert.EqualValues(t, 4, stub.generates.Load())
	assert.EqualValues(t, 1, stub.deletes.Load())
}

func TestGeminiCleanup(t *testing.T) {
	stub := &geminiStub{}
	svc := &GeminiService{Client: newGeminiStub(t, stub), Model: "gemini-test"}

	require.NoError(t, svc.Cleanup(context.Background(), &grading.FileHandle{ID: "files/essay"}))
	assert.EqualValues(t, 1, stub.deletes.Load())
	assert.Equal(t, "/v1beta/files/essay", stub.deletedPath)

	var nokey GeminiService
	assert.NoError(t, nokey.Cleanup(context.Background(), &grading.FileHandle{ID: "files/essay"}))
}

func TestGeminiMissingKey(t *testing.T) {
	svc, err := NewGeminiService(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, geminiDefaultModel, svc.Model)
	assert.Nil(t, svc.Client)

	_, err = grading.NewGrader(svc).Grade(context.Background(), testRubric, testPDF)
	assert.ErrorIs(t, err, grading.ErrConfiguration)
	assert.Equal(t, "Missing GEMINI_API_KEY", grading.PublicMessage(err))
}

func TestGeminiStatus(t *testing.T) {
	assert.Equal(t, 429, geminiStatus(genai.APIError{Code: 429}))
	assert.Equal(t, 500, geminiStatus(&genai.APIError{Code: 500}))
	assert.Equal(t, 0, geminiStatus(io.EOF))
}
