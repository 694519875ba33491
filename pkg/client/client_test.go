package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (t staticToken) AccessToken() string { return string(t) }

func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestClient_GetJSON_UnwrapsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"name":"Aetna"}}`))
	}, Options{Tokens: staticToken("tok-123")})

	var out struct {
		Name string `json:"name"`
	}
	err := c.GetJSON(context.Background(), "/api/Payers/1", nil, &out)

	require.NoError(t, err)
	assert.Equal(t, "Aetna", out.Name)
}

func TestClient_GetJSON_EnvelopeFailure_ShouldReturnAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":false,"message":"payer not found"}`))
	}, Options{})

	err := c.GetJSON(context.Background(), "/api/Payers/404", nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "payer not found", apiErr.Message)
}

func TestClient_Delete_NoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}, Options{})

	err := c.Delete(context.Background(), "/api/Payers/9")

	require.NoError(t, err)
}

func TestClient_GetJSON_EmptyBodyWithExpectedData_Fails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, Options{})

	var out struct{}
	err := c.GetJSON(context.Background(), "/api/Payers/1", nil, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response body")
}

func TestClient_Unauthorized_InvokesSessionExpired(t *testing.T) {
	expired := false
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, Options{Callbacks: Callbacks{
		OnSessionExpired: func() { expired = true },
	}})

	err := c.GetJSON(context.Background(), "/api/Payers", nil, nil)

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, expired)
}

func TestClient_Forbidden_InvokesOnForbiddenWithMessage(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"insufficient permissions"}`))
	}, Options{Callbacks: Callbacks{
		OnForbidden: func(msg string) { got = msg },
	}})

	err := c.PostJSON(context.Background(), "/api/Payers", map[string]string{"name": "x"}, nil)

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "insufficient permissions", got)
}

func TestClient_MutatingCalls_AreNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}, Options{RetryMax: 3})

	err := c.PostJSON(context.Background(), "/api/Payers", map[string]string{"name": "x"}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		expected string
	}{
		{
			name:     "message field wins",
			body:     `{"message":"bad request","title":"Bad"}`,
			status:   400,
			expected: "bad request",
		},
		{
			name:     "title when message missing",
			body:     `{"title":"Validation failed"}`,
			status:   400,
			expected: "Validation failed",
		},
		{
			name:     "detail as last structured resort",
			body:     `{"detail":"field X is required"}`,
			status:   422,
			expected: "field X is required",
		},
		{
			name:     "raw text body",
			body:     "upstream exploded",
			status:   502,
			expected: "upstream exploded",
		},
		{
			name:     "empty body falls back to status",
			body:     "",
			status:   500,
			expected: "HTTP 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractMessage([]byte(tt.body), tt.status))
		})
	}
}

func TestClient_UploadMultipart_SendsFilesAndFields(t *testing.T) {
	dir := t.TempDir()
	intake := filepath.Join(dir, "intake.xlsx")
	require.NoError(t, os.WriteFile(intake, []byte("spreadsheet-bytes"), 0o600))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Sunrise Health", r.FormValue("practiceName"))

		file, header, err := r.FormFile("intakeFile")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "intake.xlsx", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"sessionId":"s-1"}}`))
	}, Options{})

	var out struct {
		SessionID string `json:"sessionId"`
	}
	err := c.UploadMultipart(context.Background(), http.MethodPost, "/api/upload",
		[]Upload{{Field: "intakeFile", Path: intake}},
		map[string]string{"practiceName": "Sunrise Health"},
		&out,
	)

	require.NoError(t, err)
	assert.Equal(t, "s-1", out.SessionID)
}

func TestClient_DownloadBlob_ReturnsFilename(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="template.xlsx"`)
		_, _ = w.Write([]byte("binary-template"))
	}, Options{})

	var buf bytes.Buffer
	name, err := c.DownloadBlob(context.Background(), "/api/template", &buf)

	require.NoError(t, err)
	assert.Equal(t, "template.xlsx", name)
	assert.Equal(t, "binary-template", buf.String())
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Status: 409, Message: "duplicate payer"}
	assert.Equal(t, "api error: duplicate payer", err.Error())
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestEnvelope_DataRoundTrip(t *testing.T) {
	payload := `{"success":true,"message":"ok","data":[1,2,3]}`

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}, Options{})

	var out []int
	require.NoError(t, c.GetJSON(context.Background(), "/x", nil, &out))
	assert.Equal(t, []int{1, 2, 3}, out)

	var raw json.RawMessage = []byte(payload)
	assert.True(t, json.Valid(raw))
}
