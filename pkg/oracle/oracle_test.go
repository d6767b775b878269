package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubServer(t *testing.T, status int, verdict string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, ":generateContent")

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Contents)

		w.WriteHeader(status)
		if status != http.StatusOK {
			return
		}
		resp := generateResponse{}
		resp.Candidates = append(resp.Candidates, struct {
			Content content `json:"content"`
		}{Content: content{Parts: []part{{Text: verdict}}}})
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestCheckParsesVerdict(t *testing.T) {
	srv := stubServer(t, http.StatusOK, `{"is_valid": false, "violations": ["Rule 2: Asha floated"]}`)
	defer srv.Close()

	g := NewGemini("key", "")
	g.BaseURL = srv.URL

	report, err := g.Check(context.Background(), []byte(`{}`), DefaultRulesText)
	require.NoError(t, err)
	assert.False(t, report.IsValid)
	assert.Equal(t, []string{"Rule 2: Asha floated"}, report.Violations)
}

func TestCheckValidVerdictHasEmptyViolations(t *testing.T) {
	srv := stubServer(t, http.StatusOK, `{"is_valid": true}`)
	defer srv.Close()

	g := NewGemini("key", "")
	g.BaseURL = srv.URL

	report, err := g.Check(context.Background(), []byte(`{}`), DefaultRulesText)
	require.NoError(t, err)
	assert.True(t, report.IsValid)
	assert.NotNil(t, report.Violations)
	assert.Empty(t, report.Violations)
}

func TestCheckServerError(t *testing.T) {
	srv := stubServer(t, http.StatusServiceUnavailable, "")
	defer srv.Close()

	g := NewGemini("key", "")
	g.BaseURL = srv.URL

	_, err := g.Check(context.Background(), []byte(`{}`), DefaultRulesText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestCheckUnparseableVerdict(t *testing.T) {
	srv := stubServer(t, http.StatusOK, "sorry, I cannot help with that")
	defer srv.Close()

	g := NewGemini("key", "")
	g.BaseURL = srv.URL

	_, err := g.Check(context.Background(), []byte(`{}`), DefaultRulesText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verdict unparseable")
}

func TestCheckMissingKey(t *testing.T) {
	g := &Gemini{Model: DefaultModel}
	_, err := g.Check(context.Background(), []byte(`{}`), DefaultRulesText)
	assert.Error(t, err)
}

func TestDefaultModelApplied(t *testing.T) {
	g := NewGemini("key", "")
	assert.Equal(t, DefaultModel, g.Model)

	g = NewGemini("key", "gemini-1.5-pro")
	assert.Equal(t, "gemini-1.5-pro", g.Model)
}
