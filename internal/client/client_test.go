package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_LoginThenChat(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "lena", body["username"])
		http.SetCookie(w, &http.Cookie{Name: "cozil_session", Value: "token-1", Path: "/"})
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("cozil_session")
		require.NoError(t, err)
		assert.Equal(t, "token-1", cookie.Value)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Is this normal?", r.FormValue("message"))
		assert.JSONEq(t, `[{"role":"user","parts":[{"text":"hi"}]},{"role":"model","parts":[{"text":"hello"}]}]`, r.FormValue("history"))

		file, header, err := r.FormFile("report")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "cbc.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4", string(data))

		_, _ = w.Write([]byte(`{"success":true,"response":"**Yes**, it is normal."}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	report := filepath.Join(t.TempDir(), "cbc.pdf")
	require.NoError(t, os.WriteFile(report, []byte("%PDF-1.4"), 0o600))

	c, err := New(server.URL + "/")
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), "lena", "pw"))

	answer, err := c.Chat(context.Background(), "Is this normal?", report, []Turn{
		{Role: "user", Text: "hi"},
		{Role: "model", Text: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "**Yes**, it is normal.", answer)
}

func TestClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"success":false,"message":"Usage limit exceeded for this model. Please try again later."}`))
	}))
	defer server.Close()

	c, err := New(server.URL)
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), "hi", "", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "Usage limit exceeded for this model. Please try again later.", apiErr.Message)
}

func TestClient_MissingReport(t *testing.T) {
	c, err := New("http://127.0.0.1:0")
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "hi", filepath.Join(t.TempDir(), "nope.pdf"), nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
