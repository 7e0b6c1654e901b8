// ABOUTME: Tests for the HTTP-backed remote agent client.
// ABOUTME: Covers success, remote errors, non-2xx statuses, and transport failures.

package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAgent_Invoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req InvokeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "list files", req.Text)

		json.NewEncoder(w).Encode(InvokeResponse{Text: "here are the files"})
	}))
	defer server.Close()

	agent := NewHTTPAgent("github", server.URL, 5*time.Second, nil)

	out, err := agent.Invoke(context.Background(), "list files")
	require.NoError(t, err)
	assert.Equal(t, "here are the files", out)
}

func TestHTTPAgent_Invoke_RemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(InvokeResponse{Error: "rate limited"})
	}))
	defer server.Close()

	agent := NewHTTPAgent("github", server.URL, 5*time.Second, nil)

	_, err := agent.Invoke(context.Background(), "list files")
	require.Error(t, err)

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "github", invErr.AgentID)
	assert.Contains(t, invErr.Error(), "rate limited")
}

func TestHTTPAgent_Invoke_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal failure", http.StatusInternalServerError)
	}))
	defer server.Close()

	agent := NewHTTPAgent("github", server.URL, 5*time.Second, nil)

	_, err := agent.Invoke(context.Background(), "list files")
	require.Error(t, err)

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, invErr.Error(), "500")
}

func TestHTTPAgent_Invoke_TransportFailure(t *testing.T) {
	// Point at a server that is already closed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	agent := NewHTTPAgent("github", server.URL, time.Second, nil)

	_, err := agent.Invoke(context.Background(), "list files")
	require.Error(t, err)

	var invErr *InvocationError
	assert.ErrorAs(t, err, &invErr)
}

func TestHTTPAgent_Invoke_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read and can
		// observe the client disconnect; otherwise Close hangs forever.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	agent := NewHTTPAgent("github", server.URL, 5*time.Second, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := agent.Invoke(ctx, "list files")
	require.Error(t, err)

	var invErr *InvocationError
	assert.ErrorAs(t, err, &invErr)
}
