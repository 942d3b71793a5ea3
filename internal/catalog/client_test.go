package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Poistot/internal/marc"
)

const recordJSON = `{"leader":"00000cam a2200000 i 4500","fields":[{"tag":"001","value":"3"},{"tag":"LOW","subfields":[{"code":"a","value":"TEST"}]}]}`

// --- Client Tests ---

func TestClient_LoadRecord_HandleDeleted(t *testing.T) {
	var gotPath, gotQuery, gotUser string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUser, _, _ = r.BasicAuth()
		w.Write([]byte(recordJSON))
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL + "/API/v1/"}).
		WithCredentials(Credentials{Username: "cataloger", Password: "secret"})

	rec, err := client.LoadRecord(context.Background(), "3", LoadOptions{HandleDeleted: true})
	require.NoError(t, err)

	assert.Equal(t, "/API/v1/bib/3", gotPath)
	assert.Equal(t, "handle_deleted=1", gotQuery)
	assert.Equal(t, "cataloger", gotUser)
	assert.Equal(t, "3", rec.ControlFieldValue("001"))
	assert.Len(t, rec.GetFields(marc.TagLocalOwner), 1)
}

func TestClient_UpdateRecord(t *testing.T) {
	var received marc.Record

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/bib/3", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte(`{"recordId":"3","messages":[{"code":"0018","message":"Updated"}]}`))
	}))
	defer server.Close()

	var rec marc.Record
	require.NoError(t, json.Unmarshal([]byte(recordJSON), &rec))

	resp, err := NewClient(Config{Endpoint: server.URL}).UpdateRecord(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, "3", resp.RecordID.String())
	assert.Equal(t, "Updated", resp.Messages[0].Message)
	assert.Equal(t, rec.String(), received.String())
}

func TestClient_UpdateRecord_NoID(t *testing.T) {
	client := NewClient(Config{Endpoint: "http://unused"})

	_, err := client.UpdateRecord(context.Background(), &marc.Record{Leader: "x"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"structured", `{"errors":[{"code":"403","message":"Not allowed to edit"}]}`, "Not allowed to edit"},
		{"empty list", `{"errors":[]}`, "Unknown catalog API error"},
		{"not json", `oops`, "Unknown catalog API error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(Config{Endpoint: server.URL}).LoadRecord(context.Background(), "1", LoadOptions{})

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

// --- HealthChecker Tests ---

func TestHealthChecker(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	checker := NewHealthChecker(server.URL, 0)
	assert.NoError(t, checker.Check(context.Background()))

	status.Store(http.StatusServiceUnavailable)
	err := checker.Check(context.Background())
	assert.ErrorIs(t, err, ErrUnhealthy)
}
