package remotestore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harborpoint/leadsync/internal/entity"
	"github.com/harborpoint/leadsync/internal/usecase"
)

func TestClientListCoercesNumericIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leads", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"leads":[
			{"id": 7, "name": "Legacy Numeric", "stage": "new"},
			{"id": "a1", "name": "String Id", "stage": "quoted"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second)
	leads, err := client.List(context.Background())

	assert.NoError(t, err)
	assert.Len(t, leads, 2)
	assert.Equal(t, "7", leads[0].ID)
	assert.Equal(t, "a1", leads[1].ID)
	assert.Equal(t, entity.StageQuoted, leads[1].Stage)
}

func TestClientGetNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.Get(context.Background(), "999")

	assert.Error(t, err)
	assert.True(t, usecase.IsNotFound(err))
	assert.True(t, usecase.IsDomainError(err))
}

func TestClientGetParsesStageTimestamps(t *testing.T) {
	stamp := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leads/7", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "7",
			"name":  "Acme",
			"stage": "quoted",
			"stage_timestamps": map[string]time.Time{
				"new":    stamp.Add(-24 * time.Hour),
				"quoted": stamp,
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	lead, err := client.Get(context.Background(), "7")

	assert.NoError(t, err)
	assert.True(t, stamp.Equal(lead.StageTimestamps[entity.StageQuoted]))
}

func TestClientCreateRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var dto leadDTO
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&dto))
		assert.Equal(t, "new-1", dto.ID.String())

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(dto)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	created, err := client.Create(context.Background(), &entity.Lead{
		ID:    "new-1",
		Name:  "Acme Trucking",
		Stage: entity.StageNew,
	})

	assert.NoError(t, err)
	assert.Equal(t, "new-1", created.ID)
	assert.Equal(t, "Acme Trucking", created.Name)
}

func TestClientPutNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.Put(context.Background(), "999", &entity.Lead{ID: "999"})

	assert.True(t, usecase.IsNotFound(err))
}

func TestClientDelete(t *testing.T) {
	var deleted string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	err := client.Delete(context.Background(), "42")

	assert.NoError(t, err)
	assert.Equal(t, "/leads/42", deleted)
}

func TestClientServerErrorIsTechnical(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.List(context.Background())

	assert.Error(t, err)
	assert.True(t, usecase.IsTechnicalError(err))
	assert.Equal(t, usecase.CodeRemoteError, usecase.ErrorCode(err))
}

func TestClientTimeoutMapsToTimeoutCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 30*time.Millisecond)
	_, err := client.List(context.Background())

	assert.Error(t, err)
	assert.True(t, usecase.IsTimeout(err))
}

func TestFlexibleIDNullBecomesEmpty(t *testing.T) {
	var dto leadDTO
	err := json.Unmarshal([]byte(`{"id": null, "name": "no id"}`), &dto)

	assert.NoError(t, err)
	assert.Equal(t, "", dto.ID.String())
}
