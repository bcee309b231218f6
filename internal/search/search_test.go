package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gig-marketplace/internal/common/config"
	"gig-marketplace/internal/common/database"
	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func filterClauses(t *testing.T, body map[string]interface{}) []interface{} {
	t.Helper()
	q := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	filter, _ := q["filter"].([]interface{})
	return filter
}

func TestJobFilter_Normalize(t *testing.T) {
	f := JobFilter{Keyword: "  plumber "}
	require.NoError(t, f.Normalize())
	assert.Equal(t, "plumber", f.Keyword)
	assert.Equal(t, models.JobOpen, f.Status)
	assert.Equal(t, SortNewest, f.Sort)

	bad := []JobFilter{
		{Sort: "cheapest"},
		{Status: "archived"},
		{MinBudget: ptr(100), MaxBudget: ptr(10)},
	}
	for _, f := range bad {
		err := f.Normalize()
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidArgument), "%+v", f)
	}
}

func TestServiceFilter_Normalize(t *testing.T) {
	f := ServiceFilter{}
	require.NoError(t, f.Normalize())
	assert.Equal(t, SortNewest, f.Sort)

	assert.Error(t, (&ServiceFilter{MinRating: ptr(6)}).Normalize())
	assert.Error(t, (&ServiceFilter{MinPrice: ptr(5), MaxPrice: ptr(1)}).Normalize())
	assert.Error(t, (&ServiceFilter{Sort: "oldest"}).Normalize())
}

func TestBuildJobQuery(t *testing.T) {
	f := JobFilter{
		Keyword:   "leaky faucet",
		Category:  "plumbing",
		City:      "Austin",
		Skills:    []string{"pipes"},
		MinBudget: ptr(50),
		MaxBudget: ptr(200),
		Status:    models.JobOpen,
		Sort:      SortBudgetAsc,
		Page:      3,
		PageSize:  500,
	}

	body := buildJobQuery(f)

	assert.Equal(t, MaxPageSize, body["size"])
	assert.Equal(t, 2*MaxPageSize, body["from"])
	assert.NotNil(t, body["sort"])

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	js := string(raw)
	assert.Contains(t, js, `"multi_match"`)
	assert.Contains(t, js, `"title^3"`)
	assert.Contains(t, js, `{"term":{"city":"austin"}}`)
	assert.Contains(t, js, `{"term":{"status":"open"}}`)
	assert.Contains(t, js, `{"range":{"budgetMax":{"gte":50}}}`)
	assert.Contains(t, js, `{"range":{"budgetMin":{"lte":200}}}`)
	assert.Len(t, filterClauses(t, body), 6)
}

func TestBuildJobQuery_NoKeywordMatchesAll(t *testing.T) {
	body := buildJobQuery(JobFilter{Status: models.JobOpen, Sort: SortNewest, Page: 1, PageSize: 20})

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"match_all"`)
	assert.Contains(t, string(raw), `{"createdAt":"desc"}`)
	assert.Equal(t, 0, body["from"])
}

func TestBuildServiceQuery(t *testing.T) {
	body := buildServiceQuery(ServiceFilter{
		Category:  "cleaning",
		MinRating: ptr(4),
		MaxPrice:  ptr(80),
		Sort:      SortRating,
		Page:      1,
		PageSize:  10,
	})

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	js := string(raw)
	assert.Contains(t, js, `{"term":{"isActive":true}}`)
	assert.Contains(t, js, `{"range":{"rating":{"gte":4}}}`)
	assert.Contains(t, js, `{"range":{"price":{"lte":80}}}`)
	assert.Contains(t, js, `{"rating":"desc"}`)
}

func newFakeSearch(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.ElasticsearchConfig{Addresses: []string{srv.URL}, JobsIndex: "jobs", ServicesIndex: "services"}
	es, err := database.NewElasticsearch(cfg)
	require.NoError(t, err)
	return New(es, cfg, logger.NewTestLogger(t))
}

func TestClient_SearchJobs(t *testing.T) {
	var gotBody string
	client := newFakeSearch(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/jobs/_search"), r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":42},"hits":[{"_id":"j2"},{"_id":"j1"}]}}`))
	})

	ids, total, err := client.SearchJobs(context.Background(),
		JobFilter{Keyword: "paint", Status: models.JobOpen, Sort: SortNewest, Page: 1, PageSize: 2})

	require.NoError(t, err)
	assert.Equal(t, []string{"j2", "j1"}, ids)
	assert.Equal(t, 42, total)
	assert.Contains(t, gotBody, `"paint"`)
}

func TestClient_SearchFailure(t *testing.T) {
	client := newFakeSearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})

	_, _, err := client.SearchServices(context.Background(), ServiceFilter{Sort: SortNewest, Page: 1, PageSize: 5})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchFailed))
}

func TestClient_IndexJob(t *testing.T) {
	var doc map[string]interface{}
	client := newFakeSearch(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/jobs/_doc/job-7", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := client.IndexJob(context.Background(), &models.Job{
		ID:       "job-7",
		Title:    "Paint fence",
		Location: models.Location{City: "Austin", State: "TX"},
		Budget:   models.Budget{Min: 100, Max: 300},
		Status:   models.JobOpen,
		Skills:   []string{"painting"},
	})

	require.NoError(t, err)
	assert.Equal(t, "austin", doc["city"])
	assert.Equal(t, "tx", doc["state"])
	assert.Equal(t, 300.0, doc["budgetMax"])
}
