// Package search keeps the jobs and services indices in Elasticsearch and answers keyword listings from them.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gig-marketplace/internal/common/config"
	"gig-marketplace/internal/common/database"
	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/metrics"
	"gig-marketplace/internal/models"
)

type Client struct {
	es            *database.ElasticsearchClient
	jobsIndex     string
	servicesIndex string
	logger        logger.Logger
}

func New(es *database.ElasticsearchClient, cfg config.ElasticsearchConfig, log logger.Logger) *Client {
	return &Client{
		es:            es,
		jobsIndex:     cfg.JobsIndex,
		servicesIndex: cfg.ServicesIndex,
		logger:        log.WithFields(map[string]interface{}{"component": "search"}),
	}
}

// EnsureIndices creates both indices with their mappings when missing.
func (c *Client) EnsureIndices(ctx context.Context) error {
	if err := c.es.EnsureIndex(ctx, c.jobsIndex, jobsMapping); err != nil {
		return err
	}
	return c.es.EnsureIndex(ctx, c.servicesIndex, servicesMapping)
}

type jobDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Skills      []string  `json:"skills"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Status      string    `json:"status"`
	PostedBy    string    `json:"postedBy"`
	BudgetMin   float64   `json:"budgetMin"`
	BudgetMax   float64   `json:"budgetMax"`
	CreatedAt   time.Time `json:"createdAt"`
}

type serviceDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Provider    string    `json:"provider"`
	Price       float64   `json:"price"`
	Rating      float64   `json:"rating"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IndexJob upserts job by id.
func (c *Client) IndexJob(ctx context.Context, job *models.Job) error {
	return c.index(ctx, c.jobsIndex, job.ID, jobDocument{
		ID:          job.ID,
		Title:       job.Title,
		Description: job.Description,
		Category:    job.Category,
		Skills:      job.Skills,
		City:        strings.ToLower(job.Location.City),
		State:       strings.ToLower(job.Location.State),
		Status:      string(job.Status),
		PostedBy:    job.PostedBy,
		BudgetMin:   job.Budget.Min,
		BudgetMax:   job.Budget.Max,
		CreatedAt:   job.CreatedAt,
	})
}

// IndexService upserts svc by id.
func (c *Client) IndexService(ctx context.Context, svc *models.Service) error {
	return c.index(ctx, c.servicesIndex, svc.ID, serviceDocument{
		ID:          svc.ID,
		Title:       svc.Title,
		Description: svc.Description,
		Category:    svc.Category,
		City:        strings.ToLower(svc.Location.City),
		State:       strings.ToLower(svc.Location.State),
		Provider:    svc.ProviderID,
		Price:       svc.Price,
		Rating:      svc.Rating.Average,
		IsActive:    svc.IsActive,
		CreatedAt:   svc.CreatedAt,
	})
}

func (c *Client) index(ctx context.Context, index, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", index, err)
	}

	es := c.es.Client
	res, err := es.Index(index, bytes.NewReader(body),
		es.Index.WithContext(ctx),
		es.Index.WithDocumentID(id),
	)
	if err != nil {
		metrics.SearchIndexFailures.WithLabelValues(index).Inc()
		return apperrors.NewSearchFailedError(index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		metrics.SearchIndexFailures.WithLabelValues(index).Inc()
		return apperrors.NewSearchFailedError(index, fmt.Errorf("index document %s: %s", id, res.Status()))
	}
	return nil
}

// SearchJobs returns the ids of the requested page in rank order and the total hit count.
func (c *Client) SearchJobs(ctx context.Context, f JobFilter) ([]string, int, error) {
	return c.search(ctx, c.jobsIndex, buildJobQuery(f))
}

// SearchServices returns the ids of the requested page in rank order and the total hit count.
func (c *Client) SearchServices(ctx context.Context, f ServiceFilter) ([]string, int, error) {
	return c.search(ctx, c.servicesIndex, buildServiceQuery(f))
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

func (c *Client) search(ctx context.Context, index string, query map[string]interface{}) ([]string, int, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal query: %w", err)
	}

	start := time.Now()
	es := c.es.Client
	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, 0, apperrors.NewTimeoutError("search "+index, err)
		}
		return nil, 0, apperrors.NewSearchFailedError(index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, apperrors.NewSearchFailedError(index, fmt.Errorf("search query failed: %s", res.String()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, apperrors.NewSearchFailedError(index, fmt.Errorf("decode response: %w", err))
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}

	c.logger.Debug("search executed", map[string]interface{}{
		"index": index,
		"hits":  len(ids),
		"total": parsed.Hits.Total.Value,
		"took":  time.Since(start).Milliseconds(),
	})
	return ids, parsed.Hits.Total.Value, nil
}
