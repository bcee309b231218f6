// internal/search/query.go
package search

import "strings"

// MaxPageSize caps from/size pagination.
const MaxPageSize = 100

const jobsMapping = `{
	"mappings": {
		"properties": {
			"id":          {"type": "keyword"},
			"title":       {"type": "text"},
			"description": {"type": "text"},
			"category":    {"type": "keyword"},
			"skills":      {"type": "keyword"},
			"city":        {"type": "keyword"},
			"state":       {"type": "keyword"},
			"status":      {"type": "keyword"},
			"postedBy":    {"type": "keyword"},
			"budgetMin":   {"type": "double"},
			"budgetMax":   {"type": "double"},
			"createdAt":   {"type": "date"}
		}
	}
}`

const servicesMapping = `{
	"mappings": {
		"properties": {
			"id":          {"type": "keyword"},
			"title":       {"type": "text"},
			"description": {"type": "text"},
			"category":    {"type": "keyword"},
			"city":        {"type": "keyword"},
			"state":       {"type": "keyword"},
			"provider":    {"type": "keyword"},
			"price":       {"type": "double"},
			"rating":      {"type": "double"},
			"isActive":    {"type": "boolean"},
			"createdAt":   {"type": "date"}
		}
	}
}`

func term(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

func rangeClause(field, op string, value float64) map[string]interface{} {
	return map[string]interface{}{
		"range": map[string]interface{}{field: map[string]interface{}{op: value}},
	}
}

func boolQuery(must, filter []interface{}) map[string]interface{} {
	if len(must) == 0 {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}
	q := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		q["filter"] = filter
	}
	return map[string]interface{}{"bool": q}
}

func paginate(page, pageSize int) (from, size int) {
	size = pageSize
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if size < 1 {
		size = 20
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * size, size
}

// buildJobQuery translates f into a search body. Budget filters use range overlap:
// a job matches minBudget when it can pay at least that much.
func buildJobQuery(f JobFilter) map[string]interface{} {
	var must, filter []interface{}

	if f.Keyword != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  f.Keyword,
				"fields": []string{"title^3", "description^2", "skills", "category"},
				"type":   "best_fields",
			},
		})
	}

	filter = append(filter, term("status", string(f.Status)))
	if f.Category != "" {
		filter = append(filter, term("category", f.Category))
	}
	if f.City != "" {
		filter = append(filter, term("city", strings.ToLower(f.City)))
	}
	if f.State != "" {
		filter = append(filter, term("state", strings.ToLower(f.State)))
	}
	if f.PostedBy != "" {
		filter = append(filter, term("postedBy", f.PostedBy))
	}
	if len(f.Skills) > 0 {
		filter = append(filter, map[string]interface{}{"terms": map[string]interface{}{"skills": f.Skills}})
	}
	if f.MinBudget != nil {
		filter = append(filter, rangeClause("budgetMax", "gte", *f.MinBudget))
	}
	if f.MaxBudget != nil {
		filter = append(filter, rangeClause("budgetMin", "lte", *f.MaxBudget))
	}

	from, size := paginate(f.Page, f.PageSize)
	body := map[string]interface{}{
		"query":            boolQuery(must, filter),
		"from":             from,
		"size":             size,
		"_source":          false,
		"track_total_hits": true,
	}

	switch f.Sort {
	case SortOldest:
		body["sort"] = []interface{}{map[string]interface{}{"createdAt": "asc"}}
	case SortBudgetAsc:
		body["sort"] = []interface{}{map[string]interface{}{"budgetMin": "asc"}, map[string]interface{}{"createdAt": "desc"}}
	case SortBudgetDesc:
		body["sort"] = []interface{}{map[string]interface{}{"budgetMax": "desc"}, map[string]interface{}{"createdAt": "desc"}}
	case SortNewest:
		if f.Keyword == "" {
			body["sort"] = []interface{}{map[string]interface{}{"createdAt": "desc"}}
		}
	}
	return body
}

// buildServiceQuery translates f into a search body over active services.
func buildServiceQuery(f ServiceFilter) map[string]interface{} {
	var must, filter []interface{}

	if f.Keyword != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  f.Keyword,
				"fields": []string{"title^3", "description^2", "category"},
				"type":   "best_fields",
			},
		})
	}

	filter = append(filter, term("isActive", true))
	if f.Category != "" {
		filter = append(filter, term("category", f.Category))
	}
	if f.City != "" {
		filter = append(filter, term("city", strings.ToLower(f.City)))
	}
	if f.State != "" {
		filter = append(filter, term("state", strings.ToLower(f.State)))
	}
	if f.Provider != "" {
		filter = append(filter, term("provider", f.Provider))
	}
	if f.MinPrice != nil {
		filter = append(filter, rangeClause("price", "gte", *f.MinPrice))
	}
	if f.MaxPrice != nil {
		filter = append(filter, rangeClause("price", "lte", *f.MaxPrice))
	}
	if f.MinRating != nil {
		filter = append(filter, rangeClause("rating", "gte", *f.MinRating))
	}

	from, size := paginate(f.Page, f.PageSize)
	body := map[string]interface{}{
		"query":            boolQuery(must, filter),
		"from":             from,
		"size":             size,
		"_source":          false,
		"track_total_hits": true,
	}

	switch f.Sort {
	case SortPriceAsc:
		body["sort"] = []interface{}{map[string]interface{}{"price": "asc"}}
	case SortPriceDesc:
		body["sort"] = []interface{}{map[string]interface{}{"price": "desc"}}
	case SortRating:
		body["sort"] = []interface{}{map[string]interface{}{"rating": "desc"}, map[string]interface{}{"createdAt": "desc"}}
	case SortNewest:
		if f.Keyword == "" {
			body["sort"] = []interface{}{map[string]interface{}{"createdAt": "desc"}}
		}
	}
	return body
}
