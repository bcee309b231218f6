// internal/search/filter.go
package search

import (
	"strings"

	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/models"
)

// Sort orders for job listings.
const (
	SortNewest     = "newest"
	SortOldest     = "oldest"
	SortBudgetAsc  = "budget_asc"
	SortBudgetDesc = "budget_desc"
)

// Sort orders for service listings; SortNewest applies too.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
)

// JobFilter is the single filter shape accepted by job listings, whichever backend serves them.
type JobFilter struct {
	Keyword   string
	Category  string
	City      string
	State     string
	Skills    []string
	MinBudget *float64
	MaxBudget *float64
	Status    models.JobStatus
	PostedBy  string
	Sort      string
	Page      int
	PageSize  int
}

// Normalize fills defaults and rejects unknown values.
func (f *JobFilter) Normalize() error {
	f.Keyword = strings.TrimSpace(f.Keyword)
	if f.Status == "" {
		f.Status = models.JobOpen
	}
	if !f.Status.Valid() {
		return apperrors.NewInvalidArgumentError("Invalid status filter", string(f.Status))
	}
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	switch f.Sort {
	case SortNewest, SortOldest, SortBudgetAsc, SortBudgetDesc:
	default:
		return apperrors.NewInvalidArgumentError("Invalid sort", f.Sort)
	}
	if f.MinBudget != nil && f.MaxBudget != nil && *f.MinBudget > *f.MaxBudget {
		return apperrors.NewInvalidArgumentError("Invalid budget range", "minBudget must not exceed maxBudget")
	}
	return nil
}

// Offset is the number of rows skipped before the requested page.
func (f JobFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// ServiceFilter is the filter shape accepted by service listings. Only active services match.
type ServiceFilter struct {
	Keyword   string
	Category  string
	City      string
	State     string
	Provider  string
	MinPrice  *float64
	MaxPrice  *float64
	MinRating *float64
	Sort      string
	Page      int
	PageSize  int
}

func (f *ServiceFilter) Normalize() error {
	f.Keyword = strings.TrimSpace(f.Keyword)
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	switch f.Sort {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortRating:
	default:
		return apperrors.NewInvalidArgumentError("Invalid sort", f.Sort)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return apperrors.NewInvalidArgumentError("Invalid price range", "minPrice must not exceed maxPrice")
	}
	if f.MinRating != nil && (*f.MinRating < 0 || *f.MinRating > 5) {
		return apperrors.NewInvalidArgumentError("Invalid rating filter", "minRating must be between 0 and 5")
	}
	return nil
}

func (f ServiceFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
