package marketplace

import (
	"sort"
	"strings"
	"time"
)

// TemplateCategory classifies a marketplace template
type TemplateCategory string

const (
	CategoryLanding   TemplateCategory = "landing"
	CategoryDashboard TemplateCategory = "dashboard"
	CategoryEcommerce TemplateCategory = "ecommerce"
	CategoryBlog      TemplateCategory = "blog"
	CategoryPortfolio TemplateCategory = "portfolio"
	CategorySaaS      TemplateCategory = "saas"
	CategoryOther     TemplateCategory = "other"
)

// TemplateStatus tracks a template through review and publication
type TemplateStatus string

const (
	StatusDraft     TemplateStatus = "draft"
	StatusInReview  TemplateStatus = "in_review"
	StatusPublished TemplateStatus = "published"
	StatusRejected  TemplateStatus = "rejected"
	StatusArchived  TemplateStatus = "archived"
)

// Categories lists every template category
func Categories() []TemplateCategory {
	return []TemplateCategory{
		CategoryLanding, CategoryDashboard, CategoryEcommerce,
		CategoryBlog, CategoryPortfolio, CategorySaaS, CategoryOther,
	}
}

// Statuses lists every template status
func Statuses() []TemplateStatus {
	return []TemplateStatus{
		StatusDraft, StatusInReview, StatusPublished, StatusRejected, StatusArchived,
	}
}

// Template is one marketplace listing
type Template struct {
	ID          string           `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description string           `json:"description" db:"description"`
	AuthorID    string           `json:"author_id" db:"author_id"`
	Category    TemplateCategory `json:"category" db:"category"`
	Status      TemplateStatus   `json:"status" db:"status"`
	PriceCents  int64            `json:"price_cents" db:"price_cents"`
	Downloads   int64            `json:"downloads" db:"downloads"`
	Rating      float64          `json:"rating" db:"rating"`
	RatingCount int64            `json:"rating_count" db:"rating_count"`
	PreviewURL  *string          `json:"preview_url,omitempty" db:"preview_url"`
	Tags        []string         `json:"tags,omitempty"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// TemplateReview is one user review of a template
type TemplateReview struct {
	ID         string    `json:"id" db:"id"`
	TemplateID string    `json:"template_id" db:"template_id"`
	AuthorID   string    `json:"author_id" db:"author_id"`
	Rating     int       `json:"rating" db:"rating"`
	Comment    string    `json:"comment" db:"comment"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SortOrder selects how a listing is ordered
type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortDownloads SortOrder = "downloads"
	SortRating    SortOrder = "rating"
)

// ListFilter narrows and orders a template listing
type ListFilter struct {
	Category TemplateCategory `json:"category,omitempty" query:"category"`
	Status   TemplateStatus   `json:"status,omitempty" query:"status"`
	Search   string           `json:"search,omitempty" query:"search"`
	Sort     SortOrder        `json:"sort,omitempty" query:"sort"`
	Offset   int              `json:"offset,omitempty" query:"offset"`
	Limit    int              `json:"limit,omitempty" query:"limit"`
}

// Filter applies a ListFilter to a template set: category/status/search
// narrowing, ordering, then pagination. Pure: the input slice is not
// modified.
func Filter(templates []Template, f ListFilter) []Template {
	out := make([]Template, 0, len(templates))
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, t := range templates {
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Name), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, t)
	}

	switch f.Sort {
	case SortDownloads:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Downloads > out[j].Downloads })
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	default: // newest
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []Template{}
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}
