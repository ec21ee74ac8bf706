package marketplace

import (
	"fmt"
	"strconv"
)

// Derived display helpers. These are pure lookups: every enum value must
// have an entry in both its label map and its color map, and an unmapped
// value is a configuration defect rather than a runtime condition to
// recover from.

var categoryLabels = map[TemplateCategory]string{
	CategoryLanding:   "Landing Page",
	CategoryDashboard: "Dashboard",
	CategoryEcommerce: "E-commerce",
	CategoryBlog:      "Blog",
	CategoryPortfolio: "Portfolio",
	CategorySaaS:      "SaaS",
	CategoryOther:     "Other",
}

var categoryColors = map[TemplateCategory]string{
	CategoryLanding:   "#3B82F6",
	CategoryDashboard: "#8B5CF6",
	CategoryEcommerce: "#10B981",
	CategoryBlog:      "#F59E0B",
	CategoryPortfolio: "#EC4899",
	CategorySaaS:      "#06B6D4",
	CategoryOther:     "#6B7280",
}

var statusLabels = map[TemplateStatus]string{
	StatusDraft:     "Draft",
	StatusInReview:  "In Review",
	StatusPublished: "Published",
	StatusRejected:  "Rejected",
	StatusArchived:  "Archived",
}

var statusColors = map[TemplateStatus]string{
	StatusDraft:     "#6B7280",
	StatusInReview:  "#F59E0B",
	StatusPublished: "#10B981",
	StatusRejected:  "#EF4444",
	StatusArchived:  "#9CA3AF",
}

// CategoryLabel returns the display label for a category
func CategoryLabel(c TemplateCategory) string {
	return categoryLabels[c]
}

// CategoryColor returns the display color for a category
func CategoryColor(c TemplateCategory) string {
	return categoryColors[c]
}

// StatusLabel returns the display label for a status
func StatusLabel(s TemplateStatus) string {
	return statusLabels[s]
}

// StatusColor returns the display color for a status
func StatusColor(s TemplateStatus) string {
	return statusColors[s]
}

// FormatDownloadCount renders a download count compactly: values below
// 1000 verbatim, values at or above as "1.5k" with one decimal.
func FormatDownloadCount(n int64) string {
	if n < 1000 {
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%.1fk", float64(n)/1000)
}

// FormatRating renders a rating with one decimal, e.g. "4.0"
func FormatRating(r float64) string {
	return fmt.Sprintf("%.1f", r)
}
