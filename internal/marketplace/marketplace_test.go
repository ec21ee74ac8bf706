package marketplace

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTemplates() []Template {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Template{
		{ID: "t1", Name: "Startup Landing", Category: CategoryLanding, Status: StatusPublished, Downloads: 1500, Rating: 4.5, CreatedAt: base},
		{ID: "t2", Name: "Admin Dashboard", Category: CategoryDashboard, Status: StatusPublished, Downloads: 900, Rating: 4.8, CreatedAt: base.AddDate(0, 1, 0)},
		{ID: "t3", Name: "Shop Starter", Description: "ecommerce storefront", Category: CategoryEcommerce, Status: StatusInReview, Downloads: 10, Rating: 3.0, CreatedAt: base.AddDate(0, 2, 0)},
		{ID: "t4", Name: "Dev Blog", Category: CategoryBlog, Status: StatusPublished, Downloads: 4200, Rating: 4.1, CreatedAt: base.AddDate(0, 3, 0)},
	}
}

func TestFilterByCategoryAndStatus(t *testing.T) {
	out := Filter(sampleTemplates(), ListFilter{Category: CategoryLanding})
	require.Len(t, out, 1)
	assert.Equal(t, "t1", out[0].ID)

	out = Filter(sampleTemplates(), ListFilter{Status: StatusPublished})
	assert.Len(t, out, 3)
}

func TestFilterSearchMatchesNameAndDescription(t *testing.T) {
	out := Filter(sampleTemplates(), ListFilter{Search: "ecommerce"})
	require.Len(t, out, 1)
	assert.Equal(t, "t3", out[0].ID)

	out = Filter(sampleTemplates(), ListFilter{Search: "DASHBOARD"})
	require.Len(t, out, 1)
	assert.Equal(t, "t2", out[0].ID)
}

func TestFilterSortOrders(t *testing.T) {
	byDownloads := Filter(sampleTemplates(), ListFilter{Sort: SortDownloads})
	assert.Equal(t, "t4", byDownloads[0].ID)

	byRating := Filter(sampleTemplates(), ListFilter{Sort: SortRating})
	assert.Equal(t, "t2", byRating[0].ID)

	newest := Filter(sampleTemplates(), ListFilter{})
	assert.Equal(t, "t4", newest[0].ID)
}

func TestFilterPagination(t *testing.T) {
	out := Filter(sampleTemplates(), ListFilter{Sort: SortDownloads, Offset: 1, Limit: 2})
	require.Len(t, out, 2)
	assert.Equal(t, "t1", out[0].ID)
	assert.Equal(t, "t2", out[1].ID)

	assert.Empty(t, Filter(sampleTemplates(), ListFilter{Offset: 10}))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	in := sampleTemplates()
	Filter(in, ListFilter{Sort: SortDownloads})
	if diff := cmp.Diff(sampleTemplates(), in); diff != "" {
		t.Errorf("input mutated by Filter (-want +got):\n%s", diff)
	}
}
