package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name                   string
		page, perPage, total   int
		wantCurrent, wantPages int
		wantOffset             int
	}{
		{"first page", 1, 10, 95, 1, 10, 0},
		{"middle page", 4, 10, 95, 4, 10, 30},
		{"beyond last page", 20, 10, 95, 10, 10, 90},
		{"zero page", 0, 10, 95, 1, 10, 0},
		{"empty result", 3, 10, 0, 1, 1, 0},
		{"exact multiple", 2, 25, 50, 2, 2, 25},
		{"invalid per page", 2, 0, 3, 2, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.page, tt.perPage, tt.total)
			assert.Equal(t, tt.wantCurrent, p.Current)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestWindowMiddle(t *testing.T) {
	w := New(6, 10, 200).Window(2)

	assert.Equal(t, []int{4, 5, 6, 7, 8}, w.Pages)
	assert.True(t, w.ShowFirst)
	assert.True(t, w.LeadingGap)
	assert.True(t, w.ShowLast)
	assert.True(t, w.TrailingGap)
	assert.Equal(t, 5, w.PrevPage)
	assert.Equal(t, 7, w.NextPage)
}

func TestWindowEdges(t *testing.T) {
	first := New(1, 10, 200).Window(2)
	assert.Equal(t, []int{1, 2, 3}, first.Pages)
	assert.False(t, first.ShowFirst)
	assert.False(t, first.HasPrev)
	assert.Zero(t, first.PrevPage)
	assert.True(t, first.TrailingGap)

	// 先頭ページと隣接する場合は省略記号を出さない
	third := New(4, 10, 200).Window(2)
	assert.Equal(t, 2, third.Start)
	assert.True(t, third.ShowFirst)
	assert.False(t, third.LeadingGap)

	last := New(20, 10, 200).Window(2)
	assert.Equal(t, []int{18, 19, 20}, last.Pages)
	assert.False(t, last.ShowLast)
	assert.False(t, last.HasNext)
}

func TestWindowSinglePage(t *testing.T) {
	w := New(1, 10, 3).Window(2)
	assert.Equal(t, []int{1}, w.Pages)
	assert.False(t, w.ShowFirst)
	assert.False(t, w.ShowLast)
	assert.False(t, w.HasPrev)
	assert.False(t, w.HasNext)
}
