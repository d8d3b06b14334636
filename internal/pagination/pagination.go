// Package pagination は一覧表示用のページ計算を提供します。
package pagination

// Page は現在ページと件数から計算したページ情報です。
type Page struct {
	Current    int `json:"current"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	Offset     int `json:"-"`
}

// New はページ情報を計算します。page は 1..TotalPages に丸められます。
func New(page, perPage, total int) Page {
	if perPage < 1 {
		perPage = 1
	}
	if total < 0 {
		total = 0
	}
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return Page{
		Current:    page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		Offset:     (page - 1) * perPage,
	}
}

// HasPrev は前のページがあるかを返します。
func (p Page) HasPrev() bool { return p.Current > 1 }

// HasNext は次のページがあるかを返します。
func (p Page) HasNext() bool { return p.Current < p.TotalPages }

// Window はページリンクの表示範囲です。
type Window struct {
	Start       int   `json:"start"`
	End         int   `json:"end"`
	Pages       []int `json:"pages"`
	ShowFirst   bool  `json:"showFirst"`
	LeadingGap  bool  `json:"leadingGap"`
	ShowLast    bool  `json:"showLast"`
	TrailingGap bool  `json:"trailingGap"`
	HasPrev     bool  `json:"hasPrev"`
	HasNext     bool  `json:"hasNext"`
	PrevPage    int   `json:"prevPage,omitempty"`
	NextPage    int   `json:"nextPage,omitempty"`
}

// Window は現在ページの前後 radius ページを表示範囲として返します。
// 範囲外の先頭・末尾ページへのリンクと、間が空く場合の省略記号の有無も計算します。
func (p Page) Window(radius int) Window {
	if radius < 0 {
		radius = 0
	}
	start := max(1, p.Current-radius)
	end := min(p.TotalPages, p.Current+radius)

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}

	w := Window{
		Start:       start,
		End:         end,
		Pages:       pages,
		ShowFirst:   start > 1,
		LeadingGap:  start > 2,
		ShowLast:    end < p.TotalPages,
		TrailingGap: end < p.TotalPages-1,
		HasPrev:     p.HasPrev(),
		HasNext:     p.HasNext(),
	}
	if w.HasPrev {
		w.PrevPage = p.Current - 1
	}
	if w.HasNext {
		w.NextPage = p.Current + 1
	}
	return w
}
