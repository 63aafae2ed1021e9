package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginateClamps(t *testing.T) {
	items := seq(45)

	p := Paginate(items, 1, 20)
	assert.Len(t, p.Items, 20)
	assert.Equal(t, 3, p.TotalPages)

	p = Paginate(items, 3, 20)
	assert.Len(t, p.Items, 5)
	assert.Equal(t, 40, p.Items[0])
	assert.False(t, p.HasNext())

	p = Paginate(items, 0, 20)
	assert.Equal(t, 1, p.Page)
	assert.Len(t, p.Items, 20)

	p = Paginate(items, 99, 20)
	assert.Equal(t, 3, p.Page)
	assert.Len(t, p.Items, 5)
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate[int](nil, 4, 20)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
	assert.Zero(t, p.TotalPages)
	assert.False(t, p.HasNext())
	assert.False(t, p.HasPrev())
}

func TestPaginatorRecomputes(t *testing.T) {
	p := NewPaginator(seq(45), 20)
	assert.Equal(t, 1, p.Current().Page)

	assert.Equal(t, 2, p.Next().Page)
	assert.Equal(t, 3, p.Next().Page)
	assert.Equal(t, 3, p.Next().Page)

	// 数据变少后当前页被夹紧
	pg := p.SetItems(seq(10))
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, 1, pg.TotalPages)

	pg = p.SetPageSize(3)
	assert.Equal(t, 4, pg.TotalPages)
	assert.Equal(t, []int{0, 1, 2}, pg.Items)

	assert.Equal(t, 4, p.GoTo(4).Page)
	assert.Equal(t, []int{9}, p.Current().Items)
	assert.Equal(t, 3, p.Prev().Page)
	assert.Equal(t, 1, p.GoTo(-5).Page)
}
