package service

import (
	"fmt"

	"gorm.io/gorm"
)

// Page sizes.
const (
	QuestionsPerPage = 20
	AnswersPerPage   = 30
	TrendingSize     = 20
	MaxPageSize      = 100
)

// Page is one page of a larger ordered result.
type Page[T any] struct {
	Items  []T
	Total  int64
	Number int
	Size   int
}

// NumPages is the number of pages; an empty result still has one page.
func (p *Page[T]) NumPages() int {
	if p.Size <= 0 || p.Total == 0 {
		return 1
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

func (p *Page[T]) HasPrev() bool { return p.Number > 1 }
func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages() }
func (p *Page[T]) PrevNumber() int { return p.Number - 1 }
func (p *Page[T]) NextNumber() int { return p.Number + 1 }

// paginate counts the rows matched by query and loads the requested page.
// query must build a fresh statement on every call. With clamp set a page
// past the end yields the last page instead of PageOutOfRangeError.
func paginate[T any](query func() *gorm.DB, page, size int, clamp bool, order string, preloads ...string) (*Page[T], error) {
	if size <= 0 {
		size = QuestionsPerPage
	}
	if page < 1 {
		page = 1
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	p := &Page[T]{Total: total, Size: size, Number: page}
	if last := p.NumPages(); page > last {
		if !clamp {
			return nil, &PageOutOfRangeError{Page: page, Last: last}
		}
		p.Number = last
	}

	q := query().Order(order)
	for _, rel := range preloads {
		q = q.Preload(rel)
	}
	if err := q.Offset((p.Number - 1) * size).Limit(size).Find(&p.Items).Error; err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	return p, nil
}
