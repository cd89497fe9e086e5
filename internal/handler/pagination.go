package handler

import (
	"strconv"

	"hasker/backend/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultPageSize = 20

// PaginationMeta defines the structure for pagination metadata.
type PaginationMeta struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// PaginatedResponse defines the structure for a paginated list of any type.
type PaginatedResponse[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// NewPaginatedResponse creates a new PaginatedResponse.
func NewPaginatedResponse[T any](data []T, totalItems int64, page, limit int) PaginatedResponse[T] {
	if limit <= 0 {
		limit = 1
	}
	totalPages := (int(totalItems) + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}
	if data == nil {
		data = []T{}
	}
	return PaginatedResponse[T]{
		Data: data,
		Meta: PaginationMeta{
			TotalItems:  totalItems,
			TotalPages:  totalPages,
			CurrentPage: page,
			PageSize:    limit,
		},
	}
}

// fromPage converts a service page, mapping every item with conv.
func fromPage[M, R any](p *service.Page[M], conv func(*M) R) PaginatedResponse[R] {
	data := make([]R, 0, len(p.Items))
	for i := range p.Items {
		data = append(data, conv(&p.Items[i]))
	}
	return NewPaginatedResponse(data, p.Total, p.Number, p.Size)
}

// pageParams reads "page" and "page_size", falling back to defaults for
// missing or malformed values.
func pageParams(c *gin.Context) (page, size int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > service.MaxPageSize {
		size = service.MaxPageSize // Max limit
	}
	return page, size
}
