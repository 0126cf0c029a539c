package domain

import "strings"

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection accepts ASC or DESC in any letter case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", NewValidationError("direction", "no enum constant for direction "+s)
}

// PageRequest selects one zero-indexed page of a sorted listing.
type PageRequest struct {
	Page      int
	Size      int
	OrderBy   string
	Direction Direction
}

// NewPageRequest validates page bounds the way the listing endpoints expect.
func NewPageRequest(page, size int, orderBy string, dir Direction) (PageRequest, error) {
	if page < 0 {
		return PageRequest{}, NewValidationError("page", "page index must not be less than zero")
	}
	if size < 1 {
		return PageRequest{}, NewValidationError("linesPerPage", "page size must not be less than one")
	}
	return PageRequest{Page: page, Size: size, OrderBy: orderBy, Direction: dir}, nil
}

// Offset is the number of rows preceding the page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is one slice of a listing plus totals.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// NewPage computes totals for content fetched with req.
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Number:        req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// CustomerSortFields maps accepted orderBy values onto canonical customer fields.
var CustomerSortFields = map[string]string{
	"id":        "id",
	"nome":      "name",
	"name":      "name",
	"email":     "email",
	"cpfOuCnpj": "taxId",
	"taxId":     "taxId",
	"tipo":      "type",
	"type":      "type",
}

// CanonicalCustomerSort resolves orderBy or reports it as an invalid field.
func CanonicalCustomerSort(orderBy string) (string, error) {
	if f, ok := CustomerSortFields[strings.TrimSpace(orderBy)]; ok {
		return f, nil
	}
	return "", NewValidationError("orderBy", "cannot sort by "+orderBy)
}
