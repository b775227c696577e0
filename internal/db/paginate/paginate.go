// Package paginate applies search, sort and pagination to gorm list queries.
package paginate

import (
	"math"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// DefaultLimit is the page size used when none is given.
	DefaultLimit = 10
	// MaxLimit caps the requested page size.
	MaxLimit = 100
	// MaxPage caps the requested page so the row offset stays in range.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Filter is the list request of an admin table.
type Filter struct {
	Page      int    `query:"page"`
	Limit     int    `query:"limit"`
	Search    string `query:"search"`
	SortBy    string `query:"sortBy"`
	SortOrder string `query:"sortOrder"` // ASC or DESC
	IsActive  *bool  `query:"isActive"`
}

// Options describes the columns a model exposes to a Filter.
type Options struct {
	// SearchColumns are matched with LIKE against Filter.Search.
	SearchColumns []string
	// SortColumns maps public sort keys to columns. Unknown keys fall back to DefaultSort.
	SortColumns map[string]string
	// DefaultSort is the column used when SortBy is empty or unknown.
	DefaultSort string
	// ActiveColumn is the boolean column Filter.IsActive applies to.
	ActiveColumn string
}

// Meta describes the returned page.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Result is a page of T.
type Result[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

// Normalize clamps page and limit.
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}

	if f.Page > MaxPage {
		f.Page = MaxPage
	}

	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}

	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
}

// Find runs the filtered, sorted and paginated query of T on db.
func Find[T any](db *gorm.DB, f Filter, opts Options) (Result[T], error) {
	f.Normalize()

	q := db.Model(new(T))

	if search := strings.TrimSpace(f.Search); search != "" && len(opts.SearchColumns) > 0 {
		like := "%" + search + "%"
		cond := db.Session(&gorm.Session{NewDB: true})

		for i, col := range opts.SearchColumns {
			if i == 0 {
				cond = cond.Where(clause.Like{Column: clause.Column{Name: col}, Value: like})
			} else {
				cond = cond.Or(clause.Like{Column: clause.Column{Name: col}, Value: like})
			}
		}

		q = q.Where(cond)
	}

	if f.IsActive != nil && opts.ActiveColumn != "" {
		q = q.Where(clause.Eq{Column: clause.Column{Name: opts.ActiveColumn}, Value: *f.IsActive})
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Result[T]{}, err //nolint:wrapcheck
	}

	column := opts.DefaultSort
	if c, ok := opts.SortColumns[f.SortBy]; ok {
		column = c
	}

	var data []T

	if column != "" {
		q = q.Order(clause.OrderByColumn{
			Column: clause.Column{Name: column},
			Desc:   !strings.EqualFold(f.SortOrder, "ASC"),
		})
	}

	if err := q.Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&data).Error; err != nil {
		return Result[T]{}, err //nolint:wrapcheck
	}

	if data == nil {
		data = []T{}
	}

	return Result[T]{
		Data: data,
		Meta: Meta{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: int((total + int64(f.Limit) - 1) / int64(f.Limit)),
		},
	}, nil
}
