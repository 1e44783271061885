package repository

import "gorm.io/gorm"

const (
	defaultPerPage = 15
	maxPerPage     = 100
)

// NormalizePage clamps paging input to sane bounds.
func NormalizePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func paginate(query *gorm.DB, page, perPage int) *gorm.DB {
	page, perPage = NormalizePage(page, perPage)
	return query.Offset((page - 1) * perPage).Limit(perPage)
}
