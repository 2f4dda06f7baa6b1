package product

import (
	"database/sql"

	"storefront/internal/product/repository"
)

func NewModule(db *sql.DB) Service {
	return NewService(repository.NewMySQLRepository(db))
}
