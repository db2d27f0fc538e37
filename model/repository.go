package model

// Repository is the persistence boundary for nodes, orders and agreements.
// Save inserts or replaces by id. FindByID returns ErrNotFound when absent.
type Repository[T any] interface {
	Save(entity T) error
	FindByID(id string) (T, error)
	FindAll() ([]T, error)
}
