package storage

import (
	"context"

	"taskdeck/client"
	"taskdeck/domain"
)

const (
	catalogPageSize = 100
	maxCatalogPages = 50
)

// CatalogAPI is the subset of the service client the catalogs read from.
type CatalogAPI interface {
	Labels(ctx context.Context, page, size int) (domain.Page[domain.Label], error)
	Users(ctx context.Context, q client.UserQuery) (domain.Page[domain.User], error)
}

// Remote reads the full catalogs from the service, following pagination.
type Remote struct {
	API CatalogAPI
}

// FetchLabels collects every page of the label catalog.
func (r Remote) FetchLabels(ctx context.Context) ([]domain.Label, error) {
	return collect(func(page int) (domain.Page[domain.Label], error) {
		return r.API.Labels(ctx, page, catalogPageSize)
	})
}

// FetchUsers collects every page of the user directory.
func (r Remote) FetchUsers(ctx context.Context) ([]domain.User, error) {
	return collect(func(page int) (domain.Page[domain.User], error) {
		return r.API.Users(ctx, client.UserQuery{Page: page, Size: catalogPageSize})
	})
}

func collect[T any](fetch func(page int) (domain.Page[T], error)) ([]T, error) {
	var out []T
	for page := 0; page < maxCatalogPages; page++ {
		p, err := fetch(page)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Content...)
		if page+1 >= p.TotalPages {
			break
		}
	}
	return out, nil
}
