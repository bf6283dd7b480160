// Package source provides comparable-sales lookup for a subject address.
package source

import (
	"context"
	"fmt"

	"compsbot/internal/config"
	"compsbot/internal/domain"
)

// CompSource resolves raw comparable sales for a subject address. Derived
// fields on the returned comps are left zero; scoring fills them in.
type CompSource interface {
	FetchComps(ctx context.Context, address string) ([]domain.Comp, error)
}

// New picks a source implementation from config.
func New(cfg config.Config) (CompSource, error) {
	switch cfg.Source.Driver {
	case "static":
		return NewStatic(), nil
	case "postgres":
		return NewPostgres(cfg.Source.Postgres)
	default:
		return nil, fmt.Errorf("unknown comps source driver %q", cfg.Source.Driver)
	}
}
