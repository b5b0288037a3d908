package notify

import (
	"context"
	"errors"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

type Notifier interface {
	Notify(ctx context.Context, report entity.RunReport) error
}

// Multi entrega o relatório a todos os notificadores, mesmo que algum falhe.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, report entity.RunReport) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
