package platform

import (
	"context"
	"fmt"

	"github.com/notifyhub/notification-bridge/internal/domain"
)

// Nougat keeps the legacy priority model but renders the expanded big-text
// layout with its own title and opens the app in a fresh task.
type Nougat struct {
	Legacy
}

func (n *Nougat) Name() string { return "nougat" }

func (n *Nougat) BuildAndSubmit(ctx context.Context, req domain.Request) (domain.Rendered, error) {
	r, err := n.build(ctx, req)
	if err != nil {
		return domain.Rendered{}, err
	}

	if req.Style == domain.StyleBigText {
		r.BigTitle = req.Title
	}
	r.Tap.ClearTask = true

	if err := n.deps.Renderer.Notify(ctx, r); err != nil {
		return domain.Rendered{}, fmt.Errorf("submit notification %d: %w", req.ID, err)
	}
	return r, nil
}

var _ Platform = (*Nougat)(nil)
