package render

import "context"

// Renderer turns resolved pages into complete HTML documents.
type Renderer interface {
	RenderPage(ctx context.Context, page PageView) ([]byte, error)
	RenderNotFound(ctx context.Context, page NotFoundView) ([]byte, error)
	RenderError(ctx context.Context, page ErrorView) ([]byte, error)
}
