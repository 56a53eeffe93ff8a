// Package render turns chart series into image bytes.
package render

import (
	"context"

	"BotHerald/internal/model"
)

// Renderer draws one chart. Empty bytes with a nil error mean there was
// nothing to draw.
type Renderer interface {
	Render(ctx context.Context, req model.ChartRequest) ([]byte, error)
	// Extension is the file extension of the produced images, dot included.
	Extension() string
}
