package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"BotHerald/internal/model"
)

// HTTPRenderer delegates rasterisation to an external chart service. The
// service receives the ChartRequest as JSON and answers with PNG bytes, or
// 204 when there is nothing to draw.
type HTTPRenderer struct {
	Endpoint string
	Width    int
	Height   int
	Client   *http.Client
}

// NewHTTPRenderer creates a renderer posting to endpoint.
func NewHTTPRenderer(endpoint string, w, h int, timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{
		Endpoint: endpoint,
		Width:    w,
		Height:   h,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRenderer) Extension() string { return ".png" }

type renderPayload struct {
	model.ChartRequest
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r *HTTPRenderer) Render(ctx context.Context, req model.ChartRequest) ([]byte, error) {
	if req.Empty() {
		return nil, nil
	}
	body, err := json.Marshal(renderPayload{ChartRequest: req, Width: r.Width, Height: r.Height})
	if err != nil {
		return nil, errors.Wrap(err, "marshal chart request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create render request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "render request")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		img, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "read rendered image")
		}
		return img, nil
	case http.StatusNoContent:
		return nil, nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("render service error: status %d, body: %s", resp.StatusCode, string(msg))
	}
}
