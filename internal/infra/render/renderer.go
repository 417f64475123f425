package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/formlock/formlock-backend/internal/infra/config"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Client calls the external renderer service, which loads the print view
// for a token in a headless browser and returns the PDF bytes.
type Client struct {
	cfg    *config.RenderConfig
	client *http.Client
}

var _ Renderer = (*Client)(nil)

func NewClient(cfg *config.RenderConfig) *Client {
	return &Client{
		cfg: cfg,
		// per-request deadlines come from the queue's job context
		client: &http.Client{},
	}
}

func (c *Client) Render(ctx context.Context, token string) ([]byte, error) {
	url := fmt.Sprintf("%s/render/%s", c.cfg.RendererURL, token)
	request, err := http.NewRequestWithContext(ctx, "POST", url, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/pdf")
	request.Header.Set("X-Renderer-Secret", c.cfg.Secret)

	resp, err := c.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("renderer returned status %d", resp.StatusCode)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if err := validatePDF(pdf); err != nil {
		return nil, fmt.Errorf("renderer returned invalid pdf, %v", err)
	}

	return pdf, nil
}

func validatePDF(pdf []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.Validate(bytes.NewReader(pdf), conf)
}
