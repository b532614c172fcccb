package elastic

import (
	"context"
	"fmt"
	"net/http"

	"github.com/olivere/elastic/v7"

	"github.com/k1-end/elastic-logger/internal/config"
)

// TemplateManager keeps the logs index template in place.
type TemplateManager struct {
	client *elastic.Client
}

func NewTemplateManager(cfg config.ElasticConfig) (*TemplateManager, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.Addresses...),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	}
	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}
	if cfg.APIKey != "" {
		opts = append(opts, elastic.SetHeaders(http.Header{"Authorization": []string{"ApiKey " + cfg.APIKey}}))
	}
	if rt := httpTransport(cfg); rt != nil {
		opts = append(opts, elastic.SetHttpClient(&http.Client{Transport: rt}))
	}

	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating the template client: %w", err)
	}
	return &TemplateManager{client: client}, nil
}

// Ensure uploads body under name unless a template with that name exists.
func (m *TemplateManager) Ensure(ctx context.Context, name string, body map[string]any) error {
	exists, err := m.client.IndexTemplateExists(name).Do(ctx)
	if err != nil {
		return fmt.Errorf("cannot check index template %s: %w", name, err)
	}
	if exists {
		return nil
	}

	res, err := m.client.IndexPutTemplate(name).BodyJson(body).Do(ctx)
	if err != nil {
		return fmt.Errorf("cannot put index template %s: %w", name, err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("index template %s was not acknowledged", name)
	}
	return nil
}
