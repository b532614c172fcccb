package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/k1-end/elastic-logger/internal/adapter"
	"github.com/k1-end/elastic-logger/internal/config"
	"github.com/k1-end/elastic-logger/internal/elastic"
	"github.com/k1-end/elastic-logger/internal/opensearch"
	"github.com/k1-end/elastic-logger/internal/template"
	"github.com/k1-end/elastic-logger/internal/transform"
	"github.com/k1-end/elastic-logger/internal/transport"
)

// ClientFactory returns the factory the adapter runs on Init: it connects to
// the configured backend, ensures the mapping template and starts the bulk
// indexer behind a transport. A cluster that does not answer fails Init; a
// template that cannot be uploaded only logs a warning.
func ClientFactory(cfg *config.Config, logger *slog.Logger) adapter.ClientFactory {
	return func(ctx context.Context) (adapter.Client, error) {
		var (
			indexer      transport.Indexer
			templates    template.Manager
			templateName string
			templateBody map[string]any
		)

		bulk := transport.BulkOptionsFromConfig(cfg.Transport)

		if cfg.Transport.EnsureMappingTemplate {
			var err error
			templateName, templateBody, err = mappingTemplate(cfg.Transport)
			if err != nil {
				return nil, err
			}
		}

		switch cfg.Backend {
		case config.BackendElasticsearch:
			es, err := elastic.GetElasticClient(ctx, cfg.Elastic)
			if err != nil {
				return nil, err
			}
			if cfg.Transport.EnsureMappingTemplate {
				tm, err := elastic.NewTemplateManager(cfg.Elastic)
				if err != nil {
					return nil, err
				}
				templates = tm
			}
			idx, err := elastic.NewIndexer(es, bulk, logger)
			if err != nil {
				return nil, err
			}
			indexer = idx
		case config.BackendOpenSearch:
			client, err := opensearch.NewClient(ctx, cfg.Elastic)
			if err != nil {
				return nil, err
			}
			if cfg.Transport.EnsureMappingTemplate {
				templates = opensearch.NewTemplateManager(client)
			}
			idx, err := opensearch.NewIndexer(client, bulk, logger)
			if err != nil {
				return nil, err
			}
			indexer = idx
		default:
			return nil, fmt.Errorf("invalid backend: %q", cfg.Backend)
		}

		// documents still index without the template, only with dynamic mappings
		if templates != nil {
			if err := templates.Ensure(ctx, templateName, templateBody); err != nil {
				logger.Warn("cannot ensure the index mapping template, continuing without it", "backend", cfg.Backend, "error", err)
			}
		}

		return transport.New(indexer, transport.Options{
			Backend:            cfg.Backend,
			Index:              cfg.Transport.Index,
			IndexPrefix:        cfg.Transport.IndexPrefix,
			IndexSuffixPattern: cfg.Transport.IndexSuffixPattern,
			MessageType:        cfg.Transport.MessageType,
			EnqueueTimeout:     cfg.Transport.EnqueueTimeout,
		}, logger), nil
	}
}

func mappingTemplate(cfg config.TransportConfig) (string, map[string]any, error) {
	prefix := cfg.IndexPrefix
	if cfg.Index != "" {
		prefix = cfg.Index
	}

	body, err := template.Load(cfg.MappingTemplate, prefix)
	if err != nil {
		return "", nil, err
	}
	if cfg.Index != "" {
		body["index_patterns"] = []string{cfg.Index}
	}
	return template.Name(prefix), body, nil
}

// NewLogger builds an uninitialized adapter from configuration.
func NewLogger(cfg *config.Config, logger *slog.Logger) (*adapter.Logger, error) {
	var t transform.Transformer = transform.Default{}
	if cfg.Transport.Transformer != "" {
		lt, err := transform.NewLua(cfg.Transport.Transformer)
		if err != nil {
			return nil, err
		}
		t = lt
	}

	return adapter.New(adapter.Options{
		Level:       cfg.Transport.Level,
		Factory:     ClientFactory(cfg, logger),
		Transformer: t,
	}, logger), nil
}
