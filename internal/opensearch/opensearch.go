package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/k1-end/elastic-logger/internal/config"
	"github.com/k1-end/elastic-logger/internal/logger"
	"github.com/k1-end/elastic-logger/internal/metrics"
	"github.com/k1-end/elastic-logger/internal/transport"
)

const backend = config.BackendOpenSearch

func NewClient(ctx context.Context, cfg config.ElasticConfig) (*opensearch.Client, error) {
	osCfg := opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if cfg.InsecureSkipVerify {
		osCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	if cfg.APIKey != "" {
		osCfg.Header = http.Header{"Authorization": []string{"ApiKey " + cfg.APIKey}}
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to reach opensearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch info request failed: %s", res.Status())
	}
	return client, nil
}

type flushStartKey struct{}

// Indexer feeds documents into an opensearchutil.BulkIndexer.
type Indexer struct {
	bi     opensearchutil.BulkIndexer
	logger *slog.Logger
}

func NewIndexer(client *opensearch.Client, opts transport.BulkOptions, log *slog.Logger) (*Indexer, error) {
	log = log.With(slog.String("component", "opensearch-go"))

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client:              client,
		NumWorkers:          opts.NumWorkers,
		FlushBytes:          opts.FlushBytes,
		FlushInterval:       opts.FlushInterval,
		Pipeline:            opts.Pipeline,
		WaitForActiveShards: opts.WaitForActiveShards,
		DebugLogger:         logger.NewSlogWriter(log, slog.LevelDebug, "opensearchutil"),
		OnError: func(ctx context.Context, err error) {
			log.Error("bulk request failed", "error", err)
		},
		OnFlushStart: func(ctx context.Context) context.Context {
			return context.WithValue(ctx, flushStartKey{}, time.Now())
		},
		OnFlushEnd: func(ctx context.Context) {
			if start, ok := ctx.Value(flushStartKey{}).(time.Time); ok {
				metrics.FlushDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	return &Indexer{bi: bi, logger: log}, nil
}

func (i *Indexer) Add(ctx context.Context, index, documentID string, body []byte) error {
	return i.bi.Add(ctx, opensearchutil.BulkIndexerItem{
		Index:      index,
		Action:     "index",
		DocumentID: documentID,
		Body:       bytes.NewReader(body),
		OnSuccess: func(ctx context.Context, item opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem) {
			metrics.DocumentsIndexed.WithLabelValues(backend).Inc()
		},
		OnFailure: func(ctx context.Context, item opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
			metrics.DocumentsFailed.WithLabelValues(backend).Inc()
			if err != nil {
				i.logger.Error("failed to index log document", "index", item.Index, "error", err)
				return
			}
			i.logger.Error("failed to index log document", "index", item.Index, "status", res.Status, "type", res.Error.Type, "reason", res.Error.Reason)
		},
	})
}

func (i *Indexer) Close(ctx context.Context) error {
	if err := i.bi.Close(ctx); err != nil {
		return err
	}
	stats := i.bi.Stats()
	i.logger.Debug("bulk indexer closed", "indexed", stats.NumIndexed, "failed", stats.NumFailed, "flushed", stats.NumFlushed)
	return nil
}

// TemplateManager keeps the logs index template in place.
type TemplateManager struct {
	client *opensearch.Client
}

func NewTemplateManager(client *opensearch.Client) *TemplateManager {
	return &TemplateManager{client: client}
}

func (m *TemplateManager) Ensure(ctx context.Context, name string, body map[string]any) error {
	existsReq := opensearchapi.IndicesExistsTemplateRequest{Name: []string{name}}
	res, err := existsReq.Do(ctx, m.client)
	if err != nil {
		return fmt.Errorf("failed to check index template %s: %w", name, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("failed to check index template %s: %s", name, res.Status())
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal index template %s: %w", name, err)
	}

	putReq := opensearchapi.IndicesPutTemplateRequest{
		Name: name,
		Body: bytes.NewReader(data),
	}
	res, err = putReq.Do(ctx, m.client)
	if err != nil {
		return fmt.Errorf("failed to put index template %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch template error: %s", res.String())
	}
	return nil
}
