package elastic

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esutil"

	"github.com/k1-end/elastic-logger/internal/config"
	"github.com/k1-end/elastic-logger/internal/logger"
	"github.com/k1-end/elastic-logger/internal/metrics"
	"github.com/k1-end/elastic-logger/internal/transport"
)

const backend = config.BackendElasticsearch

func httpTransport(cfg config.ElasticConfig) http.RoundTripper {
	if !cfg.InsecureSkipVerify {
		return nil
	}
	return &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
}

// GetElasticClient builds a client and checks the cluster answers.
func GetElasticClient(ctx context.Context, cfg config.ElasticConfig) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: httpTransport(cfg),
	}
	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating the Elasticsearch client: %w", err)
	}

	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error getting Elasticsearch info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info request failed: %s", res.Status())
	}
	return es, nil
}

type flushStartKey struct{}

// Indexer feeds documents into an esutil.BulkIndexer.
type Indexer struct {
	bi     esutil.BulkIndexer
	logger *slog.Logger
}

func NewIndexer(es *elasticsearch.Client, opts transport.BulkOptions, log *slog.Logger) (*Indexer, error) {
	log = log.With(slog.String("component", "go-elasticsearch"))

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:              es,
		NumWorkers:          opts.NumWorkers,
		FlushBytes:          opts.FlushBytes,
		FlushInterval:       opts.FlushInterval,
		Pipeline:            opts.Pipeline,
		WaitForActiveShards: opts.WaitForActiveShards,
		DebugLogger:         logger.NewSlogWriter(log, slog.LevelDebug, "esutil"),
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
		return nil, fmt.Errorf("error creating the bulk indexer: %w", err)
	}

	return &Indexer{bi: bi, logger: log}, nil
}

func (i *Indexer) Add(ctx context.Context, index, documentID string, body []byte) error {
	return i.bi.Add(ctx, esutil.BulkIndexerItem{
		Index:      index,
		Action:     "index",
		DocumentID: documentID,
		Body:       bytes.NewReader(body),
		OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
			metrics.DocumentsIndexed.WithLabelValues(backend).Inc()
		},
		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			metrics.DocumentsFailed.WithLabelValues(backend).Inc()
			if err != nil {
				i.logger.Error("cannot index log document", "index", item.Index, "error", err)
				return
			}
			i.logger.Error("cannot index log document", "index", item.Index, "status", res.Status, "type", res.Error.Type, "reason", res.Error.Reason)
		},
	})
}

// Close flushes what is queued and stops the workers.
func (i *Indexer) Close(ctx context.Context) error {
	if err := i.bi.Close(ctx); err != nil {
		return err
	}
	stats := i.bi.Stats()
	i.logger.Debug("bulk indexer closed", "indexed", stats.NumIndexed, "failed", stats.NumFailed, "flushed", stats.NumFlushed)
	return nil
}
