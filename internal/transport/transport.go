package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/k1-end/elastic-logger/internal/metrics"
)

// DefaultEnqueueTimeout applies when Options.EnqueueTimeout is zero.
const DefaultEnqueueTimeout = 100 * time.Millisecond

// Indexer queues documents for bulk delivery. Batching, flushing and retries
// are the indexer's business. Add must give up once ctx is done.
type Indexer interface {
	Add(ctx context.Context, index, documentID string, body []byte) error
	Close(ctx context.Context) error
}

type Options struct {
	// Backend labels metrics, e.g. "elasticsearch".
	Backend            string
	Index              string
	IndexPrefix        string
	IndexSuffixPattern string
	MessageType        string
	// EnqueueTimeout bounds Add; a document that cannot be queued in time is
	// dropped and counted as failed.
	EnqueueTimeout time.Duration
}

// Document is the indexed shape of a single log message.
type Document struct {
	Timestamp time.Time `json:"@timestamp"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Fields    any       `json:"fields,omitempty"`
	Type      string    `json:"type,omitempty"`
}

// Transport turns log calls into documents on an Indexer. It is safe for
// concurrent use as long as the Indexer is.
type Transport struct {
	indexer Indexer
	namer   IndexNamer
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

func New(indexer Indexer, opts Options, logger *slog.Logger) *Transport {
	if opts.EnqueueTimeout <= 0 {
		opts.EnqueueTimeout = DefaultEnqueueTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		indexer: indexer,
		namer:   NewIndexNamer(opts.Index, opts.IndexPrefix, opts.IndexSuffixPattern),
		opts:    opts,
		logger:  logger.With(slog.String("component", "transport"), slog.String("backend", opts.Backend)),
		now:     time.Now,
	}
}

func (t *Transport) Error(message string, args ...any) { t.send("error", message, args) }
func (t *Transport) Warn(message string, args ...any)  { t.send("warn", message, args) }
func (t *Transport) Info(message string, args ...any)  { t.send("info", message, args) }
func (t *Transport) Log(message string, args ...any)   { t.send("log", message, args) }

// Close flushes pending documents.
func (t *Transport) Close(ctx context.Context) error {
	if err := t.indexer.Close(ctx); err != nil {
		return fmt.Errorf("cannot close %s indexer: %w", t.opts.Backend, err)
	}
	return nil
}

func (t *Transport) send(severity, message string, args []any) {
	ts := t.now()
	doc := Document{
		Timestamp: ts,
		Message:   message,
		Severity:  severity,
		Fields:    fieldsFromArgs(args),
		Type:      t.opts.MessageType,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		metrics.DocumentsFailed.WithLabelValues(t.opts.Backend).Inc()
		t.logger.Error("cannot marshal log document", "error", err, "severity", severity)
		return
	}

	index := t.namer.Name(ts)
	ctx, cancel := context.WithTimeout(context.Background(), t.opts.EnqueueTimeout)
	defer cancel()
	if err := t.indexer.Add(ctx, index, uuid.NewString(), body); err != nil {
		metrics.DocumentsFailed.WithLabelValues(t.opts.Backend).Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			t.logger.Warn("bulk indexer queue is full, dropping log document", "index", index, "timeout", t.opts.EnqueueTimeout)
			return
		}
		t.logger.Error("cannot enqueue log document", "error", err, "index", index)
		return
	}
	metrics.DocumentsEnqueued.WithLabelValues(t.opts.Backend, severity).Inc()
}

func fieldsFromArgs(args []any) any {
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	default:
		return args
	}
}
