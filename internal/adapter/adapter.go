package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/k1-end/elastic-logger/internal/level"
	"github.com/k1-end/elastic-logger/internal/transform"
)

// Client is the indexing transport. Implementations must be safe for
// concurrent use; Logger never locks around calls into it.
type Client interface {
	Error(message string, args ...any)
	Warn(message string, args ...any)
	Info(message string, args ...any)
	Log(message string, args ...any)
}

// ClientFactory builds the transport client during Init.
type ClientFactory func(ctx context.Context) (Client, error)

// TransformedMessage is a log call shaped for the transport. A nil Payload
// is treated as absent.
type TransformedMessage struct {
	Method  level.Method
	Message string
	Payload any
}

var (
	ErrNoClient = errors.New("no transport client or client factory configured")
	ErrClosed   = errors.New("logger is closed")
)

type Options struct {
	// Level is the threshold used by Log. Empty means "info".
	Level string
	// Client, when set, is used as is and Factory is ignored.
	Client      Client
	Factory     ClientFactory
	Transformer transform.Transformer
}

type Logger struct {
	opts        Options
	logger      *slog.Logger
	transformer transform.Transformer

	mu     sync.Mutex
	ready  chan struct{}
	closed chan struct{}
	client Client
}

func New(opts Options, logger *slog.Logger) *Logger {
	if opts.Level == "" {
		opts.Level = "info"
	}
	t := opts.Transformer
	if t == nil {
		t = transform.Default{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		opts:        opts,
		logger:      logger,
		transformer: t,
		ready:       make(chan struct{}),
		closed:      make(chan struct{}),
	}
}

// Init builds the transport client. It succeeds at most once; later calls
// are no-ops. On error the logger stays uninitialized and Init may be retried.
func (l *Logger) Init(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case <-l.closed:
		return ErrClosed
	default:
	}
	if l.client != nil {
		return nil
	}

	client := l.opts.Client
	if client == nil {
		if l.opts.Factory == nil {
			return ErrNoClient
		}
		var err error
		client, err = l.opts.Factory(ctx)
		if err != nil {
			return fmt.Errorf("cannot create transport client: %w", err)
		}
		if client == nil {
			return ErrNoClient
		}
	}

	l.client = client
	close(l.ready)
	return nil
}

// Ready reports whether Init has completed and Close has not been called.
func (l *Logger) Ready() bool {
	select {
	case <-l.closed:
		return false
	default:
	}
	select {
	case <-l.ready:
		return true
	default:
		return false
	}
}

// Client returns the transport handle, or nil before Init and after Close.
func (l *Logger) Client() Client {
	if !l.Ready() {
		return nil
	}
	return l.client
}

// Write hands msg to the transport method selected by msg.Method. It always
// reports success; delivery failures surface through the transport.
func (l *Logger) Write(msg TransformedMessage) bool {
	client := l.Client()
	if client == nil {
		l.logger.Debug("dropping message written while not ready", "method", msg.Method.String())
		return true
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("transport client panicked", "method", msg.Method.String(), "panic", r)
		}
	}()

	args := make([]any, 0, 1)
	if !isAbsent(msg.Payload) {
		args = append(args, msg.Payload)
	}

	switch msg.Method {
	case level.MethodError:
		client.Error(msg.Message, args...)
	case level.MethodWarn:
		client.Warn(msg.Message, args...)
	case level.MethodInfo:
		client.Info(msg.Message, args...)
	default:
		client.Log(msg.Message, args...)
	}

	return true
}

// Log filters by the configured level, runs the transformer and writes the
// result. Messages below the threshold are discarded and still return true.
func (l *Logger) Log(ctx context.Context, levelName, message string, payload any) bool {
	if !level.Enabled(l.opts.Level, levelName) {
		return true
	}

	info := level.Resolve(levelName)
	entry := transform.Entry{
		Time:    time.Now(),
		Level:   levelName,
		Message: message,
		Payload: payload,
	}

	res, err := l.transform(entry)
	if err != nil {
		l.logger.WarnContext(ctx, "transformer failed, writing the raw message", "error", err)
		res = transform.Result{Message: message, Payload: payload}
	}

	return l.Write(TransformedMessage{
		Method:  info.Method,
		Message: res.Message,
		Payload: res.Payload,
	})
}

func (l *Logger) transform(entry transform.Entry) (res transform.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transformer panicked: %v", r)
		}
	}()
	return l.transformer.Transform(entry)
}

// isAbsent reports whether a payload carries nothing: nil itself or a nil
// map, slice or pointer hidden in the interface.
func isAbsent(payload any) bool {
	if payload == nil {
		return true
	}
	v := reflect.ValueOf(payload)
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Close flushes the transport when it supports it. Writes after Close are
// dropped.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	client := l.client
	select {
	case <-l.closed:
		client = nil
	default:
		close(l.closed)
	}
	l.mu.Unlock()

	if client == nil {
		return nil
	}
	if c, ok := client.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}
