package adapter

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/k1-end/elastic-logger/internal/level"
	"github.com/k1-end/elastic-logger/internal/transform"
)

type call struct {
	method string
	args   []any
}

type fakeClient struct {
	mu     sync.Mutex
	calls  []call
	closed bool
	panics bool
}

func (f *fakeClient) record(method, message string, args []any) {
	if f.panics {
		panic("backend exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: method, args: append([]any{message}, args...)})
}

func (f *fakeClient) Error(message string, args ...any) { f.record("error", message, args) }
func (f *fakeClient) Warn(message string, args ...any)  { f.record("warn", message, args) }
func (f *fakeClient) Info(message string, args ...any)  { f.record("info", message, args) }
func (f *fakeClient) Log(message string, args ...any)   { f.record("log", message, args) }

func (f *fakeClient) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func (f *fakeClient) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func readyLogger(t *testing.T, opts Options) (*Logger, *fakeClient) {
	t.Helper()
	fc := &fakeClient{}
	opts.Client = fc
	l := New(opts, nil)
	if err := l.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return l, fc
}

func TestWriteWithoutPayload(t *testing.T) {
	l, fc := readyLogger(t, Options{})

	if !l.Write(TransformedMessage{Method: level.MethodWarn, Message: "disk low"}) {
		t.Fatal("Write returned false")
	}

	want := []call{{method: "warn", args: []any{"disk low"}}}
	if got := fc.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %+v, want %+v", got, want)
	}
}

func TestWriteWithPayload(t *testing.T) {
	l, fc := readyLogger(t, Options{})
	payload := map[string]any{"id": 42}

	l.Write(TransformedMessage{Method: level.MethodInfo, Message: "req", Payload: payload})

	want := []call{{method: "info", args: []any{"req", payload}}}
	if got := fc.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %+v, want %+v", got, want)
	}
}

func TestWriteSelectsEachMethod(t *testing.T) {
	l, fc := readyLogger(t, Options{})

	for _, m := range []level.Method{level.MethodError, level.MethodWarn, level.MethodInfo, level.MethodLog} {
		l.Write(TransformedMessage{Method: m, Message: m.String()})
	}

	got := fc.snapshot()
	if len(got) != 4 {
		t.Fatalf("got %d calls, want 4", len(got))
	}
	for _, c := range got {
		if c.method != c.args[0] {
			t.Errorf("message %v went to %s", c.args[0], c.method)
		}
	}
}

func TestWriteSurvivesClientPanic(t *testing.T) {
	fc := &fakeClient{panics: true}
	l := New(Options{Client: fc}, nil)
	if err := l.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if !l.Write(TransformedMessage{Method: level.MethodError, Message: "x"}) {
		t.Fatal("Write must report success even when the client fails")
	}
}

func TestWriteBeforeInitIsDropped(t *testing.T) {
	fc := &fakeClient{}
	l := New(Options{Factory: func(context.Context) (Client, error) { return fc, nil }}, nil)

	if !l.Write(TransformedMessage{Method: level.MethodInfo, Message: "early"}) {
		t.Fatal("Write returned false")
	}
	if l.Ready() {
		t.Fatal("logger should not be ready before Init")
	}
	if n := len(fc.snapshot()); n != 0 {
		t.Errorf("client received %d calls before Init", n)
	}
}

func TestInitFactoryErrorKeepsLoggerUninitialized(t *testing.T) {
	boom := errors.New("bad config")
	attempts := 0
	fc := &fakeClient{}
	l := New(Options{Factory: func(context.Context) (Client, error) {
		attempts++
		if attempts == 1 {
			return nil, boom
		}
		return fc, nil
	}}, nil)

	err := l.Init(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Init error = %v, want %v", err, boom)
	}
	if l.Ready() {
		t.Fatal("logger became ready after a failed Init")
	}

	if err := l.Init(context.Background()); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if l.Client() != Client(fc) {
		t.Fatal("client was not installed after retry")
	}
}

func TestInitWithoutClientOrFactory(t *testing.T) {
	if err := New(Options{}, nil).Init(context.Background()); !errors.Is(err, ErrNoClient) {
		t.Fatalf("Init error = %v, want ErrNoClient", err)
	}
}

func TestInitRunsFactoryOnce(t *testing.T) {
	built := 0
	l := New(Options{Factory: func(context.Context) (Client, error) {
		built++
		return &fakeClient{}, nil
	}}, nil)

	for i := 0; i < 3; i++ {
		if err := l.Init(context.Background()); err != nil {
			t.Fatalf("Init: %v", err)
		}
	}
	if built != 1 {
		t.Errorf("factory ran %d times, want 1", built)
	}
}

func TestConcurrentWritesShareOneClient(t *testing.T) {
	l := New(Options{Factory: func(context.Context) (Client, error) { return &fakeClient{}, nil }}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Write(TransformedMessage{Method: level.MethodInfo, Message: "before"})
		}()
	}

	if err := l.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	first := l.Client()

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Write(TransformedMessage{Method: level.MethodInfo, Message: fmt.Sprintf("msg %d", i)})
			if l.Client() != first {
				t.Errorf("client identity changed")
			}
		}(i)
	}
	wg.Wait()

	fc := first.(*fakeClient)
	after := 0
	for _, c := range fc.snapshot() {
		if c.args[0] != "before" {
			after++
		}
	}
	if after != 50 {
		t.Errorf("client saw %d post-init writes, want 50", after)
	}
}

func TestLogFiltersAndTransforms(t *testing.T) {
	l, fc := readyLogger(t, Options{
		Level: "warn",
		Transformer: transform.Func(func(e transform.Entry) (transform.Result, error) {
			return transform.Result{Message: e.Level + ": " + e.Message, Payload: e.Payload}, nil
		}),
	})

	l.Log(context.Background(), "info", "skipped", nil)
	l.Log(context.Background(), "crit", "kept", map[string]any{"a": 1})

	want := []call{{method: "error", args: []any{"crit: kept", map[string]any{"a": 1}}}}
	if got := fc.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %+v, want %+v", got, want)
	}
}

func TestLogFallsBackWhenTransformerFails(t *testing.T) {
	l, fc := readyLogger(t, Options{
		Transformer: transform.Func(func(transform.Entry) (transform.Result, error) {
			return transform.Result{}, errors.New("broken")
		}),
	})

	if !l.Log(context.Background(), "notice", "raw", nil) {
		t.Fatal("Log returned false")
	}

	want := []call{{method: "log", args: []any{"raw"}}}
	if got := fc.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %+v, want %+v", got, want)
	}
}

func TestCloseClosesClient(t *testing.T) {
	l, fc := readyLogger(t, Options{})
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fc.closed {
		t.Error("client was not closed")
	}
}

func TestWriteTreatsNilPayloadsAsAbsent(t *testing.T) {
	l, fc := readyLogger(t, Options{})

	var p *struct{ ID int }
	for _, payload := range []any{map[string]any(nil), []any(nil), p} {
		l.Write(TransformedMessage{Method: level.MethodInfo, Message: "m", Payload: payload})
	}
	l.Write(TransformedMessage{Method: level.MethodInfo, Message: "m", Payload: map[string]any{}})

	calls := fc.snapshot()
	if len(calls) != 4 {
		t.Fatalf("got %d calls, want 4", len(calls))
	}
	for i, c := range calls[:3] {
		if !reflect.DeepEqual(c.args, []any{"m"}) {
			t.Errorf("call %d args = %#v, want only the message", i, c.args)
		}
	}
	if len(calls[3].args) != 2 {
		t.Errorf("empty map payload was dropped: %#v", calls[3].args)
	}
}

func TestLogSurvivesTransformerPanic(t *testing.T) {
	l, fc := readyLogger(t, Options{
		Transformer: transform.Func(func(transform.Entry) (transform.Result, error) {
			panic("bad transformer")
		}),
	})

	if !l.Log(context.Background(), "error", "x", map[string]any{"id": 1}) {
		t.Fatal("Log returned false")
	}

	want := []call{{method: "error", args: []any{"x", map[string]any{"id": 1}}}}
	if got := fc.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %+v, want %+v", got, want)
	}
}

func TestWriteAfterCloseIsDropped(t *testing.T) {
	l, fc := readyLogger(t, Options{})
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if l.Ready() {
		t.Error("Ready() = true after Close")
	}
	if !l.Write(TransformedMessage{Method: level.MethodWarn, Message: "late"}) {
		t.Error("Write returned false after Close")
	}
	if n := len(fc.snapshot()); n != 0 {
		t.Errorf("client received %d calls after Close", n)
	}
	if err := l.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := l.Init(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Init after Close = %v, want ErrClosed", err)
	}
}
