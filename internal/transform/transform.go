package transform

import "time"

// Entry is a raw log call before it is shaped for the transport.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Payload any
}

// Result is what a Transformer hands back. A nil Payload means none.
type Result struct {
	Message string
	Payload any
}

type Transformer interface {
	Transform(entry Entry) (Result, error)
}

// Default passes message and payload through untouched.
type Default struct{}

func (Default) Transform(entry Entry) (Result, error) {
	return Result{Message: entry.Message, Payload: entry.Payload}, nil
}

// Func adapts a plain function to the Transformer interface.
type Func func(entry Entry) (Result, error)

func (f Func) Transform(entry Entry) (Result, error) {
	return f(entry)
}
