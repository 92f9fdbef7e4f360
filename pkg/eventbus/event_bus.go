// Package eventbus dispatches events to subscribers chosen by the handler's
// parameter types.
package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrNoSubscribers = errors.New("no matching subscribers")

type EventBus interface {
	Publish(args ...any)
	PublishE(args ...any) error
	Subscribe(handler any)
	Unsubscribe(handler any)
	SubscribersCount() int
}

type bus struct {
	log      logrus.FieldLogger
	mu       sync.RWMutex
	handlers []reflect.Value
}

// NewEventPublisher returns a bus that logs unhandled events and handler
// panics to log.
func NewEventPublisher(log logrus.FieldLogger) EventBus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &bus{log: log}
}

// Matches reports whether handler can be called with args.
func Matches(handler reflect.Type, args []any) bool {
	if handler.Kind() != reflect.Func || handler.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		param := handler.In(i)
		if arg == nil {
			if k := param.Kind(); k != reflect.Interface && k != reflect.Ptr {
				return false
			}
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(param) {
			return false
		}
	}
	return true
}

func (b *bus) Subscribe(handler any) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		panic("eventbus: handler must be a function")
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, v)
	b.mu.Unlock()
}

func (b *bus) Unsubscribe(handler any) {
	ptr := reflect.ValueOf(handler).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.handlers {
		if h.Pointer() == ptr {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

func (b *bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *bus) matching(args []any) []reflect.Value {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []reflect.Value
	for _, h := range b.handlers {
		if Matches(h.Type(), args) {
			out = append(out, h)
		}
	}
	return out
}

func callArgs(handler reflect.Value, args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(handler.Type().In(i))
		} else {
			in[i] = reflect.ValueOf(arg)
		}
	}
	return in
}

// Publish calls every matching handler. Panics are logged and do not stop
// the remaining handlers.
func (b *bus) Publish(args ...any) {
	handlers := b.matching(args)
	if len(handlers) == 0 {
		b.log.Warnf("eventbus.Publish: no matching subscribers for %v", args)
		return
	}
	for _, h := range handlers {
		if err := invoke(h, args); err != nil {
			b.log.WithError(err).Error("eventbus.Publish: handler failed")
		}
	}
}

// PublishE is Publish for handlers that return an error. All handler errors
// are joined.
func (b *bus) PublishE(args ...any) error {
	handlers := b.matching(args)
	if len(handlers) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	for _, h := range handlers {
		if err := invoke(h, args); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func invoke(h reflect.Value, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked: %v", h.Type(), r)
		}
	}()
	out := h.Call(callArgs(h, args))
	if len(out) == 1 && out[0].Type() == reflect.TypeFor[error]() && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}
