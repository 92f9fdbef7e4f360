package eventbus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type runFinished struct{ rows int }

type runFailed struct{ reason string }

func TestPublish_DispatchesByType(t *testing.T) {
	bus := NewEventPublisher(logrus.New())
	var finished, failed int
	bus.Subscribe(func(e *runFinished) { finished += e.rows })
	bus.Subscribe(func(e *runFailed) { failed++ })

	bus.Publish(&runFinished{rows: 3})
	bus.Publish(&runFinished{rows: 2})
	require.Equal(t, 5, finished)
	require.Zero(t, failed)
	require.Equal(t, 2, bus.SubscribersCount())
}

func TestPublish_NoSubscribersIsLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	bus := NewEventPublisher(log)
	bus.Subscribe(func(e *runFailed) {})

	bus.Publish(&runFinished{})
	require.Len(t, hook.Entries, 1)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	require.Contains(t, hook.LastEntry().Message, "no matching subscribers")
}

func TestPublish_RecoversPanics(t *testing.T) {
	log, hook := test.NewNullLogger()
	bus := NewEventPublisher(log)
	called := false
	bus.Subscribe(func(e *runFinished) { panic("boom") })
	bus.Subscribe(func(e *runFinished) { called = true })

	require.NotPanics(t, func() { bus.Publish(&runFinished{}) })
	require.True(t, called)
	require.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestPublishE(t *testing.T) {
	bus := NewEventPublisher(logrus.New())
	require.ErrorIs(t, bus.PublishE(&runFinished{}), ErrNoSubscribers)

	errBad := errors.New("bad")
	bus.Subscribe(func(e *runFinished) error { return errBad })
	bus.Subscribe(func(e *runFinished) error { return nil })
	require.ErrorIs(t, bus.PublishE(&runFinished{}), errBad)
}

func TestPublish_NilArgument(t *testing.T) {
	bus := NewEventPublisher(logrus.New())
	got := &runFinished{}
	bus.Subscribe(func(e *runFinished) { got = e })
	bus.Publish(nil)
	require.Nil(t, got)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventPublisher(logrus.New())
	handler := func(e *runFinished) {}
	bus.Subscribe(handler)
	bus.Subscribe(func(e *runFailed) {})
	bus.Unsubscribe(handler)
	require.Equal(t, 1, bus.SubscribersCount())
	require.Panics(t, func() { bus.Subscribe("not a func") })
}
