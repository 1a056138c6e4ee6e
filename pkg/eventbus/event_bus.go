// Package eventbus is a small in-process pub/sub used to decouple progress
// reporting from the components doing the work.
package eventbus

import (
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

type EventBus interface {
	Publish(event any)
	Subscribe(handler any)
	Unsubscribe(handler any)
	Clear()
	SubscribersCount() int
}

type subscriber struct {
	fn      reflect.Value
	argType reflect.Type
}

type publisherImpl struct {
	log *logrus.Logger

	mu          sync.RWMutex
	subscribers []subscriber
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &publisherImpl{log: log}
}

// Subscribe registers a handler of the form func(E) for some event type E.
// Panics on any other signature; subscription bugs are programmer errors.
func (p *publisherImpl) Subscribe(handler any) {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 0 {
		panic("eventbus: handler must be func(E)")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, subscriber{
		fn:      reflect.ValueOf(handler),
		argType: t.In(0),
	})
}

func (p *publisherImpl) Unsubscribe(handler any) {
	ptr := reflect.ValueOf(handler).Pointer()

	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.subscribers[:0]
	for _, s := range p.subscribers {
		if s.fn.Pointer() != ptr {
			kept = append(kept, s)
		}
	}
	p.subscribers = kept
}

// Publish delivers the event synchronously to every subscriber whose argument
// type the event is assignable to.
func (p *publisherImpl) Publish(event any) {
	if event == nil {
		return
	}
	eventValue := reflect.ValueOf(event)
	eventType := reflect.TypeOf(event)

	p.mu.RLock()
	subs := make([]subscriber, len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if !matches(eventType, s.argType) {
			continue
		}
		s.fn.Call([]reflect.Value{eventValue})
		delivered++
	}

	if delivered == 0 && p.log != nil {
		p.log.WithField("event", reflect.TypeOf(event).String()).
			Debug("event published with no subscribers")
	}
}

func (p *publisherImpl) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = nil
}

func (p *publisherImpl) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

func matches(eventType, argType reflect.Type) bool {
	if argType.Kind() == reflect.Interface {
		return eventType.Implements(argType)
	}
	return eventType.AssignableTo(argType)
}
