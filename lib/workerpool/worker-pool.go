package workerpool

import (
	"context"
)

const DefaultSize = 10

type worker struct{}

// Pool is a token pool of workers: Create arms the tokens, Handle borrows
// one for the duration of a handler call, Wait drains them all back,
// which blocks until every in-flight handler has finished.
type Pool[Data any] struct {
	size    int
	pool    chan *worker
	handler func(ctx context.Context, msg Data) error
}

func New[Data any](size int, handler func(ctx context.Context, msg Data) error) *Pool[Data] {
	if size <= 0 {
		size = DefaultSize
	}

	return &Pool[Data]{
		size:    size,
		pool:    make(chan *worker, size),
		handler: handler,
	}
}

func (p *Pool[Data]) Size() int {
	return p.size
}

func (p *Pool[Data]) Create() {
	for range p.size {
		p.pool <- &worker{}
	}
}

func (p *Pool[Data]) Handle(ctx context.Context, data Data) error {
	w := <-p.pool

	defer func() { p.pool <- w }()

	return p.handler(ctx, data)
}

func (p *Pool[Data]) Wait() {
	for range p.size {
		<-p.pool
	}
}
