package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned by Do after Close.
var ErrPoolClosed = stdErrors.New("pool is closed")

// Pool keeps a fixed number of instances of one compiled guest and hands
// them out to concurrent callers.
type Pool struct {
	exec     *Executor
	compiled wazero.CompiledModule
	idle     chan *Instance
	done     chan struct{}
	size     int
	logger   *zap.Logger

	closeOnce sync.Once
}

// NewPool compiles wasm and instantiates size instances of it. A size
// below one uses the executor's configured pool size.
func NewPool(ctx context.Context, exec *Executor, wasm []byte, size int) (*Pool, error) {
	if size < 1 {
		size = exec.config.PoolSize
	}

	compiled, err := exec.Compile(ctx, wasm)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		exec:     exec,
		compiled: compiled,
		idle:     make(chan *Instance, size),
		done:     make(chan struct{}),
		size:     size,
		logger:   exec.logger.Named("pool"),
	}

	for n := 0; n < size; n++ {
		inst, err := exec.Instantiate(ctx, compiled)
		if err != nil {
			p.drain(ctx, n)
			_ = compiled.Close(ctx)
			return nil, fmt.Errorf("failed to fill pool (%d/%d): %w", n, size, err)
		}
		p.idle <- inst
	}

	return p, nil
}

// Size returns the number of instances in the pool.
func (p *Pool) Size() int {
	return p.size
}

// Do runs fn with an idle instance, waiting for one if all are busy.
// An instance interrupted by a call timeout is replaced before it is
// handed out again.
func (p *Pool) Do(ctx context.Context, fn func(*Instance) error) error {
	select {
	case <-p.done:
		return ErrPoolClosed
	default:
	}

	var inst *Instance
	select {
	case inst = <-p.idle:
	case <-p.done:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	defer p.release(ctx, inst)

	return fn(inst)
}

// release returns inst to the pool, replacing it first when it is closed.
func (p *Pool) release(ctx context.Context, inst *Instance) {
	if inst.Closed() {
		// Replacement must not be cut short by the caller's expired context.
		fresh, err := p.exec.Instantiate(context.WithoutCancel(ctx), p.compiled)
		if err != nil {
			p.logger.Error("failed to replace instance", zap.String("instance", inst.Name()), zap.Error(err))
		} else {
			p.logger.Info("replaced instance", zap.String("old", inst.Name()), zap.String("new", fresh.Name()))
			_ = inst.Close(ctx)
			inst = fresh
		}
	}
	p.idle <- inst
}

// Close waits for every instance to be returned, closes them and
// releases the compiled module. Do calls after Close fail with
// ErrPoolClosed.
func (p *Pool) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		if n := p.drain(ctx, p.size); n < p.size {
			err = fmt.Errorf("closed %d of %d instances: %w", n, p.size, ctx.Err())
		}
		if cerr := p.compiled.Close(ctx); err == nil {
			err = cerr
		}
	})
	return err
}

// drain closes up to n instances taken from the idle channel and returns
// how many were closed before ctx ended.
func (p *Pool) drain(ctx context.Context, n int) int {
	for closed := 0; closed < n; closed++ {
		select {
		case inst := <-p.idle:
			_ = inst.Close(ctx)
		case <-ctx.Done():
			return closed
		}
	}
	return n
}
