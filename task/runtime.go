package task

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Runtime evaluates task graph nodes, memoising non-Value results in a
// bounded LRU cache keyed by fingerprint and collapsing concurrent
// requests for the same fingerprint onto a single evaluation (spec
// §4.H: "the runtime evaluates any node by memoising in a bounded
// cache keyed by fingerprint: get_or_insert accepts a suspended
// computation and, under concurrency, ensures at-most-one evaluation
// per key").
type Runtime struct {
	cache  *lru.Cache[string, Result]
	group  singleflight.Group
	logger *logrus.Entry
}

// NewRuntime builds a Runtime with the given cache capacity (number of
// node results retained; 0 means "1" is substituted since an LRU of
// size 0 cannot hold anything useful). Logging defaults to
// logrus.StandardLogger(); use SetLogger to attach a caller-scoped
// entry (matching the teacher's Session.GetLogger/SetLogger idiom).
func NewRuntime(capacity int) *Runtime {
	if capacity <= 0 {
		capacity = 1
	}
	c, _ := lru.New[string, Result](capacity)
	return &Runtime{cache: c, logger: logrus.NewEntry(logrus.StandardLogger())}
}

// GetLogger returns the entry used for cache hit/miss and
// truncation-warning logging.
func (r *Runtime) GetLogger() *logrus.Entry { return r.logger }

// SetLogger replaces the entry used for cache hit/miss and
// truncation-warning logging.
func (r *Runtime) SetLogger(entry *logrus.Entry) { r.logger = entry }

// Get resolves a single node's Result, evaluating it (and, as needed,
// its ancestors) on a cache miss.
func (r *Runtime) Get(ctx context.Context, node *Node) (Result, error) {
	if Uncached(node.Task.Kind()) {
		return r.eval(ctx, node)
	}

	fp := node.Fingerprint()
	if v, ok := r.cache.Get(fp); ok {
		r.logger.WithFields(logrus.Fields{"kind": node.Task.Kind(), "fingerprint": fp}).Trace("task cache hit")
		return v, nil
	}

	v, err, _ := r.group.Do(fp, func() (any, error) {
		if v, ok := r.cache.Get(fp); ok {
			return v, nil
		}
		r.logger.WithFields(logrus.Fields{"kind": node.Task.Kind(), "fingerprint": fp}).Trace("task cache miss")
		res, err := r.eval(ctx, node)
		if err != nil {
			return Result{}, err
		}
		r.cache.Add(fp, res)
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// GetAll resolves every node concurrently (spec §4.H via the
// reference's query_request / future::try_join_all), failing fast on
// the first error.
func (r *Runtime) GetAll(ctx context.Context, nodes []*Node) ([]Result, error) {
	out := make([]Result, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			res, err := r.Get(gctx, n)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// eval gathers a node's parent Results concurrently, then evaluates the
// node's own Task against them.
func (r *Runtime) eval(ctx context.Context, node *Node) (Result, error) {
	parents, err := r.GetAll(ctx, node.Parents)
	if err != nil {
		return Result{}, fmt.Errorf("task %s (%s): %w", node.Task.Variable(), node.Task.Kind(), err)
	}
	res, err := node.Task.Eval(ctx, parents)
	if err != nil {
		return Result{}, fmt.Errorf("task %s (%s): %w", node.Task.Variable(), node.Task.Kind(), err)
	}
	for _, w := range res.Warnings {
		r.logger.WithField("variable", node.Task.Variable()).Warn(w)
	}
	return res, nil
}
