// Package memory is an in-process PropertyRepository. Records are immutable
// once stored; every write swaps in a fresh copy, so readers never see a
// half-applied update.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"property_listings/internal/domain"
)

type Repo struct {
	docs  sync.Map // id -> *domain.PropertyDocument (never mutated after Store)
	locks sync.Map // id -> *sync.Mutex
}

func New() *Repo { return &Repo{} }

func (r *Repo) lockFor(id string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (r *Repo) Insert(ctx context.Context, d domain.PropertyDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp, err := d.Clone()
	if err != nil {
		return err
	}
	if _, loaded := r.docs.LoadOrStore(d.ID, &cp); loaded {
		return fmt.Errorf("%w: property %q already exists", domain.ErrConflict, d.ID)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (domain.PropertyDocument, error) {
	if err := ctx.Err(); err != nil {
		return domain.PropertyDocument{}, err
	}
	v, ok := r.docs.Load(id)
	if !ok {
		return domain.PropertyDocument{}, fmt.Errorf("%w: property %q", domain.ErrNotFound, id)
	}
	return v.(*domain.PropertyDocument).Clone()
}

func (r *Repo) List(ctx context.Context) ([]domain.PropertyDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.PropertyDocument
	var cerr error
	r.docs.Range(func(_, v any) bool {
		d, err := v.(*domain.PropertyDocument).Clone()
		if err != nil {
			cerr = err
			return false
		}
		out = append(out, d)
		return true
	})
	if cerr != nil {
		return nil, cerr
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) Update(ctx context.Context, id string, fn func(d *domain.PropertyDocument) error) (domain.PropertyDocument, error) {
	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.PropertyDocument{}, err
	}
	cur, ok := r.docs.Load(id)
	if !ok {
		return domain.PropertyDocument{}, fmt.Errorf("%w: property %q", domain.ErrNotFound, id)
	}
	next, err := cur.(*domain.PropertyDocument).Clone()
	if err != nil {
		return domain.PropertyDocument{}, err
	}
	if err := fn(&next); err != nil {
		return domain.PropertyDocument{}, err
	}
	stored, err := next.Clone()
	if err != nil {
		return domain.PropertyDocument{}, err
	}
	r.docs.Store(id, &stored)
	return next, nil
}
