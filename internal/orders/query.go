package orders

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/shopadmin/internal/storage"
	"github.com/dshills/shopadmin/pkg/types"
)

// Paging defaults
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultSort     = "-createdAt"
)

// ErrInvalidSort is returned for a sort key outside the whitelist
var ErrInvalidSort = errors.New("sort must be one of createdAt, -createdAt, totalPrice, -totalPrice")

var sortFields = map[string]storage.SortField{
	"createdAt":   storage.SortCreatedAtAsc,
	"-createdAt":  storage.SortCreatedAtDesc,
	"totalPrice":  storage.SortTotalPriceAsc,
	"-totalPrice": storage.SortTotalPriceDesc,
}

// ListQuery selects one page of orders
type ListQuery struct {
	Current        int
	PageSize       int
	Status         types.OrderStatus
	UserID         string
	Sort           string
	IncludeDeleted bool
}

// Meta describes the page returned by FindAll
type Meta struct {
	Current  int `json:"current"`
	PageSize int `json:"pageSize"`
	Pages    int `json:"pages"`
	Total    int `json:"total"`
}

// Page is one page of orders with their items populated
type Page struct {
	Meta   Meta           `json:"meta"`
	Result []*types.Order `json:"result"`
}

// normalize applies defaults and bounds and resolves the sort key
func (q ListQuery) normalize() (ListQuery, storage.SortField, error) {
	if q.Current < 1 {
		q.Current = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Sort == "" {
		q.Sort = DefaultSort
	}
	field, ok := sortFields[q.Sort]
	if !ok {
		return q, 0, types.Invalid(ErrInvalidSort)
	}
	if q.Status != "" && !q.Status.Valid() {
		return q, 0, types.Invalid(types.ErrInvalidStatus)
	}
	return q, field, nil
}

// FindAll returns one page of orders. The count and the page query run
// concurrently; items for the whole page are loaded with a single query.
func (m *Manager) FindAll(ctx context.Context, q ListQuery) (*Page, error) {
	q, sort, err := q.normalize()
	if err != nil {
		return nil, err
	}

	filter := storage.ListFilter{
		Status:         q.Status,
		UserID:         q.UserID,
		IncludeDeleted: q.IncludeDeleted,
		Sort:           sort,
		Limit:          q.PageSize,
		Offset:         (q.Current - 1) * q.PageSize,
	}

	var (
		total  int
		orders []*types.Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := m.store.CountOrders(gctx, filter)
		total = n
		return err
	})
	g.Go(func() error {
		list, err := m.store.ListOrders(gctx, filter)
		orders = list
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	if err := m.populate(ctx, orders, q.IncludeDeleted); err != nil {
		return nil, err
	}

	pages := 0
	if total > 0 {
		pages = (total + q.PageSize - 1) / q.PageSize
	}
	if orders == nil {
		orders = []*types.Order{}
	}
	return &Page{
		Meta:   Meta{Current: q.Current, PageSize: q.PageSize, Pages: pages, Total: total},
		Result: orders,
	}, nil
}

// populate attaches items to orders in one batched query
func (m *Manager) populate(ctx context.Context, orders []*types.Order, includeDeleted bool) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	items, err := m.store.ListOrderItems(ctx, ids, includeDeleted)
	if err != nil {
		return err
	}

	byOrder := make(map[string][]types.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], *it)
	}
	for _, o := range orders {
		o.Items = byOrder[o.ID]
	}
	return nil
}
