package billing

import "sync"

// Registry keeps one open cart per signed-in user.
type Registry struct {
	svc   *Service
	mu    sync.Mutex
	carts map[uint]*entry
}

type entry struct {
	mu   sync.Mutex
	cart *Cart
}

func NewRegistry(svc *Service) *Registry {
	return &Registry{svc: svc, carts: map[uint]*entry{}}
}

// With runs fn with the user's cart locked, creating the cart on first use.
func (r *Registry) With(userID uint, fn func(c *Cart) error) error {
	r.mu.Lock()
	e, ok := r.carts[userID]
	if !ok {
		e = &entry{cart: r.svc.NewCart()}
		r.carts[userID] = e
	}
	r.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.cart)
}

// Drop forgets a user's cart, e.g. on logout.
func (r *Registry) Drop(userID uint) {
	r.mu.Lock()
	delete(r.carts, userID)
	r.mu.Unlock()
}
