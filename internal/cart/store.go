package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/joshua0006/testraveremedy/internal/domain"
	"golang.org/x/sync/singleflight"
)

// VoucherRule is the server-held voucher configuration. Codes live here, on
// the trusted side, never in anything a client can read.
type VoucherRule struct {
	Code       string
	Percentage int
}

// Store owns all cart state for active sessions. The in-memory map is the
// single source of truth within a session; every mutation serializes through
// the store mutex and is mirrored to the Repository afterwards. Mirror write
// failures are logged and do not fail the mutation.
type Store struct {
	mu      sync.RWMutex
	carts   map[string]*domain.Cart
	repo    Repository
	voucher VoucherRule
	sfg     singleflight.Group // collapses concurrent first loads per session
}

func NewStore(repo Repository, voucher VoucherRule) *Store {
	return &Store{
		carts:   make(map[string]*domain.Cart),
		repo:    repo,
		voucher: voucher,
	}
}

// Get returns a snapshot of the session's cart, loading the mirror on first
// touch. The returned cart is a copy; mutating it does not affect the store.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCart(cart), nil
}

// AddItem merges the product into the cart: an existing (productID, variant)
// line has its quantity incremented, otherwise a new line is appended.
func (s *Store) AddItem(ctx context.Context, sessionID string, product domain.Product, quantity int, variant string) (*domain.Cart, error) {
	if quantity < 1 {
		quantity = 1
	}

	return s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		if i := cart.FindLine(product.ID, variant); i >= 0 {
			cart.Items[i].Quantity += quantity
			return
		}
		cart.Items = append(cart.Items, domain.LineItem{
			ProductID:    product.ID,
			Name:         product.Name,
			Description:  product.Description,
			Images:       append([]string(nil), product.Images...),
			UnitPrice:    product.UnitPrice,
			Quantity:     quantity,
			VariantLabel: variant,
			AddedAt:      time.Now(),
		})
	})
}

// RemoveItem deletes the line matching (productID, variant). An empty variant
// removes every variant of the product.
func (s *Store) RemoveItem(ctx context.Context, sessionID, productID, variant string) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		kept := cart.Items[:0]
		for _, item := range cart.Items {
			if item.ProductID == productID && (variant == "" || item.VariantLabel == variant) {
				continue
			}
			kept = append(kept, item)
		}
		cart.Items = kept
	})
}

// SetQuantity overwrites the quantity of the line matching (productID,
// variant). A quantity of zero or less removes the line; zero-quantity lines
// are never stored.
func (s *Store) SetQuantity(ctx context.Context, sessionID, productID, variant string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, sessionID, productID, variant)
	}

	return s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		if i := cart.FindLine(productID, variant); i >= 0 {
			cart.Items[i].Quantity = quantity
		}
	})
}

// Clear empties the cart and drops the voucher. Invoked after a confirmed
// successful checkout.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		cart.Items = nil
		cart.Voucher = domain.Voucher{}
	})
	return err
}

// ApplyVoucher evaluates the entered code against the configured rule and
// records the outcome on the cart. The comparison is case-insensitive.
func (s *Store) ApplyVoucher(ctx context.Context, sessionID, code string) (*domain.Cart, error) {
	trimmed := strings.TrimSpace(code)

	var voucher domain.Voucher
	switch {
	case trimmed != "" && strings.EqualFold(trimmed, s.voucher.Code):
		voucher = domain.Voucher{
			Code:       trimmed,
			IsValid:    true,
			Percentage: s.voucher.Percentage,
			Message:    fmt.Sprintf("%d%% discount applied!", s.voucher.Percentage),
		}
	case trimmed == "":
		voucher = domain.Voucher{Message: "Please enter a voucher code"}
	default:
		voucher = domain.Voucher{Code: trimmed, Message: "Invalid voucher code"}
	}

	return s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		cart.Voucher = voucher
	})
}

// session returns the live cart for the session, loading it from the mirror
// exactly once. A missing, corrupt, or unreadable mirror record falls back to
// an empty cart: persistence failures are never user-facing.
func (s *Store) session(ctx context.Context, sessionID string) (*domain.Cart, error) {
	s.mu.RLock()
	cart, ok := s.carts[sessionID]
	s.mu.RUnlock()
	if ok {
		return cart, nil
	}

	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		loaded, errLoad := s.repo.Load(ctx, sessionID)
		if errLoad != nil {
			if !errors.Is(errLoad, ErrCartNotFound) {
				log.Printf("cart mirror load error for session %s: %v", sessionID, errLoad)
			}
			loaded = &domain.Cart{SessionID: sessionID, CreatedAt: time.Now()}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		// Another goroutine may have installed the session between the map
		// check and here; keep the installed one.
		if existing, exists := s.carts[sessionID]; exists {
			return existing, nil
		}
		s.carts[sessionID] = loaded
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// mutate applies fn to the live cart under the store lock, then mirrors the
// result. Returns a snapshot of the updated cart.
func (s *Store) mutate(ctx context.Context, sessionID string, fn func(*domain.Cart)) (*domain.Cart, error) {
	cart, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	fn(cart)
	cart.UpdatedAt = time.Now()
	snapshot := cloneCart(cart)
	s.mu.Unlock()

	if errSave := s.repo.Save(ctx, snapshot); errSave != nil {
		log.Printf("cart mirror save error for session %s: %v", sessionID, errSave)
	}

	return cloneCart(snapshot), nil
}

func cloneCart(cart *domain.Cart) *domain.Cart {
	out := *cart
	out.Items = make([]domain.LineItem, len(cart.Items))
	copy(out.Items, cart.Items)
	for i := range out.Items {
		out.Items[i].Images = append([]string(nil), cart.Items[i].Images...)
	}
	return &out
}
