package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/marketkit/marketkit/internal/api"
	"github.com/marketkit/marketkit/internal/domain/cart"
	"github.com/marketkit/marketkit/internal/metrics"
	"github.com/marketkit/marketkit/internal/storage"
)

// CartService is the reconciliation engine for the cart line-item list. It
// is the sole owner of the in-memory items; durable storage (guest) and the
// remote cart endpoint (authenticated) are synchronization targets, never
// owners.
//
// Every mutation updates local state synchronously before any I/O is
// issued, so reads always reflect the latest local intent. Server writes go
// through the SyncQueue and are best-effort: failures mark the affected
// items SyncStateFailed and never roll back the local mutation.
type CartService struct {
	mu    sync.Mutex
	items []cart.LineItem

	store   storage.Store
	client  *api.Client
	queue   *SyncQueue
	tokens  api.TokenSource
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCartService creates the engine. The queue's result callback must be
// wired to the returned service via WithResultFunc(svc.settleSync) by the
// caller; NewCartEngine does that wiring in one step.
func NewCartService(store storage.Store, client *api.Client, queue *SyncQueue, tokens api.TokenSource, m *metrics.Metrics, logger *slog.Logger) *CartService {
	return &CartService{
		store:   store,
		client:  client,
		queue:   queue,
		tokens:  tokens,
		metrics: m,
		logger:  logger,
	}
}

// NewCartEngine builds a CartService plus its SyncQueue with the result
// callback wired, and starts the worker.
func NewCartEngine(ctx context.Context, store storage.Store, client *api.Client, tokens api.TokenSource, m *metrics.Metrics, logger *slog.Logger, queueOpts ...SyncQueueOption) *CartService {
	svc := NewCartService(store, client, nil, tokens, m, logger)
	queueOpts = append(queueOpts, WithResultFunc(svc.settleSync))
	svc.queue = NewSyncQueue(client, m, logger, queueOpts...)
	svc.queue.Start(ctx)
	return svc
}

// Close drains pending server writes and stops the worker.
func (s *CartService) Close() {
	if s.queue != nil {
		s.queue.Close()
	}
}

func (s *CartService) authenticated() bool {
	return s.tokens != nil && s.tokens.Token() != ""
}

// Items returns a snapshot of the current line items.
func (s *CartService) Items() []cart.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cart.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// AddToCart adds quantity of product to the cart. An existing line item for
// the same product+size+color has its quantity increased instead, clamped
// to available stock. The local update is synchronous; when authenticated
// the full cart is pushed to the server in the background.
func (s *CartService) AddToCart(ctx context.Context, p cart.Product, quantity int) cart.LineItem {
	auth := s.authenticated()
	cartID := cart.ComposeCartID(p.ID, p.Size, p.Color)

	s.mu.Lock()
	var result cart.LineItem
	if at, ok := s.indexOf(cartID); ok {
		item := &s.items[at]
		item.Quantity = cart.ClampQuantity(item.Quantity+quantity, item.AvailableQuantity)
		if auth {
			item.SyncState = cart.SyncStatePending
		}
		result = *item
	} else {
		item := cart.NewLineItem(p, quantity)
		if auth {
			item.SyncState = cart.SyncStatePending
		}
		s.items = append(s.items, item)
		result = item
	}
	s.mu.Unlock()

	s.persist(ctx)
	if auth {
		s.enqueueSave()
	}
	return result
}

// UpdateQuantity sets the quantity of the line item with cartID, clamped to
// [1, availableQuantity]. Unknown cartIDs are a no-op. When authenticated
// the single item is patched on the server by product id.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID string, quantity int) {
	auth := s.authenticated()

	s.mu.Lock()
	at, ok := s.indexOf(cartID)
	if !ok {
		s.mu.Unlock()
		return
	}
	item := &s.items[at]
	item.Quantity = cart.ClampQuantity(quantity, item.AvailableQuantity)
	if auth {
		item.SyncState = cart.SyncStatePending
	}
	productID := item.ProductID
	newQuantity := item.Quantity
	s.mu.Unlock()

	s.persist(ctx)
	if auth {
		s.queue.Enqueue(syncOp{
			kind:      opPatch,
			productID: productID,
			quantity:  newQuantity,
			cartIDs:   []string{cartID},
		})
	}
}

// RemoveFromCart removes the line item with cartID. Idempotent: removing an
// absent item is a no-op and issues no server call.
func (s *CartService) RemoveFromCart(ctx context.Context, cartID string) {
	auth := s.authenticated()

	s.mu.Lock()
	at, ok := s.indexOf(cartID)
	if !ok {
		s.mu.Unlock()
		return
	}
	productID := s.items[at].ProductID
	s.items = append(s.items[:at], s.items[at+1:]...)
	s.mu.Unlock()

	s.persist(ctx)
	if auth {
		s.queue.Enqueue(syncOp{
			kind:      opDelete,
			productID: productID,
		})
	}
}

// ClearCart empties the local item list. It does not itself call the
// server; checkout and sign-out flows own any server-side clear.
func (s *CartService) ClearCart(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	s.persist(ctx)
}

// CompleteCheckout empties the cart after a successful checkout and, when
// authenticated, pushes the empty cart so the server does not resurrect the
// purchased items.
func (s *CartService) CompleteCheckout(ctx context.Context) {
	auth := s.authenticated()

	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	s.persist(ctx)
	if auth {
		s.enqueueSave()
	}
}

// LoadFromServer fetches the server cart and replaces the local item list.
// Quantities are clamped to available stock; the cartId is built from
// product id + size (the server cart has no color dimension). On failure
// local state is left unchanged and the error is returned after logging.
func (s *CartService) LoadFromServer(ctx context.Context) ([]cart.LineItem, error) {
	if !s.authenticated() {
		return nil, nil
	}

	entries, err := s.client.GetCart(ctx)
	if err != nil {
		s.logger.Warn("failed to load server cart, keeping local state", "error", err)
		return nil, err
	}

	items := mapServerItems(entries)

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.persist(ctx)

	out := make([]cart.LineItem, len(items))
	copy(out, items)
	return out, nil
}

// LoadFromStorage replaces the local item list with the guest cache, or an
// empty list when the cache is absent or corrupt.
func (s *CartService) LoadFromStorage(ctx context.Context) []cart.LineItem {
	var items []cart.LineItem

	raw, err := s.store.Get(ctx, storage.KeyCartItems)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		// No guest cart yet.
	case err != nil:
		s.noteStorageError("load cart", err)
	default:
		if err := json.Unmarshal(raw, &items); err != nil {
			s.logger.Warn("guest cart cache corrupt, starting empty", "error", err)
			items = nil
		}
	}

	for i := range items {
		items[i].Quantity = cart.ClampQuantity(items[i].Quantity, items[i].AvailableQuantity)
		items[i].SyncState = cart.SyncStateSynced
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	out := make([]cart.LineItem, len(items))
	copy(out, items)
	return out
}

// SaveToServer pushes the current items to the server as a full
// replacement. No-op for guests.
func (s *CartService) SaveToServer(ctx context.Context) {
	if !s.authenticated() {
		return
	}
	s.enqueueSave()
}

// SyncAfterLogin reconciles the guest-accumulated cart with the server cart
// immediately after sign-in or sign-up. The server cart is fetched and
// merged (union by cartId, max quantity); the merged list becomes local
// state and is pushed wholesale. When the pre-merge fetch fails the guest
// cart is pushed as-is, last-write-wins, so the user never loses the items
// in hand.
func (s *CartService) SyncAfterLogin(ctx context.Context) {
	guest := s.Items()

	merged := guest
	if serverEntries, err := s.client.GetCart(ctx); err != nil {
		s.logger.Warn("server cart fetch failed, pushing guest cart last-write-wins", "error", err)
	} else {
		merged = cart.MergeItems(guest, mapServerItems(serverEntries))
	}

	for i := range merged {
		merged[i].SyncState = cart.SyncStatePending
	}

	s.mu.Lock()
	s.items = merged
	s.mu.Unlock()

	// Authenticated now: clears the guest cache so stale local items can't
	// resurrect, then pushes the merged cart.
	s.persist(ctx)
	s.enqueueSave()
}

// persist mirrors the current items to the durable layer. Guests get the
// full list written to the cart key; authenticated sessions get the guest
// cache cleared because the server is authoritative. Runs after every state
// change; failures are swallowed.
func (s *CartService) persist(ctx context.Context) {
	if s.authenticated() {
		if err := s.store.Remove(ctx, storage.KeyCartItems); err != nil {
			s.noteStorageError("clear guest cart cache", err)
		}
		return
	}

	raw, err := json.Marshal(s.Items())
	if err != nil {
		s.logger.Warn("failed to encode cart for storage", "error", err)
		return
	}
	if err := s.store.Set(ctx, storage.KeyCartItems, raw); err != nil {
		s.noteStorageError("persist cart", err)
	}
}

// enqueueSave snapshots the full cart and queues a wholesale replacement.
func (s *CartService) enqueueSave() {
	s.mu.Lock()
	entries := make([]api.CartEntry, 0, len(s.items))
	cartIDs := make([]string, 0, len(s.items))
	for _, item := range s.items {
		entries = append(entries, api.CartEntry{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
		})
		cartIDs = append(cartIDs, item.CartID)
	}
	s.mu.Unlock()

	s.queue.Enqueue(syncOp{
		kind:    opSave,
		entries: entries,
		cartIDs: cartIDs,
	})
}

// settleSync flips the sync state of the items an op covered. Items mutated
// again since enqueue are pending for a later op and are left alone.
func (s *CartService) settleSync(op syncOp, err error) {
	state := cart.SyncStateSynced
	if err != nil {
		state = cart.SyncStateFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cartID := range op.cartIDs {
		if at, ok := s.indexOf(cartID); ok && s.items[at].SyncState == cart.SyncStatePending {
			s.items[at].SyncState = state
		}
	}
}

// indexOf returns the position of cartID. Callers must hold s.mu.
func (s *CartService) indexOf(cartID string) (int, bool) {
	for i := range s.items {
		if s.items[i].CartID == cartID {
			return i, true
		}
	}
	return -1, false
}

func (s *CartService) noteStorageError(op string, err error) {
	s.metrics.StorageErrorsTotal.Inc()
	s.logger.Warn("storage failure", "op", op, "error", err)
}

// mapServerItems converts the GET /cart payload into local line items,
// clamping each quantity to the product's available stock.
func mapServerItems(entries []api.ServerCartItem) []cart.LineItem {
	items := make([]cart.LineItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, cart.LineItem{
			CartID:            cart.ComposeCartID(e.Product.ID, e.Size, ""),
			ProductID:         e.Product.ID,
			Name:              e.Product.Name,
			Price:             e.Product.Price,
			Image:             e.Product.Image,
			Size:              e.Size,
			Quantity:          cart.ClampQuantity(e.Quantity, e.Product.AvailableQuantity),
			AvailableQuantity: e.Product.AvailableQuantity,
			Weight:            e.Product.Weight,
			SyncState:         cart.SyncStateSynced,
		})
	}
	return items
}
