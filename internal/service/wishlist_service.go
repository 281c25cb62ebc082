package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/marketkit/marketkit/internal/api"
	"github.com/marketkit/marketkit/internal/metrics"
	"github.com/marketkit/marketkit/internal/storage"
)

// wishlistDoc is the durable shape of the guest wishlist.
type wishlistDoc struct {
	Items []string `json:"items"`
}

// WishlistService marks and unmarks favorite products. Guests get a local
// id list in durable storage; authenticated users hit the remote endpoints
// per action with no local cache, so there is no merge-on-login step —
// just two code paths selected by presence of a token.
type WishlistService struct {
	store   storage.Store
	client  *api.Client
	tokens  api.TokenSource
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewWishlistService creates the wishlist service.
func NewWishlistService(store storage.Store, client *api.Client, tokens api.TokenSource, m *metrics.Metrics, logger *slog.Logger) *WishlistService {
	return &WishlistService{
		store:   store,
		client:  client,
		tokens:  tokens,
		metrics: m,
		logger:  logger,
	}
}

func (s *WishlistService) authenticated() bool {
	return s.tokens != nil && s.tokens.Token() != ""
}

// Add marks productID as a favorite. Idempotent in guest mode; best-effort
// in authenticated mode (remote failures are logged, not returned).
func (s *WishlistService) Add(ctx context.Context, productID string) {
	if s.authenticated() {
		if err := s.client.AddToWishlist(ctx, productID); err != nil {
			s.logger.Warn("wishlist add failed", "product_id", productID, "error", err)
		}
		return
	}

	ids := s.loadGuest(ctx)
	if slices.Contains(ids, productID) {
		return
	}
	s.saveGuest(ctx, append(ids, productID))
}

// Remove unmarks productID. Same duality and failure semantics as Add.
func (s *WishlistService) Remove(ctx context.Context, productID string) {
	if s.authenticated() {
		if err := s.client.RemoveFromWishlist(ctx, productID); err != nil {
			s.logger.Warn("wishlist remove failed", "product_id", productID, "error", err)
		}
		return
	}

	ids := s.loadGuest(ctx)
	filtered := slices.DeleteFunc(ids, func(id string) bool { return id == productID })
	s.saveGuest(ctx, filtered)
}

// List returns the locally cached favorite ids. The backend contract has
// no wishlist read endpoint, so authenticated sessions get an empty list.
func (s *WishlistService) List(ctx context.Context) []string {
	if s.authenticated() {
		return nil
	}
	return s.loadGuest(ctx)
}

// loadGuest reads the local id list, treating absence or corruption as
// empty.
func (s *WishlistService) loadGuest(ctx context.Context) []string {
	raw, err := s.store.Get(ctx, storage.KeyWishlistItems)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.noteStorageError("load wishlist", err)
		}
		return nil
	}

	var doc wishlistDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("wishlist cache corrupt, starting empty", "error", err)
		return nil
	}
	return doc.Items
}

func (s *WishlistService) saveGuest(ctx context.Context, ids []string) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(wishlistDoc{Items: ids})
	if err != nil {
		s.logger.Warn("failed to encode wishlist for storage", "error", err)
		return
	}
	if err := s.store.Set(ctx, storage.KeyWishlistItems, raw); err != nil {
		s.noteStorageError("persist wishlist", err)
	}
}

func (s *WishlistService) noteStorageError(op string, err error) {
	s.metrics.StorageErrorsTotal.Inc()
	s.logger.Warn("storage failure", "op", op, "error", err)
}
