// Package cart holds the pure cart domain: line items, quantity clamping,
// cart-id composition, and the login merge policy. No I/O happens here.
package cart

// SyncState tracks whether a line item's last mutation reached the server.
type SyncState string

const (
	// SyncStateSynced means the server acknowledged the last write for
	// this item, or the session is guest-mode (local storage is the
	// persistence target and writes are synchronous).
	SyncStateSynced SyncState = "synced"

	// SyncStatePending means a server write for this item is queued or
	// in flight.
	SyncStatePending SyncState = "pending"

	// SyncStateFailed means the last server write for this item failed.
	// Local state stands; the divergence is visible here instead of only
	// in the logs.
	SyncStateFailed SyncState = "failed"
)

// LineItem is one cart entry for a specific product+size+color combination.
type LineItem struct {
	// CartID is the composite key productID + "_" + size + "_" + color,
	// so size/color variants of the same product are independent entries.
	CartID string `json:"cartId"`

	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`

	// Quantity is always an integer >= 1 and <= AvailableQuantity.
	Quantity int `json:"quantity"`

	// AvailableQuantity is the stock ceiling the quantity is clamped to.
	AvailableQuantity int `json:"availableQuantity"`

	Weight float64 `json:"weight,omitempty"`

	// SyncState reflects server propagation of the last local mutation.
	// Not persisted to the guest cache.
	SyncState SyncState `json:"-"`
}

// Product is the subset of a catalog product the cart needs to build a
// line item.
type Product struct {
	ID                string
	Name              string
	Price             float64
	Image             string
	Size              string
	Color             string
	AvailableQuantity int
	Weight            float64
}

// ComposeCartID builds the composite line-item key from product id, size,
// and color. Absent dimensions stay as empty strings so the key shape is
// stable.
func ComposeCartID(productID, size, color string) string {
	return productID + "_" + size + "_" + color
}

// ClampQuantity forces q into [1, avail]. A stock ceiling below 1 is
// treated as 1 so the floor invariant always wins.
func ClampQuantity(q, avail int) int {
	if avail < 1 {
		avail = 1
	}
	if q < 1 {
		q = 1
	}
	if q > avail {
		q = avail
	}
	return q
}

// NewLineItem builds a line item for product with the requested quantity,
// clamped to stock.
func NewLineItem(p Product, quantity int) LineItem {
	return LineItem{
		CartID:            ComposeCartID(p.ID, p.Size, p.Color),
		ProductID:         p.ID,
		Name:              p.Name,
		Price:             p.Price,
		Image:             p.Image,
		Size:              p.Size,
		Color:             p.Color,
		Quantity:          ClampQuantity(quantity, p.AvailableQuantity),
		AvailableQuantity: p.AvailableQuantity,
		Weight:            p.Weight,
		SyncState:         SyncStateSynced,
	}
}
