package cart

// MergeItems combines a guest-accumulated cart with the server cart after
// login: union by cartId, taking the maximum quantity where both sides hold
// the same entry, clamped to available stock. Neither side's items are
// silently discarded.
//
// Guest entries win field-wise on conflict (they carry the freshest catalog
// snapshot the user actually saw); only the quantity is maxed. Order is
// guest items first, then server-only items, both in input order.
func MergeItems(guest, server []LineItem) []LineItem {
	merged := make([]LineItem, 0, len(guest)+len(server))
	index := make(map[string]int, len(guest))

	for _, item := range guest {
		index[item.CartID] = len(merged)
		item.Quantity = ClampQuantity(item.Quantity, item.AvailableQuantity)
		merged = append(merged, item)
	}

	for _, item := range server {
		if at, ok := index[item.CartID]; ok {
			if item.Quantity > merged[at].Quantity {
				merged[at].Quantity = ClampQuantity(item.Quantity, merged[at].AvailableQuantity)
			}
			continue
		}
		index[item.CartID] = len(merged)
		item.Quantity = ClampQuantity(item.Quantity, item.AvailableQuantity)
		merged = append(merged, item)
	}

	return merged
}
