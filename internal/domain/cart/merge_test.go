package cart

import "testing"

func item(productID, size string, quantity, avail int) LineItem {
	return LineItem{
		CartID:            ComposeCartID(productID, size, ""),
		ProductID:         productID,
		Quantity:          quantity,
		AvailableQuantity: avail,
	}
}

func TestMergeItems_DisjointUnion(t *testing.T) {
	guest := []LineItem{item("p1", "M", 2, 5)}
	server := []LineItem{item("p2", "", 1, 3)}

	merged := MergeItems(guest, server)

	if len(merged) != 2 {
		t.Fatalf("expected 2 items, got %d", len(merged))
	}
	if merged[0].ProductID != "p1" || merged[1].ProductID != "p2" {
		t.Errorf("expected guest items first, got %s then %s", merged[0].ProductID, merged[1].ProductID)
	}
}

func TestMergeItems_SameCartIDTakesMaxQuantity(t *testing.T) {
	guest := []LineItem{item("p1", "M", 2, 10)}
	server := []LineItem{item("p1", "M", 7, 10)}

	merged := MergeItems(guest, server)

	if len(merged) != 1 {
		t.Fatalf("expected 1 item, got %d", len(merged))
	}
	if merged[0].Quantity != 7 {
		t.Errorf("expected max quantity 7, got %d", merged[0].Quantity)
	}
}

func TestMergeItems_MaxQuantityClampedToStock(t *testing.T) {
	guest := []LineItem{item("p1", "M", 2, 4)}
	server := []LineItem{item("p1", "M", 9, 4)}

	merged := MergeItems(guest, server)

	if merged[0].Quantity != 4 {
		t.Errorf("expected quantity clamped to stock 4, got %d", merged[0].Quantity)
	}
}

func TestMergeItems_NoDuplicateCartIDs(t *testing.T) {
	guest := []LineItem{
		item("p1", "M", 1, 5),
		item("p2", "", 2, 5),
	}
	server := []LineItem{
		item("p2", "", 4, 5),
		item("p3", "L", 1, 5),
		item("p1", "M", 1, 5),
	}

	merged := MergeItems(guest, server)

	seen := map[string]bool{}
	for _, it := range merged {
		if seen[it.CartID] {
			t.Fatalf("duplicate cartId %q in merge result", it.CartID)
		}
		seen[it.CartID] = true
	}
	if len(merged) != 3 {
		t.Errorf("expected 3 distinct items, got %d", len(merged))
	}
}

func TestMergeItems_EmptySides(t *testing.T) {
	if got := MergeItems(nil, nil); len(got) != 0 {
		t.Errorf("expected empty merge, got %d items", len(got))
	}

	server := []LineItem{item("p1", "", 2, 5)}
	merged := MergeItems(nil, server)
	if len(merged) != 1 || merged[0].ProductID != "p1" {
		t.Errorf("expected server-only merge to keep server items")
	}
}

func TestMergeItems_GuestFieldsWinOnConflict(t *testing.T) {
	guest := []LineItem{{
		CartID:            "p1_M_",
		ProductID:         "p1",
		Name:              "Fresh Name",
		Price:             21.00,
		Quantity:          1,
		AvailableQuantity: 5,
	}}
	server := []LineItem{{
		CartID:            "p1_M_",
		ProductID:         "p1",
		Name:              "Stale Name",
		Price:             19.00,
		Quantity:          1,
		AvailableQuantity: 5,
	}}

	merged := MergeItems(guest, server)

	if merged[0].Name != "Fresh Name" || merged[0].Price != 21.00 {
		t.Errorf("expected guest snapshot to win field-wise, got %+v", merged[0])
	}
}
