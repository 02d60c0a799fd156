package domain

// StockCounts is the catalog's view of an item's inventory.
type StockCounts struct {
	OnHand   int
	Reserved int
	OnOrder  int
}

// Available is on-hand stock not reserved by other orders.
func (s StockCounts) Available() int {
	if s.Reserved >= s.OnHand {
		return 0
	}
	return s.OnHand - s.Reserved
}

// Incoming is what will be available once open purchase orders arrive.
func (s StockCounts) Incoming() int {
	return s.Available() + s.OnOrder
}
