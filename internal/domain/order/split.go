package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorGroup is the set of lines a single vendor ships
type VendorGroup struct {
	VendorID uuid.UUID
	Items    []Item
}

// Subtotal is the sum of line base prices
func (g VendorGroup) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range g.Items {
		total = total.Add(item.LineBase)
	}
	return total
}

// VendorLine pairs a priced item with the vendor that sells it
type VendorLine struct {
	VendorID uuid.UUID
	Item     Item
}

// SplitByVendor groups lines by vendor. Groups keep the order in which each
// vendor first appears in the cart, and lines keep their cart order.
func SplitByVendor(lines []VendorLine) []VendorGroup {
	index := make(map[uuid.UUID]int)
	groups := make([]VendorGroup, 0)
	for _, line := range lines {
		i, ok := index[line.VendorID]
		if !ok {
			i = len(groups)
			index[line.VendorID] = i
			groups = append(groups, VendorGroup{VendorID: line.VendorID})
		}
		groups[i].Items = append(groups[i].Items, line.Item)
	}
	return groups
}

// Subtotals returns each group's subtotal, in group order
func Subtotals(groups []VendorGroup) []decimal.Decimal {
	result := make([]decimal.Decimal, len(groups))
	for i, g := range groups {
		result[i] = g.Subtotal()
	}
	return result
}
