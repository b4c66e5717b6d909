package inventory

// planAllocation walks batches already ordered first-expiring-first and takes
// from each until the requested quantity is covered. The caller has verified
// the aggregate stock covers the request, so running out of batches here
// means the aggregate counter lied about what the batches hold.
func planAllocation(batches []*Batch, quantity int) ([]Allocation, error) {
	needed := quantity
	var allocations []Allocation
	for _, b := range batches {
		if needed == 0 {
			break
		}
		take := b.Quantity
		if take > needed {
			take = needed
		}
		if take <= 0 {
			continue
		}
		allocations = append(allocations, Allocation{
			BatchID:  b.ID,
			Quantity: take,
			UnitCost: b.UnitCost,
		})
		needed -= take
	}
	if needed > 0 {
		return nil, ErrStockMismatch
	}
	return allocations, nil
}

// WeightedUnitCost returns the quantity-weighted average unit cost across the
// batches one deduction consumed. ok is false when there is nothing to weigh,
// in which case callers fall back to the product's stored cost.
func WeightedUnitCost(allocations []Allocation) (cost float64, ok bool) {
	var quantity int
	var total float64
	for _, a := range allocations {
		quantity += a.Quantity
		total += float64(a.Quantity) * a.UnitCost
	}
	if quantity == 0 {
		return 0, false
	}
	return total / float64(quantity), true
}
