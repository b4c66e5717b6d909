package catalog

// CleanCost computes the per-unit acquisition cost of a product: purchase
// price plus every itemized direct cost. The safety margin in CostDetails is
// excluded. With no purchase price there is no cost basis, so the result is
// zero regardless of details.
func CleanCost(purchasePrice float64, details *CostDetails) float64 {
	if purchasePrice == 0 {
		return 0
	}
	if details == nil || len(details.Items) == 0 {
		return purchasePrice
	}
	total := purchasePrice
	for _, item := range details.Items {
		total += float64(item.Amount)
	}
	return total
}
