package book

// bidsLess orders bid levels greatest price first, so the minimum of the tree is
// always the best (highest) bid.
func bidsLess(a, b *priceLevel) bool {
	return a.key > b.key
}
