package book

// asksLess orders ask levels least price first, so the minimum of the tree is
// always the best (lowest) ask.
func asksLess(a, b *priceLevel) bool {
	return a.key < b.key
}
