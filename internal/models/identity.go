package models

// Identity is the caller attached to a connection or an HTTP request.
// Accounts are owned by another service; only the id and display name
// travel with the identity token.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// PairKey returns an order-independent key for two identity ids. It backs
// the "one pending request / one active session per pair" indexes.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
