package chat

import (
	"strings"

	"github.com/samber/lo"
)

// HandlePrefix marks a query as a username search.
const HandlePrefix = "@"

// Filter narrows users to those matching query, keeping their order. A
// blank query returns users unchanged. Matching is a case-insensitive
// substring test against the display name and the username; a leading "@"
// is ignored for the username test.
func Filter(users []User, query string) []User {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return users
	}
	handleQuery := strings.TrimPrefix(q, HandlePrefix)

	return lo.Filter(users, func(u User, _ int) bool {
		if strings.Contains(strings.ToLower(u.Name), q) {
			return true
		}
		if u.Username == "" {
			return false
		}
		handle := strings.ToLower(u.Username)
		return strings.Contains(handle, q) || strings.Contains(handle, handleQuery)
	})
}
