package account

import (
	"testing"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/stretchr/testify/require"
)

func acc(id, name, bio string) Account {
	return Account{User: chat.User{ID: id, Name: name, Bio: bio}}
}

func TestCandidates_ExcludesViewerAndIncompleteProfiles(t *testing.T) {
	req := require.New(t)
	accounts := []Account{
		acc("u1", "Viewer", "me"),
		acc("u2", "Zed", "bio"),
		acc("u3", "", "no name"),
		acc("u4", "No Bio", ""),
		acc("u5", "Amy", "bio"),
	}

	users := Candidates(accounts, "u1", 0)
	req.Equal([]string{"u5", "u2"}, []string{users[0].ID, users[1].ID})
	req.Len(users, 2)
}

func TestCandidates_Limit(t *testing.T) {
	accounts := []Account{acc("a", "A", "x"), acc("b", "B", "x"), acc("c", "C", "x")}
	require.Len(t, Candidates(accounts, "", 2), 2)
}

func TestNormalize(t *testing.T) {
	req := require.New(t)
	a := Normalize(Account{User: chat.User{Name: " Bob ", Username: "@Bob"}, Email: " BOB@Example.com "})
	req.Equal("Bob", a.Name)
	req.Equal("bob", a.Username)
	req.Equal("bob@example.com", a.Email)
}
