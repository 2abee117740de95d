package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/normalize"
)

const (
	cmdRefresh = "/refresh"
	cmdBack    = "/back"
)

// pickUser finds arg among users by id, handle or name. An unknown arg is
// taken as a user id, so people missing from the directory can still be
// reached.
func pickUser(users []chat.User, arg string) chat.User {
	arg = strings.TrimSpace(arg)
	handle := normalize.Handle(arg)
	for _, u := range users {
		if u.ID == arg || (handle != "" && normalize.Handle(u.Username) == handle) {
			return u
		}
	}
	for _, u := range users {
		if strings.EqualFold(u.Name, arg) {
			return u
		}
	}
	return chat.User{ID: arg, Name: arg}
}

// runChat opens the conversation with target and runs the line loop until
// /back or end of input.
func runChat(ctx context.Context, s *chat.Session, target chat.User, in io.Reader, out io.Writer) error {
	if err := s.Select(ctx, target); err != nil {
		return err
	}
	view := s.Snapshot()
	names := map[string]string{view.ViewerID: "you", target.ID: displayName(target)}
	printed := map[string]bool{}
	show := func() {
		for _, m := range s.Snapshot().Messages {
			if !printed[m.ID] {
				printed[m.ID] = true
				renderMessage(out, m, names)
			}
		}
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("conversation with %s", displayName(target))))
	show()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case cmdBack:
			s.Back()
			return nil
		case cmdRefresh:
			if err := s.Refresh(ctx); err != nil {
				renderError(out, err)
			}
		case "":
			continue
		default:
			if _, err := s.Send(ctx, line); err != nil {
				renderError(out, err)
				if errors.Is(err, chat.ErrUnauthenticated) {
					return err
				}
			}
		}
		show()
	}
	s.Back()
	return scanner.Err()
}

func displayName(u chat.User) string {
	if u.Username != "" {
		return fmt.Sprintf("%s (@%s)", u.Name, u.Username)
	}
	return u.Name
}
