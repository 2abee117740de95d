package main

import (
	"fmt"
	"os"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/rpc"
	"github.com/spf13/cobra"
)

func registerCmd(opts *options) *cobra.Command {
	var req rpc.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and print its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, client, err := opts.dial()
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := client.Register(cmd.Context(), &req)
			if err != nil {
				return err
			}
			printToken(cmd, resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (8 characters or more)")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Username, "username", "", "handle, with or without @")
	cmd.Flags().StringVar(&req.Bio, "bio", "", "short bio; profiles without one are not listed")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func loginCmd(opts *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, client, err := opts.dial()
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			printToken(cmd, resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func printToken(cmd *cobra.Command, resp *rpc.AuthResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "user %s, token valid until %s\n", resp.UserID, resp.ExpiresAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "export DM_TOKEN=%s\n", resp.Token)
}

func usersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "users [query]",
		Short: "List people you can message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, client, err := opts.dial()
			if err != nil {
				return err
			}
			defer conn.Close()

			s := chat.NewSession(client, client, client, client, chat.WithSessionLogger(opts.log))
			if err := s.Load(cmd.Context()); err != nil {
				return err
			}
			if len(args) == 1 {
				s.SetQuery(args[0])
			}
			renderUsers(cmd.OutOrStdout(), s.Users())
			return nil
		},
	}
}

func chatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <user>",
		Short: "Open the conversation with a user (@handle, name or id)",
		Long: `Prints the history, then reads lines from stdin. Each line is sent as a
message. /refresh fetches new messages, /back leaves the conversation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, client, err := opts.dial()
			if err != nil {
				return err
			}
			defer conn.Close()

			s := chat.NewSession(client, client, client, client, chat.WithSessionLogger(opts.log))
			if err := s.Load(cmd.Context()); err != nil {
				return err
			}
			target := pickUser(s.Users(), args[0])
			return runChat(cmd.Context(), s, target, os.Stdin, cmd.OutOrStdout())
		},
	}
}
