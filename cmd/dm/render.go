package main

import (
	"fmt"
	"io"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

var (
	headerStyle = color.New(color.BgBlack, color.FgGreen)
	selfStyle   = color.New(color.FgCyan)
	peerStyle   = color.New(color.FgYellow)
	timeStyle   = color.New(color.FgGray)
	errorStyle  = color.New(color.FgRed)
)

func renderUsers(w io.Writer, users []chat.User) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Username", "Bio", "ID"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, u := range users {
		handle := ""
		if u.Username != "" {
			handle = "@" + u.Username
		}
		table.Append([]string{u.Name, handle, u.Bio, u.ID})
	}
	table.Render()
}

// renderMessage prints one line; names maps sender ids to labels.
func renderMessage(w io.Writer, m chat.Message, names map[string]string) {
	name, ok := names[m.SenderID]
	if !ok {
		name = m.SenderID
	}
	style := peerStyle
	if name == "you" {
		style = selfStyle
	}
	fmt.Fprintf(w, "%s %s: %s\n", timeStyle.Render(m.CreatedAt.Local().Format("15:04")), style.Render(name), m.Body)
}

func renderError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("! "+err.Error()))
}
