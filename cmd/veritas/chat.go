package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/veritas/internal/chat"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the veritas assistant",
	Long: `Start an interactive chat session.

Type a message and press enter. Commands:
  /lang <en|ru>   switch language (starts the conversation over)
  /history        print the conversation so far
  /quit           end the session`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context(), newClient(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runChat drives one session until in is exhausted or the user quits. The
// session is deleted on the way out.
func runChat(ctx context.Context, c *apiClient, in io.Reader, out io.Writer) error {
	sess, err := c.CreateSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = c.DeleteSession(context.WithoutCancel(ctx), sess.ID) }()

	printMessages(out, sess.Messages)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/history":
			s, err := c.GetSession(ctx, sess.ID)
			if err != nil {
				return err
			}
			printMessages(out, s.Messages)
			continue
		case strings.HasPrefix(line, "/lang"):
			code := strings.TrimSpace(strings.TrimPrefix(line, "/lang"))
			if code == "" {
				fmt.Fprintln(out, "usage: /lang <en|ru>")
				continue
			}
			s, err := c.SetLanguage(ctx, sess.ID, code)
			if err != nil {
				return err
			}
			printMessages(out, s.Messages)
			continue
		}

		resp, err := c.Send(ctx, sess.ID, line)
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			fmt.Fprintf(out, "[busy] %s\n", apiErr.Message)
			continue
		}
		if err != nil {
			return err
		}
		printMessage(out, resp.Message)
	}
}

func printMessages(w io.Writer, msgs []chat.Message) {
	for _, m := range msgs {
		printMessage(w, m)
	}
}

func printMessage(w io.Writer, m chat.Message) {
	who := "veritas"
	if m.Role == chat.RoleUser {
		who = "you"
	}
	fmt.Fprintf(w, "%s: %s\n", who, m.Text)
}
