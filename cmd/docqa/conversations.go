package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docqa/internal/conversation"
	"docqa/internal/model"
)

func newConversationsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"history"},
		Short:   "List past conversations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			conversations, err := app.Dashboard.Conversations(cmd.Context())
			if err != nil {
				return err
			}
			printConversations(cmd.OutOrStdout(), conversations)
			return nil
		},
	}
}

func newAskCmd(open opener) *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question about your documents",
		Long:  "Asks a single question, in a new conversation or appended to an existing one, and prints the answer with its sources.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctl := app.NewConversation()
			if err := ctl.Load(cmd.Context(), conversationID); err != nil {
				return err
			}
			if err := ctl.Ask(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			view := ctl.Snapshot()
			msgs := view.Conversation.Messages
			fmt.Fprintln(out, msgs[len(msgs)-1].Content)
			printSources(out, view.Sources)
			faintColor.Fprintf(out, "conversation: %s\n", view.Conversation.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue this conversation instead of starting a new one")
	return cmd
}

func newChatCmd(open opener) *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively about your documents",
		Long:  "Starts a question-and-answer session. Enter a blank line to skip, /quit or end of input to leave.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctl := app.NewConversation()
			if err := ctl.Load(cmd.Context(), conversationID); err != nil {
				return err
			}
			return runChat(cmd.Context(), ctl, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "resume this conversation")
	return cmd
}

// runChat reads one question per line until EOF or /quit. Rejected or failed
// questions are reported and the loop goes on; losing the session ends it.
func runChat(ctx context.Context, ctl *conversation.Controller, in io.Reader, out, errOut io.Writer) error {
	for _, msg := range ctl.Snapshot().Conversation.Messages {
		printMessage(out, msg)
	}

	scanner := bufio.NewScanner(in)
	for {
		userColor.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return finishChat(out, ctl)
		}

		if err := ctl.Ask(ctx, line); err != nil {
			printError(errOut, err)
			if errors.Is(err, conversation.ErrUnauthenticated) {
				return err
			}
			continue
		}
		view := ctl.Snapshot()
		msgs := view.Conversation.Messages
		printMessage(out, msgs[len(msgs)-1])
		printSources(out, view.Sources)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return finishChat(out, ctl)
}

func finishChat(out io.Writer, ctl *conversation.Controller) error {
	if id := ctl.ConversationID(); id != "" {
		faintColor.Fprintf(out, "conversation: %s\n", id)
	}
	return nil
}

func printConversations(w io.Writer, conversations []model.ConversationSummary) {
	if len(conversations) == 0 {
		fmt.Fprintln(w, "No conversations yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCREATED")
	for _, c := range conversations {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Title, c.CreatedAt)
	}
	tw.Flush()
}
