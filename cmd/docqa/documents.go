package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appsvc "docqa/internal/app"
	"docqa/internal/ingest"
	"docqa/internal/model"
)

func newDocsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List uploaded documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			docs, err := app.Tracker.RefreshDocuments(cmd.Context())
			if err != nil {
				return err
			}
			printDocuments(cmd.OutOrStdout(), docs)
			return nil
		},
	}
}

func newUploadCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document for question answering",
		Long:  "Uploads a .pdf, .txt or .docx file and shows ingestion progress until the service has processed it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			tracker := app.NewTracker(func(task model.UploadTask) {
				if !task.Terminal() {
					fmt.Fprintf(out, "\r%s", progressLine(task))
				}
			})

			task, err := tracker.Upload(cmd.Context(), ingest.File{Name: filepath.Base(args[0]), Content: f})
			if !task.Terminal() {
				return err
			}
			fmt.Fprintf(out, "\r%s\n", progressLine(task))
			if err != nil {
				failureColor.Fprintln(out, task.Message)
				return err
			}
			successColor.Fprintln(out, task.Message)
			printDocuments(out, tracker.Documents())
			return nil
		},
	}
	return cmd
}

func newStatusCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the signed-in user, documents and conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			snap := app.Session.Snapshot()
			if !snap.Authenticated() {
				return appsvc.ErrUnauthenticated
			}
			dash, err := app.Dashboard.Load(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signed in as %s\n\n", snap.Identity.Username)
			fmt.Fprintf(out, "Documents (%d)\n", len(dash.Documents))
			printDocuments(out, dash.Documents)
			fmt.Fprintf(out, "\nConversations (%d)\n", len(dash.Conversations))
			printConversations(out, dash.Conversations)
			return nil
		},
	}
}

func printDocuments(w io.Writer, docs []model.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents uploaded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tUPLOADED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Filename, d.UploadedAt)
	}
	tw.Flush()
}
