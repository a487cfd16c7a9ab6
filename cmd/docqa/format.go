package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fatih/color"

	appsvc "docqa/internal/app"
	"docqa/internal/conversation"
	"docqa/internal/gateway"
	"docqa/internal/ingest"
	"docqa/internal/model"
)

var (
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
	hintColor    = color.New(color.FgYellow)
	userColor    = color.New(color.FgCyan, color.Bold)
	botColor     = color.New(color.FgMagenta, color.Bold)
	faintColor   = color.New(color.Faint)
)

const progressBarWidth = 20

func printError(w io.Writer, err error) {
	failureColor.Fprintf(w, "Error: %s\n", describe(err))
	if hint := hintFor(err); hint != "" {
		hintColor.Fprintln(w, hint)
	}
}

// describe turns core errors into one line a user can act on.
func describe(err error) string {
	var rf *gateway.RequestFailedError
	switch {
	case errors.Is(err, appsvc.ErrAuthFailure) && errors.As(err, &rf) && rf.Detail != "":
		return rf.Detail
	case errors.As(err, &rf) && rf.Status == 0 && rf.Err != nil:
		return "could not reach the service: " + rf.Err.Error()
	case errors.As(err, &rf) && rf.Detail != "":
		return fmt.Sprintf("%s (status %d)", rf.Detail, rf.Status)
	default:
		return err.Error()
	}
}

func hintFor(err error) string {
	var rf *gateway.RequestFailedError
	askRejected := errors.As(err, &rf) && rf.Endpoint == gateway.EndpointAsk && rf.Status == http.StatusBadRequest
	switch {
	case errors.Is(err, appsvc.ErrUnauthenticated),
		errors.Is(err, conversation.ErrUnauthenticated),
		errors.Is(err, ingest.ErrUnauthenticated),
		gateway.StatusOf(err) == http.StatusUnauthorized && !errors.Is(err, appsvc.ErrAuthFailure):
		return "Run `docqa login` to sign in."
	case askRejected:
		return "Upload a document with `docqa upload <file>` first."
	default:
		return ""
	}
}

func progressLine(task model.UploadTask) string {
	filled := task.Progress * progressBarWidth / 100
	bar := strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled)
	return fmt.Sprintf("%s [%s] %3d%%", task.FileName, bar, task.Progress)
}

func printMessage(w io.Writer, msg model.Message) {
	if msg.Author == model.AuthorUser {
		userColor.Fprint(w, "you> ")
	} else {
		botColor.Fprint(w, "docqa> ")
	}
	fmt.Fprintln(w, msg.Content)
}

func printSources(w io.Writer, sources []string) {
	if len(sources) == 0 {
		return
	}
	faintColor.Fprintf(w, "sources: %s\n", strings.Join(sources, ", "))
}
