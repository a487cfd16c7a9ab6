package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsvc "docqa/internal/app"
	"docqa/internal/devserver/devservertest"
	"docqa/internal/events"
	"docqa/internal/gateway"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// setupEnv points the CLI at a fresh reference backend with file credentials
// under a temp dir.
func setupEnv(t *testing.T) string {
	t.Helper()
	server, _ := devservertest.New(t)
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("API_BASE_URL", server.URL)
	t.Setenv("CREDENTIALS_BACKEND", "file")
	t.Setenv("CREDENTIALS_FILE", filepath.Join(dir, "credentials.json"))
	t.Setenv("LOG_FILE_PATH", filepath.Join(dir, "docqa.log"))
	t.Setenv("UPLOAD_TICK_MILLIS", "1")
	t.Setenv("RABBITMQ_URL", "")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	cmd := newRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	code := execute(cmd)
	return out.String(), errOut.String(), code
}

func conversationIDFrom(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		// Prompts are not followed by a newline, so the marker can sit mid-line.
		if _, id, ok := strings.Cut(line, "conversation: "); ok {
			return strings.TrimSpace(id)
		}
	}
	t.Fatalf("no conversation id in output: %s", out)
	return ""
}

func TestVersionCmd(t *testing.T) {
	out, _, code := run(t, "", "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "docqa dev")
	assert.Contains(t, out, "commit: none")
}

func TestRootCmd_Help(t *testing.T) {
	out, _, code := run(t, "", "--help")
	require.Equal(t, 0, code)
	for _, sub := range []string{"login", "register", "logout", "whoami", "status", "docs", "upload", "conversations", "ask", "chat", "events"} {
		assert.Contains(t, out, sub)
	}
	assert.Contains(t, out, "--config")
}

func TestAuthCommands(t *testing.T) {
	setupEnv(t)

	out, errOut, code := run(t, "", "register", "-u", "alice", "-p", "pw1")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Registered and logged in as alice")

	out, _, code = run(t, "", "whoami")
	require.Equal(t, 0, code)
	assert.Equal(t, "alice\n", out)

	out, _, code = run(t, "", "logout")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Logged out")

	_, errOut, code = run(t, "", "whoami")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "docqa login")

	_, errOut, code = run(t, "wrong\n", "login", "-u", "alice")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Incorrect username or password")

	out, errOut, code = run(t, "pw1\n", "login", "-u", "alice")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Logged in as alice")

	_, errOut, code = run(t, "", "register", "-u", "alice", "-p", "other")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Username already registered")
}

func TestCommandsRequireSession(t *testing.T) {
	setupEnv(t)

	for _, args := range [][]string{{"docs"}, {"conversations"}, {"status"}, {"ask", "hello"}} {
		_, errOut, code := run(t, "", args...)
		assert.Equal(t, 1, code, args)
		assert.Contains(t, errOut, "docqa login", args)
	}
}

func TestStatusCmd_UnauthenticatedError(t *testing.T) {
	setupEnv(t)
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"status"})

	err := cmd.Execute()
	assert.ErrorIs(t, err, appsvc.ErrUnauthenticated)
}

func TestDocumentAndConversationFlow(t *testing.T) {
	dir := setupEnv(t)
	_, errOut, code := run(t, "", "register", "-u", "alice", "-p", "pw1")
	require.Equal(t, 0, code, errOut)

	out, _, code := run(t, "", "docs")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No documents uploaded.")

	_, errOut, code = run(t, "", "ask", "What is X?")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "No documents found for retrieval")
	assert.Contains(t, errOut, "docqa upload")

	bad := filepath.Join(dir, "notes.exe")
	require.NoError(t, os.WriteFile(bad, []byte("MZ"), 0o600))
	out, errOut, code = run(t, "", "upload", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "File upload failed")
	assert.Contains(t, errOut, "Failed to process document")

	doc := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(doc, []byte("X is Y."), 0o600))
	out, errOut, code = run(t, "", "upload", doc)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, `File "doc.txt" uploaded and processed successfully`)

	out, _, code = run(t, "", "docs")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "doc.txt")

	out, errOut, code = run(t, "", "ask", "What", "is", "X?")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, `"What is X?"`)
	assert.Contains(t, out, "sources: doc.txt")
	id := conversationIDFrom(t, out)

	out, _, code = run(t, "", "conversations")
	require.Equal(t, 0, code)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "What is X?")

	out, errOut, code = run(t, "\nFollow up\n/quit\n", "chat", "--conversation", id)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "you> What is X?", "history is replayed")
	assert.Contains(t, out, `"Follow up"`)
	assert.Equal(t, id, conversationIDFrom(t, out))

	out, _, code = run(t, "", "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Signed in as alice")
	assert.Contains(t, out, "Documents (1)")
	assert.Contains(t, out, "Conversations (1)")

	_, errOut, code = run(t, "", "chat", "--conversation", "no-such-id")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Conversation not found")
}

func TestChat_StartsDraftAndEndsOnEOF(t *testing.T) {
	dir := setupEnv(t)
	_, errOut, code := run(t, "", "register", "-u", "bob", "-p", "pw2")
	require.Equal(t, 0, code, errOut)
	doc := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(doc, []byte("Notes."), 0o600))
	_, errOut, code = run(t, "", "upload", doc)
	require.Equal(t, 0, code, errOut)

	out, errOut, code := run(t, "First question\nSecond question\n", "chat")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, 2, strings.Count(out, "docqa> "))
	conversationIDFrom(t, out)

	out, _, code = run(t, "", "conversations")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "First question")
	assert.NotContains(t, out, "Second question", "follow-ups join the same conversation")
}

func TestEventsCmd_RequiresBroker(t *testing.T) {
	setupEnv(t)
	_, errOut, code := run(t, "", "events")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "activity events are not configured")
}

func TestEventLine(t *testing.T) {
	e := events.New(events.UploadFailed, "report.pdf", "status 500")
	line := eventLine(e)
	assert.Contains(t, line, "upload.failed")
	assert.Contains(t, line, "report.pdf  status 500")
}

func TestDescribe(t *testing.T) {
	transport := &gateway.RequestFailedError{Endpoint: gateway.EndpointListDocuments, Err: errors.New("connection refused")}
	assert.Equal(t, "could not reach the service: connection refused", describe(transport))

	rejected := &gateway.RequestFailedError{Endpoint: gateway.EndpointLogin, Status: 401, Detail: "Incorrect username or password"}
	assert.Equal(t, "Incorrect username or password", describe(errors.Join(appsvc.ErrAuthFailure, rejected)))
	assert.Empty(t, hintFor(errors.Join(appsvc.ErrAuthFailure, rejected)))

	missing := &gateway.RequestFailedError{Endpoint: gateway.EndpointFetchConversation, Status: 404, Detail: "Conversation not found"}
	assert.Equal(t, "Conversation not found (status 404)", describe(missing))

	assert.Equal(t, "plain", describe(errors.New("plain")))
}
