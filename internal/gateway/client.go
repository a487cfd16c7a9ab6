package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client maps each remote operation to exactly one HTTP request. It keeps no
// state besides its transport: tokens are passed in by the caller, nothing is
// cached and nothing is retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for baseURL. A zero timeout means none.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, "/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &RequestFailedError{Endpoint: EndpointLogin, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out TokenResponse
	if err := c.do(req, EndpointLogin, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, username, password string) (*TokenResponse, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/register", credentialsRequest{Username: username, Password: password})
	if err != nil {
		return nil, &RequestFailedError{Endpoint: EndpointRegister, Err: err}
	}

	var out TokenResponse
	if err := c.do(req, EndpointRegister, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDocuments(ctx context.Context, token string) ([]DocumentRecord, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/documents", nil)
	if err != nil {
		return nil, &RequestFailedError{Endpoint: EndpointListDocuments, Err: err}
	}
	setBearer(req, token)

	var out []DocumentRecord
	if err := c.do(req, EndpointListDocuments, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadDocument streams content as the multipart field "file".
func (c *Client) UploadDocument(ctx context.Context, token, filename string, content io.Reader) (*UploadResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, &RequestFailedError{Endpoint: EndpointUploadDocument, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setBearer(req, token)

	var out UploadResponse
	err = c.do(req, EndpointUploadDocument, &out)
	// Unblocks the writer goroutine if the transport gave up early.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListConversations(ctx context.Context, token string) ([]ConversationRecord, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/conversations", nil)
	if err != nil {
		return nil, &RequestFailedError{Endpoint: EndpointListConversations, Err: err}
	}
	setBearer(req, token)

	var out []ConversationRecord
	if err := c.do(req, EndpointListConversations, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchConversation(ctx context.Context, token, conversationID string) ([]MessageRecord, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/conversations/"+url.PathEscape(conversationID), nil)
	if err != nil {
		return nil, &RequestFailedError{Endpoint: EndpointFetchConversation, Err: err}
	}
	setBearer(req, token)

	var out []MessageRecord
	if err := c.do(req, EndpointFetchConversation, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ask sends a question. An empty conversationID is omitted from the body so
// the server starts a new conversation.
func (c *Client) Ask(ctx context.Context, token, question, conversationID string) (*AskResponse, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/ask", AskRequest{Query: question, ConversationID: conversationID})
	if err != nil {
		return nil, &RequestFailedError{Endpoint: EndpointAsk, Err: err}
	}
	setBearer(req, token)

	var out AskResponse
	if err := c.do(req, EndpointAsk, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload interface{}) (*http.Request, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, endpoint Endpoint, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestFailedError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestFailedError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("read response failed: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestFailedError{Endpoint: endpoint, Status: resp.StatusCode, Detail: detailOf(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &RequestFailedError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("parse response json failed: %w", err)}
	}
	return nil
}

func setBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// detailOf extracts a string "detail" field from an error body, if any.
func detailOf(raw []byte) string {
	var body struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if s, ok := body.Detail.(string); ok {
		return s
	}
	return ""
}
