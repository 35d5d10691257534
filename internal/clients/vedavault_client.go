// internal/clients/vedavault_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"vedavault/internal/catalog"
	"vedavault/internal/identity"
	"vedavault/internal/lending"
)

// Client is a typed client for the VedaVault API, used by the
// integration tests and by tooling that drives a running instance.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: http.DefaultClient}
}

// WithToken returns a copy of the client authenticated as the holder
// of the given session token.
func (c *Client) WithToken(token string) *Client {
	return &Client{baseURL: c.baseURL, token: token, http: c.http}
}

func (c *Client) Register(ctx context.Context, email, name, password string) (*identity.Profile, error) {
	var profile identity.Profile
	err := c.do(ctx, http.MethodPost, "/register", map[string]string{
		"email": email, "name": name, "password": password,
	}, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Login authenticates and returns a client bound to the session token
// along with the profile.
func (c *Client) Login(ctx context.Context, email, password string) (*Client, *identity.Profile, error) {
	var resp struct {
		Token   string           `json:"token"`
		Profile identity.Profile `json:"profile"`
	}
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{
		"email": email, "password": password,
	}, &resp)
	if err != nil {
		return nil, nil, err
	}
	return c.WithToken(resp.Token), &resp.Profile, nil
}

func (c *Client) CreateBook(ctx context.Context, in catalog.NewBook) (*catalog.Book, error) {
	var book catalog.Book
	if err := c.do(ctx, http.MethodPost, "/books", in, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	var book catalog.Book
	if err := c.do(ctx, http.MethodGet, "/books/"+id.String(), nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) ListBooks(ctx context.Context, filter string) ([]*catalog.Book, error) {
	path := "/books"
	if filter != "" {
		path += "?q=" + filter
	}
	var books []*catalog.Book
	if err := c.do(ctx, http.MethodGet, path, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) DeleteBook(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/books/"+id.String(), nil, nil)
}

func (c *Client) RequestBorrow(ctx context.Context, bookID uuid.UUID) (*lending.Transaction, error) {
	var t lending.Transaction
	err := c.do(ctx, http.MethodPost, "/transactions", map[string]string{
		"book_id": bookID.String(),
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, to lending.Status) (*lending.Transaction, error) {
	var t lending.Transaction
	err := c.do(ctx, http.MethodPatch, "/transactions/"+id.String(), map[string]string{
		"status": string(to),
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) ListTransactions(ctx context.Context) ([]*lending.Transaction, error) {
	var list []*lending.Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// APIError carries the status and message of a failed API call.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}
