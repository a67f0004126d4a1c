package remotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/harborpoint/leadsync/internal/entity"
	"github.com/harborpoint/leadsync/internal/usecase"
)

// ErrNotFound is the transport-level sentinel; the client wraps it in a
// usecase.DomainError so callers can match either way.
var ErrNotFound = errors.New("lead not found in remote store")

// Client speaks to the authoritative lead API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) List(ctx context.Context) ([]*entity.Lead, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/leads", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportErr("list", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusErr("list", resp)
	}

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode lead list: %w", err)
	}
	leads := make([]*entity.Lead, 0, len(out.Leads))
	for _, dto := range out.Leads {
		leads = append(leads, dto.toEntity())
	}
	return leads, nil
}

func (c *Client) Get(ctx context.Context, id string) (*entity.Lead, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/leads/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportErr("get", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, c.notFound(id)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusErr("get", resp)
	}

	var dto leadDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode lead %s: %w", id, err)
	}
	return dto.toEntity(), nil
}

func (c *Client) Create(ctx context.Context, lead *entity.Lead) (*entity.Lead, error) {
	body, err := json.Marshal(fromEntity(lead))
	if err != nil {
		return nil, fmt.Errorf("marshal lead: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/leads", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportErr("create", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusErr("create", resp)
	}

	var dto leadDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode created lead: %w", err)
	}
	return dto.toEntity(), nil
}

func (c *Client) Put(ctx context.Context, id string, lead *entity.Lead) (*entity.Lead, error) {
	body, err := json.Marshal(fromEntity(lead))
	if err != nil {
		return nil, fmt.Errorf("marshal lead: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/leads/"+id, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportErr("put", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, c.notFound(id)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusErr("put", resp)
	}

	var dto leadDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode updated lead %s: %w", id, err)
	}
	return dto.toEntity(), nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/leads/"+id, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportErr("delete", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return c.notFound(id)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusErr("delete", resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Ping checks reachability for the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/leads", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("remote store unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	return req, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) notFound(id string) error {
	return &usecase.DomainError{
		Code:    usecase.CodeNotFound,
		Message: fmt.Sprintf("%v: %s", ErrNotFound, id),
	}
}

func (c *Client) transportErr(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &usecase.TechnicalError{
			Code:    usecase.CodeTimeout,
			Message: fmt.Sprintf("remote store %s timed out: %v", op, err),
		}
	}
	return &usecase.TechnicalError{
		Code:    usecase.CodeRemoteError,
		Message: fmt.Sprintf("remote store %s failed: %v", op, err),
	}
}

func (c *Client) statusErr(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &usecase.TechnicalError{
		Code:    usecase.CodeRemoteError,
		Message: fmt.Sprintf("remote store %s rejected (status %d): %s", op, resp.StatusCode, string(body)),
	}
}
