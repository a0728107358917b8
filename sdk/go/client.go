package rotasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Rotaline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. baseURL includes the API base path, e.g.
// http://127.0.0.1:8080/v0.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// RotaRow is one person's week; Days[0] is Monday.
type RotaRow struct {
	PK   int64
	User string
	Days [7]string
}

func (r *RotaRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["pk"]; ok {
		if err := json.Unmarshal(v, &r.PK); err != nil {
			return err
		}
	}
	if v, ok := raw["user"]; ok {
		if err := json.Unmarshal(v, &r.User); err != nil {
			return err
		}
	}
	for i := range r.Days {
		if v, ok := raw[fmt.Sprintf("%d_r", i+1)]; ok {
			if err := json.Unmarshal(v, &r.Days[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

type Activity struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s body=%s", e.StatusCode, e.Code, e.Body)
}

// Login exchanges credentials for a bearer token and keeps it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]any{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "auth/login", body, &resp); err != nil {
		return "", err
	}
	c.BearerToken = resp.Token
	return resp.Token, nil
}

// Rota returns the week containing date for scope. A zero date asks for the current week.
func (c *Client) Rota(ctx context.Context, scope string, date time.Time) ([]RotaRow, error) {
	q := url.Values{}
	if scope != "" {
		q.Set("scope", scope)
	}
	if !date.IsZero() {
		q.Set("year", fmt.Sprint(date.Year()))
		q.Set("month", fmt.Sprint(int(date.Month())))
		q.Set("day", fmt.Sprint(date.Day()))
	}
	endpoint := "rota"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var rows []RotaRow
	err := c.do(ctx, http.MethodGet, endpoint, nil, &rows)
	return rows, err
}

// EditRota assigns activityID to username on date and returns the server's confirmation.
func (c *Client) EditRota(ctx context.Context, date time.Time, activityID int64, username string) (string, error) {
	endpoint := fmt.Sprintf("rota/edit/%d/%d/%d/%d/%s", date.Year(), int(date.Month()), date.Day(), activityID, url.PathEscape(username))
	var msg string
	err := c.do(ctx, http.MethodPost, endpoint, nil, &msg)
	return msg, err
}

func (c *Client) Activities(ctx context.Context) ([]Activity, error) {
	var resp []Activity
	err := c.do(ctx, http.MethodGet, "rota/activities", nil, &resp)
	return resp, err
}

func (c *Client) Users(ctx context.Context) ([]User, error) {
	var resp []User
	err := c.do(ctx, http.MethodGet, "users", nil, &resp)
	return resp, err
}

func (c *Client) Companies(ctx context.Context) ([]Company, error) {
	var resp []Company
	err := c.do(ctx, http.MethodGet, "companies", nil, &resp)
	return resp, err
}

// out may be a *string, in which case the raw body is stored.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
		}
		return apiErr
	}
	if s, ok := out.(*string); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		*s = string(b)
		return nil
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
