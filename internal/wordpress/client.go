// Package wordpress is a small client for the WordPress REST API (wp/v2),
// authenticated with an application password.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultAPIPath is appended to the site URL when no API path is configured.
const DefaultAPIPath = "/wp-json/wp/v2"

// Post statuses.
const (
	StatusDraft   = "draft"
	StatusPublish = "publish"
)

// APIError is returned for unexpected HTTP status codes.
type APIError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// IsAuthError reports whether err is a 401 or 403 from WordPress.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

// Options configures a Client.
type Options struct {
	SiteURL     string
	APIPath     string
	User        string
	AppPassword string
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Client talks to one WordPress site.
type Client struct {
	site    string
	apiBase string
	user    string
	pass    string
	http    *http.Client
	logger  *slog.Logger
}

// New returns a client for the site described by opts.
func New(opts Options) (*Client, error) {
	site := strings.TrimRight(opts.SiteURL, "/")
	if site == "" {
		return nil, errors.New("wordpress: site url is required")
	}
	if _, err := url.ParseRequestURI(site); err != nil {
		return nil, fmt.Errorf("wordpress: invalid site url %q: %w", opts.SiteURL, err)
	}
	apiPath := opts.APIPath
	if apiPath == "" {
		apiPath = DefaultAPIPath
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		site:    site,
		apiBase: site + "/" + strings.Trim(apiPath, "/"),
		user:    strings.ToLower(opts.User),
		pass:    opts.AppPassword,
		http:    hc,
		logger:  logger,
	}, nil
}

// APIBase returns the resolved REST base URL.
func (c *Client) APIBase() string { return c.apiBase }

func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	if c.user != "" && c.pass != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		excerpt := string(data)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return &APIError{Method: method, URL: rawURL, Status: resp.StatusCode, Body: excerpt}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", rawURL, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.apiBase + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return c.do(ctx, http.MethodGet, u, nil, "", http.StatusOK, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(b), "application/json", http.StatusCreated, out)
}

// SiteInfo is the subset of the REST index we use.
type SiteInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Ping fetches the REST index of the site.
func (c *Client) Ping(ctx context.Context) (*SiteInfo, error) {
	var info SiteInfo
	if err := c.do(ctx, http.MethodGet, c.site+"/wp-json", nil, "", http.StatusOK, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Me returns the authenticated user, proving the credentials work.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.getJSON(ctx, "/users/me", url.Values{"context": {"edit"}}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// User is an authenticated WordPress user.
type User struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`
}

// CanPublish reports whether the user holds the publish_posts capability.
func (u *User) CanPublish() bool {
	return u.Capabilities["publish_posts"]
}

// Post is a post to create.
type Post struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Status        string `json:"status"`
	Excerpt       string `json:"excerpt,omitempty"`
	Categories    []int  `json:"categories,omitempty"`
	Tags          []int  `json:"tags,omitempty"`
	FeaturedMedia int    `json:"featured_media,omitempty"`
}

// CreatedPost is the result of CreatePost.
type CreatedPost struct {
	ID     int    `json:"id"`
	Link   string `json:"link"`
	Status string `json:"status"`
}

// CreatePost creates a post. An empty status becomes a draft.
func (c *Client) CreatePost(ctx context.Context, p Post) (*CreatedPost, error) {
	if p.Status == "" {
		p.Status = StatusDraft
	}
	c.logger.Info("creating wordpress post", "title", p.Title, "status", p.Status)

	var created CreatedPost
	if err := c.postJSON(ctx, "/posts", p, &created); err != nil {
		c.logger.Error("post creation failed", "title", p.Title, "error", err)
		return nil, err
	}
	c.logger.Info("created wordpress post", "id", created.ID, "link", created.Link)
	return &created, nil
}

// Media is an uploaded attachment.
type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
}

var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// UploadMedia uploads a file to the media library.
func (c *Client) UploadMedia(ctx context.Context, path, title string) (*Media, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	ctype, ok := mediaTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		ctype = "application/octet-stream"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": name})}
	hdr["Content-Type"] = []string{ctype}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if title != "" {
		if err := mw.WriteField("title", title); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	c.logger.Info("uploading media", "file", name, "bytes", buf.Len())
	var m Media
	if err := c.do(ctx, http.MethodPost, c.apiBase+"/media", &buf, mw.FormDataContentType(), http.StatusCreated, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
