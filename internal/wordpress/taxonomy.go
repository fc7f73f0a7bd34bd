package wordpress

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Category role names resolved from site slugs.
const (
	RoleAirthsCodex      = "airths_codex"
	RoleTechnologyAI     = "technology_ai"
	RoleReviewsDeepDives = "reviews_deepdives"
	RoleUncategorized    = "uncategorized"
)

// Term is a category or tag.
type Term struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Categories is the site's category set keyed by slug, plus role lookups.
type Categories struct {
	BySlug map[string]int `json:"by_slug"`
	Roles  map[string]int `json:"roles"`
}

// CommonAITags are added to Airth's posts alongside the post keywords.
var CommonAITags = []string{
	"ai-ethics", "ai-storytelling", "ai-assisted-writing",
	"ai-driven-creativity", "ai-generated-content", "ai-human-collaboration",
	"creative-ai-tools",
}

// ForAirth returns the categories for one of Airth's posts: Airth's Codex
// and Technology & AI when present, otherwise Uncategorized.
func (c *Categories) ForAirth() []int {
	var ids []int
	for _, role := range []string{RoleAirthsCodex, RoleTechnologyAI} {
		if id, ok := c.Roles[role]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		if id, ok := c.Roles[RoleUncategorized]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// roleFor maps a category slug to its role, or "" when it plays none.
func roleFor(slug string) string {
	s := strings.ToLower(slug)
	switch {
	case strings.Contains(s, "airth") || strings.Contains(s, "codex"):
		return RoleAirthsCodex
	case strings.Contains(s, "technology") || strings.Contains(s, "tech") || strings.Contains(s, "ai"):
		return RoleTechnologyAI
	case strings.Contains(s, "review") || strings.Contains(s, "deep"):
		return RoleReviewsDeepDives
	case strings.Contains(s, "uncategorized"):
		return RoleUncategorized
	}
	return ""
}

// Categories fetches up to 100 categories and resolves roles. When several
// categories match a role, the last one listed wins.
func (c *Client) Categories(ctx context.Context) (*Categories, error) {
	var terms []Term
	if err := c.getJSON(ctx, "/categories", url.Values{"per_page": {"100"}}, &terms); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	cats := &Categories{BySlug: make(map[string]int, len(terms)), Roles: make(map[string]int)}
	for _, t := range terms {
		cats.BySlug[t.Slug] = t.ID
		role := roleFor(t.Slug)
		if role == "" {
			continue
		}
		cats.Roles[role] = t.ID
	}
	c.logger.Debug("resolved categories", "count", len(terms), "roles", len(cats.Roles))
	return cats, nil
}

// FindTag returns the tag whose name matches exactly (case-insensitive).
func (c *Client) FindTag(ctx context.Context, name string) (*Term, error) {
	var terms []Term
	if err := c.getJSON(ctx, "/tags", url.Values{"search": {name}}, &terms); err != nil {
		return nil, fmt.Errorf("search tag %q: %w", name, err)
	}
	for i := range terms {
		if strings.EqualFold(terms[i].Name, name) {
			return &terms[i], nil
		}
	}
	return nil, nil
}

// CreateTag creates a tag, expecting 201.
func (c *Client) CreateTag(ctx context.Context, name string) (*Term, error) {
	var t Term
	if err := c.postJSON(ctx, "/tags", map[string]string{"name": name}, &t); err != nil {
		return nil, fmt.Errorf("create tag %q: %w", name, err)
	}
	return &t, nil
}

// EnsureTags returns ids for names, creating tags that do not exist yet.
// Blank and repeated names are skipped. Per-tag failures are logged and
// skipped so one bad tag does not block a post.
func (c *Client) EnsureTags(ctx context.Context, names []string) ([]int, error) {
	seen := make(map[string]bool, len(names))
	var ids []int
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true

		if err := ctx.Err(); err != nil {
			return ids, err
		}
		t, err := c.FindTag(ctx, name)
		if err != nil {
			if IsAuthError(err) {
				return ids, err
			}
			c.logger.Warn("tag lookup failed", "tag", name, "error", err)
			continue
		}
		if t == nil {
			t, err = c.CreateTag(ctx, name)
			if err != nil {
				if IsAuthError(err) {
					return ids, err
				}
				c.logger.Warn("tag creation failed", "tag", name, "error", err)
				continue
			}
			c.logger.Info("created tag", "tag", name, "id", t.ID)
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}
