package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fxpiphub/signalhub/internal/pkg/cache"
	"github.com/fxpiphub/signalhub/internal/pkg/env"
)

const postsCacheTTL = 10 * time.Minute

// Category slugs the frontend knows about. Brokers and prop firms are
// ordinary WordPress posts filed under fixed categories.
const (
	CategoryBrokers   = "brokers"
	CategoryPropFirms = "prop-firms"
)

// Post is the trimmed record shape the React frontend consumes. The
// WordPress REST schema itself is not modeled beyond these fields.
type Post struct {
	ID            int    `json:"id"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Excerpt       string `json:"excerpt"`
	Content       string `json:"content"`
	FeaturedImage string `json:"featured_image,omitempty"`
	Date          string `json:"date"`
}

// Client reads published content from the WordPress REST API with a redis
// TTL cache in front.
type Client struct {
	APIBaseURL string

	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		APIBaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func NewClientFromEnv() *Client {
	return NewClient(env.GetEnv("WORDPRESS_API_URL", ""))
}

// GetPosts returns the most recent posts, optionally filtered by category
// slug. Results are served from the cache when fresh.
func (c *Client) GetPosts(ctx context.Context, categorySlug string, limit int) ([]Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	cacheKey := fmt.Sprintf("content:posts:%s:%d", categorySlug, limit)
	var cached []Post
	if err := cache.GetJSON(cacheKey, &cached); err == nil {
		return cached, nil
	}

	posts, err := c.fetchPosts(ctx, categorySlug, limit)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(cacheKey, posts, postsCacheTTL); err != nil {
		log.Printf("[content] failed to cache %s: %v", cacheKey, err)
	}
	return posts, nil
}

// InvalidateCategory drops the cached lists for a category so the next read
// refetches from WordPress.
func (c *Client) InvalidateCategory(categorySlug string) {
	for _, limit := range []int{20, 50, 100} {
		_ = cache.Delete(fmt.Sprintf("content:posts:%s:%d", categorySlug, limit))
	}
}

type wpRendered struct {
	Rendered string `json:"rendered"`
}

type wpPost struct {
	ID       int        `json:"id"`
	Slug     string     `json:"slug"`
	Date     string     `json:"date"`
	Title    wpRendered `json:"title"`
	Excerpt  wpRendered `json:"excerpt"`
	Content  wpRendered `json:"content"`
	Embedded struct {
		FeaturedMedia []struct {
			SourceURL string `json:"source_url"`
		} `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

func (c *Client) fetchPosts(ctx context.Context, categorySlug string, limit int) ([]Post, error) {
	if c.APIBaseURL == "" {
		return nil, fmt.Errorf("wordpress api url is not configured")
	}

	u, err := url.Parse(c.APIBaseURL + "/wp-json/wp/v2/posts")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("per_page", fmt.Sprintf("%d", limit))
	q.Set("_embed", "wp:featuredmedia")
	if categorySlug != "" {
		id, err := c.resolveCategoryID(ctx, categorySlug)
		if err != nil {
			return nil, err
		}
		q.Set("categories", fmt.Sprintf("%d", id))
	}
	u.RawQuery = q.Encode()

	var raw []wpPost
	if err := c.getJSON(ctx, u.String(), &raw); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(raw))
	for _, p := range raw {
		post := Post{
			ID:      p.ID,
			Slug:    p.Slug,
			Date:    p.Date,
			Title:   p.Title.Rendered,
			Excerpt: p.Excerpt.Rendered,
			Content: p.Content.Rendered,
		}
		if len(p.Embedded.FeaturedMedia) > 0 {
			post.FeaturedImage = p.Embedded.FeaturedMedia[0].SourceURL
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (c *Client) resolveCategoryID(ctx context.Context, slug string) (int, error) {
	cacheKey := "content:category:" + slug
	var cached int
	if err := cache.GetJSON(cacheKey, &cached); err == nil && cached > 0 {
		return cached, nil
	}

	var cats []struct {
		ID   int    `json:"id"`
		Slug string `json:"slug"`
	}
	u := fmt.Sprintf("%s/wp-json/wp/v2/categories?slug=%s", c.APIBaseURL, url.QueryEscape(slug))
	if err := c.getJSON(ctx, u, &cats); err != nil {
		return 0, err
	}
	if len(cats) == 0 {
		return 0, fmt.Errorf("wordpress category %q not found", slug)
	}

	// Category ids effectively never change; cache them for longer.
	if err := cache.SetJSON(cacheKey, cats[0].ID, 24*time.Hour); err != nil {
		log.Printf("[content] failed to cache %s: %v", cacheKey, err)
	}
	return cats[0].ID, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wordpress request failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
