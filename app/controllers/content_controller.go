package controllers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fxpiphub/signalhub/internal/pkg/content"
)

var contentClient *content.Client

// InitializeContentController wires the WordPress content client.
func InitializeContentController(client *content.Client) {
	contentClient = client
}

// HandlePosts serves the latest articles.
func HandlePosts(c *fiber.Ctx) error {
	return servePosts(c, "")
}

// HandleBrokers serves broker review pages.
func HandleBrokers(c *fiber.Ctx) error {
	return servePosts(c, content.CategoryBrokers)
}

// HandlePropFirms serves prop-firm review pages.
func HandlePropFirms(c *fiber.Ctx) error {
	return servePosts(c, content.CategoryPropFirms)
}

// HandleContentRefresh drops the cached post lists for a category so the next
// read refetches from WordPress. Used after publishing; an empty category
// refreshes the uncategorized article lists.
func HandleContentRefresh(c *fiber.Ctx) error {
	category := strings.TrimSpace(c.Query("category"))
	switch category {
	case "", content.CategoryBrokers, content.CategoryPropFirms:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown category"})
	}

	contentClient.InvalidateCategory(category)
	return c.JSON(fiber.Map{"invalidated": category})
}

func servePosts(c *fiber.Ctx, category string) error {
	posts, err := contentClient.GetPosts(c.Context(), category, c.QueryInt("limit", 20))
	if err != nil {
		log.Printf("[content] fetching %q posts failed: %v", category, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "content_unavailable"})
	}
	return c.JSON(fiber.Map{"posts": posts})
}
