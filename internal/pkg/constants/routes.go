package constants

// Static route constants
const (
	APIRoute = "/api"

	StripeWebhookRoute      = "/webhooks/stripe"
	SubscriptionStatusRoute = "/signals/subscription"
	PostsRoute              = "/posts"
	BrokersRoute            = "/brokers"
	PropFirmsRoute          = "/prop-firms"
	AdminWebhookEventsRoute = "/admin/webhook-events"
	AdminWebhookStatsRoute  = "/admin/webhook-stats"
	HealthRoute             = "/healthz"
)
