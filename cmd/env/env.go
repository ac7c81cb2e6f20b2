package env

// Prefix is the prefix of every fxquotes environment variable
const Prefix = "FXQUOTES_"

const (
	// NATSURLSuffix overrides the configured NATS url
	NATSURLSuffix = "NATS_URL"

	// WebhookURLSuffix overrides the configured webhook url
	WebhookURLSuffix = "WEBHOOK_URL"

	// FailureWebhookURLSuffix overrides the configured failure webhook url
	FailureWebhookURLSuffix = "FAILURE_WEBHOOK_URL"
)
