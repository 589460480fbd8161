package models

// WebhookPayload mirrors the subset of Meta's WhatsApp Cloud API webhook callbacks
// needed to answer farmer requests.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry represents one entry payload within the webhook body.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange captures the actual notification contents.
type WebhookChange struct {
	Value WebhookValue `json:"value"`
	Field string       `json:"field"`
}

// WebhookValue holds the inbound messages; delivery statuses are ignored.
type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []InboundMessage `json:"messages"`
}

// InboundMessage is a message sent by a farmer.
type InboundMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *TextContent        `json:"text,omitempty"`
	Interactive *InteractiveContent `json:"interactive,omitempty"`
}

// TextContent contains text messages body.
type TextContent struct {
	Body string `json:"body"`
}

// InteractiveContent represents button replies.
type InteractiveContent struct {
	Type        string       `json:"type"`
	ButtonReply *ButtonReply `json:"button_reply,omitempty"`
}

// ButtonReply models a pressed button payload.
type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
