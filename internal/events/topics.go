package events

// Topic constants for domain events emitted by the quoting service.
const (
	TopicQuoteCreated       = "quote.created"
	TopicQuoteUpdated       = "quote.updated"
	TopicQuoteStatusChanged = "quote.status_changed"
	TopicQuotePdfGenerated  = "quote.pdf_generated"
	TopicQuoteEmailSent     = "quote.email_sent"
)

// DefaultTopics returns the canonical list of topics emitted by the service.
func DefaultTopics() []string {
	return []string{
		TopicQuoteCreated,
		TopicQuoteUpdated,
		TopicQuoteStatusChanged,
		TopicQuotePdfGenerated,
		TopicQuoteEmailSent,
	}
}
