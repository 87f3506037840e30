package events

// Topic constants for domain events emitted by checkout.
const (
	TopicCheckoutCompleted          = "checkout.completed"
	TopicCheckoutPaymentCompensated = "checkout.payment_compensated"
)

// DefaultTopics returns the canonical list of checkout topics.
func DefaultTopics() []string {
	return []string{
		TopicCheckoutCompleted,
		TopicCheckoutPaymentCompensated,
	}
}
