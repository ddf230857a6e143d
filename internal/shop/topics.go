package shop

const (
	TopicOrderFinalized = "shop.order.finalized"
)

// Partition key = order code, so events for one order keep their order.
func PartitionKey(orderCode string) []byte { return []byte(orderCode) }
