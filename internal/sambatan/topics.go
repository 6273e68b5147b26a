package sambatan

const (
	TopicNewParticipant = "sambatan.participant.joined"
	TopicQuotaReached   = "sambatan.quota.reached"
	TopicCompleted      = "sambatan.completed"
	TopicExpired        = "sambatan.expired"
)

// Partition key = pool_id, supaya semua event 1 pool maintain urutan.
func PartitionKey(poolID string) []byte { return []byte(poolID) }

// TopicFor maps an event type to its topic. Unknown types map to "".
func TopicFor(eventType string) string {
	switch eventType {
	case EventNewParticipant:
		return TopicNewParticipant
	case EventQuotaReached:
		return TopicQuotaReached
	case EventCompleted:
		return TopicCompleted
	case EventExpired:
		return TopicExpired
	}
	return ""
}
