package sambatan

import "testing"

func TestTopicFor(t *testing.T) {
	cases := map[string]string{
		EventNewParticipant: TopicNewParticipant,
		EventQuotaReached:   TopicQuotaReached,
		EventCompleted:      TopicCompleted,
		EventExpired:        TopicExpired,
		"something.else":    "",
	}
	for eventType, want := range cases {
		if got := TopicFor(eventType); got != want {
			t.Errorf("TopicFor(%q) = %q, want %q", eventType, got, want)
		}
	}
}

func TestPartitionKey(t *testing.T) {
	if got := string(PartitionKey("pool-1")); got != "pool-1" {
		t.Fatalf("partition key must be the pool id, got %q", got)
	}
}
