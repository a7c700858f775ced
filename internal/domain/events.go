package domain

import "time"

// Lifecycle event types published on the signal bus whenever an instruction
// mutates a topic.
const (
	EventTopicCreated = "topic.created"
	EventCommitted    = "commitment.committed"
	EventRevealed     = "commitment.revealed"
	EventFinalized    = "topic.finalized"
	EventSettled      = "topic.settled"
)

// TopicEventsChannel is the pub/sub channel carrying all lifecycle events.
const TopicEventsChannel = "ch:topic"

// TopicEventsStream is the bounded durable journal of the same events,
// readable for replay.
const TopicEventsStream = "stream:topic-events"

// Event is the JSON payload published for each lifecycle transition.
// Participant is set for commit/reveal events and zero otherwise.
type Event struct {
	Type        string      `json:"type"`
	TopicID     uint64      `json:"topic_id"`
	Symbol      string      `json:"symbol,omitempty"`
	Status      TopicStatus `json:"status"`
	Participant Identity    `json:"participant,omitzero"`
	At          time.Time   `json:"at"`
}
