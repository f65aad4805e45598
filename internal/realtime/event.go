// Package realtime publishes notifications about new messages to the
// external broadcaster. The broadcaster is an opaque sink: this service
// only ever publishes, it never terminates subscriber connections.
package realtime

// Event is the envelope delivered to the broadcaster. Channel follows the
// "chat.<chat_id>" convention clients subscribe to, Event names what
// happened and Payload carries the resource itself.
type Event struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// EventMessageSent is emitted once per persisted message.
const EventMessageSent = "message-sent"
