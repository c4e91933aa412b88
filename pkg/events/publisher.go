package events

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"
)

// Message is the payload published for engagement events.
type Message struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	To        string `json:"to"`
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id,omitempty"`
}

// NotificationSubject is the per-recipient subject notifications go out on.
func NotificationSubject(userID string) string {
	return "notifications." + userID
}

// Publisher sends engagement events to NATS. A nil Publisher, or one whose
// broker was unreachable at startup, silently drops publishes: the API keeps
// working without a broker.
type Publisher struct {
	conn *nats.Conn
}

// Connect dials NATS. An empty URL or a failed dial yields an inert
// publisher.
func Connect(url string) *Publisher {
	if url == "" {
		log.Println("NATS_URL not set, event publishing disabled.")
		return &Publisher{}
	}
	nc, err := nats.Connect(url)
	if err != nil {
		log.Printf("Unable to connect to NATS at %s: %v, event publishing disabled.", url, err)
		return &Publisher{}
	}
	log.Println("Successfully connected to NATS!")
	return &Publisher{conn: nc}
}

// Publish sends msg to subject. Failures are logged, never returned; events
// are best-effort and must not fail the request that produced them.
func (p *Publisher) Publish(subject string, msg Message) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Unable to encode event for %s: %v", subject, err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		log.Printf("Unable to publish event to %s: %v", subject, err)
	}
}

// Close releases the connection.
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
