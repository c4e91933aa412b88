package events

import "testing"

func TestNotificationSubject(t *testing.T) {
	if got := NotificationSubject("42"); got != "notifications.42" {
		t.Fatalf("subject = %q, want notifications.42", got)
	}
}

func TestInertPublisherIsSafe(t *testing.T) {
	// No URL configured: publishes must be silently dropped, not panic.
	p := Connect("")
	p.Publish(NotificationSubject("1"), Message{Type: "post_like", From: "2", To: "1"})
	p.Close()

	// A nil publisher behaves the same.
	var nilPub *Publisher
	nilPub.Publish("subject", Message{})
	nilPub.Close()
}
