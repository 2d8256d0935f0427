package entity

import (
	"time"

	"github.com/google/uuid"
)

// idempotencyNamespace scopes UUIDv5 ids derived from client idempotency keys.
var idempotencyNamespace = uuid.MustParse("9b7f0c52-2f4e-4c59-a7f2-3f1d8a4e6c10")

type Message struct {
	ID             string    `json:"id" firestore:"messageId"`
	ThreadID       string    `json:"thread_id" firestore:"threadId"`
	SenderID       string    `json:"sender_id" firestore:"senderId"`
	Text           string    `json:"text" firestore:"text"`
	Title          string    `json:"title,omitempty" firestore:"title,omitempty"`
	Seq            int64     `json:"seq" firestore:"seq"`
	IdempotencyKey string    `json:"idempotency_key,omitempty" firestore:"idempotencyKey,omitempty"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
}

// MessageID returns a fresh random id, or a stable one when the client sent an
// idempotency key. The same (thread, sender, key) always yields the same id.
func MessageID(threadID, senderID, idempotencyKey string) string {
	if idempotencyKey == "" {
		return uuid.New().String()
	}
	return uuid.NewSHA1(idempotencyNamespace, []byte(threadID+"\x00"+senderID+"\x00"+idempotencyKey)).String()
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func ParseSortDirection(raw string) SortDirection {
	if raw == string(SortDesc) {
		return SortDesc
	}
	return SortAsc
}

type SendReceipt struct {
	ThreadID  string    `json:"thread_id"`
	MessageID string    `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
	Duplicate bool      `json:"duplicate"`
}

type ReadReceipt struct {
	ThreadID      string    `json:"thread_id"`
	ParticipantID string    `json:"participant_id"`
	LastReadAt    time.Time `json:"last_read_at"`
}
