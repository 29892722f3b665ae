package storage

import "time"

// TicketStatus is the lifecycle state of a user's support ticket. The status
// cycles open -> resolved -> open; neither state is terminal.
type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketResolved TicketStatus = "resolved"
)

// UserRecord is the canonical per-user state. One record exists per end-user,
// created lazily on first contact and never hard-deleted; banning is a soft
// flag. The ID is immutable once created.
type UserRecord struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	// Username carries the "@handle" form, or "-" when the user has none.
	Username string `json:"username"`
	// State mirrors the transport's chat-membership status (member, kicked, left).
	State    string `json:"state"`
	IsBanned bool   `json:"is_banned"`

	LanguageCode string `json:"language_code,omitempty"`

	TicketStatus      TicketStatus `json:"ticket_status"`
	AwaitingReply     bool         `json:"awaiting_reply"`
	OperatorReplied   bool         `json:"operator_replied"`
	LastUserMessageAt *time.Time   `json:"last_user_message_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`

	// MessageThreadID is the durable forum-topic handle on the operator side.
	// Assigned at most once, unless the topic becomes invalid and has to be
	// recreated.
	MessageThreadID *int `json:"message_thread_id"`

	MessageSilentID   *int `json:"message_silent_id"`
	MessageSilentMode bool `json:"message_silent_mode"`

	// PanelMessageID points at the operator control panel message, if any.
	PanelMessageID *int `json:"panel_message_id"`
}

// NewUserRecord returns a record with the defaults applied on first contact.
func NewUserRecord(id int64, fullName, username string) *UserRecord {
	if username == "" {
		username = "-"
	}
	return &UserRecord{
		ID:           id,
		FullName:     fullName,
		Username:     username,
		State:        "member",
		TicketStatus: TicketOpen,
		CreatedAt:    time.Now().UTC(),
	}
}

// AttachmentKind enumerates the supported FAQ attachment media kinds.
type AttachmentKind string

const (
	AttachmentPhoto     AttachmentKind = "photo"
	AttachmentVideo     AttachmentKind = "video"
	AttachmentDocument  AttachmentKind = "document"
	AttachmentAnimation AttachmentKind = "animation"
	AttachmentAudio     AttachmentKind = "audio"
	AttachmentVoice     AttachmentKind = "voice"
	AttachmentVideoNote AttachmentKind = "video_note"
)

// Valid reports whether the kind is one of the closed set.
func (k AttachmentKind) Valid() bool {
	switch k {
	case AttachmentPhoto, AttachmentVideo, AttachmentDocument,
		AttachmentAnimation, AttachmentAudio, AttachmentVoice, AttachmentVideoNote:
		return true
	}
	return false
}

// Attachment is a media reference attached to an FAQ entry.
type Attachment struct {
	Kind    AttachmentKind `json:"type"`
	FileID  string         `json:"file_id"`
	Caption string         `json:"caption,omitempty"`
}

// FAQItem is a single question entry shown to users.
type FAQItem struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments"`
}
