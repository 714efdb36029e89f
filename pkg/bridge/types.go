// Package bridge implements the reply-correlation and wait engine that ties
// an outgoing question to exactly one future incoming reply from the chat
// transport. It owns the update cursor, the reply matcher, the long-poll
// loop with backoff, the blocking wait session, and the question/reply
// ledger. The transport itself (Telegram) and the tool surface (MCP) live
// outside this package and talk to it through small interfaces.
package bridge

import (
	"context"
	"time"
)

// CorrelationMode decides how an incoming message is tied back to a question.
type CorrelationMode string

const (
	// ModeStrict accepts a message only when its reply-to link references
	// the question's message id exactly.
	ModeStrict CorrelationMode = "strict"
	// ModeLoose accepts any fresh message in the chat that was sent after
	// the question (within clock-skew tolerance) and carries a higher
	// message id. Inherently racy with two outstanding questions; this is
	// a documented limitation of link-less correlation, not a bug.
	ModeLoose CorrelationMode = "loose"
)

// Question is one outgoing prompt awaiting exactly one correlated reply.
// The ID is the transport-assigned message identifier, monotonically
// increasing within the conversation.
type Question struct {
	ID        int             // message id of the sent question
	IssueTime int64           // unix seconds, transport clock
	Mode      CorrelationMode // strict or loose
	Urgent    bool            // selects the timeout policy branch
}

// MediaKind labels an attachment on an incoming message. Only a subset can
// be turned into usable reply content; the rest surface as an explanatory
// text item instead of stalling or failing the wait.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaDocument  MediaKind = "document"
	MediaVoice     MediaKind = "voice message"
	MediaAudio     MediaKind = "audio"
	MediaVideo     MediaKind = "video"
	MediaVideoNote MediaKind = "video note"
	MediaSticker   MediaKind = "sticker"
)

// Supported reports whether the attachment kind can be downloaded and
// returned as reply content.
func (k MediaKind) Supported() bool {
	return k == MediaPhoto || k == MediaDocument
}

// MediaRef points at one attachment on the transport. FileID is resolved to
// bytes lazily, only when the owning message has been accepted as the reply.
type MediaRef struct {
	Kind     MediaKind
	FileID   string
	FileName string
	MIME     string
}

// IncomingMessage is the text/media variant of an update.
type IncomingMessage struct {
	MessageID int
	ChatID    int64
	SenderID  int64
	SentAt    int64 // unix seconds, transport clock
	ReplyTo   int   // referenced message id, 0 when absent
	Text      string
	Caption   string
	Media     []MediaRef
}

// HasContent reports whether the message carries anything usable as a reply.
func (m *IncomingMessage) HasContent() bool {
	return m.Text != "" || m.Caption != "" || len(m.Media) > 0
}

// ButtonClick is the callback variant of an update: the user pressed one of
// the inline buttons attached to a previously sent question.
type ButtonClick struct {
	ID        string // opaque click identifier, must be acknowledged once
	MessageID int    // id of the message whose button was clicked
	Data      string // button payload
}

// Update is one inbound transport event. Seq is the transport-assigned
// sequence number; at most one of Message and Click is set. An update with
// neither set still advances the cursor (it was observed and consumed), it
// just can never match.
type Update struct {
	Seq     int64
	Message *IncomingMessage
	Click   *ButtonClick
}

// ContentItem is one ordered element of a reply: either text or a media
// reference, never both.
type ContentItem struct {
	Text  string
	Media *MediaRef
}

// Reply is the resolved answer to a question. Immutable once produced.
type Reply struct {
	QuestionID int
	Items      []ContentItem
}

// Transport is the slice of the chat transport the core consumes. The floor
// passed to FetchUpdates is the lowest sequence number the call may return;
// zero means no floor has been established yet.
type Transport interface {
	FetchUpdates(ctx context.Context, floor int64, wait time.Duration) ([]Update, error)
	AckButtonClick(ctx context.Context, clickID string) error
}
