// Package telegram connects the self-bot to Telegram. Two backends implement
// the same Gateway: an MTProto user session (gotd) and a Bot API business
// connection (go-telegram/bot).
package telegram

import (
	"context"
	"fmt"

	"github.com/Par123456/selfcursor/internal/autoreply"
)

// MessageRef identifies one message. ChatID uses the Bot API marking:
// users are positive, basic groups are negated and channels/supergroups
// are offset by -1000000000000.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Incoming is a transport-neutral view of a received message.
type Incoming struct {
	Ref      MessageRef
	SenderID int64
	Text     string

	// Outgoing is set for messages written by the owner.
	Outgoing bool
	// Control marks messages addressed to the bot itself rather than to the
	// owner's account. Only the Bot API backend produces them.
	Control bool

	IsPrivate bool
	IsGroup   bool
	IsMention bool
	HasMedia  bool

	// ReplyTo is the message this one answers, if any. ReplyToSenderID is
	// filled when the backend knows the author without another request.
	ReplyTo         *MessageRef
	ReplyToSenderID int64
}

// Handler receives every incoming message.
type Handler func(ctx context.Context, msg Incoming)

// EntityKind classifies a resolved peer.
type EntityKind int

const (
	EntityUser EntityKind = iota
	EntityChat
	EntityChannel
)

func (k EntityKind) String() string {
	switch k {
	case EntityUser:
		return "user"
	case EntityChat:
		return "chat"
	case EntityChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// EntityQuery looks a peer up by marked ID or by username. Username wins
// when both are set.
type EntityQuery struct {
	ID       int64
	Username string
}

func (q EntityQuery) String() string {
	if q.Username != "" {
		return "@" + q.Username
	}
	return fmt.Sprintf("%d", q.ID)
}

// Entity is a resolved user, group or channel.
type Entity struct {
	ID       int64
	Kind     EntityKind
	IsBot    bool
	Username string
	Title    string
}

// Gateway is the messaging surface the bot runs on.
type Gateway interface {
	// Run connects, authorizes and delivers messages to handle until ctx
	// is cancelled.
	Run(ctx context.Context, handle Handler) error
	// OwnerID is the account the bot acts for. It is known once Run has
	// authorized.
	OwnerID() int64

	Send(ctx context.Context, chatID int64, text string) (MessageRef, error)
	Reply(ctx context.Context, to MessageRef, text string) (MessageRef, error)
	ReplyMedia(ctx context.Context, to MessageRef, media autoreply.MediaRef) (MessageRef, error)
	// Acknowledge answers an owner command, editing it in place where the
	// backend allows that.
	Acknowledge(ctx context.Context, command MessageRef, text string) error

	ResolveEntity(ctx context.Context, q EntityQuery) (Entity, error)
	MessageAuthor(ctx context.Context, ref MessageRef) (int64, error)
	// CaptureMedia stores the media of source and returns a handle that
	// ReplyMedia accepts later.
	CaptureMedia(ctx context.Context, source MessageRef) (autoreply.MediaRef, error)
}

const channelIDOffset int64 = -1000000000000

// UserChatID, ChatChatID and ChannelChatID convert raw MTProto IDs into
// marked chat IDs.
func UserChatID(id int64) int64    { return id }
func ChatChatID(id int64) int64    { return -id }
func ChannelChatID(id int64) int64 { return channelIDOffset - id }

// SplitChatID is the inverse of the marking functions.
func SplitChatID(chatID int64) (EntityKind, int64) {
	switch {
	case chatID > 0:
		return EntityUser, chatID
	case chatID < channelIDOffset:
		return EntityChannel, channelIDOffset - chatID
	default:
		return EntityChat, -chatID
	}
}
