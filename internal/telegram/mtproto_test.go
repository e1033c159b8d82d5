package telegram

import (
	"context"
	"strings"
	"testing"

	"github.com/gotd/td/tg"

	"github.com/Par123456/selfcursor/internal/autoreply"
	"github.com/Par123456/selfcursor/internal/config"
	apperrors "github.com/Par123456/selfcursor/internal/errors"
)

func newTestMTProto(selfID int64) *MTProto {
	g := NewMTProto(config.TelegramConfig{}, nil, nil)
	g.self = selfID
	return g
}

func TestMTProto_Incoming(t *testing.T) {
	t.Parallel()

	g := newTestMTProto(1)
	g.peers.applyEntities(tg.Entities{
		Users: map[int64]*tg.User{
			10: {ID: 10, AccessHash: 100, Username: "alice"},
			11: {ID: 11, AccessHash: 110, Bot: true},
		},
		Chats: map[int64]*tg.Chat{
			20: {ID: 20, Title: "friends"},
		},
		Channels: map[int64]*tg.Channel{
			30: {ID: 30, AccessHash: 300, Megagroup: true, Title: "super"},
			31: {ID: 31, AccessHash: 310, Broadcast: true, Title: "news"},
		},
	})

	tests := []struct {
		name   string
		msg    *tg.Message
		want   Incoming
		wantOK bool
	}{
		{
			name:   "Private incoming",
			msg:    &tg.Message{ID: 5, PeerID: &tg.PeerUser{UserID: 10}, Message: "hi"},
			want:   Incoming{Ref: MessageRef{ChatID: 10, MessageID: 5}, SenderID: 10, Text: "hi", IsPrivate: true},
			wantOK: true,
		},
		{
			name:   "Owner outgoing",
			msg:    &tg.Message{ID: 6, Out: true, PeerID: &tg.PeerUser{UserID: 10}, Message: ".afk"},
			want:   Incoming{Ref: MessageRef{ChatID: 10, MessageID: 6}, SenderID: 1, Text: ".afk", Outgoing: true, IsPrivate: true},
			wantOK: true,
		},
		{
			name: "Basic group mention",
			msg: &tg.Message{
				ID: 7, PeerID: &tg.PeerChat{ChatID: 20}, FromID: &tg.PeerUser{UserID: 10},
				Mentioned: true, Message: "@me",
			},
			want:   Incoming{Ref: MessageRef{ChatID: -20, MessageID: 7}, SenderID: 10, Text: "@me", IsGroup: true, IsMention: true},
			wantOK: true,
		},
		{
			name: "Supergroup reply",
			msg: &tg.Message{
				ID: 8, PeerID: &tg.PeerChannel{ChannelID: 30}, FromID: &tg.PeerUser{UserID: 11},
				ReplyTo: &tg.MessageReplyHeader{ReplyToMsgID: 3}, Media: &tg.MessageMediaPhoto{},
			},
			want: Incoming{
				Ref: MessageRef{ChatID: -1000000000030, MessageID: 8}, SenderID: 11, IsGroup: true, HasMedia: true,
				ReplyTo: &MessageRef{ChatID: -1000000000030, MessageID: 3},
			},
			wantOK: true,
		},
		{
			name:   "Broadcast post dropped",
			msg:    &tg.Message{ID: 9, PeerID: &tg.PeerChannel{ChannelID: 31}, Message: "news"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := tt.msg
			if h, ok := msg.ReplyTo.(*tg.MessageReplyHeader); ok {
				h.SetReplyToMsgID(h.ReplyToMsgID)
			}
			if msg.FromID != nil {
				msg.SetFromID(msg.FromID)
			}

			got, ok := g.incoming(msg)
			if ok != tt.wantOK {
				t.Fatalf("incoming() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Ref != tt.want.Ref || got.SenderID != tt.want.SenderID || got.Text != tt.want.Text ||
				got.Outgoing != tt.want.Outgoing || got.IsPrivate != tt.want.IsPrivate ||
				got.IsGroup != tt.want.IsGroup || got.IsMention != tt.want.IsMention || got.HasMedia != tt.want.HasMedia {
				t.Errorf("incoming() = %+v, want %+v", got, tt.want)
			}
			if (got.ReplyTo == nil) != (tt.want.ReplyTo == nil) ||
				(got.ReplyTo != nil && *got.ReplyTo != *tt.want.ReplyTo) {
				t.Errorf("ReplyTo = %v, want %v", got.ReplyTo, tt.want.ReplyTo)
			}
		})
	}
}

func TestMTProto_ResolveEntityFromCache(t *testing.T) {
	t.Parallel()

	g := newTestMTProto(1)
	g.peers.applyEntities(tg.Entities{
		Users: map[int64]*tg.User{11: {ID: 11, AccessHash: 1, Bot: true, Username: "helper_bot"}},
	})

	e, err := g.ResolveEntity(context.Background(), EntityQuery{ID: 11})
	if err != nil {
		t.Fatalf("ResolveEntity() unexpected error: %v", err)
	}
	if !e.IsBot || e.Kind != EntityUser || e.Username != "helper_bot" {
		t.Errorf("ResolveEntity() = %+v", e)
	}

	_, err = g.ResolveEntity(context.Background(), EntityQuery{ID: 99})
	if !apperrors.IsNotFound(err) {
		t.Errorf("unknown peer error = %v, want NotFound", err)
	}
}

func TestMTProto_NotReady(t *testing.T) {
	t.Parallel()

	g := NewMTProto(config.TelegramConfig{}, nil, nil)
	ctx := context.Background()

	if _, err := g.Send(ctx, 10, "x"); !apperrors.IsCollaborator(err) {
		t.Errorf("Send() error = %v, want collaborator error", err)
	}
	if err := g.Acknowledge(ctx, MessageRef{ChatID: 10, MessageID: 1}, "x"); !apperrors.IsCollaborator(err) {
		t.Errorf("Acknowledge() error = %v, want collaborator error", err)
	}
	if _, err := g.CaptureMedia(ctx, MessageRef{ChatID: 10, MessageID: 1}); !apperrors.IsCollaborator(err) {
		t.Errorf("CaptureMedia() error = %v, want collaborator error", err)
	}
}

func TestPromptCode(t *testing.T) {
	t.Parallel()

	g := newTestMTProto(1)
	g.codeInput = strings.NewReader(" 12345 \n")

	code, err := g.promptCode(context.Background(), nil)
	if err != nil {
		t.Fatalf("promptCode() unexpected error: %v", err)
	}
	if code != "12345" {
		t.Errorf("promptCode() = %q, want 12345", code)
	}
}

func TestSentMessageID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		upd  tg.UpdatesClass
		want int
	}{
		{name: "Short sent", upd: &tg.UpdateShortSentMessage{ID: 4}, want: 4},
		{
			name: "New message",
			upd: &tg.Updates{Updates: []tg.UpdateClass{
				&tg.UpdateMessageID{ID: 3, RandomID: 1},
				&tg.UpdateNewMessage{Message: &tg.Message{ID: 9}},
			}},
			want: 9,
		},
		{
			name: "Only message ID",
			upd:  &tg.Updates{Updates: []tg.UpdateClass{&tg.UpdateMessageID{ID: 3, RandomID: 1}}},
			want: 3,
		},
		{name: "Nothing", upd: &tg.UpdatesTooLong{}, want: 0},
	}
	for _, tt := range tests {
		if got := sentMessageID(tt.upd); got != tt.want {
			t.Errorf("%s: sentMessageID() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestParseSavedMedia(t *testing.T) {
	t.Parallel()

	if id, err := parseSavedMedia("saved:15"); err != nil || id != 15 {
		t.Errorf("parseSavedMedia(saved:15) = (%d, %v)", id, err)
	}
	for _, bad := range []string{"photo:abc", "saved:", "saved:-1", "saved:x"} {
		if _, err := parseSavedMedia(autoreply.MediaRef(bad)); !apperrors.IsValidation(err) {
			t.Errorf("parseSavedMedia(%q) error = %v, want validation error", bad, err)
		}
	}
}

func TestInputMediaOf(t *testing.T) {
	t.Parallel()

	photo := &tg.MessageMediaPhoto{Photo: &tg.Photo{ID: 1, AccessHash: 2, FileReference: []byte{3}}}
	got, err := inputMediaOf(photo)
	if err != nil {
		t.Fatalf("inputMediaOf(photo) unexpected error: %v", err)
	}
	in, ok := got.(*tg.InputMediaPhoto)
	if !ok {
		t.Fatalf("inputMediaOf(photo) = %T", got)
	}
	if p, ok := in.ID.(*tg.InputPhoto); !ok || p.ID != 1 || p.AccessHash != 2 {
		t.Errorf("InputPhoto = %+v", in.ID)
	}

	doc := &tg.MessageMediaDocument{Document: &tg.Document{ID: 5, AccessHash: 6}}
	if _, err := inputMediaOf(doc); err != nil {
		t.Errorf("inputMediaOf(document) unexpected error: %v", err)
	}

	if _, err := inputMediaOf(&tg.MessageMediaGeo{}); !apperrors.IsValidation(err) {
		t.Errorf("inputMediaOf(geo) error = %v, want validation error", err)
	}
	if _, err := inputMediaOf(nil); !apperrors.IsValidation(err) {
		t.Errorf("inputMediaOf(nil) error = %v, want validation error", err)
	}
}
