package telegram

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	boltstor "github.com/gotd/contrib/bbolt"
	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/contrib/middleware/ratelimit"
	"github.com/gotd/td/crypto"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/updates"
	"github.com/gotd/td/tg"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Par123456/selfcursor/internal/autoreply"
	"github.com/Par123456/selfcursor/internal/config"
	apperrors "github.com/Par123456/selfcursor/internal/errors"
)

// savedMediaPrefix marks media handles that point into Saved Messages.
const savedMediaPrefix = "saved:"

// MTProto drives the owner's own account through a user session.
type MTProto struct {
	cfg       config.TelegramConfig
	log       *slog.Logger
	zap       *zap.Logger
	codeInput io.Reader

	peers *peerCache

	mu     sync.RWMutex
	api    *tg.Client
	sender *message.Sender
	self   int64
}

// NewMTProto prepares an MTProto gateway. Nothing connects until Run.
func NewMTProto(cfg config.TelegramConfig, logger *slog.Logger, zapLog *zap.Logger) *MTProto {
	if logger == nil {
		logger = slog.Default()
	}
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &MTProto{
		cfg:       cfg,
		log:       logger.With("component", "mtproto"),
		zap:       zapLog,
		codeInput: os.Stdin,
		peers:     newPeerCache(),
	}
}

// Run logs in if the session needs it and processes updates until ctx is
// cancelled. The login code is read from standard input.
func (g *MTProto) Run(ctx context.Context, handle Handler) error {
	if err := os.MkdirAll(filepath.Dir(g.cfg.SessionPath), 0o700); err != nil {
		return errors.Wrap(err, "create session dir")
	}

	statePath := g.cfg.UpdatesStatePath
	if statePath == "" {
		statePath = filepath.Join(filepath.Dir(g.cfg.SessionPath), "updates.bolt.db")
	}
	stateDB, err := bbolt.Open(statePath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return errors.Wrap(err, "open updates state")
	}
	defer func() {
		if err := stateDB.Close(); err != nil {
			g.log.Error("Failed to close updates state", "error", err)
		}
	}()

	dispatcher := tg.NewUpdateDispatcher()
	recovery := updates.New(updates.Config{
		Handler: dispatcher,
		Logger:  g.zap.Named("updates"),
		Storage: boltstor.NewStateStorage(stateDB),
	})

	waiter := floodwait.NewWaiter().WithCallback(func(_ context.Context, wait floodwait.FloodWait) {
		g.log.Warn("Flood wait", "duration", wait.Duration)
	})

	client := telegram.NewClient(g.cfg.APIID, g.cfg.APIHash, telegram.Options{
		Logger:         g.zap,
		SessionStorage: &telegram.FileSessionStorage{Path: g.cfg.SessionPath},
		UpdateHandler:  recovery,
		Middlewares: []telegram.Middleware{
			waiter,
			ratelimit.New(rate.Every(g.cfg.RateLimit), g.cfg.RateBurst),
		},
	})
	api := client.API()

	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		g.dispatch(ctx, e, u.Message, handle)
		return nil
	})
	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		g.dispatch(ctx, e, u.Message, handle)
		return nil
	})

	flow := auth.NewFlow(
		auth.Constant(g.cfg.Phone, g.cfg.Password, auth.CodeAuthenticatorFunc(g.promptCode)),
		auth.SendCodeOptions{},
	)

	return waiter.Run(ctx, func(ctx context.Context) error {
		return client.Run(ctx, func(ctx context.Context) error {
			if err := client.Auth().IfNecessary(ctx, flow); err != nil {
				return errors.Wrap(err, "auth")
			}

			self, err := client.Self(ctx)
			if err != nil {
				return errors.Wrap(err, "self")
			}
			g.peers.putUser(self)

			g.mu.Lock()
			g.api = api
			g.sender = message.NewSender(api)
			g.self = self.ID
			g.mu.Unlock()

			g.log.Info("Logged in", "user_id", self.ID, "username", self.Username)

			return recovery.Run(ctx, api, self.ID, updates.AuthOptions{
				IsBot: self.Bot,
				OnStart: func(context.Context) {
					g.log.Info("Listening for updates")
				},
			})
		})
	})
}

func (g *MTProto) promptCode(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	fmt.Fprint(os.Stderr, "Enter the login code Telegram sent you: ")
	code, err := bufio.NewReader(g.codeInput).ReadString('\n')
	if err != nil && code == "" {
		return "", errors.Wrap(err, "read code")
	}
	return strings.TrimSpace(code), nil
}

func (g *MTProto) dispatch(ctx context.Context, e tg.Entities, msg tg.MessageClass, handle Handler) {
	g.peers.applyEntities(e)

	m, ok := msg.(*tg.Message)
	if !ok {
		return
	}
	in, ok := g.incoming(m)
	if !ok {
		return
	}
	handle(ctx, in)
}

// OwnerID returns the logged-in user's ID, or 0 before login.
func (g *MTProto) OwnerID() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.self
}

// incoming converts a raw message. Posts in broadcast channels are dropped
// unless the owner wrote them.
func (g *MTProto) incoming(m *tg.Message) (Incoming, bool) {
	chatID, ok := peerChatID(m.PeerID)
	if !ok {
		return Incoming{}, false
	}

	in := Incoming{
		Ref:       MessageRef{ChatID: chatID, MessageID: m.ID},
		Text:      m.Message,
		Outgoing:  m.Out,
		IsMention: m.Mentioned,
		HasMedia:  m.Media != nil,
	}

	switch m.PeerID.(type) {
	case *tg.PeerUser:
		in.IsPrivate = true
	case *tg.PeerChat:
		in.IsGroup = true
	case *tg.PeerChannel:
		if p, known := g.peers.get(chatID); known && p.broadcast {
			if !m.Out {
				return Incoming{}, false
			}
		} else {
			in.IsGroup = true
		}
	}

	in.SenderID = g.authorOf(m, chatID)

	if h, ok := m.ReplyTo.(*tg.MessageReplyHeader); ok {
		if id, ok := h.GetReplyToMsgID(); ok {
			replyChat := chatID
			if peer, ok := h.GetReplyToPeerID(); ok {
				if other, ok := peerChatID(peer); ok {
					replyChat = other
				}
			}
			in.ReplyTo = &MessageRef{ChatID: replyChat, MessageID: id}
		}
	}

	return in, true
}

func (g *MTProto) authorOf(m *tg.Message, chatID int64) int64 {
	if m.Out {
		return g.OwnerID()
	}
	if from, ok := m.GetFromID(); ok {
		if id, ok := peerChatID(from); ok {
			return id
		}
	}
	// Private messages and channel posts carry no from_id.
	return chatID
}

func (g *MTProto) client() (*tg.Client, *message.Sender, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.api == nil {
		return nil, nil, apperrors.NewCollaboratorError("telegram session is not ready", nil)
	}
	return g.api, g.sender, nil
}

func (g *MTProto) inputPeer(chatID int64) (tg.InputPeerClass, error) {
	if chatID == g.OwnerID() {
		return &tg.InputPeerSelf{}, nil
	}
	p, ok := g.peers.get(chatID)
	if !ok || p.input == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("peer %d is not known yet", chatID))
	}
	return p.input, nil
}

// Send posts a text message to chatID.
func (g *MTProto) Send(ctx context.Context, chatID int64, text string) (MessageRef, error) {
	_, sender, err := g.client()
	if err != nil {
		return MessageRef{}, err
	}
	peer, err := g.inputPeer(chatID)
	if err != nil {
		return MessageRef{}, err
	}

	upd, err := sender.To(peer).Text(ctx, text)
	if err != nil {
		return MessageRef{}, apperrors.NewCollaboratorError("send message", errors.Wrap(err, "send"))
	}
	return MessageRef{ChatID: chatID, MessageID: sentMessageID(upd)}, nil
}

// Reply answers to with a text message.
func (g *MTProto) Reply(ctx context.Context, to MessageRef, text string) (MessageRef, error) {
	_, sender, err := g.client()
	if err != nil {
		return MessageRef{}, err
	}
	peer, err := g.inputPeer(to.ChatID)
	if err != nil {
		return MessageRef{}, err
	}

	upd, err := sender.To(peer).Reply(to.MessageID).Text(ctx, text)
	if err != nil {
		return MessageRef{}, apperrors.NewCollaboratorError("send reply", errors.Wrap(err, "reply"))
	}
	return MessageRef{ChatID: to.ChatID, MessageID: sentMessageID(upd)}, nil
}

// ReplyMedia re-sends a photo or document previously captured into Saved
// Messages as a reply to to.
func (g *MTProto) ReplyMedia(ctx context.Context, to MessageRef, media autoreply.MediaRef) (MessageRef, error) {
	api, _, err := g.client()
	if err != nil {
		return MessageRef{}, err
	}

	savedID, err := parseSavedMedia(media)
	if err != nil {
		return MessageRef{}, err
	}
	saved, err := g.fetchMessage(ctx, api, MessageRef{ChatID: g.OwnerID(), MessageID: savedID})
	if err != nil {
		return MessageRef{}, err
	}
	input, err := inputMediaOf(saved.Media)
	if err != nil {
		return MessageRef{}, err
	}

	peer, err := g.inputPeer(to.ChatID)
	if err != nil {
		return MessageRef{}, err
	}
	randomID, err := crypto.RandInt64(crand.Reader)
	if err != nil {
		return MessageRef{}, errors.Wrap(err, "random id")
	}

	upd, err := api.MessagesSendMedia(ctx, &tg.MessagesSendMediaRequest{
		Peer:     peer,
		ReplyTo:  &tg.InputReplyToMessage{ReplyToMsgID: to.MessageID},
		Media:    input,
		RandomID: randomID,
	})
	if err != nil {
		return MessageRef{}, apperrors.NewCollaboratorError("send media", errors.Wrap(err, "send media"))
	}
	return MessageRef{ChatID: to.ChatID, MessageID: sentMessageID(upd)}, nil
}

// Acknowledge edits the owner's command message into the response.
func (g *MTProto) Acknowledge(ctx context.Context, command MessageRef, text string) error {
	_, sender, err := g.client()
	if err != nil {
		return err
	}
	peer, err := g.inputPeer(command.ChatID)
	if err != nil {
		return err
	}

	if _, err := sender.To(peer).Edit(command.MessageID).Text(ctx, text); err != nil {
		return apperrors.NewCollaboratorError("edit command", errors.Wrap(err, "edit"))
	}
	return nil
}

// ResolveEntity answers ID lookups from peers seen in updates and username
// lookups through the API.
func (g *MTProto) ResolveEntity(ctx context.Context, q EntityQuery) (Entity, error) {
	if q.Username == "" {
		p, ok := g.peers.get(q.ID)
		if !ok {
			return Entity{}, apperrors.NewNotFoundError(fmt.Sprintf("peer %d is not known yet", q.ID))
		}
		return p.entity, nil
	}

	_, sender, err := g.client()
	if err != nil {
		return Entity{}, err
	}
	username := strings.TrimPrefix(q.Username, "@")
	input, err := sender.Resolve(username).AsInputPeer(ctx)
	if err != nil {
		return Entity{}, apperrors.NewCollaboratorError("resolve @"+username, errors.Wrap(err, "resolve"))
	}

	id, kind, ok := inputPeerID(input)
	if !ok {
		return Entity{}, apperrors.NewNotFoundError("@" + username + " is not a user, group or channel")
	}
	g.peers.putInput(id, input, Entity{ID: id, Kind: kind, Username: username})

	p, _ := g.peers.get(id)
	return p.entity, nil
}

// MessageAuthor fetches a message and returns the marked ID of its sender.
func (g *MTProto) MessageAuthor(ctx context.Context, ref MessageRef) (int64, error) {
	api, _, err := g.client()
	if err != nil {
		return 0, err
	}
	m, err := g.fetchMessage(ctx, api, ref)
	if err != nil {
		return 0, err
	}
	return g.authorOf(m, ref.ChatID), nil
}

// CaptureMedia forwards the media of source into Saved Messages and
// returns a handle to the copy.
func (g *MTProto) CaptureMedia(ctx context.Context, source MessageRef) (autoreply.MediaRef, error) {
	api, _, err := g.client()
	if err != nil {
		return "", err
	}
	m, err := g.fetchMessage(ctx, api, source)
	if err != nil {
		return "", err
	}
	if _, err := inputMediaOf(m.Media); err != nil {
		return "", err
	}

	from, err := g.inputPeer(source.ChatID)
	if err != nil {
		return "", err
	}
	randomID, err := crypto.RandInt64(crand.Reader)
	if err != nil {
		return "", errors.Wrap(err, "random id")
	}

	upd, err := api.MessagesForwardMessages(ctx, &tg.MessagesForwardMessagesRequest{
		FromPeer:   from,
		ID:         []int{source.MessageID},
		RandomID:   []int64{randomID},
		ToPeer:     &tg.InputPeerSelf{},
		DropAuthor: true,
	})
	if err != nil {
		return "", apperrors.NewCollaboratorError("save media", errors.Wrap(err, "forward"))
	}

	id := sentMessageID(upd)
	if id == 0 {
		return "", apperrors.NewCollaboratorError("save media: no message in response", nil)
	}
	return autoreply.MediaRef(savedMediaPrefix + strconv.Itoa(id)), nil
}

func (g *MTProto) fetchMessage(ctx context.Context, api *tg.Client, ref MessageRef) (*tg.Message, error) {
	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: ref.MessageID}}

	var (
		res tg.MessagesMessagesClass
		err error
	)
	if kind, _ := SplitChatID(ref.ChatID); kind == EntityChannel {
		p, ok := g.peers.get(ref.ChatID)
		if !ok || p.channel == nil {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("channel %d is not known yet", ref.ChatID))
		}
		res, err = api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{Channel: p.channel, ID: ids})
	} else {
		res, err = api.MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		return nil, apperrors.NewCollaboratorError("fetch message", errors.Wrap(err, "get messages"))
	}

	var msgs []tg.MessageClass
	switch v := res.(type) {
	case *tg.MessagesMessages:
		g.peers.apply(v.Users, v.Chats)
		msgs = v.Messages
	case *tg.MessagesMessagesSlice:
		g.peers.apply(v.Users, v.Chats)
		msgs = v.Messages
	case *tg.MessagesChannelMessages:
		g.peers.apply(v.Users, v.Chats)
		msgs = v.Messages
	}
	for _, mc := range msgs {
		if m, ok := mc.(*tg.Message); ok && m.ID == ref.MessageID {
			return m, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("message %d not found", ref.MessageID))
}

func parseSavedMedia(media autoreply.MediaRef) (int, error) {
	raw, ok := strings.CutPrefix(string(media), savedMediaPrefix)
	if !ok {
		return 0, apperrors.NewValidationError(fmt.Sprintf("media %q was not captured by this session", media), nil)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(fmt.Sprintf("malformed media handle %q", media), err)
	}
	return id, nil
}

// inputMediaOf turns a received photo or document into something that can
// be sent again without re-uploading.
func inputMediaOf(media tg.MessageMediaClass) (tg.InputMediaClass, error) {
	switch v := media.(type) {
	case *tg.MessageMediaPhoto:
		if p, ok := v.Photo.(*tg.Photo); ok {
			return &tg.InputMediaPhoto{ID: &tg.InputPhoto{
				ID:            p.ID,
				AccessHash:    p.AccessHash,
				FileReference: p.FileReference,
			}}, nil
		}
	case *tg.MessageMediaDocument:
		if d, ok := v.Document.(*tg.Document); ok {
			return &tg.InputMediaDocument{ID: &tg.InputDocument{
				ID:            d.ID,
				AccessHash:    d.AccessHash,
				FileReference: d.FileReference,
			}}, nil
		}
	}
	return nil, apperrors.NewValidationError("the message has no photo or document", nil)
}

// sentMessageID extracts the new message ID from a send or forward result.
func sentMessageID(upd tg.UpdatesClass) int {
	var list []tg.UpdateClass
	switch v := upd.(type) {
	case *tg.UpdateShortSentMessage:
		return v.ID
	case *tg.Updates:
		list = v.Updates
	case *tg.UpdatesCombined:
		list = v.Updates
	}

	for _, u := range list {
		switch v := u.(type) {
		case *tg.UpdateNewMessage:
			return v.Message.GetID()
		case *tg.UpdateNewChannelMessage:
			return v.Message.GetID()
		}
	}
	for _, u := range list {
		if v, ok := u.(*tg.UpdateMessageID); ok {
			return v.ID
		}
	}
	return 0
}
