package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/Par123456/selfcursor/internal/autoreply"
	apperrors "github.com/Par123456/selfcursor/internal/errors"
	"github.com/Par123456/selfcursor/internal/logger"
)

// mediaCacheSize bounds the remembered file IDs of recent media messages.
const mediaCacheSize = 512

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", tokenPrefix(token))
	return b, nil
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return "..."
	}
	return token[:8] + "..."
}

// BotAPI serves the owner through a Telegram Business connection. Messages
// in the owner's private chats arrive as business messages; the owner
// issues commands by writing to the bot directly.
type BotAPI struct {
	token   string
	ownerID int64
	log     *slog.Logger
	bot     *bot.Bot

	mu          sync.RWMutex
	handle      Handler
	connections map[int64]string
	users       map[int64]Entity
	media       map[MessageRef]autoreply.MediaRef
	mediaOrder  []MessageRef
}

// NewBotAPI prepares a Bot API gateway for ownerID. Nothing connects until Run.
func NewBotAPI(token string, ownerID int64, log *slog.Logger) *BotAPI {
	if log == nil {
		log = slog.Default()
	}
	return &BotAPI{
		token:       token,
		ownerID:     ownerID,
		log:         log.With("component", "botapi"),
		connections: make(map[int64]string),
		users:       make(map[int64]Entity),
		media:       make(map[MessageRef]autoreply.MediaRef),
	}
}

// Run creates the bot client and long-polls until ctx is cancelled.
func (g *BotAPI) Run(ctx context.Context, handle Handler) error {
	g.mu.Lock()
	g.handle = handle
	g.mu.Unlock()

	b, err := NewTelegramBot(g.token, g.log,
		bot.WithMiddlewares(logger.Middleware(g.log)),
		bot.WithDefaultHandler(g.onUpdate),
		bot.WithAllowedUpdates(bot.AllowedUpdates{"message", "business_connection", "business_message"}),
	)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.bot = b
	g.mu.Unlock()

	g.log.Info("Starting Bot API polling", "owner_id", g.ownerID)
	b.Start(ctx)
	return ctx.Err()
}

// OwnerID returns the configured business account owner.
func (g *BotAPI) OwnerID() int64 { return g.ownerID }

func (g *BotAPI) onUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	g.mu.RLock()
	handle := g.handle
	g.mu.RUnlock()
	if handle == nil {
		return
	}

	switch {
	case update.BusinessConnection != nil:
		g.trackConnection(update.BusinessConnection)
	case update.BusinessMessage != nil:
		if in, ok := g.incoming(update.BusinessMessage, false); ok {
			handle(ctx, in)
		}
	case update.Message != nil:
		if in, ok := g.incoming(update.Message, true); ok {
			handle(ctx, in)
		}
	}
}

func (g *BotAPI) trackConnection(conn *models.BusinessConnection) {
	if conn.User.ID != g.ownerID {
		g.log.Warn("Ignoring business connection from another account", "user_id", conn.User.ID)
		return
	}
	g.log.Info("Business connection updated", "business_connection_id", conn.ID, "enabled", conn.IsEnabled)
}

// incoming converts a Bot API message. control is set for messages sent to
// the bot itself; only private ones are considered.
func (g *BotAPI) incoming(msg *models.Message, control bool) (Incoming, bool) {
	if control && msg.Chat.Type != models.ChatTypePrivate {
		return Incoming{}, false
	}
	// Our own replies come back as business messages From the owner.
	// They are not owner activity.
	if msg.SenderBusinessBot != nil {
		return Incoming{}, false
	}

	ref := MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}

	g.mu.Lock()
	if msg.BusinessConnectionID != "" {
		g.connections[msg.Chat.ID] = msg.BusinessConnectionID
	}
	if msg.From != nil {
		g.rememberUserLocked(msg.From)
	}
	g.rememberMediaLocked(ref, msg)
	if msg.ReplyToMessage != nil {
		g.rememberMediaLocked(MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ReplyToMessage.ID}, msg.ReplyToMessage)
	}
	g.mu.Unlock()

	in := Incoming{
		Ref:       ref,
		Text:      msg.Text,
		Control:   control,
		IsPrivate: msg.Chat.Type == models.ChatTypePrivate,
		IsGroup:   msg.Chat.Type == models.ChatTypeGroup || msg.Chat.Type == models.ChatTypeSupergroup,
		HasMedia:  mediaOf(msg) != "",
	}
	if in.Text == "" {
		in.Text = msg.Caption
	}
	if msg.From != nil {
		in.SenderID = msg.From.ID
		in.Outgoing = !control && msg.From.ID == g.ownerID
	}
	if r := msg.ReplyToMessage; r != nil {
		in.ReplyTo = &MessageRef{ChatID: msg.Chat.ID, MessageID: r.ID}
		if r.From != nil {
			in.ReplyToSenderID = r.From.ID
		}
	}
	return in, true
}

func (g *BotAPI) rememberUserLocked(u *models.User) {
	g.users[u.ID] = Entity{
		ID:       u.ID,
		Kind:     EntityUser,
		IsBot:    u.IsBot,
		Username: u.Username,
		Title:    joinName(u.FirstName, u.LastName),
	}
}

func (g *BotAPI) rememberMediaLocked(ref MessageRef, msg *models.Message) {
	media := mediaOf(msg)
	if media == "" {
		return
	}
	if _, ok := g.media[ref]; !ok {
		g.mediaOrder = append(g.mediaOrder, ref)
	}
	g.media[ref] = media
	if len(g.mediaOrder) > mediaCacheSize {
		delete(g.media, g.mediaOrder[0])
		g.mediaOrder = g.mediaOrder[1:]
	}
}

// mediaOf encodes the message's media as "kind:file_id".
func mediaOf(msg *models.Message) autoreply.MediaRef {
	var kind, fileID string
	switch {
	case len(msg.Photo) > 0:
		kind, fileID = "photo", msg.Photo[len(msg.Photo)-1].FileID
	case msg.Animation != nil:
		kind, fileID = "animation", msg.Animation.FileID
	case msg.Video != nil:
		kind, fileID = "video", msg.Video.FileID
	case msg.Sticker != nil:
		kind, fileID = "sticker", msg.Sticker.FileID
	case msg.Voice != nil:
		kind, fileID = "voice", msg.Voice.FileID
	case msg.Audio != nil:
		kind, fileID = "audio", msg.Audio.FileID
	case msg.Document != nil:
		kind, fileID = "document", msg.Document.FileID
	default:
		return ""
	}
	return autoreply.MediaRef(kind + ":" + fileID)
}

func (g *BotAPI) client() (*bot.Bot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.bot == nil {
		return nil, apperrors.NewCollaboratorError("bot is not running", nil)
	}
	return g.bot, nil
}

func (g *BotAPI) connection(chatID int64) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connections[chatID]
}

// Send posts text to chatID, on behalf of the owner when the chat belongs
// to a business connection.
func (g *BotAPI) Send(ctx context.Context, chatID int64, text string) (MessageRef, error) {
	return g.sendText(ctx, chatID, 0, text)
}

// Reply answers to with a text message.
func (g *BotAPI) Reply(ctx context.Context, to MessageRef, text string) (MessageRef, error) {
	return g.sendText(ctx, to.ChatID, to.MessageID, text)
}

func (g *BotAPI) sendText(ctx context.Context, chatID int64, replyTo int, text string) (MessageRef, error) {
	b, err := g.client()
	if err != nil {
		return MessageRef{}, err
	}

	params := &bot.SendMessageParams{
		BusinessConnectionID: g.connection(chatID),
		ChatID:               chatID,
		Text:                 text,
	}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}

	sent, err := b.SendMessage(ctx, params)
	if err != nil {
		return MessageRef{}, apperrors.NewCollaboratorError("send message", err)
	}
	return MessageRef{ChatID: chatID, MessageID: sent.ID}, nil
}

// ReplyMedia re-sends a file ID handle produced by CaptureMedia.
func (g *BotAPI) ReplyMedia(ctx context.Context, to MessageRef, media autoreply.MediaRef) (MessageRef, error) {
	b, err := g.client()
	if err != nil {
		return MessageRef{}, err
	}

	kind, fileID, ok := strings.Cut(string(media), ":")
	if !ok || fileID == "" {
		return MessageRef{}, apperrors.NewValidationError(fmt.Sprintf("malformed media handle %q", media), nil)
	}

	conn := g.connection(to.ChatID)
	file := &models.InputFileString{Data: fileID}
	reply := &models.ReplyParameters{MessageID: to.MessageID}

	var sent *models.Message
	switch kind {
	case "photo":
		sent, err = b.SendPhoto(ctx, &bot.SendPhotoParams{BusinessConnectionID: conn, ChatID: to.ChatID, Photo: file, ReplyParameters: reply})
	case "animation":
		sent, err = b.SendAnimation(ctx, &bot.SendAnimationParams{BusinessConnectionID: conn, ChatID: to.ChatID, Animation: file, ReplyParameters: reply})
	case "video":
		sent, err = b.SendVideo(ctx, &bot.SendVideoParams{BusinessConnectionID: conn, ChatID: to.ChatID, Video: file, ReplyParameters: reply})
	case "sticker":
		sent, err = b.SendSticker(ctx, &bot.SendStickerParams{BusinessConnectionID: conn, ChatID: to.ChatID, Sticker: file, ReplyParameters: reply})
	case "voice":
		sent, err = b.SendVoice(ctx, &bot.SendVoiceParams{BusinessConnectionID: conn, ChatID: to.ChatID, Voice: file, ReplyParameters: reply})
	case "audio":
		sent, err = b.SendAudio(ctx, &bot.SendAudioParams{BusinessConnectionID: conn, ChatID: to.ChatID, Audio: file, ReplyParameters: reply})
	case "document":
		sent, err = b.SendDocument(ctx, &bot.SendDocumentParams{BusinessConnectionID: conn, ChatID: to.ChatID, Document: file, ReplyParameters: reply})
	default:
		return MessageRef{}, apperrors.NewValidationError(fmt.Sprintf("unsupported media kind %q", kind), nil)
	}
	if err != nil {
		return MessageRef{}, apperrors.NewCollaboratorError("send media", err)
	}
	return MessageRef{ChatID: to.ChatID, MessageID: sent.ID}, nil
}

// Acknowledge replies to the command; the Bot API cannot edit messages
// the owner wrote.
func (g *BotAPI) Acknowledge(ctx context.Context, command MessageRef, text string) error {
	_, err := g.Reply(ctx, command, text)
	return err
}

// ResolveEntity answers from users seen in updates, then asks getChat.
func (g *BotAPI) ResolveEntity(ctx context.Context, q EntityQuery) (Entity, error) {
	if q.Username == "" {
		g.mu.RLock()
		e, ok := g.users[q.ID]
		g.mu.RUnlock()
		if ok {
			return e, nil
		}
	}

	b, err := g.client()
	if err != nil {
		return Entity{}, err
	}

	var chatID any = q.ID
	if q.Username != "" {
		chatID = "@" + strings.TrimPrefix(q.Username, "@")
	}
	chat, err := b.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		return Entity{}, apperrors.NewCollaboratorError("resolve "+q.String(), err)
	}

	e := Entity{ID: chat.ID, Username: chat.Username, Title: chat.Title}
	switch chat.Type {
	case models.ChatTypePrivate:
		e.Kind = EntityUser
		e.Title = joinName(chat.FirstName, chat.LastName)
	case models.ChatTypeGroup:
		e.Kind = EntityChat
	default:
		e.Kind = EntityChannel
	}
	return e, nil
}

// MessageAuthor is answered from the reply already embedded in each update;
// the Bot API has no way to fetch an arbitrary message.
func (g *BotAPI) MessageAuthor(_ context.Context, ref MessageRef) (int64, error) {
	return 0, apperrors.NewNotFoundError(fmt.Sprintf("message %d in chat %d is not available", ref.MessageID, ref.ChatID))
}

// CaptureMedia returns the file ID of a media message seen recently.
func (g *BotAPI) CaptureMedia(_ context.Context, source MessageRef) (autoreply.MediaRef, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	media, ok := g.media[source]
	if !ok {
		return "", apperrors.NewValidationError("the message has no media the bot has seen", nil)
	}
	return media, nil
}
