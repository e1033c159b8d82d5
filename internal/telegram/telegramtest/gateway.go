// Package telegramtest provides a scriptable telegram.Gateway for tests.
package telegramtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Par123456/selfcursor/internal/autoreply"
	apperrors "github.com/Par123456/selfcursor/internal/errors"
	"github.com/Par123456/selfcursor/internal/telegram"
)

// Sent records one outbound call.
type Sent struct {
	Kind  string // "send", "reply", "media" or "ack"
	Ref   telegram.MessageRef
	Text  string
	Media autoreply.MediaRef
}

// Gateway records outbound calls and answers lookups from its maps.
type Gateway struct {
	Owner int64

	mu        sync.Mutex
	sent      []Sent
	entities  map[int64]telegram.Entity
	names     map[string]telegram.Entity
	authors   map[telegram.MessageRef]int64
	media     map[telegram.MessageRef]autoreply.MediaRef
	sendErr   error
	lookupErr error
	lookups   int
	nextID    int
	incoming  []telegram.Incoming
}

// New returns a fake gateway acting for owner.
func New(owner int64) *Gateway {
	return &Gateway{
		Owner:    owner,
		entities: make(map[int64]telegram.Entity),
		names:    make(map[string]telegram.Entity),
		authors:  make(map[telegram.MessageRef]int64),
		media:    make(map[telegram.MessageRef]autoreply.MediaRef),
		nextID:   1000,
	}
}

// AddEntity makes e resolvable by ID and, if set, by username.
func (g *Gateway) AddEntity(e telegram.Entity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entities[e.ID] = e
	if e.Username != "" {
		g.names[e.Username] = e
	}
}

// SetAuthor registers the sender of ref for MessageAuthor.
func (g *Gateway) SetAuthor(ref telegram.MessageRef, senderID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authors[ref] = senderID
}

// SetMedia registers media that CaptureMedia returns for ref.
func (g *Gateway) SetMedia(ref telegram.MessageRef, media autoreply.MediaRef) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.media[ref] = media
}

// FailSends makes every outbound call return err; nil restores success.
func (g *Gateway) FailSends(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sendErr = err
}

// FailLookups makes ResolveEntity and MessageAuthor return err.
func (g *Gateway) FailLookups(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookupErr = err
}

// Queue adds messages that Run delivers before blocking.
func (g *Gateway) Queue(msgs ...telegram.Incoming) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.incoming = append(g.incoming, msgs...)
}

// Sent returns a copy of the recorded outbound calls.
func (g *Gateway) Sent() []Sent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Sent(nil), g.sent...)
}

// Reset forgets recorded outbound calls.
func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = nil
}

// AuthorLookups returns how many times MessageAuthor was called.
func (g *Gateway) AuthorLookups() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lookups
}

// Run delivers queued messages and then waits for ctx.
func (g *Gateway) Run(ctx context.Context, handle telegram.Handler) error {
	g.mu.Lock()
	queued := g.incoming
	g.incoming = nil
	g.mu.Unlock()

	for _, msg := range queued {
		handle(ctx, msg)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (g *Gateway) OwnerID() int64 { return g.Owner }

func (g *Gateway) record(s Sent) (telegram.MessageRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return telegram.MessageRef{}, g.sendErr
	}
	g.nextID++
	g.sent = append(g.sent, s)
	return telegram.MessageRef{ChatID: s.Ref.ChatID, MessageID: g.nextID}, nil
}

func (g *Gateway) Send(_ context.Context, chatID int64, text string) (telegram.MessageRef, error) {
	return g.record(Sent{Kind: "send", Ref: telegram.MessageRef{ChatID: chatID}, Text: text})
}

func (g *Gateway) Reply(_ context.Context, to telegram.MessageRef, text string) (telegram.MessageRef, error) {
	return g.record(Sent{Kind: "reply", Ref: to, Text: text})
}

func (g *Gateway) ReplyMedia(_ context.Context, to telegram.MessageRef, media autoreply.MediaRef) (telegram.MessageRef, error) {
	return g.record(Sent{Kind: "media", Ref: to, Media: media})
}

func (g *Gateway) Acknowledge(_ context.Context, command telegram.MessageRef, text string) error {
	_, err := g.record(Sent{Kind: "ack", Ref: command, Text: text})
	return err
}

func (g *Gateway) ResolveEntity(_ context.Context, q telegram.EntityQuery) (telegram.Entity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lookupErr != nil {
		return telegram.Entity{}, g.lookupErr
	}

	if q.Username == "" {
		e, ok := g.entities[q.ID]
		if !ok {
			return telegram.Entity{}, apperrors.NewNotFoundError(fmt.Sprintf("peer %d is not known yet", q.ID))
		}
		return e, nil
	}

	e, ok := g.names[q.Username]
	if !ok {
		return telegram.Entity{}, apperrors.NewCollaboratorError("resolve "+q.String(), fmt.Errorf("no such username"))
	}
	return e, nil
}

func (g *Gateway) MessageAuthor(_ context.Context, ref telegram.MessageRef) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups++
	if g.lookupErr != nil {
		return 0, g.lookupErr
	}
	id, ok := g.authors[ref]
	if !ok {
		return 0, apperrors.NewNotFoundError("message not found")
	}
	return id, nil
}

func (g *Gateway) CaptureMedia(_ context.Context, source telegram.MessageRef) (autoreply.MediaRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.media[source]
	if !ok {
		return "", apperrors.NewValidationError("the message has no media", nil)
	}
	return m, nil
}

var _ telegram.Gateway = (*Gateway)(nil)
