package telegram

import (
	"sync"

	"github.com/gotd/td/tg"
)

type cachedPeer struct {
	input     tg.InputPeerClass
	channel   *tg.InputChannel
	broadcast bool
	entity    Entity
}

// peerCache remembers access hashes seen in updates so that replies and
// lookups can address peers by marked chat ID.
type peerCache struct {
	mu    sync.RWMutex
	peers map[int64]cachedPeer
}

func newPeerCache() *peerCache {
	return &peerCache{peers: make(map[int64]cachedPeer)}
}

func (c *peerCache) applyEntities(e tg.Entities) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, u := range e.Users {
		c.putUserLocked(u)
	}
	for _, ch := range e.Chats {
		c.putChatLocked(ch)
	}
	for _, ch := range e.Channels {
		c.putChannelLocked(ch)
	}
}

func (c *peerCache) apply(users []tg.UserClass, chats []tg.ChatClass) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			c.putUserLocked(user)
		}
	}
	for _, ch := range chats {
		switch v := ch.(type) {
		case *tg.Chat:
			c.putChatLocked(v)
		case *tg.Channel:
			c.putChannelLocked(v)
		}
	}
}

func (c *peerCache) putUser(u *tg.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putUserLocked(u)
}

func (c *peerCache) putUserLocked(u *tg.User) {
	// min constructors carry no usable access hash; keep what we have.
	if prev, ok := c.peers[UserChatID(u.ID)]; ok && u.Min {
		prev.entity.IsBot = u.Bot
		c.peers[UserChatID(u.ID)] = prev
		return
	}
	c.peers[UserChatID(u.ID)] = cachedPeer{
		input: u.AsInputPeer(),
		entity: Entity{
			ID:       UserChatID(u.ID),
			Kind:     EntityUser,
			IsBot:    u.Bot,
			Username: u.Username,
			Title:    joinName(u.FirstName, u.LastName),
		},
	}
}

func (c *peerCache) putChatLocked(ch *tg.Chat) {
	c.peers[ChatChatID(ch.ID)] = cachedPeer{
		input: ch.AsInputPeer(),
		entity: Entity{
			ID:    ChatChatID(ch.ID),
			Kind:  EntityChat,
			Title: ch.Title,
		},
	}
}

func (c *peerCache) putChannelLocked(ch *tg.Channel) {
	if _, ok := c.peers[ChannelChatID(ch.ID)]; ok && ch.Min {
		return
	}
	c.peers[ChannelChatID(ch.ID)] = cachedPeer{
		input:     ch.AsInputPeer(),
		channel:   ch.AsInput(),
		broadcast: ch.Broadcast,
		entity: Entity{
			ID:       ChannelChatID(ch.ID),
			Kind:     EntityChannel,
			Username: ch.Username,
			Title:    ch.Title,
		},
	}
}

func (c *peerCache) putInput(chatID int64, input tg.InputPeerClass, entity Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.peers[chatID]
	p.input = input
	if ch, ok := input.(*tg.InputPeerChannel); ok {
		p.channel = &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash}
	}
	if p.entity.ID == 0 {
		p.entity = entity
	}
	c.peers[chatID] = p
}

func (c *peerCache) get(chatID int64) (cachedPeer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.peers[chatID]
	return p, ok
}

// inputPeerID marks the ID of a resolved input peer.
func inputPeerID(p tg.InputPeerClass) (int64, EntityKind, bool) {
	switch v := p.(type) {
	case *tg.InputPeerUser:
		return UserChatID(v.UserID), EntityUser, true
	case *tg.InputPeerChat:
		return ChatChatID(v.ChatID), EntityChat, true
	case *tg.InputPeerChannel:
		return ChannelChatID(v.ChannelID), EntityChannel, true
	default:
		return 0, 0, false
	}
}

// peerChatID marks the ID of a message peer.
func peerChatID(p tg.PeerClass) (int64, bool) {
	switch v := p.(type) {
	case *tg.PeerUser:
		return UserChatID(v.UserID), true
	case *tg.PeerChat:
		return ChatChatID(v.ChatID), true
	case *tg.PeerChannel:
		return ChannelChatID(v.ChannelID), true
	default:
		return 0, false
	}
}

func joinName(first, last string) string {
	switch {
	case last == "":
		return first
	case first == "":
		return last
	default:
		return first + " " + last
	}
}
