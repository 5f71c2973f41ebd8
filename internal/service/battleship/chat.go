package battleship

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/domain"
	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

const (
	chatTypeMessage = "CHAT"
	maxChatRunes    = 500
)

// SendChat relays text from a registered player to the room's chat channel.
// Messages are not stored.
func (s *Service) SendChat(ctx context.Context, roomID, playerID, text string) (*dto.ChatMessage, error) {
	roomID, err := requireID(roomID, "room id")
	if err != nil {
		return nil, err
	}
	playerID, err = requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrInvalidArgs.Detail("chat message is empty")
	}
	if utf8.RuneCountInString(text) > maxChatRunes {
		return nil, domain.ErrInvalidArgs.Detail("chat message exceeds %d characters", maxChatRunes)
	}
	var out dto.ChatMessage
	err = s.update(ctx, roomLock(roomID), func(t *txn) error {
		if _, err := t.Room(roomID); err != nil {
			return err
		}
		p, err := t.Player(playerID)
		if err != nil {
			return err
		}
		sender := p.Name
		if sender == "" {
			sender = p.ID
		}
		out = dto.ChatMessage{
			RoomID:   roomID,
			PlayerID: p.ID,
			Sender:   sender,
			Content:  text,
			Type:     chatTypeMessage,
			At:       s.now(),
		}
		t.out.Chat(roomID, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("room_chat", zap.String("room_id", roomID), zap.String("player_id", playerID), zap.Int("len", len(text)))
	return &out, nil
}
