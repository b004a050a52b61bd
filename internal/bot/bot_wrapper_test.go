package bot

import (
	"testing"

	"flowershop/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestBotWrapper(t *testing.T) {
	api := &tgbotapi.BotAPI{Self: tgbotapi.User{ID: 42, UserName: "flowershop_bot"}}

	var sender domain.TelegramSender = NewBotWrapper(api)
	assert.Equal(t, "flowershop_bot", sender.GetSelf().UserName)
	assert.Equal(t, int64(42), sender.GetSelf().ID)
}
