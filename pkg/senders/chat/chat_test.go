package chat_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/automation/pkg/mocks"
	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/senders/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fullTenant() *models.Tenant {
	return &models.Tenant{
		ID:       "t1",
		Bot:      &models.BotConfig{Token: "bot-token"},
		Personal: &models.PersonalConfig{AccountID: "acc-1", Authorized: true},
	}
}

func TestSender_BotSuccess(t *testing.T) {
	bot := &mocks.MockBotClient{}
	personal := &mocks.MockPersonalClient{}
	bot.On("SendMessage", mock.Anything, "bot-token", "42", "hi").Return("100", nil)

	sender := chat.NewSender(slog.Default(), bot, personal)

	result, err := sender.Send(context.Background(), fullTenant(), chat.Recipient{ChatID: "42", Phone: "89120001122"}, "hi")
	require.NoError(t, err)
	assert.Equal(t, models.ChannelBot, result.Channel)
	assert.Equal(t, "100", result.MessageID)
	personal.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSender_FallsBackOnUnreachable(t *testing.T) {
	tests := []struct {
		name   string
		botErr error
	}{
		{"blocked", &chat.BotError{Code: 403, Description: "Forbidden: bot was blocked by the user"}},
		{"bad request", &chat.BotError{Code: 400, Description: "Bad Request: chat not found"}},
		{"not found text", errors.New("chat not found")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := &mocks.MockBotClient{}
			personal := &mocks.MockPersonalClient{}
			bot.On("SendMessage", mock.Anything, "bot-token", "42", "hi").Return("", tt.botErr).Once()
			personal.On("SendMessage", mock.Anything, "acc-1", "+79120001122", "hi").Return("p-1", nil).Once()

			sender := chat.NewSender(slog.Default(), bot, personal)

			result, err := sender.Send(context.Background(), fullTenant(), chat.Recipient{ChatID: "42", Phone: "8 (912) 000-11-22"}, "hi")
			require.NoError(t, err)
			assert.Equal(t, models.ChannelPersonal, result.Channel)
			assert.Equal(t, "p-1", result.MessageID)
			personal.AssertNumberOfCalls(t, "SendMessage", 1)
		})
	}
}

func TestSender_OtherBotErrorIsFinal(t *testing.T) {
	bot := &mocks.MockBotClient{}
	personal := &mocks.MockPersonalClient{}
	bot.On("SendMessage", mock.Anything, "bot-token", "42", "hi").
		Return("", &chat.BotError{Code: 429, Description: "Too Many Requests: retry after 5"})

	sender := chat.NewSender(slog.Default(), bot, personal)

	result, err := sender.Send(context.Background(), fullTenant(), chat.Recipient{ChatID: "42", Username: "ann"}, "hi")
	require.Error(t, err)
	assert.Equal(t, models.ChannelBot, result.Channel)
	personal.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSender_PersonalOnlyWhenNoChatID(t *testing.T) {
	bot := &mocks.MockBotClient{}
	personal := &mocks.MockPersonalClient{}
	personal.On("SendMessage", mock.Anything, "acc-1", "ann", "hi").Return("p-2", nil)

	sender := chat.NewSender(slog.Default(), bot, personal)

	result, err := sender.Send(context.Background(), fullTenant(), chat.Recipient{Username: "ann"}, "hi")
	require.NoError(t, err)
	assert.Equal(t, models.ChannelPersonal, result.Channel)
	bot.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSender_BothFail(t *testing.T) {
	bot := &mocks.MockBotClient{}
	personal := &mocks.MockPersonalClient{}
	bot.On("SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", &chat.BotError{Code: 403, Description: "Forbidden"})
	personal.On("SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("session expired"))

	sender := chat.NewSender(slog.Default(), bot, personal)

	result, err := sender.Send(context.Background(), fullTenant(), chat.Recipient{ChatID: "42", Username: "ann"}, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")
	assert.Equal(t, models.ChannelPersonal, result.Channel)
}

func TestSender_NoChannel(t *testing.T) {
	sender := chat.NewSender(slog.Default(), &mocks.MockBotClient{}, &mocks.MockPersonalClient{})

	tenant := &models.Tenant{ID: "t1", Personal: &models.PersonalConfig{AccountID: "acc-1"}}
	recipient := chat.Recipient{ChatID: "42", Username: "ann"}

	assert.False(t, sender.Available(tenant, recipient))

	_, err := sender.Send(context.Background(), tenant, recipient, "hi")
	require.ErrorIs(t, err, chat.ErrNoChannel)
}

func TestIsUnreachable(t *testing.T) {
	assert.True(t, chat.IsUnreachable(&chat.BotError{Code: 403}))
	assert.True(t, chat.IsUnreachable(&chat.BotError{Code: 400}))
	assert.True(t, chat.IsUnreachable(errors.New("user is BLOCKED")))
	assert.False(t, chat.IsUnreachable(&chat.BotError{Code: 500, Description: "internal"}))
	assert.False(t, chat.IsUnreachable(nil))
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"8 (912) 000-11-22":  "+79120001122",
		"+8 912 000 11 22":   "+79120001122",
		"+7 912 000-11-22":   "+79120001122",
		"0049 30 1234567":    "+49301234567",
		"+44 (20) 7946-0958": "+442079460958",
		"9120001122":         "9120001122",
		"  ":                 "",
		"n/a":                "",
	}

	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, chat.NormalizePhone(input))
		})
	}
}
