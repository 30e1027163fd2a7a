package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-easyapply-automation/internal/models"
)

// Bot pushes operator notifications: cycle summaries, checkpoint
// alerts and review requests.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewBot(token string, chatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Bot{
		api:    api,
		chatID: chatID,
	}, nil
}

func (b *Bot) escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
		")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
		"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
		"}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}

func (b *Bot) SendStatus(message string) error {
	msg := tgbotapi.NewMessage(b.chatID, "ℹ️ "+message)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendError(errReq error) error {
	msg := tgbotapi.NewMessage(b.chatID, fmt.Sprintf("❌ Error: %v", errReq))
	_, sendErr := b.api.Send(msg)
	return sendErr
}

// SendCheckpointAlert asks the operator to solve the verification page
// manually; automation stays paused until they resume it.
func (b *Bot) SendCheckpointAlert(url string) error {
	text := fmt.Sprintf(
		"🚨 *Checkpoint detected*\nAutomation is paused\\. Solve the verification manually, then resume\\.\n🔗 %s",
		b.escapeMarkdown(url))
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "MarkdownV2"
	_, err := b.api.Send(msg)
	return err
}

// SendReviewRequest flags a job whose generated answers need a human
// look before the application can run.
func (b *Bot) SendReviewRequest(job *models.JobListing, question string) error {
	text := fmt.Sprintf("⏳ *Review needed*\n🏢 %s\n💼 %s\n❓ %s\n🔗 [View Job](%s)",
		b.escapeMarkdown(job.Company),
		b.escapeMarkdown(job.Title),
		b.escapeMarkdown(question),
		job.URL,
	)
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "MarkdownV2"
	_, err := b.api.Send(msg)
	return err
}
