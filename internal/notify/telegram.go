package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go-casting-scout/internal/digest"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramLimit is the Bot API's per-message cap, less some headroom.
const TelegramLimit = 4000

type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram authenticates the bot token against the Bot API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return NewTelegramWithBot(bot, chatID), nil
}

func NewTelegramWithBot(bot *tgbotapi.BotAPI, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, d digest.Digest) error {
	for i, text := range TelegramMessages(d) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("send part %d: %w", i+1, err)
		}
	}
	return nil
}

// TelegramMessages renders d in Telegram's HTML subset, split into messages
// under TelegramLimit. Entries are never split across messages.
func TelegramMessages(d digest.Digest) []string {
	esc := html.EscapeString
	blocks := []string{"🎬 <b>" + esc(d.Subject) + "</b>"}

	if d.Empty() {
		blocks = append(blocks, fmt.Sprintf("No new casting opportunities found today (%s). Keep checking your direct sources!",
			d.Date.Format("Jan 02")))
	}
	for _, sec := range d.Sections {
		blocks = append(blocks, fmt.Sprintf("<b>%s</b>\n<i>%s</i>", esc(sec.Label()), esc(sec.Blurb())))
		for _, e := range sec.Entries {
			blocks = append(blocks, telegramEntry(e))
		}
	}
	if len(d.Failed) > 0 {
		blocks = append(blocks, "<i>Unavailable today: "+esc(strings.Join(d.Failed, ", "))+"</i>")
	}
	return chunk(blocks, "\n\n", TelegramLimit)
}

func telegramEntry(e digest.Entry) string {
	esc := html.EscapeString
	l := e.Listing

	var b strings.Builder
	fmt.Fprintf(&b, "%d. <b>%s</b>", e.Number, esc(l.Title))
	if l.SchoolOrProduction != "" {
		fmt.Fprintf(&b, " 🎓 %s", esc(l.SchoolOrProduction))
	}
	fmt.Fprintf(&b, "\n📍 %s | %s", esc(orNA(l.Location)), esc(digest.DisplayName(l.RoleType)))
	if l.Compensation != "" {
		fmt.Fprintf(&b, "\n💰 %s", esc(l.Compensation))
	}
	if l.Deadline != nil {
		fmt.Fprintf(&b, "\n⏰ Deadline: %s", l.Deadline.Format("Jan 02"))
	}
	fmt.Fprintf(&b, "\n🔖 %s", esc(digest.DisplayName(l.Source)))
	if desc := digest.Excerpt(l.Description); desc != "" && desc != l.Title {
		fmt.Fprintf(&b, "\n📄 %s", esc(desc))
	}
	fmt.Fprintf(&b, "\n🔗 <a href=\"%s\">Apply / View Details</a>", esc(l.URL))
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
