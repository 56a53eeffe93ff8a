package notifier

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// captionLimit is the longest caption Telegram accepts on a media message.
const captionLimit = 1024

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
	log *zap.Logger
}

// NewTelegramNotifier connects to the Bot API with optional proxy support.
// It fails when the token is rejected or the API is unreachable.
func NewTelegramNotifier(botToken, proxyURL string, log *zap.Logger) (*TelegramNotifier, error) {
	return newTelegramNotifier(botToken, proxyURL, tgbotapi.APIEndpoint, log)
}

func newTelegramNotifier(botToken, proxyURL, endpoint string, log *zap.Logger) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{
		Timeout:   60 * time.Second,
		Transport: transport,
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, errors.Wrap(err, "connect telegram")
	}
	log = log.Named("telegram")
	log.Info("telegram connected", zap.String("username", bot.Self.UserName))
	return &TelegramNotifier{bot: bot, log: log}, nil
}

// Send posts message to chatID. With attachments, the first one carries the
// message as its caption unless the message is too long for a caption, in
// which case the text goes out first on its own. A failure after anything
// was delivered is returned as a *PartialError. An empty message with
// attachments sends the attachments alone.
func (t *TelegramNotifier) Send(ctx context.Context, chatID int64, message string, images []Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	caption := message
	textSent := false
	if len(images) == 0 || len([]rune(message)) > captionLimit {
		msg := tgbotapi.NewMessage(chatID, message)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := t.bot.Send(msg); err != nil {
			return errors.Wrap(err, "send message")
		}
		caption = ""
		textSent = true
	}
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return partialErr(textSent, i, err)
		}
		c := ""
		if i == 0 {
			c = caption
		}
		if _, err := t.bot.Send(mediaMessage(chatID, img, c)); err != nil {
			return partialErr(textSent, i, errors.Wrapf(err, "send attachment %s", img.Name))
		}
		if i == 0 {
			textSent = true
		}
	}
	return nil
}

func partialErr(textSent bool, delivered int, err error) error {
	if !textSent && delivered == 0 {
		return err
	}
	return &PartialError{TextSent: textSent, Delivered: delivered, Err: err}
}

// mediaMessage sends raster images as photos and everything else (SVG
// included) as documents, which Telegram does not try to recompress.
func mediaMessage(chatID int64, img Attachment, caption string) tgbotapi.Chattable {
	file := tgbotapi.FileBytes{Name: img.Name, Bytes: img.Data}
	switch strings.ToLower(path.Ext(img.Name)) {
	case ".png", ".jpg", ".jpeg":
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
		return photo
	default:
		doc := tgbotapi.NewDocument(chatID, file)
		doc.Caption = caption
		doc.ParseMode = tgbotapi.ModeHTML
		return doc
	}
}
