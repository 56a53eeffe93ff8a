package notifier

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Attachment is one named file sent along with a message.
type Attachment struct {
	Name string
	Data []byte
}

// Notifier delivers a message and optional attachments to a chat.
type Notifier interface {
	Send(ctx context.Context, chatID int64, message string, images []Attachment) error
}

// PartialError reports a send that failed after part of it was delivered.
// TextSent is set once the message went out, either on its own or as the
// caption of the first attachment. Delivered counts leading attachments.
type PartialError struct {
	TextSent  bool
	Delivered int
	Err       error
}

func (e *PartialError) Error() string { return e.Err.Error() }

func (e *PartialError) Unwrap() error { return e.Err }

// Cause lets pkg/errors.Cause see through to the API error.
func (e *PartialError) Cause() error { return e.Err }

// Permanent reports whether err is a Bot API rejection that a retry cannot
// fix, such as an unknown chat or a bot blocked by the user.
func Permanent(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 400, 403:
		return true
	case 0:
		// uploads come back without an error code
		return strings.HasPrefix(apiErr.Message, "Bad Request") ||
			strings.HasPrefix(apiErr.Message, "Forbidden")
	}
	return false
}

// Retrying wraps a Notifier and retries failed sends with exponential backoff.
// A retry resumes after whatever the failed attempt already delivered.
type Retrying struct {
	Next       Notifier
	MaxRetries int
	Backoff    time.Duration
	Log        *zap.Logger
}

// NewRetrying returns a Retrying notifier with a one second base backoff.
func NewRetrying(next Notifier, maxRetries int, log *zap.Logger) *Retrying {
	return &Retrying{
		Next:       next,
		MaxRetries: maxRetries,
		Backoff:    time.Second,
		Log:        log.Named("notifier"),
	}
}

func (r *Retrying) Send(ctx context.Context, chatID int64, message string, images []Attachment) error {
	var lastErr error
	for i := 0; i <= r.MaxRetries; i++ {
		err := r.Next.Send(ctx, chatID, message, images)
		if err == nil {
			return nil
		}
		lastErr = err

		var partial *PartialError
		if errors.As(err, &partial) {
			if partial.TextSent {
				message = ""
			}
			images = images[min(partial.Delivered, len(images)):]
			if message == "" && len(images) == 0 {
				return nil
			}
		}
		if Permanent(err) {
			return errors.Wrap(err, "permanent failure")
		}
		if i == r.MaxRetries {
			break
		}
		backoff := r.Backoff * time.Duration(1<<uint(i))
		r.Log.Warn("send failed, retrying",
			zap.Int64("chat_id", chatID),
			zap.Int("attempt", i+1),
			zap.Int("remaining_attachments", len(images)),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return errors.Wrapf(lastErr, "all %d attempts exhausted", r.MaxRetries+1)
}
