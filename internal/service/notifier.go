package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"flowershop/internal/domain"
	"flowershop/internal/metrics"
	"flowershop/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var chatIDPattern = regexp.MustCompile(`^-?\d+$`)

var errTelegramDisabled = errors.New("telegram bot is not configured")

type NotifierConfig struct {
	ChannelID   string
	SendTimeout time.Duration
	FanoutDelay time.Duration
}

// DispatchReport holds per-recipient results of a fan-out.
type DispatchReport struct {
	Results map[string]bool `json:"results"`
	Sent    int             `json:"sent"`
	Total   int             `json:"total"`
}

func (r *DispatchReport) add(recipient string, ok bool) {
	if r.Results == nil {
		r.Results = make(map[string]bool)
	}
	r.Results[recipient] = ok
	r.Total++
	if ok {
		r.Sent++
	}
}

// DeliveryOutcome is the result of notifying an assigned courier.
type DeliveryOutcome int

const (
	CourierNotified DeliveryOutcome = iota
	CourierNoTelegram
	CourierSendFailed
)

// Notifier sends Telegram messages. A failed send is logged, recorded and
// reported as false; it never returns an error to the caller.
type Notifier struct {
	bot    domain.TelegramSender
	users  domain.UserRepository
	log    domain.NotificationLog
	cfg    NotifierConfig
	logger *zerolog.Logger
}

// NewNotifier builds a notifier. bot may be nil, in which case every send fails.
func NewNotifier(bot domain.TelegramSender, users domain.UserRepository, log domain.NotificationLog, cfg NotifierConfig, logger *zerolog.Logger) *Notifier {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = models.DefaultSendTimeout
	}
	return &Notifier{
		bot:    bot,
		users:  users,
		log:    log,
		cfg:    cfg,
		logger: logger,
	}
}

// ValidChatID reports whether identifier looks like a Telegram chat id.
func ValidChatID(identifier string) bool {
	return chatIDPattern.MatchString(identifier)
}

// SendToRecipient sends text to one chat id.
func (n *Notifier) SendToRecipient(ctx context.Context, identifier, text string) bool {
	return n.send(ctx, identifier, text, models.NotifyDirect, nil)
}

// SendToChannel posts to the configured channel, numeric id or "@name".
func (n *Notifier) SendToChannel(ctx context.Context, text string) bool {
	channel := strings.TrimSpace(n.cfg.ChannelID)
	if channel == "" {
		n.logger.Warn().Msg("Telegram channel is not configured")
		return false
	}

	var msg tgbotapi.MessageConfig
	switch {
	case strings.HasPrefix(channel, "@"):
		msg = tgbotapi.NewMessageToChannel(channel, text)
	case ValidChatID(channel):
		id, _ := strconv.ParseInt(channel, 10, 64)
		msg = tgbotapi.NewMessage(id, text)
	default:
		n.logger.Warn().Str("channel", channel).Msg("Invalid Telegram channel id")
		n.record(ctx, channel, models.NotifyChannel, nil, fmt.Errorf("invalid channel id"))
		return false
	}
	msg.ParseMode = models.ParseModeHTML

	err := n.deliver(ctx, msg)
	n.record(ctx, channel, models.NotifyChannel, nil, err)
	return err == nil
}

// SendToMany sends the same text to each identifier in order, pausing delay between sends.
func (n *Notifier) SendToMany(ctx context.Context, identifiers []string, text string, delay time.Duration) map[string]bool {
	results := make(map[string]bool, len(identifiers))
	for i, id := range identifiers {
		if i > 0 && !sleepCtx(ctx, delay) {
			results[id] = false
			continue
		}
		results[id] = n.send(ctx, id, text, models.NotifyDirect, nil)
	}
	return results
}

// NotifyManagers sends text to every manager with a Telegram id, each with a personal greeting.
func (n *Notifier) NotifyManagers(ctx context.Context, kind models.NotificationKind, orderID *int64, text string) DispatchReport {
	var report DispatchReport

	managers, err := n.users.ListUsersByRole(ctx, models.RoleManager)
	if err != nil {
		n.logger.Error().Err(err).Msg("Failed to load managers")
		return report
	}

	recipients := make([]*models.ShopUser, 0, len(managers))
	for _, m := range managers {
		if m.HasTelegram() {
			recipients = append(recipients, m)
		}
	}
	if len(recipients) == 0 {
		n.logger.Warn().Str("kind", string(kind)).Msg("No managers with Telegram ID found")
		return report
	}

	n.logger.Info().Int("managers", len(recipients)).Str("kind", string(kind)).Msg("Sending notifications to managers")
	for i, m := range recipients {
		if i > 0 && !sleepCtx(ctx, n.cfg.FanoutDelay) {
			report.add(m.TelegramID, false)
			continue
		}
		ok := n.send(ctx, m.TelegramID, managerGreeting(m.FullName, text), kind, orderID)
		if !ok {
			n.logger.Warn().Str("manager", m.FullName).Msg("Failed to notify manager")
		}
		report.add(m.TelegramID, ok)
	}
	return report
}

// NotifyCourierAssigned messages the courier with the full delivery details.
func (n *Notifier) NotifyCourierAssigned(ctx context.Context, order *models.Order, courier *models.ShopUser) DeliveryOutcome {
	if !courier.HasTelegram() {
		n.logger.Warn().Int64("order_id", order.ID).Int64("courier_id", courier.ID).Msg("Courier has no Telegram ID")
		return CourierNoTelegram
	}

	orderID := order.ID
	if !n.send(ctx, courier.TelegramID, courierMessage(order, courier), models.NotifyCourierAssigned, &orderID) {
		n.logger.Warn().Int64("order_id", order.ID).Str("courier", courier.FullName).Msg("Failed to notify courier")
		return CourierSendFailed
	}
	n.logger.Info().Int64("order_id", order.ID).Str("courier", courier.FullName).Msg("Courier notified")
	return CourierNotified
}

func (n *Notifier) send(ctx context.Context, identifier, text string, kind models.NotificationKind, orderID *int64) bool {
	identifier = strings.TrimSpace(identifier)
	if !ValidChatID(identifier) {
		n.logger.Warn().Str("recipient", identifier).Str("kind", string(kind)).Msg("Invalid Telegram ID, skipping")
		n.record(ctx, identifier, kind, orderID, fmt.Errorf("invalid telegram id %q", identifier))
		return false
	}
	chatID, err := strconv.ParseInt(identifier, 10, 64)
	if err != nil {
		n.record(ctx, identifier, kind, orderID, err)
		return false
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeHTML

	err = n.deliver(ctx, msg)
	if err != nil {
		n.logger.Error().Err(err).Str("recipient", identifier).Str("kind", string(kind)).Msg("Telegram send error")
	}
	n.record(ctx, identifier, kind, orderID, err)
	return err == nil
}

// deliver performs one send bounded by SendTimeout. Panics in the client are recovered.
func (n *Notifier) deliver(ctx context.Context, c tgbotapi.Chattable) error {
	if n.bot == nil {
		return errTelegramDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.SendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic during send: %v", r)
			}
		}()
		_, err := n.bot.Send(c)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}

func (n *Notifier) record(ctx context.Context, recipient string, kind models.NotificationKind, orderID *int64, sendErr error) {
	metrics.IncNotification(string(kind), sendErr == nil)
	if n.log == nil {
		return
	}

	rec := &models.NotificationRecord{
		Recipient: recipient,
		Kind:      kind,
		OrderID:   orderID,
		Success:   sendErr == nil,
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	// запись журнала не должна зависеть от отменённого контекста запроса
	if err := n.log.RecordNotification(context.WithoutCancel(ctx), rec); err != nil {
		n.logger.Error().Err(err).Msg("Failed to record notification")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
