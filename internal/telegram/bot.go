package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mvasilyev/jean-claude-stopkran/internal/config"
	"github.com/mvasilyev/jean-claude-stopkran/internal/coordinator"
	"github.com/mvasilyev/jean-claude-stopkran/internal/pending"
)

// Bot ties the Bot API client to the decision flow. Outbound it implements
// coordinator.Notifier; inbound it dispatches poller updates to the arbiter
// and the owner claim.
type Bot struct {
	client  *Client
	store   *config.Store
	arbiter *coordinator.Arbiter
	logger  *slog.Logger
	poller  *Poller
}

// NewBot creates the bot. Bind must be called before Start so inbound
// actions have an arbiter to land on.
func NewBot(client *Client, store *config.Store, logger *slog.Logger, pollingTimeout int) *Bot {
	b := &Bot{
		client: client,
		store:  store,
		logger: logger,
	}
	b.poller = NewPoller(client, b.dispatch, logger, pollingTimeout)
	return b
}

// Bind attaches the arbiter. Separate from NewBot because the arbiter
// itself needs the bot as its notifier.
func (b *Bot) Bind(arbiter *coordinator.Arbiter) {
	b.arbiter = arbiter
}

// Start verifies the token, clears any webhook so long polling works, and
// launches the poller.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verify bot token: %w", err)
	}
	if err := b.client.DeleteWebhook(ctx); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	b.logger.Info("bot ready", "username", me.Username)

	b.poller.Start()
	return nil
}

// Stop shuts down the poller and waits for the in-flight poll to return.
func (b *Bot) Stop(context.Context) error {
	b.poller.Stop()
	return nil
}

// Owner implements coordinator.OwnerSource.
func (b *Bot) Owner() (int64, bool) {
	return b.store.Owner()
}

// Publish implements coordinator.Notifier.
func (b *Bot) Publish(ctx context.Context, p coordinator.Prompt) (pending.NotificationRef, error) {
	owner, ok := b.store.Owner()
	if !ok {
		return pending.NotificationRef{}, errors.New("telegram: no owner registered")
	}

	msg, err := b.client.SendMessage(ctx, SendMessageRequest{
		ChatID:      owner,
		Text:        p.Text,
		ReplyMarkup: keyboard(p.Buttons),
	})
	if err != nil {
		return pending.NotificationRef{}, err
	}
	return pending.NotificationRef{ChatID: owner, MessageID: msg.MessageID}, nil
}

// Finalize implements coordinator.Notifier. Editing without a reply markup
// drops the inline keyboard.
func (b *Bot) Finalize(ctx context.Context, ref pending.NotificationRef, text string) error {
	_, err := b.client.EditMessageText(ctx, EditMessageTextRequest{
		ChatID:    ref.ChatID,
		MessageID: ref.MessageID,
		Text:      text,
	})
	return err
}

func keyboard(rows [][]coordinator.Button) *InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &InlineKeyboardMarkup{}
	for _, row := range rows {
		var btns []InlineKeyboardButton
		for _, btn := range row {
			btns = append(btns, InlineKeyboardButton{Text: btn.Label, CallbackData: btn.Data})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, btns)
	}
	return markup
}

// dispatch routes one polled update.
func (b *Bot) dispatch(u *Update) {
	ctx := context.Background()
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if text == "/start" {
		b.handleClaim(ctx, msg.Chat.ID)
		return
	}

	owner, ok := b.store.Owner()
	if !ok || msg.Chat.ID != owner {
		b.logger.Debug("ignoring message from non-owner chat", "chat", msg.Chat.ID)
		return
	}

	if text == "/status" {
		b.handleStatus(ctx, owner)
		return
	}

	b.handleQuickReply(ctx, owner, text)
}

// handleClaim processes /start: the first chat to send it becomes the
// approver for the daemon's lifetime (and across restarts).
func (b *Bot) handleClaim(ctx context.Context, chatID int64) {
	result, err := b.store.ClaimOwner(chatID)
	switch {
	case errors.Is(err, config.ErrOwnerTaken):
		b.reply(ctx, chatID, "This daemon already reports to another chat.")
	case err != nil:
		b.logger.Error("owner claim failed", "chat", chatID, "error", err)
		b.reply(ctx, chatID, "Registration failed, check the daemon logs.")
	case result == config.AlreadyOwner:
		b.reply(ctx, chatID, "Already registered. Permission requests will arrive here.")
	default:
		b.logger.Info("owner registered", "chat", chatID)
		b.reply(ctx, chatID, "✅ Registered. Permission requests will arrive here.")
	}
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	n := b.arbiter.PendingCount()
	if n == 0 {
		b.reply(ctx, chatID, "No pending requests.")
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("⏳ %d pending request(s).", n))
}

func (b *Bot) handleQuickReply(ctx context.Context, chatID int64, text string) {
	out := b.arbiter.QuickReply(ctx, text)
	switch out.Status {
	case coordinator.StatusNoPending:
		b.reply(ctx, chatID, "No pending requests.")
	case coordinator.StatusAlreadyHandled:
		b.reply(ctx, chatID, "Already decided.")
	case coordinator.StatusInvalidOption:
		b.reply(ctx, chatID, "No such option.")
	case coordinator.StatusResolved, coordinator.StatusIgnored:
		// Resolution is visible through the edited prompt; chatter that
		// matches nothing stays unanswered.
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *CallbackQuery) {
	owner, ok := b.store.Owner()
	if !ok || cb.From.ID != owner {
		b.answerCallback(ctx, cb.ID, "Not your daemon.")
		return
	}

	action, requestID, index, err := parseCallback(cb.Data)
	if err != nil {
		b.logger.Warn("unparseable callback", "data", cb.Data, "error", err)
		b.answerCallback(ctx, cb.ID, "")
		return
	}

	var toast string
	switch action {
	case "allow":
		toast = buttonToast(b.arbiter.ResolveButton(ctx, requestID, pending.Allow), "✅ Allowed")
	case "deny":
		toast = buttonToast(b.arbiter.ResolveButton(ctx, requestID, pending.Deny), "❌ Denied")
	case "answer":
		label, st := b.arbiter.ResolveOption(ctx, requestID, index)
		toast = buttonToast(st, "✅ "+label)
	default:
		b.logger.Warn("unknown callback action", "action", action)
	}
	b.answerCallback(ctx, cb.ID, toast)
}

func buttonToast(st coordinator.Status, resolved string) string {
	switch st {
	case coordinator.StatusResolved:
		return resolved
	case coordinator.StatusAlreadyHandled:
		return "Already decided."
	case coordinator.StatusExpired:
		return "This request has expired."
	case coordinator.StatusInvalidOption:
		return "No such option."
	default:
		return ""
	}
}

// parseCallback splits callback data into its action, request id, and, for
// answer actions, the zero-based option index.
func parseCallback(data string) (action, requestID string, index int, err error) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 2 || parts[1] == "" {
		return "", "", 0, fmt.Errorf("malformed callback data %q", data)
	}
	action, requestID = parts[0], parts[1]
	if action != "answer" {
		return action, requestID, 0, nil
	}
	if len(parts) != 3 {
		return "", "", 0, fmt.Errorf("answer callback without index: %q", data)
	}
	index, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", "", 0, fmt.Errorf("bad option index in %q: %w", data, err)
	}
	return action, requestID, index, nil
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.client.SendMessage(ctx, SendMessageRequest{ChatID: chatID, Text: text}); err != nil {
		b.logger.Warn("reply failed", "chat", chatID, "error", err)
	}
}

func (b *Bot) answerCallback(ctx context.Context, id, text string) {
	err := b.client.AnswerCallbackQuery(ctx, AnswerCallbackQueryRequest{
		CallbackQueryID: id,
		Text:            text,
	})
	if err != nil {
		b.logger.Debug("answerCallbackQuery failed", "error", err)
	}
}
