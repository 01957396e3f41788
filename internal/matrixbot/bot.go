// ABOUTME: Matrix frontend for the command console
// ABOUTME: Syncs with the homeserver, routes prefixed messages to the console, and replies as notices

package matrixbot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-cmdconsole/internal/cmdmgr"
	"github.com/2389/coven-cmdconsole/internal/config"
)

// CommandHandler runs console command lines.
type CommandHandler interface {
	HandleText(ctx context.Context, sender, text string, reply cmdmgr.Reply) bool
}

type sendFunc func(ctx context.Context, roomID id.RoomID, content *event.MessageEventContent) error

// Bot connects a Matrix account to the console.
type Bot struct {
	cfg     config.MatrixConfig
	client  *mautrix.Client
	handler CommandHandler
	logger  *slog.Logger
	send    sendFunc
	seen    *seenEvents

	ctx context.Context
}

// New creates a Bot. It does not contact the homeserver until Run.
func New(cfg config.MatrixConfig, handler CommandHandler, logger *slog.Logger) (*Bot, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	b := &Bot{
		cfg:     cfg,
		client:  client,
		handler: handler,
		logger:  logger.With("component", "matrixbot"),
		seen:    newSeenEvents(10*time.Minute, 1000),
		ctx:     context.Background(),
	}
	b.send = func(ctx context.Context, roomID id.RoomID, content *event.MessageEventContent) error {
		_, err := client.SendMessageEvent(ctx, roomID, event.EventMessage, content)
		return err
	}
	return b, nil
}

// Run syncs until ctx is cancelled or the sync fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("starting matrix bot", "homeserver", b.cfg.Homeserver, "user_id", b.cfg.UserID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.ctx = ctx

	syncer, ok := b.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.client.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.client.SyncWithContext(ctx)
	}()

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bot")
		return nil
	case err := <-syncErr:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

func (b *Bot) handleMessageEvent(ctx context.Context, evt *event.Event) {
	if evt.Sender == id.UserID(b.cfg.UserID) {
		return
	}
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return
	}
	if !b.isRoomAllowed(evt.RoomID.String()) {
		b.logger.Debug("ignoring message from non-allowed room", "room", evt.RoomID.String())
		return
	}

	text, ok := commandText(b.cfg.Prefix, content.Body)
	if !ok {
		return
	}
	if b.seen != nil && !b.seen.firstSight(evt.ID.String()) {
		b.logger.Debug("ignoring redelivered event", "event_id", evt.ID.String())
		return
	}

	// Starting the admin server blocks for a while; keep the sync loop free.
	go b.process(b.ctx, evt.RoomID, evt.Sender, text)
}

func (b *Bot) process(ctx context.Context, roomID id.RoomID, sender id.UserID, text string) {
	handled := b.handler.HandleText(ctx, sender.String(), text, func(reply string) {
		b.sendNotice(ctx, roomID, reply)
	})
	if handled {
		b.logger.Info("console command handled", "room", roomID.String(), "sender", sender.String(), "command", text)
	}
}

// commandText strips prefix from body. It reports false when body does not
// start with prefix or nothing follows it.
func commandText(prefix, body string) (string, bool) {
	body = strings.TrimSpace(body)
	if prefix != "" {
		if !strings.HasPrefix(body, prefix) {
			return "", false
		}
		body = strings.TrimSpace(strings.TrimPrefix(body, prefix))
	}
	return body, body != ""
}

func (b *Bot) isRoomAllowed(roomID string) bool {
	return len(b.cfg.AllowedRooms) == 0 || slices.Contains(b.cfg.AllowedRooms, roomID)
}

func (b *Bot) sendNotice(ctx context.Context, roomID id.RoomID, text string) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := b.send(ctx, roomID, noticeContent(text)); err != nil {
		b.logger.Error("failed to send notice", "room", roomID.String(), "error", err)
	}
}

// noticeContent builds a notice. Multi-line text is rendered as a markdown
// bullet list so clients show one entry per line.
func noticeContent(text string) *event.MessageEventContent {
	content := &event.MessageEventContent{MsgType: event.MsgNotice, Body: text}
	if !strings.Contains(text, "\n") {
		return content
	}

	var md strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			md.WriteString("- ")
			md.WriteString(line)
			md.WriteByte('\n')
		}
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(md.String()), &html); err != nil {
		return content
	}
	content.Format = event.FormatHTML
	content.FormattedBody = html.String()
	return content
}
