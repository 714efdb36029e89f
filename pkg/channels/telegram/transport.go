// Package telegram implements the chat transport side of the bridge on the
// Telegram Bot API: sending questions (with optional inline buttons or a
// force-reply marker), long-polling the update feed, acknowledging button
// clicks, and downloading reply media.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"courier/pkg/bridge"
	"courier/pkg/utils"
)

// callbackDataLimit is the Telegram cap on inline button payload bytes.
const callbackDataLimit = 64

// Config encapsulates what the transport needs to authenticate and behave.
type Config struct {
	Token           string        // The secret BOT API string provided by @BotFather
	ChatID          int64         // The single private conversation the bridge serves
	MessageLimit    int           // Maximum character count per single message bubble
	DownloadTimeout time.Duration // Per-download bound for media fetches
	ForceReply      bool          // Mark plain questions so replies carry an explicit link
}

// Transport is the production implementation of the bridge's transport
// contract for Telegram. One instance serves exactly one chat.
type Transport struct {
	cfg        Config
	bot        *tgbotapi.BotAPI   // Underlying Telegram SDK client
	httpClient *http.Client       // Client for downloading remote media from Telegram
	stopCtx    context.Context    // Context used to forcibly abort the long-polling HTTP request
	stopCancel context.CancelFunc // Function to trigger the abort
}

// New authenticates against the Bot API and returns a ready transport.
//
// The bot gets a dedicated HTTP client whose dialer is tied to stopCtx, so
// an in-flight long-poll request is aborted the moment Close is called
// instead of lingering until the server-side wait expires (which is what
// produces 409 Conflict on restart).
func New(cfg Config) (*Transport, error) {
	ctx, cancel := context.WithCancel(context.Background())

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	botHTTPClient := &http.Client{
		Timeout: 90 * time.Second, // must exceed the long-poll wait
		Transport: &http.Transport{
			DialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
				// Wrap the dial context with stopCtx so Close can kill the connection
				mergedCtx, mergedCancel := context.WithCancel(dialCtx)
				go func() {
					select {
					case <-ctx.Done():
						mergedCancel()
					case <-mergedCtx.Done():
					}
				}()
				return dialer.DialContext(mergedCtx, network, addr)
			},
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, botHTTPClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot authorized", "username", bot.Self.UserName, "chat_id", cfg.ChatID)

	return &Transport{
		cfg: cfg,
		bot: bot,
		httpClient: &http.Client{
			Timeout: cfg.DownloadTimeout,
		},
		stopCtx:    ctx,
		stopCancel: cancel,
	}, nil
}

// SelfID returns the bot's own user id; the matcher uses it to discard the
// bot's outgoing messages echoed back on the update feed.
func (t *Transport) SelfID() int64 {
	return t.bot.Self.ID
}

// VerifyChat confirms at startup that the configured chat is reachable and
// is a private (single-party) conversation. Anything else is a
// misconfiguration that must abort startup rather than degrade silently.
func (t *Transport) VerifyChat(ctx context.Context) error {
	chat, err := t.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: t.cfg.ChatID},
	})
	if err != nil {
		return fmt.Errorf("configured chat %d is not reachable: %w", t.cfg.ChatID, err)
	}
	if !chat.IsPrivate() {
		return fmt.Errorf("configured chat %d is a %s chat; the bridge requires a private conversation", t.cfg.ChatID, chat.Type)
	}
	return nil
}

// SendQuestion posts a question to the chat and returns its Question record.
//
// With buttons, an inline keyboard is attached and correlation is forced
// loose: a click references the question's message id directly, which makes
// the reply link redundant. Without buttons (and with force-reply enabled)
// the message carries a force-reply marker so the user's answer arrives with
// an explicit in-reply-to link, allowing strict correlation.
//
// Questions longer than the message limit are split; the markup rides on the
// final chunk, which therefore becomes the question's identity.
func (t *Transport) SendQuestion(ctx context.Context, text string, buttons []string) (bridge.Question, error) {
	mode := bridge.ModeLoose
	var markup interface{}
	if len(buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, label := range buttons {
			data := utils.TruncateBytes(label, callbackDataLimit)
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, data),
			))
		}
		markup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	} else if t.cfg.ForceReply {
		mode = bridge.ModeStrict
		markup = tgbotapi.ForceReply{ForceReply: true}
	}

	chunks := chunkRunes(utils.EscapeHTML(text), t.cfg.MessageLimit)
	var sent tgbotapi.Message
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(t.cfg.ChatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if i == len(chunks)-1 {
			msg.ReplyMarkup = markup
		}
		var err error
		sent, err = t.bot.Send(msg)
		if err != nil {
			return bridge.Question{}, fmt.Errorf("telegram send failed: %w", err)
		}
	}

	return bridge.Question{
		ID:        sent.MessageID,
		IssueTime: int64(sent.Date),
		Mode:      mode,
	}, nil
}

// FetchUpdates performs one long-poll getUpdates call. floor is the lowest
// sequence number the call may return (zero means "everything pending");
// wait is the server-side hold. The SDK call itself is not context-aware, so
// it runs in a goroutine and an expiring ctx abandons the response; since an
// abandoned batch is never confirmed by a higher offset, Telegram redelivers
// it on the next call and nothing is lost.
func (t *Transport) FetchUpdates(ctx context.Context, floor int64, wait time.Duration) ([]bridge.Update, error) {
	req := tgbotapi.NewUpdate(int(floor))
	req.Timeout = int(wait / time.Second)
	req.AllowedUpdates = []string{"message", "callback_query"}

	type fetchResult struct {
		updates []tgbotapi.Update
		err     error
	}
	ch := make(chan fetchResult, 1)
	go func() {
		updates, err := t.bot.GetUpdates(req)
		ch <- fetchResult{updates, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("getUpdates failed: %w", r.err)
		}
		batch := make([]bridge.Update, 0, len(r.updates))
		for _, u := range r.updates {
			batch = append(batch, convertUpdate(u))
		}
		return batch, nil
	}
}

// AckButtonClick answers a callback query so the user's client stops showing
// the progress spinner. Called exactly once per accepted click.
func (t *Transport) AckButtonClick(ctx context.Context, clickID string) error {
	if _, err := t.bot.Request(tgbotapi.NewCallback(clickID, "")); err != nil {
		return fmt.Errorf("answerCallbackQuery failed: %w", err)
	}
	return nil
}

// FetchMediaBytes resolves a media reference to its raw bytes and MIME type.
// Telegram's declared MIME is trusted when present; otherwise the content is
// sniffed.
func (t *Transport) FetchMediaBytes(ctx context.Context, ref bridge.MediaRef) ([]byte, string, error) {
	fileInfo, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: ref.FileID})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file info: %w", err)
	}

	// Build the download URL directly from the token to save a round trip
	fileURL := fileInfo.Link(t.cfg.Token)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download media: status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}

	mimeType := ref.MIME
	if mimeType == "" {
		mimeType, _ = utils.DetectMimeAndExt(data)
	}
	return data, mimeType, nil
}

// SendNotice posts a plain informational message to the chat, chunked if it
// exceeds the message limit. No reply is expected or waited for.
func (t *Transport) SendNotice(ctx context.Context, text string) error {
	for _, chunk := range chunkRunes(utils.EscapeHTML(text), t.cfg.MessageLimit) {
		msg := tgbotapi.NewMessage(t.cfg.ChatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("telegram send failed: %w", err)
		}
	}
	return nil
}

// SendDocument uploads a local file to the chat with an optional caption.
func (t *Transport) SendDocument(ctx context.Context, path, caption string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	doc := tgbotapi.NewDocument(t.cfg.ChatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	if _, err := t.bot.Send(doc); err != nil {
		return fmt.Errorf("telegram document upload failed: %w", err)
	}
	return nil
}

// SendImage posts one image to the chat. source is either a local file path
// or an http(s) URL; Telegram fetches URLs itself.
func (t *Transport) SendImage(ctx context.Context, source string) error {
	var photo tgbotapi.PhotoConfig
	if _, err := os.Stat(source); err == nil {
		photo = tgbotapi.NewPhoto(t.cfg.ChatID, tgbotapi.FilePath(source))
	} else {
		photo = tgbotapi.NewPhoto(t.cfg.ChatID, tgbotapi.FileURL(source))
	}
	if _, err := t.bot.Send(photo); err != nil {
		return fmt.Errorf("telegram photo send failed: %w", err)
	}
	return nil
}

// Close aborts any in-flight long poll and clears the connection pool.
func (t *Transport) Close() error {
	t.stopCancel()

	// HTTP/1.1 connections stuck in Read won't abort via CloseIdleConnections,
	// but the dial-context hook above already severed them; this clears the pool.
	if httpClient, ok := t.bot.Client.(*http.Client); ok && httpClient != nil {
		if transport, ok := httpClient.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}

	return nil
}

// chunkRunes splits message into rune-safe chunks of at most limit runes.
func chunkRunes(message string, limit int) []string {
	msgRunes := []rune(message)
	totalLen := len(msgRunes)
	if totalLen <= limit {
		return []string{message}
	}

	var chunks []string
	for i := 0; i < totalLen; i += limit {
		end := i + limit
		if end > totalLen {
			end = totalLen
		}
		chunks = append(chunks, string(msgRunes[i:end]))
	}
	return chunks
}
