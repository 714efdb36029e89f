package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"courier/pkg/bridge"
)

// convertUpdate maps one raw Telegram update to the bridge's tagged variant.
// Updates that are neither a message nor a button click (edits, poll events,
// member changes) still come back with their sequence number set so the
// cursor moves past them; they just can never match.
func convertUpdate(u tgbotapi.Update) bridge.Update {
	out := bridge.Update{Seq: int64(u.UpdateID)}

	if cb := u.CallbackQuery; cb != nil && cb.Message != nil {
		out.Click = &bridge.ButtonClick{
			ID:        cb.ID,
			MessageID: cb.Message.MessageID,
			Data:      cb.Data,
		}
		return out
	}

	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return out
	}

	in := &bridge.IncomingMessage{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		SentAt:    int64(msg.Date),
		Text:      msg.Text,
		Caption:   msg.Caption,
		Media:     collectMedia(msg),
	}
	if msg.From != nil {
		in.SenderID = msg.From.ID
	}
	if msg.ReplyToMessage != nil {
		in.ReplyTo = msg.ReplyToMessage.MessageID
	}
	out.Message = in
	return out
}

// collectMedia extracts attachment references from a message. Photos come as
// a resolution ladder; only the largest rendition is kept. Kinds the bridge
// cannot deliver are still recorded so the reply can name what was attached.
func collectMedia(msg *tgbotapi.Message) []bridge.MediaRef {
	var refs []bridge.MediaRef

	if len(msg.Photo) > 0 {
		best := msg.Photo[len(msg.Photo)-1]
		refs = append(refs, bridge.MediaRef{
			Kind:   bridge.MediaPhoto,
			FileID: best.FileID,
		})
	}
	if doc := msg.Document; doc != nil {
		refs = append(refs, bridge.MediaRef{
			Kind:     bridge.MediaDocument,
			FileID:   doc.FileID,
			FileName: doc.FileName,
			MIME:     doc.MimeType,
		})
	}
	if msg.Voice != nil {
		refs = append(refs, bridge.MediaRef{Kind: bridge.MediaVoice, FileID: msg.Voice.FileID})
	}
	if msg.Audio != nil {
		refs = append(refs, bridge.MediaRef{Kind: bridge.MediaAudio, FileID: msg.Audio.FileID})
	}
	if msg.Video != nil {
		refs = append(refs, bridge.MediaRef{Kind: bridge.MediaVideo, FileID: msg.Video.FileID})
	}
	if msg.VideoNote != nil {
		refs = append(refs, bridge.MediaRef{Kind: bridge.MediaVideoNote, FileID: msg.VideoNote.FileID})
	}
	if msg.Sticker != nil {
		refs = append(refs, bridge.MediaRef{Kind: bridge.MediaSticker, FileID: msg.Sticker.FileID})
	}

	return refs
}
