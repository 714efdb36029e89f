package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/pkg/bridge"
)

func TestConvertTextMessage(t *testing.T) {
	u := tgbotapi.Update{
		UpdateID: 500,
		Message: &tgbotapi.Message{
			MessageID: 101,
			From:      &tgbotapi.User{ID: 7},
			Date:      1700000000,
			Chat:      &tgbotapi.Chat{ID: 42},
			Text:      "yes please",
			ReplyToMessage: &tgbotapi.Message{
				MessageID: 100,
			},
		},
	}

	got := convertUpdate(u)
	assert.Equal(t, int64(500), got.Seq)
	require.NotNil(t, got.Message)
	assert.Nil(t, got.Click)
	assert.Equal(t, 101, got.Message.MessageID)
	assert.Equal(t, int64(42), got.Message.ChatID)
	assert.Equal(t, int64(7), got.Message.SenderID)
	assert.Equal(t, int64(1700000000), got.Message.SentAt)
	assert.Equal(t, 100, got.Message.ReplyTo)
	assert.Equal(t, "yes please", got.Message.Text)
}

func TestConvertCallbackQuery(t *testing.T) {
	u := tgbotapi.Update{
		UpdateID: 501,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-abc",
			Data:    "Approve",
			Message: &tgbotapi.Message{MessageID: 100, Chat: &tgbotapi.Chat{ID: 42}},
		},
	}

	got := convertUpdate(u)
	assert.Equal(t, int64(501), got.Seq)
	require.NotNil(t, got.Click)
	assert.Nil(t, got.Message)
	assert.Equal(t, "cb-abc", got.Click.ID)
	assert.Equal(t, 100, got.Click.MessageID)
	assert.Equal(t, "Approve", got.Click.Data)
}

func TestConvertPhotoKeepsLargestRendition(t *testing.T) {
	u := tgbotapi.Update{
		UpdateID: 502,
		Message: &tgbotapi.Message{
			MessageID: 102,
			From:      &tgbotapi.User{ID: 7},
			Chat:      &tgbotapi.Chat{ID: 42},
			Caption:   "screenshot",
			Photo: []tgbotapi.PhotoSize{
				{FileID: "small", Width: 90},
				{FileID: "medium", Width: 320},
				{FileID: "large", Width: 1280},
			},
		},
	}

	got := convertUpdate(u)
	require.NotNil(t, got.Message)
	require.Len(t, got.Message.Media, 1)
	assert.Equal(t, bridge.MediaPhoto, got.Message.Media[0].Kind)
	assert.Equal(t, "large", got.Message.Media[0].FileID)
	assert.Equal(t, "screenshot", got.Message.Caption)
}

func TestConvertDocumentCarriesMetadata(t *testing.T) {
	u := tgbotapi.Update{
		UpdateID: 503,
		Message: &tgbotapi.Message{
			MessageID: 103,
			From:      &tgbotapi.User{ID: 7},
			Chat:      &tgbotapi.Chat{ID: 42},
			Document: &tgbotapi.Document{
				FileID:   "doc-1",
				FileName: "report.pdf",
				MimeType: "application/pdf",
			},
		},
	}

	got := convertUpdate(u)
	require.NotNil(t, got.Message)
	require.Len(t, got.Message.Media, 1)
	ref := got.Message.Media[0]
	assert.Equal(t, bridge.MediaDocument, ref.Kind)
	assert.Equal(t, "report.pdf", ref.FileName)
	assert.Equal(t, "application/pdf", ref.MIME)
}

func TestConvertUnsupportedKindsAreLabeled(t *testing.T) {
	u := tgbotapi.Update{
		UpdateID: 504,
		Message: &tgbotapi.Message{
			MessageID: 104,
			From:      &tgbotapi.User{ID: 7},
			Chat:      &tgbotapi.Chat{ID: 42},
			Voice:     &tgbotapi.Voice{FileID: "v-1"},
		},
	}

	got := convertUpdate(u)
	require.NotNil(t, got.Message)
	require.Len(t, got.Message.Media, 1)
	assert.Equal(t, bridge.MediaVoice, got.Message.Media[0].Kind)
	assert.False(t, got.Message.Media[0].Kind.Supported())
}

func TestConvertInertUpdateStillCarriesSequence(t *testing.T) {
	// Edits, poll events etc. arrive with no message and no callback;
	// they must still move the cursor.
	got := convertUpdate(tgbotapi.Update{UpdateID: 505})
	assert.Equal(t, int64(505), got.Seq)
	assert.Nil(t, got.Message)
	assert.Nil(t, got.Click)
}

func TestChunkRunes(t *testing.T) {
	assert.Equal(t, []string{"short"}, chunkRunes("short", 10))

	chunks := chunkRunes("αβγδε", 2)
	assert.Equal(t, []string{"αβ", "γδ", "ε"}, chunks)
}
