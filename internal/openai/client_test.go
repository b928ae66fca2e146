package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyReplyWithoutKey(t *testing.T) {
	c := New("")
	assert.False(t, c.Enabled())

	_, err := c.ClassifyReply(context.Background(), "I took it")
	assert.ErrorIs(t, err, ErrClientNotInitialised)
}

func TestClassifyReplyRejectsEmpty(t *testing.T) {
	_, err := New("key").ClassifyReply(context.Background(), "   ")
	assert.Error(t, err)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, LabelTaken, normalizeLabel(" Taken."))
	assert.Equal(t, LabelRemindLater, normalizeLabel(`"remind later"`))
	assert.Equal(t, LabelSkipToday, normalizeLabel("SKIP TODAY\n"))
	assert.Equal(t, "", normalizeLabel(LabelNone))
	assert.Equal(t, "", normalizeLabel("maybe"))
}

func TestClassifyReplyCallsChatCompletions(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Len(t, body.Messages, 2)
		gotPrompt = body.Messages[1].Content

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1760000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "Remind later"}
			}]
		}`)
	}))
	defer srv.Close()

	c := New("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	label, err := c.ClassifyReply(context.Background(), "not now, in a bit")
	require.NoError(t, err)
	assert.Equal(t, LabelRemindLater, label)
	assert.Equal(t, "not now, in a bit", gotPrompt)
}
