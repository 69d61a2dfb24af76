package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrMissingSender is returned for deliveries without a From field.
var ErrMissingSender = errors.New("inbound message has no sender")

// InboundMessage is one webhook delivery.
type InboundMessage struct {
	From             string `json:"from"`
	Body             string `json:"body"`
	NumMedia         int    `json:"num_media"`
	MediaURL         string `json:"media_url,omitempty"`
	MediaContentType string `json:"media_content_type,omitempty"`
	MessageSID       string `json:"message_sid,omitempty"`
}

// HasMedia reports whether the message carries a media attachment.
func (m InboundMessage) HasMedia() bool {
	return m.MediaURL != ""
}

// IsVoice reports whether the attachment is audio.
func (m InboundMessage) IsVoice() bool {
	return m.HasMedia() && strings.HasPrefix(strings.ToLower(m.MediaContentType), "audio")
}

// IsImage reports whether the attachment is an image.
func (m InboundMessage) IsImage() bool {
	return m.HasMedia() && strings.HasPrefix(strings.ToLower(m.MediaContentType), "image")
}

// Text returns the body lower-cased and trimmed.
func (m InboundMessage) Text() string {
	return strings.ToLower(strings.TrimSpace(m.Body))
}

// Kind classifies the message for logs and metrics.
func (m InboundMessage) Kind() string {
	switch {
	case m.IsVoice():
		return "voice"
	case m.IsImage():
		return "image"
	case m.HasMedia():
		return "other_media"
	case m.Text() != "":
		return "text"
	default:
		return "empty"
	}
}

// ParseInbound reads a form-encoded webhook delivery. Only the first media
// attachment is considered.
func ParseInbound(r *http.Request) (InboundMessage, error) {
	if err := r.ParseForm(); err != nil {
		return InboundMessage{}, fmt.Errorf("failed to parse webhook form: %w", err)
	}

	msg := InboundMessage{
		From:       strings.TrimSpace(r.PostForm.Get("From")),
		Body:       r.PostForm.Get("Body"),
		MessageSID: r.PostForm.Get("MessageSid"),
	}
	if msg.From == "" {
		return InboundMessage{}, ErrMissingSender
	}

	if n := r.PostForm.Get("NumMedia"); n != "" {
		num, err := strconv.Atoi(n)
		if err != nil || num < 0 {
			return InboundMessage{}, fmt.Errorf("invalid NumMedia %q", n)
		}
		msg.NumMedia = num
	}

	if url := strings.TrimSpace(r.PostForm.Get("MediaUrl0")); url != "" {
		msg.MediaURL = url
		msg.MediaContentType = strings.TrimSpace(r.PostForm.Get("MediaContentType0"))
		if msg.NumMedia == 0 {
			msg.NumMedia = 1
		}
	}

	return msg, nil
}
