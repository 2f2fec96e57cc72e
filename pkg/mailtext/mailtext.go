// Package mailtext extracts best-effort plain text from raw mail messages.
package mailtext

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-message"

	// Registers decoders for non-UTF-8 charsets.
	_ "github.com/emersion/go-message/charset"
)

// Extract renders the body of a raw RFC 5322 message as plain text.
//
// Non-multipart messages are decoded with their declared charset (UTF-8 when
// absent, replacement characters for undecodable bytes). Multipart messages
// are walked in document order: the first non-attachment text/plain part wins
// unconditionally; if none exists, the first non-attachment text/html part is
// returned as raw markup, so downstream patterns must tolerate tag noise.
// Extract never fails: anything unusable degrades to a logged warning and an
// empty result.
func Extract(raw []byte, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}

	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		logger.Warn("unparseable mail message", "error", err)
		return ""
	}

	plain, html := walk(entity, logger)
	if plain != "" {
		return plain
	}
	return html
}

// walk traverses an entity tree in document order and returns the first
// usable text/plain and text/html contents. Traversal stops as soon as a
// plain part is decoded.
func walk(entity *message.Entity, logger *slog.Logger) (plain, html string) {
	mr := entity.MultipartReader()
	if mr == nil {
		return decodeLeaf(entity, logger)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return plain, html
		}
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			logger.Warn("skipping malformed mail part", "error", err)
			return plain, html
		}

		p, h := walk(part, logger)
		if p != "" {
			return p, html
		}
		if html == "" {
			html = h
		}
	}
}

// decodeLeaf decodes one non-multipart entity into the (plain, html) slot
// matching its content type. Attachments and non-text parts yield nothing.
func decodeLeaf(entity *message.Entity, logger *slog.Logger) (plain, html string) {
	if disposition, _, _ := entity.Header.ContentDisposition(); disposition == "attachment" {
		return "", ""
	}

	mediaType, _, err := entity.Header.ContentType()
	if err != nil {
		// No parseable content type: treat as plain text, the RFC default.
		mediaType = "text/plain"
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType != "text/plain" && mediaType != "text/html" {
		return "", ""
	}

	body, err := io.ReadAll(entity.Body)
	if err != nil {
		logger.Warn("decoding mail part", "content_type", mediaType, "error", err)
		return "", ""
	}

	if mediaType == "text/html" {
		return "", string(body)
	}
	return string(body), ""
}
