package body

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
)

// maxPartSize limits how much of a single leaf part is read into memory.
const maxPartSize = 1 << 20

// ReadMIME parses an RFC 5322 message into a part tree. Leaf bodies are
// transfer-decoded, converted to UTF-8 where the charset is known, and
// re-encoded as base64url data so the tree decodes like any other payload.
func ReadMIME(r io.Reader) (*Part, error) {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return fromEntity(entity, "", 0), nil
}

func fromEntity(e *message.Entity, id string, depth int) *Part {
	mediaType, params, err := e.Header.ContentType()
	if err != nil || mediaType == "" {
		mediaType = MimeTextPlain
	}

	part := &Part{
		PartID:   id,
		MimeType: mediaType,
		Headers:  readHeaders(e.Header),
	}
	if _, dispParams, err := e.Header.ContentDisposition(); err == nil {
		part.Filename = dispParams["filename"]
	}
	if part.Filename == "" {
		part.Filename = params["name"]
	}

	if mr := e.MultipartReader(); mr != nil {
		if depth >= maxDepth {
			return part
		}
		for i := 0; ; i++ {
			child, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
				break
			}
			part.Parts = append(part.Parts, fromEntity(child, childID(id, i), depth+1))
		}
		return part
	}

	raw, err := io.ReadAll(io.LimitReader(e.Body, maxPartSize))
	if err != nil {
		// Undecodable leaves stay empty.
		return part
	}
	part.Body = &PartBody{Size: len(raw), Data: EncodeData(raw)}
	return part
}

func readHeaders(h message.Header) []Header {
	var headers []Header
	fields := h.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		headers = append(headers, Header{Name: fields.Key(), Value: value})
	}
	return headers
}

func childID(parent string, i int) string {
	if parent == "" {
		return strconv.Itoa(i)
	}
	return parent + "." + strconv.Itoa(i)
}
