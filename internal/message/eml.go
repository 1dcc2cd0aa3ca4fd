package message

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// maxPartBytes caps how much of any single MIME part we read.
const maxPartBytes = 1 << 20 // 1MB

// ParseEML reads an RFC 822 / RFC 2045 email and converts it into a
// Message: Subject and From from the headers, Body from the text/plain
// parts, attachments (with filenames) decoded when textual.
func ParseEML(r io.Reader) (*Message, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	m := &Message{
		Subject: decodeHeader(msg.Header.Get("Subject")),
		Sender:  msg.Header.Get("From"),
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			return nil, err
		}
		m.Body = body
		return m, nil
	}

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var bodyParts []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read part: %w", err)
		}

		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		text, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			return nil, err
		}

		if name := part.FileName(); name != "" {
			att := Attachment{Name: name}
			if strings.HasPrefix(partType, "text/") {
				att.Text = text
			}
			m.Attachments = append(m.Attachments, att)
			continue
		}
		if partType == "" || partType == "text/plain" {
			bodyParts = append(bodyParts, text)
		}
	}
	m.Body = strings.Join(bodyParts, "\n")
	return m, nil
}

func decodeBody(r io.Reader, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	b, err := io.ReadAll(io.LimitReader(r, maxPartBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}

func decodeHeader(s string) string {
	dec := new(mime.WordDecoder)
	out, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}
