package gapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"grnsync/internal/services"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUser = "me"

// GmailMailbox implements services.Mailbox on the Gmail API.
type GmailMailbox struct {
	svc *gmail.Service
}

func NewGmailMailbox(ctx context.Context, client *http.Client) (*GmailMailbox, error) {
	if client == nil {
		return nil, errors.New("http client is nil")
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	return &GmailMailbox{svc: svc}, nil
}

func (m *GmailMailbox) Search(ctx context.Context, query string, maxResults int64) ([]services.MessageRef, error) {
	if m == nil || m.svc == nil {
		return nil, errors.New("gmail mailbox is nil")
	}

	resp, err := m.svc.Users.Messages.List(gmailUser).Q(query).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	refs := make([]services.MessageRef, 0, len(resp.Messages))
	for _, message := range resp.Messages {
		refs = append(refs, services.MessageRef{ID: message.Id})
	}

	return refs, nil
}

func (m *GmailMailbox) GetMessage(ctx context.Context, id string) (services.MessagePart, error) {
	if m == nil || m.svc == nil {
		return services.MessagePart{}, errors.New("gmail mailbox is nil")
	}

	resp, err := m.svc.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return services.MessagePart{}, fmt.Errorf("get message %s: %w", id, err)
	}
	if resp.Payload == nil {
		return services.MessagePart{}, fmt.Errorf("message %s has no payload", id)
	}

	return convertPart(resp.Payload), nil
}

func (m *GmailMailbox) GetAttachment(ctx context.Context, messageID string, attachmentID string) ([]byte, error) {
	if m == nil || m.svc == nil {
		return nil, errors.New("gmail mailbox is nil")
	}

	resp, err := m.svc.Users.Messages.Attachments.Get(gmailUser, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}

	data, err := decodeBody(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment: %w", err)
	}

	return data, nil
}

func (m *GmailMailbox) GetHeaders(ctx context.Context, id string) (services.MessageHeaders, error) {
	if m == nil || m.svc == nil {
		return services.MessageHeaders{}, errors.New("gmail mailbox is nil")
	}

	resp, err := m.svc.Users.Messages.Get(gmailUser, id).
		Format("metadata").
		MetadataHeaders("From", "Subject").
		Context(ctx).
		Do()
	if err != nil {
		return services.MessageHeaders{}, fmt.Errorf("get headers %s: %w", id, err)
	}

	var headers services.MessageHeaders
	if resp.Payload == nil {
		return headers, nil
	}
	for _, header := range resp.Payload.Headers {
		switch header.Name {
		case "From":
			headers.From = header.Value
		case "Subject":
			headers.Subject = header.Value
		}
	}

	return headers, nil
}

func convertPart(part *gmail.MessagePart) services.MessagePart {
	converted := services.MessagePart{
		Filename: part.Filename,
		MimeType: part.MimeType,
	}

	if part.Body != nil {
		converted.Body.AttachmentID = part.Body.AttachmentId
		if part.Body.Data != "" {
			// Inline bodies are decoded here so the core only ever sees
			// raw bytes; decode failures leave the attachment reference.
			if data, err := decodeBody(part.Body.Data); err == nil {
				converted.Body.Data = data
			}
		}
	}

	for _, child := range part.Parts {
		if child == nil {
			continue
		}
		converted.Parts = append(converted.Parts, convertPart(child))
	}

	return converted
}

func decodeBody(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}
