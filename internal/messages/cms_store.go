package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

const messageFields = `id
    name
    email
    message {
      html
    }
    status
    source
    createdAt
    updatedAt`

const (
	mutationCreateMessage = `mutation CreateMessage($data: MessageCreateInput!) {
  createMessage(data: $data) {
    ` + messageFields + `
  }
}`

	mutationPublishMessage = `mutation PublishMessage($id: ID!) {
  publishMessage(where: { id: $id }) {
    id
  }
}`

	mutationUpdateMessage = `mutation UpdateMessage($id: ID!, $status: MessageStatus!) {
  updateMessage(where: { id: $id }, data: { status: $status }) {
    ` + messageFields + `
  }
}`

	mutationDeleteMessage = `mutation DeleteMessage($id: ID!) {
  deleteMessage(where: { id: $id }) {
    id
  }
}`

	queryMessage = `query GetMessage($id: ID!) {
  message(where: { id: $id }, stage: DRAFT) {
    ` + messageFields + `
  }
}`

	queryMessages = `query GetMessages($first: Int!, $skip: Int!) {
  messages(orderBy: createdAt_DESC, first: $first, skip: $skip, stage: DRAFT) {
    ` + messageFields + `
  }
}`
)

const cmsPageSize = 100

// GraphQLClient is the subset of cms.Client used by CMSStore.
type GraphQLClient interface {
	Do(ctx context.Context, operationName, query string, variables map[string]any, out any) error
}

// CMSStore keeps the inbox in the headless CMS Message model. Publishing
// is best-effort once the draft write has succeeded.
type CMSStore struct {
	client GraphQLClient
	logger *logging.Logger
}

func NewCMSStore(client GraphQLClient, logger *logging.Logger) *CMSStore {
	if client == nil {
		panic("messages: cms client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CMSStore{client: client, logger: logger}
}

type cmsMessage struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message *struct {
		HTML string `json:"html"`
	} `json:"message"`
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *cmsMessage) toMessage() *Message {
	m := &Message{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Status:    Status(strings.ToUpper(c.Status)),
		Source:    Source(strings.ToUpper(c.Source)),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Message != nil {
		m.HTML = c.Message.HTML
		m.Body = fromParagraphs(c.Message.HTML)
	}
	return m
}

func (s *CMSStore) Create(ctx context.Context, m Message) (*Message, error) {
	data := map[string]any{
		"name":    m.Name,
		"email":   m.Email,
		"message": map[string]any{"html": m.HTML},
		"status":  string(m.Status),
		"source":  string(m.Source),
	}
	var out struct {
		CreateMessage *cmsMessage `json:"createMessage"`
	}
	if err := s.client.Do(ctx, "CreateMessage", mutationCreateMessage, map[string]any{"data": data}, &out); err != nil {
		return nil, fmt.Errorf("messages: create: %w", err)
	}
	if out.CreateMessage == nil || out.CreateMessage.ID == "" {
		return nil, errors.New("messages: create: cms returned no message")
	}
	s.publish(ctx, out.CreateMessage.ID)
	created := out.CreateMessage.toMessage()
	if created.Body == "" {
		created.Body = m.Body
	}
	return created, nil
}

func (s *CMSStore) Get(ctx context.Context, id string) (*Message, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	var out struct {
		Message *cmsMessage `json:"message"`
	}
	if err := s.client.Do(ctx, "GetMessage", queryMessage, map[string]any{"id": id}, &out); err != nil {
		return nil, fmt.Errorf("messages: get: %w", err)
	}
	if out.Message == nil {
		return nil, ErrNotFound
	}
	return out.Message.toMessage(), nil
}

func (s *CMSStore) UpdateStatus(ctx context.Context, id string, status Status) (*Message, error) {
	var out struct {
		UpdateMessage *cmsMessage `json:"updateMessage"`
	}
	if err := s.client.Do(ctx, "UpdateMessage", mutationUpdateMessage, map[string]any{"id": id, "status": string(status)}, &out); err != nil {
		return nil, fmt.Errorf("messages: update status: %w", err)
	}
	if out.UpdateMessage == nil {
		return nil, ErrNotFound
	}
	s.publish(ctx, id)
	return out.UpdateMessage.toMessage(), nil
}

func (s *CMSStore) Delete(ctx context.Context, id string) error {
	var out struct {
		DeleteMessage *struct {
			ID string `json:"id"`
		} `json:"deleteMessage"`
	}
	if err := s.client.Do(ctx, "DeleteMessage", mutationDeleteMessage, map[string]any{"id": id}, &out); err != nil {
		return fmt.Errorf("messages: delete: %w", err)
	}
	if out.DeleteMessage == nil {
		return ErrNotFound
	}
	return nil
}

func (s *CMSStore) List(ctx context.Context, f Filter) ([]Message, error) {
	out := []Message{}
	for skip := 0; ; skip += cmsPageSize {
		var page struct {
			Messages []cmsMessage `json:"messages"`
		}
		vars := map[string]any{"first": cmsPageSize, "skip": skip}
		if err := s.client.Do(ctx, "GetMessages", queryMessages, vars, &page); err != nil {
			return nil, fmt.Errorf("messages: list: %w", err)
		}
		for i := range page.Messages {
			m := page.Messages[i].toMessage()
			if f.matches(*m) {
				out = append(out, *m)
			}
		}
		if len(page.Messages) < cmsPageSize {
			return out, nil
		}
	}
}

func (s *CMSStore) publish(ctx context.Context, id string) {
	if err := s.client.Do(ctx, "PublishMessage", mutationPublishMessage, map[string]any{"id": id}, nil); err != nil {
		s.logger.Warn("message saved as draft but publish failed", "message_id", id, "error", err)
	}
}

var _ Store = (*CMSStore)(nil)
