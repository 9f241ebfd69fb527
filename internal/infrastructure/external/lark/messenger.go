package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

const (
	receiveIDTypeChat = "chat_id"
	msgTypeText       = "text"
)

// MessageCreator is the part of the Lark IM API the messenger needs
type MessageCreator interface {
	Create(ctx context.Context, req *larkIm.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkIm.CreateMessageResp, error)
}

// Messenger implements port.MessageSender by posting to one chat
type Messenger struct {
	messages MessageCreator
	chatID   string
	logger   *zap.Logger
}

// NewMessenger creates a messenger from an SDK client
func NewMessenger(client *lark.Client, chatID string, logger *zap.Logger) *Messenger {
	return NewMessengerWithCreator(client.Im.Message, chatID, logger)
}

// NewMessengerWithCreator creates a messenger around any MessageCreator
func NewMessengerWithCreator(messages MessageCreator, chatID string, logger *zap.Logger) *Messenger {
	return &Messenger{messages: messages, chatID: chatID, logger: logger}
}

// SendText posts content as a text message and returns the message id
func (m *Messenger) SendText(ctx context.Context, content string) (string, error) {
	if m.chatID == "" {
		return "", errors.New("chat id cannot be empty")
	}
	if content == "" {
		return "", errors.New("content cannot be empty")
	}

	body, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message content: %w", err)
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeChat).
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(m.chatID).
			MsgType(msgTypeText).
			Content(string(body)).
			Build()).
		Build()

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("chat_id", m.chatID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("chat_id", m.chatID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("chat_id", m.chatID))

	return messageID, nil
}
