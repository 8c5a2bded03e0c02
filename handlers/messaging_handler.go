package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	config "github.com/kamaubrian/nyumba_stays/configs"
	"github.com/kamaubrian/nyumba_stays/database"
	"github.com/kamaubrian/nyumba_stays/messaging"
	"github.com/kamaubrian/nyumba_stays/models"
	"github.com/kamaubrian/nyumba_stays/realtime"
	"github.com/samber/lo"
)

// Wired once from main before routes are registered.
var (
	chatStore    messaging.ConversationStore
	chatChannel  *realtime.Channel
	chatRenderer realtime.FragmentRenderer
	notifyQueue  realtime.NotificationEnqueuer
)

// InitMessaging injects the messaging collaborators the handlers use.
func InitMessaging(store messaging.ConversationStore, channel *realtime.Channel, renderer realtime.FragmentRenderer, queue realtime.NotificationEnqueuer) {
	chatStore = store
	chatChannel = channel
	chatRenderer = renderer
	notifyQueue = queue
}

func backgroundContext() context.Context { return context.Background() }

type ConversationSummary struct {
	Conversation models.Conversation `json:"conversation"`
	OtherUser    models.User         `json:"other_user"`
	UnreadCount  int64               `json:"unread_count"`
}

func GetUserConversations(c *fiber.Ctx) error {
	userID := currentUserID(c)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	conversations, err := chatStore.ListConversations(c.Context(), userID, page, pageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch conversations"})
	}

	summaries := lo.Map(conversations, func(conv models.Conversation, _ int) ConversationSummary {
		unread, err := chatStore.UnreadCount(c.Context(), conv.ID, userID)
		if err != nil {
			log.Printf("Failed to count unread messages for conversation %s: %v", conv.ID, err)
		}
		other := conv.ParticipantTwo
		if conv.ParticipantTwoID == userID {
			other = conv.ParticipantOne
		}
		return ConversationSummary{
			Conversation: conv,
			OtherUser:    other,
			UnreadCount:  unread,
		}
	})

	return c.JSON(summaries)
}

func CreateOrGetConversation(c *fiber.Ctx) error {
	userID := currentUserID(c)

	type Request struct {
		RecipientID string  `json:"recipient_id" validate:"required,uuid"`
		PropertyID  *string `json:"property_id" validate:"omitempty,uuid"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	recipientID, _ := uuid.Parse(req.RecipientID)
	var recipient models.User
	if err := database.DB.First(&recipient, "id = ?", recipientID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Recipient not found"})
	}

	var propertyID *uuid.UUID
	if req.PropertyID != nil {
		id, _ := uuid.Parse(*req.PropertyID)
		propertyID = &id
	}

	conversation, err := chatStore.FindOrCreateConversation(c.Context(), userID, recipientID, propertyID)
	if err != nil {
		if errors.Is(err, messaging.ErrSameParticipant) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot start a conversation with yourself"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create conversation"})
	}

	return c.JSON(conversation)
}

func GetConversationMessages(c *fiber.Ctx) error {
	userID := currentUserID(c)

	conversationID, err := uuid.Parse(c.Params("conversationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))

	conversation, err := chatStore.FindConversation(c.Context(), conversationID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	}
	if !conversation.HasParticipant(userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not part of this conversation"})
	}

	messages, err := chatStore.ListMessages(c.Context(), conversationID, page, pageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}

	return c.JSON(messages)
}

// ClientFrame is one inbound websocket frame after the auth handshake.
type ClientFrame struct {
	Action         string  `json:"action"`
	ConversationID string  `json:"conversation_id"`
	Content        string  `json:"content"`
	MessageType    string  `json:"message_type"`
	Typing         bool    `json:"typing"`
	MessageID      *string `json:"message_id"`
	Status         string  `json:"status"`
}

// ServeWs upgrades the connection, authenticates the first frame, and then
// routes client frames to the conversation channel until the socket closes.
func ServeWs(c *websocketcontrib.Conn) {
	type AuthMessage struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	claims, err := parseToken(authMsg.Token)
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid user ID"})
		c.Close()
		return
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "Unknown user"})
		c.Close()
		return
	}

	session := realtime.NewSession(userID, user.DisplayName())
	log.Printf("WebSocket client authenticated: %s (session %s)", userID, session.ID)

	// Write pump. The session outbox decouples broadcasters from this socket.
	go func() {
		for {
			select {
			case payload, ok := <-session.Outbox():
				if !ok {
					return
				}
				if err := c.WriteMessage(websocketcontrib.TextMessage, payload); err != nil {
					session.Close()
					return
				}
			case <-session.Done():
				return
			}
		}
	}()

	subscriptions := make(map[uuid.UUID]*realtime.Subscription)
	defer func() {
		log.Printf("WebSocket client disconnected: %s (session %s)", userID, session.ID)
		chatChannel.Topics().UnsubscribeAll(session)
		session.Close()
		c.Close()
	}()

	ctx := context.Background()
	for {
		var frame ClientFrame
		if err := c.ReadJSON(&frame); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("WebSocket closed for client %s: %v", userID, err)
			} else {
				log.Printf("WebSocket read error for client %s: %v", userID, err)
			}
			return
		}

		convID, err := uuid.Parse(frame.ConversationID)
		if err != nil {
			_ = c.WriteJSON(fiber.Map{"error": "Invalid conversation ID"})
			continue
		}

		if frame.Action == "subscribe" {
			if _, ok := subscriptions[convID]; ok {
				continue
			}
			sub, err := chatChannel.Subscribe(ctx, session, convID)
			if err != nil {
				_ = c.WriteJSON(fiber.Map{"error": "Subscription rejected"})
				continue
			}
			subscriptions[convID] = sub
			continue
		}

		sub, ok := subscriptions[convID]
		if !ok {
			// Actions without a prior subscribe are dropped.
			continue
		}

		switch frame.Action {
		case "unsubscribe":
			sub.Unsubscribe()
			delete(subscriptions, convID)
		case "speak":
			sub.Speak(ctx, frame.Content, models.MessageType(frame.MessageType))
		case "typing":
			sub.Typing(ctx, frame.Typing)
		case "mark_as_read":
			var messageID *uuid.UUID
			if frame.MessageID != nil {
				id, err := uuid.Parse(*frame.MessageID)
				if err != nil {
					continue
				}
				messageID = &id
			}
			sub.MarkAsRead(ctx, messageID)
		case "update_presence":
			sub.UpdatePresence(ctx, frame.Status)
		default:
			log.Printf("Unknown websocket action %q from client %s", frame.Action, userID)
		}
	}
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
