package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"cafelog/internal/model"
	"cafelog/internal/repository"
	"cafelog/internal/util"
)

type NotificationService interface {
	SendFriendRequestNotification(addresseeID, requesterID, requesterName, friendshipID string) error
	SendFriendAcceptedNotification(requesterID, addresseeID, addresseeName, friendshipID string) error
	SendFriendRejectedNotification(requesterID, addresseeID, addresseeName, friendshipID string) error
	SendVisitInvitationNotification(inviteeID, creatorID, creatorName, visitID, cafeID string) error
	SendInvitationResponseNotification(creatorID, responderID, responderName, visitID string, accepted bool) error
	GetNotificationsByUserID(userID string, limit, offset int) ([]*model.Notification, error)
	GetUnreadCount(userID string) (int64, error)
	MarkAsRead(notificationID, userID string) error
	MarkAllAsRead(userID string) error
}

type notificationService struct {
	notifRepo repository.NotificationRepository
	rabbitMQ  *util.RabbitMQClient
}

// NotificationMessage represents the message structure for RabbitMQ
type NotificationMessage struct {
	UserID    string                 `json:"user_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

const (
	NotificationQueueName  = "notification_queue"
	NotificationExchange   = "notification_exchange"
	NotificationRoutingKey = "notification"
)

func NewNotificationService(notifRepo repository.NotificationRepository, rabbitMQ *util.RabbitMQClient) NotificationService {
	return &notificationService{
		notifRepo: notifRepo,
		rabbitMQ:  rabbitMQ,
	}
}

// sendNotification saves the notification and publishes it to RabbitMQ
func (s *notificationService) sendNotification(
	userID, notifType, title, message string,
	data map[string]interface{},
) error {
	notification := &model.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		IsRead:  false,
	}

	if data != nil {
		if senderID, ok := data["sender_id"].(string); ok {
			notification.SenderID = &senderID
		}
		if targetID, ok := data["target_id"].(string); ok {
			notification.TargetID = &targetID
		}

		dataJSON, err := json.Marshal(data)
		if err == nil {
			notification.Data = string(dataJSON)
		}
	}

	if err := s.notifRepo.Create(notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	// Publish for async delivery; the notification row is already saved, so a
	// broker failure is logged, not surfaced.
	if s.rabbitMQ != nil {
		msg := NotificationMessage{
			UserID:    userID,
			Type:      notifType,
			Title:     title,
			Message:   message,
			Data:      data,
			Timestamp: time.Now(),
		}

		msgJSON, err := json.Marshal(msg)
		if err != nil {
			log.Printf("Failed to marshal notification message: %v", err)
			return nil
		}

		if err := s.rabbitMQ.Publish(NotificationExchange, NotificationRoutingKey, msgJSON); err != nil {
			log.Printf("Failed to publish notification to RabbitMQ: %v", err)
		}
	}

	return nil
}

// SendFriendRequestNotification notifies the addressee of a new friend request
func (s *notificationService) SendFriendRequestNotification(
	addresseeID, requesterID, requesterName, friendshipID string,
) error {
	title := "New Friend Request"
	message := fmt.Sprintf("%s sent you a friend request", requesterName)
	data := map[string]interface{}{
		"target_id":   friendshipID,
		"sender_id":   requesterID,
		"sender_name": requesterName,
	}

	return s.sendNotification(addresseeID, model.NotificationTypeFriendRequest, title, message, data)
}

// SendFriendAcceptedNotification notifies the requester their request was accepted
func (s *notificationService) SendFriendAcceptedNotification(
	requesterID, addresseeID, addresseeName, friendshipID string,
) error {
	title := "Friend Request Accepted"
	message := fmt.Sprintf("%s accepted your friend request", addresseeName)
	data := map[string]interface{}{
		"target_id":   friendshipID,
		"sender_id":   addresseeID,
		"sender_name": addresseeName,
	}

	return s.sendNotification(requesterID, model.NotificationTypeFriendAccepted, title, message, data)
}

// SendFriendRejectedNotification notifies the requester their request was rejected
func (s *notificationService) SendFriendRejectedNotification(
	requesterID, addresseeID, addresseeName, friendshipID string,
) error {
	title := "Friend Request Rejected"
	message := fmt.Sprintf("%s rejected your friend request", addresseeName)
	data := map[string]interface{}{
		"target_id":   friendshipID,
		"sender_id":   addresseeID,
		"sender_name": addresseeName,
	}

	return s.sendNotification(requesterID, model.NotificationTypeFriendRejected, title, message, data)
}

// SendVisitInvitationNotification notifies a friend they were invited to a visit
func (s *notificationService) SendVisitInvitationNotification(
	inviteeID, creatorID, creatorName, visitID, cafeID string,
) error {
	title := "Shared Visit Invitation"
	message := fmt.Sprintf("%s invited you to share a cafe visit", creatorName)
	data := map[string]interface{}{
		"target_id":   visitID,
		"sender_id":   creatorID,
		"sender_name": creatorName,
		"cafe_id":     cafeID,
	}

	return s.sendNotification(inviteeID, model.NotificationTypeVisitInvitation, title, message, data)
}

// SendInvitationResponseNotification notifies the visit creator of a response
func (s *notificationService) SendInvitationResponseNotification(
	creatorID, responderID, responderName, visitID string, accepted bool,
) error {
	notifType := model.NotificationTypeInvitationRejected
	title := "Invitation Declined"
	message := fmt.Sprintf("%s declined your visit invitation", responderName)
	if accepted {
		notifType = model.NotificationTypeInvitationAccepted
		title = "Invitation Accepted"
		message = fmt.Sprintf("%s accepted your visit invitation", responderName)
	}

	data := map[string]interface{}{
		"target_id":   visitID,
		"sender_id":   responderID,
		"sender_name": responderName,
	}

	return s.sendNotification(creatorID, notifType, title, message, data)
}

// GetNotificationsByUserID gets notifications for a user with pagination
func (s *notificationService) GetNotificationsByUserID(userID string, limit, offset int) ([]*model.Notification, error) {
	return s.notifRepo.FindByUserID(userID, limit, offset)
}

// GetUnreadCount gets the unread notification count for a user
func (s *notificationService) GetUnreadCount(userID string) (int64, error) {
	return s.notifRepo.CountUnreadByUserID(userID)
}

// MarkAsRead marks a notification as read
func (s *notificationService) MarkAsRead(notificationID, userID string) error {
	notification, err := s.notifRepo.FindByID(notificationID)
	if err != nil {
		return errors.New("notification not found")
	}

	if notification.UserID != userID {
		return errors.New("unauthorized: you can only mark your own notifications as read")
	}

	return s.notifRepo.MarkAsRead(notificationID)
}

// MarkAllAsRead marks all notifications as read for a user
func (s *notificationService) MarkAllAsRead(userID string) error {
	return s.notifRepo.MarkAllAsRead(userID)
}
