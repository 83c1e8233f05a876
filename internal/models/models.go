// Package models defines the core data structures for CareSignal.
//
// It includes emergency profiles, chat messages, alert events and notification receipts,
// which are shared across the distress, alert, chat, store and api modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Validation constants for input validation
const (
	// MaxChatMessageLength defines the maximum allowed length for a single chat turn
	MaxChatMessageLength = 4096
)

// Error variables for better error handling and testability
var (
	ErrEmptyMessage   = errors.New("message text cannot be empty")
	ErrMessageTooLong = errors.New("message text exceeds maximum length")
	ErrInvalidRole    = errors.New("invalid message role")
)

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser marks a message typed by the student.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the assistant.
	RoleAssistant Role = "assistant"
)

// IsValidRole checks if the given role is supported.
func IsValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// ChatMessage is one turn of a conversation. Messages are append-only and ordered by insertion.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidateChatText checks user supplied text before it enters a conversation.
func ValidateChatText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if len(text) > MaxChatMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// ChannelStatus represents the delivery state of one notification channel.
type ChannelStatus string

const (
	// ChannelStatusPending indicates the dispatch is in flight.
	ChannelStatusPending ChannelStatus = "pending"
	// ChannelStatusSuccess indicates the provider accepted the notification.
	ChannelStatusSuccess ChannelStatus = "success"
	// ChannelStatusError indicates the dispatch failed; it is not retried.
	ChannelStatusError ChannelStatus = "error"
)

// IsTerminal reports whether no further transition can happen.
func (s ChannelStatus) IsTerminal() bool {
	return s == ChannelStatusSuccess || s == ChannelStatusError
}

// Channel names a notification route used during an alert fan-out.
type Channel string

const (
	ChannelCall  Channel = "call"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// AllChannels lists the channels of a fan-out in display order.
var AllChannels = []Channel{ChannelCall, ChannelSMS, ChannelEmail}

// AlertEvent is the ephemeral record of one alert fan-out. It lives in memory until dismissed.
type AlertEvent struct {
	ID                string        `json:"id"`
	SessionID         string        `json:"session_id"`
	TriggeringMessage string        `json:"triggering_message"`
	FiredAt           time.Time     `json:"fired_at"`
	CallStatus        ChannelStatus `json:"call_status"`
	SMSStatus         ChannelStatus `json:"sms_status"`
	EmailStatus       ChannelStatus `json:"email_status"`
	Dismissed         bool          `json:"dismissed"`
}

// Status returns the status of the given channel.
func (e AlertEvent) Status(ch Channel) ChannelStatus {
	switch ch {
	case ChannelCall:
		return e.CallStatus
	case ChannelSMS:
		return e.SMSStatus
	case ChannelEmail:
		return e.EmailStatus
	}
	return ""
}

// SetStatus updates the status of the given channel.
func (e *AlertEvent) SetStatus(ch Channel, s ChannelStatus) {
	switch ch {
	case ChannelCall:
		e.CallStatus = s
	case ChannelSMS:
		e.SMSStatus = s
	case ChannelEmail:
		e.EmailStatus = s
	}
}

// Settled reports whether every channel reached a terminal status.
func (e AlertEvent) Settled() bool {
	for _, ch := range AllChannels {
		if !e.Status(ch).IsTerminal() {
			return false
		}
	}
	return true
}

// Receipt is the persisted outcome of one channel of one alert.
type Receipt struct {
	AlertID    string        `json:"alert_id"`
	Channel    Channel       `json:"channel"`
	To         string        `json:"to"`
	Status     ChannelStatus `json:"status"`
	ProviderID string        `json:"provider_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	Time       int64         `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{}
}

func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().WithStatus(APIStatusOK).WithResult(result).Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().WithStatus(APIStatusOK).WithMessage(message).WithResult(result).Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().WithStatus(APIStatusError).WithMessage(message).Build()
}
