package models

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateChatText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"ordinary text", "I had a good day", nil},
		{"empty", "", ErrEmptyMessage},
		{"whitespace only", "  \n\t ", ErrEmptyMessage},
		{"too long", strings.Repeat("a", MaxChatMessageLength+1), ErrMessageTooLong},
		{"at limit", strings.Repeat("a", MaxChatMessageLength), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateChatText(tt.text); err != tt.want {
				t.Errorf("ValidateChatText() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEmergencyProfileValidate(t *testing.T) {
	valid := EmergencyProfile{SubjectName: "Ada", GuardianName: "Grace", GuardianPhone: "+15550100"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid profile, got %v", err)
	}

	missing := EmergencyProfile{SubjectName: "Ada", GuardianName: "  ", GuardianPhone: "+15550100"}
	err := missing.Validate()
	if !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
	if !strings.Contains(err.Error(), "guardian_name") {
		t.Errorf("expected JSON field name in error, got %q", err.Error())
	}

	// Formats are not checked.
	odd := EmergencyProfile{SubjectName: "Ada", GuardianName: "Grace", GuardianPhone: "call me", GuardianEmail: "not-an-email"}
	if err := odd.Validate(); err != nil {
		t.Errorf("expected no format validation, got %v", err)
	}
}

func TestAlertEventStatus(t *testing.T) {
	e := AlertEvent{CallStatus: ChannelStatusPending, SMSStatus: ChannelStatusPending, EmailStatus: ChannelStatusPending}
	if e.Settled() {
		t.Fatal("pending event must not be settled")
	}
	e.SetStatus(ChannelSMS, ChannelStatusError)
	if e.Status(ChannelSMS) != ChannelStatusError || e.Status(ChannelCall) != ChannelStatusPending {
		t.Fatalf("unexpected statuses: %+v", e)
	}
	e.SetStatus(ChannelCall, ChannelStatusSuccess)
	e.SetStatus(ChannelEmail, ChannelStatusSuccess)
	if !e.Settled() {
		t.Error("expected event to be settled")
	}
}
