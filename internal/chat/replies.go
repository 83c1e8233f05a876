package chat

import (
	"math/rand/v2"
	"strings"
)

// SystemPrompt frames every chat completion.
const SystemPrompt = "You are CareSignal, a warm and supportive wellness companion for students. " +
	"Listen carefully, respond with empathy in a few short sentences, and encourage healthy coping " +
	"and reaching out to trusted people. You are not a therapist and must not give medical diagnoses. " +
	"If the student mentions self-harm or danger, urge them to contact local emergency services or a crisis line."

// FallbackReply is used whenever no completion can be obtained.
const FallbackReply = "I'm having trouble responding right now, but I'm still here with you. " +
	"Please try again in a moment, and if you need urgent help, contact someone you trust or a crisis line."

// nameSlot is replaced by ", <subject name>" or removed when no name is known.
const nameSlot = "{name}"

// SupportiveReplies is the pool answered when distress is detected and the emergency contact
// has been, or recently was, alerted.
var SupportiveReplies = []string{
	"I'm really glad you told me{name}. You don't have to go through this alone. " +
		"I've let your emergency contact know so someone can reach out to you soon.",
	"Thank you for sharing that with me{name}. What you're feeling matters, and help is on the way: " +
		"your emergency contact has been notified.",
	"I hear you{name}, and I'm worried about you. I've reached out to your emergency contact. " +
		"If you're in immediate danger, please call your local emergency number.",
	"You matter{name}. I've notified your emergency contact so a real person can be with you. " +
		"Please stay with me and consider calling a crisis line right now.",
	"It sounds like things are really hard right now{name}. I've asked your emergency contact to check in " +
		"on you. You deserve support, and it's okay to ask for it.",
}

// CrisisReplies is the pool answered when distress is detected but no one could be alerted.
// These replies must never claim that anyone was contacted.
var CrisisReplies = []string{
	"I'm really glad you told me{name}. You don't have to go through this alone. " +
		"Please reach out to a crisis line or someone you trust right now, and if you're in immediate danger, " +
		"call your local emergency number.",
	"Thank you for sharing that with me{name}. What you're feeling matters. " +
		"A crisis line can talk with you right now, any time of day.",
	"I hear you{name}, and I'm worried about you. If you're in immediate danger, please call your local " +
		"emergency number. Is there someone nearby you could be with?",
	"You matter{name}. Please consider calling a crisis line or texting someone you trust so a real person " +
		"can be with you. I'm here to keep talking too.",
	"It sounds like things are really hard right now{name}. You deserve support, and it's okay to ask for it. " +
		"A crisis line or a trusted person can help you through this moment.",
}

// RandSource picks canned replies. *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

func personalize(template, name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return strings.ReplaceAll(template, nameSlot, ", "+name)
	}
	return strings.ReplaceAll(template, nameSlot, "")
}

// pickReply draws from SupportiveReplies when the contact was alerted, CrisisReplies otherwise.
func pickReply(r RandSource, name string, alerted bool) string {
	pool := CrisisReplies
	if alerted {
		pool = SupportiveReplies
	}
	return personalize(pool[r.IntN(len(pool))], name)
}
