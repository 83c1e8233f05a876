package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/BTreeMap/CareSignal/internal/models"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp *openai.ChatCompletion
	err  error
	last openai.ChatCompletionNewParams
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.last = params
	return m.resp, m.err
}

func replyWith(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func newTestClient(svc chatService) *Client {
	return &Client{chat: svc, model: "test-model", temperature: 0.1, maxTokens: 100}
}

func TestGenerateWithMessages_Success(t *testing.T) {
	svc := &mockChatService{resp: replyWith("Hello World")}
	out, err := newTestClient(svc).GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("system prompt"),
		openai.UserMessage("user prompt"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello World" {
		t.Errorf("expected 'Hello World', got '%s'", out)
	}
	if len(svc.last.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(svc.last.Messages))
	}
}

func TestReply_BuildsConversation(t *testing.T) {
	svc := &mockChatService{resp: replyWith("  I'm here for you.  ")}
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "rough day"},
		{Role: models.RoleAssistant, Content: "I'm sorry to hear that."},
		{Role: models.RoleUser, Content: "exams"},
	}
	out, err := newTestClient(svc).Reply(context.Background(), "be kind", history)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "  I'm here for you.  " {
		t.Errorf("unexpected reply %q", out)
	}
	msgs := svc.last.Messages
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].OfSystem == nil || msgs[1].OfUser == nil || msgs[2].OfAssistant == nil || msgs[3].OfUser == nil {
		t.Error("messages not mapped to system, user, assistant, user")
	}
	if string(svc.last.Model) != "test-model" {
		t.Errorf("expected test-model, got %s", svc.last.Model)
	}
}

func TestGenerateWithMessages_ServiceError(t *testing.T) {
	client := newTestClient(&mockChatService{err: errors.New("service failure")})
	_, err := client.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")})
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerateWithMessages_NoChoices(t *testing.T) {
	client := newTestClient(&mockChatService{resp: &openai.ChatCompletion{}})
	_, err := client.GenerateWithMessages(context.Background(), nil)
	if err != ErrNoChoicesReturned {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestAskYesNo(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"YES", true},
		{"  yes\n", true},
		{"Yes.", false},
		{"NO", false},
		{"maybe", false},
		{"", false},
	}
	for _, tt := range tests {
		client := newTestClient(&mockChatService{resp: replyWith(tt.answer)})
		got, err := client.AskYesNo(context.Background(), "instruction", "text")
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.answer, err)
		}
		if got != tt.want {
			t.Errorf("AskYesNo with answer %q = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestAskYesNo_Error(t *testing.T) {
	client := newTestClient(&mockChatService{err: errors.New("unauthorized")})
	if _, err := client.AskYesNo(context.Background(), "instruction", "text"); err == nil {
		t.Error("expected error to propagate so the caller can fail open")
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("local-model"), WithBaseURL("http://localhost:11434/v1"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli.model != "local-model" {
		t.Errorf("expected model override, got %q", cli.model)
	}
}
