package gateway

import (
	"errors"
	"testing"

	"agent-gateway/internal/knowledge"
)

func TestBuildMessages_SingleQuestion(t *testing.T) {
	msgs, effective, err := BuildMessages("What are Pacinian corpuscles?", nil, knowledge.ModeRetrieve)
	if err != nil {
		t.Fatalf("BuildMessages() error = %v", err)
	}
	if effective != "What are Pacinian corpuscles?" {
		t.Errorf("effective question = %q", effective)
	}
	if len(msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1", len(msgs))
	}
	if msgs[0].Role != knowledge.RoleUser || msgs[0].Content != "What are Pacinian corpuscles?" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
}

func TestBuildMessages_ResponsesModePrependsInstruction(t *testing.T) {
	msgs, _, err := BuildMessages("hello", nil, knowledge.ModeResponses)
	if err != nil {
		t.Fatalf("BuildMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != knowledge.RoleAssistant || msgs[0].Content != knowledge.SynthesisInstruction {
		t.Errorf("msgs[0] = %+v, want the synthesis instruction", msgs[0])
	}
	if msgs[len(msgs)-1].Role != knowledge.RoleUser || msgs[len(msgs)-1].Content != "hello" {
		t.Errorf("last message = %+v, want the user question", msgs[len(msgs)-1])
	}
}

func TestBuildMessages_History(t *testing.T) {
	tests := []struct {
		name    string
		history []knowledge.Message
		want    string
		wantErr error
	}{
		{
			name: "last user turn wins",
			history: []knowledge.Message{
				{Role: knowledge.RoleUser, Content: "first question"},
				{Role: knowledge.RoleAssistant, Content: "an answer"},
				{Role: knowledge.RoleUser, Content: "second question"},
			},
			want: "second question",
		},
		{
			name: "trailing assistant turn is skipped",
			history: []knowledge.Message{
				{Role: knowledge.RoleUser, Content: "the question"},
				{Role: knowledge.RoleAssistant, Content: "an answer"},
			},
			want: "the question",
		},
		{
			name: "roleless entry counts as a user turn",
			history: []knowledge.Message{
				{Content: "bare question"},
			},
			want: "bare question",
		},
		{
			name: "no user turn fails fast",
			history: []knowledge.Message{
				{Role: knowledge.RoleAssistant, Content: "only an answer"},
			},
			wantErr: ErrEmptyQuery,
		},
		{
			name: "blank user turn fails fast",
			history: []knowledge.Message{
				{Role: knowledge.RoleUser, Content: "   "},
			},
			wantErr: ErrEmptyQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, effective, err := BuildMessages("ignored", tt.history, knowledge.ModeRetrieve)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("BuildMessages() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildMessages() error = %v", err)
			}
			if effective != tt.want {
				t.Errorf("effective question = %q, want %q", effective, tt.want)
			}
			last := msgs[len(msgs)-1]
			if last.Role != knowledge.RoleUser || last.Content != tt.want {
				t.Errorf("last message = %+v, want user %q", last, tt.want)
			}
		})
	}
}

func TestBuildMessages_EmptyQuestion(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		if _, _, err := BuildMessages(q, nil, knowledge.ModeRetrieve); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("BuildMessages(%q) error = %v, want ErrEmptyQuery", q, err)
		}
	}
}
