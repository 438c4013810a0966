package chat

import (
	"testing"

	"github.com/gekina/medichat/internal/domain"
)

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name    string
		message string
		history []domain.ConversationTurn
		want    string
	}{
		{
			name:    "empty history is identity",
			message: "apa itu flu?",
			history: nil,
			want:    "apa itu flu?",
		},
		{
			name:    "no user turns is identity",
			message: "obatnya apa?",
			history: []domain.ConversationTurn{
				{Role: domain.RoleTurnAssistant, Content: "Tipes adalah..."},
			},
			want: "obatnya apa?",
		},
		{
			name:    "most recent user turn is prepended",
			message: "obatnya apa?",
			history: []domain.ConversationTurn{
				{Role: domain.RoleTurnUser, Content: "apa itu demam berdarah?"},
				{Role: domain.RoleTurnAssistant, Content: "Demam berdarah adalah..."},
				{Role: domain.RoleTurnUser, Content: "gejala tipes"},
				{Role: domain.RoleTurnAssistant, Content: "Gejalanya antara lain..."},
			},
			want: "gejala tipes obatnya apa?",
		},
		{
			name:    "empty user turns are skipped",
			message: "obatnya apa?",
			history: []domain.ConversationTurn{
				{Role: domain.RoleTurnUser, Content: "gejala tipes"},
				{Role: domain.RoleTurnUser, Content: ""},
			},
			want: "gejala tipes obatnya apa?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewriteQuery(tt.message, tt.history); got != tt.want {
				t.Errorf("rewriteQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}
