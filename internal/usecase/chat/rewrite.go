package chat

import "github.com/gekina/medichat/internal/domain"

// rewriteQuery folds the most recent prior user utterance into the current
// message so follow-ups like "obatnya apa?" carry the disease named earlier.
// This is a concatenation heuristic, not a summarizer: overlapping phrasing
// between the two strings is not deduplicated. With no usable history the
// message is returned verbatim.
func rewriteQuery(message string, history []domain.ConversationTurn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != domain.RoleTurnUser {
			continue
		}
		if history[i].Content == "" {
			continue
		}
		return history[i].Content + " " + message
	}
	return message
}
