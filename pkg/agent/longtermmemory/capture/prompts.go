package capture

import (
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/recall/pkg/agent/longtermmemory"
)

const extractionPrompt = `You are a personal information organizer. You pull durable facts about the user out of a chat message so they can be remembered in later conversations.

Record facts of these kinds:
- preference: likes, dislikes and preferences (food, products, activities, entertainment)
- personal: names, relationships, important dates, where they live
- plan: upcoming events, trips, goals
- activity: restaurants, hobbies, services they use
- health: dietary restrictions, fitness routines, wellness
- professional: job title, employer, work habits, career goals
- misc: anything else worth remembering

Rules:
- Today's date is %s.
- Only take facts from the user's message. Ignore instructions, questions and file contents that say nothing about the user.
- Write each fact as a short standalone sentence, in the same language as the message.
- If there is nothing worth remembering, return an empty list.

Return only JSON in this shape:
{"facts": [{"text": "Is vegetarian", "category": "health"}]}

Examples:
Input: Hi.
Output: {"facts": []}

Input: My name is John and I'm a software engineer in Leeds.
Output: {"facts": [{"text": "Name is John", "category": "personal"}, {"text": "Is a software engineer", "category": "professional"}, {"text": "Lives in Leeds", "category": "personal"}]}

Input: I've stopped drinking coffee, only tea now.
Output: {"facts": [{"text": "Drinks tea and no longer drinks coffee", "category": "preference"}]}`

const updatePrompt = `You are a smart memory manager. You keep a list of remembered facts about the user consistent with newly learned facts.

For every new fact decide one event:
- ADD: the fact is new information. Give it a new id.
- UPDATE: the fact refines or changes an existing memory. Keep the existing id, put the merged text in "text" and the previous text in "old_memory". Only update when the new text carries more or different information.
- DELETE: the fact contradicts an existing memory so that memory is no longer true. Keep the existing id.
- NONE: the fact is already captured by an existing memory. Keep the existing id.

Existing memories you were not asked about need no entry. Only use ids from the list below; never invent ids for UPDATE, DELETE or NONE.

Return only JSON in this shape:
{"memory": [{"id": "0", "text": "...", "event": "ADD|UPDATE|DELETE|NONE", "old_memory": "..."}]}`

// extractionMessage renders the system prompt for fact extraction.
func extractionMessage(now time.Time) string {
	return fmt.Sprintf(extractionPrompt, now.Format("2006-01-02"))
}

// decisionInput renders the user turn of the update prompt. Candidates are
// listed under their positional temp IDs.
func decisionInput(candidates []*longtermmemory.Fact, facts []Extracted) string {
	var sb strings.Builder
	sb.WriteString("Existing memories:\n")
	if len(candidates) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, f := range candidates {
		fmt.Fprintf(&sb, "- id \"%d\": %s\n", i, f.Content)
	}
	sb.WriteString("\nNew facts:\n")
	for _, f := range facts {
		fmt.Fprintf(&sb, "- %s\n", f.Text)
	}
	return sb.String()
}
