package domain

import (
	"fmt"
	"slices"
)

// Role identifies the author of a Message.
type Role string

// Message roles understood by every generation backend.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered, append-only message history of one debate
// run. Messages alternate user/assistant starting with the seed; a call that
// would break the alternation panics because it can only come from a
// scheduling bug.
type Conversation struct {
	messages []Message
}

// Seed starts a conversation with a single user message presenting the fact
// and the claim.
func Seed(fact, claim string) *Conversation {
	return &Conversation{
		messages: []Message{{
			Role:    RoleUser,
			Content: fmt.Sprintf("FACT: \"%s\"\nCLAIM: \"%s\"\n\nIs the claim faithful to the fact?", fact, claim),
		}},
	}
}

// AppendResponse records a persona's generated turn as an assistant message.
func (c *Conversation) AppendResponse(persona Persona, content string) {
	c.mustFollow(RoleUser, "response from "+persona.Name)
	c.messages = append(c.messages, Message{Role: RoleAssistant, Content: content})
}

// AppendHandoff asks the next persona to answer the prior persona's point.
func (c *Conversation) AppendHandoff(prior Persona) {
	c.mustFollow(RoleAssistant, "handoff after "+prior.Name)
	c.messages = append(c.messages, Message{
		Role:    RoleUser,
		Content: fmt.Sprintf("Respond to %s's points.", prior.Name),
	})
}

// Messages returns a copy of the history so callers cannot reorder or
// truncate it.
func (c *Conversation) Messages() []Message { return slices.Clone(c.messages) }

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// Last returns the most recent message.
func (c *Conversation) Last() Message { return c.messages[len(c.messages)-1] }

// AwaitingResponse reports whether the next append must be a response.
func (c *Conversation) AwaitingResponse() bool { return c.Last().Role == RoleUser }

func (c *Conversation) mustFollow(want Role, what string) {
	if len(c.messages) == 0 {
		panic("conversation: " + what + " on unseeded conversation")
	}
	if got := c.Last().Role; got != want {
		panic(fmt.Sprintf("conversation: %s must follow a %s message, last was %s", what, want, got))
	}
}
