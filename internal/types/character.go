package types

import "time"

// Character is a persona served to the chat front-end.
type Character struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Age           int       `json:"age,omitempty"`
	Occupation    string    `json:"occupation,omitempty"`
	Location      string    `json:"location,omitempty"`
	Description   string    `json:"description,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	ProfileImages []string  `json:"profileImages,omitempty"`
	Interests     []string  `json:"interests,omitempty"`
	Personality   string    `json:"personality,omitempty"`
	LookingFor    string    `json:"lookingFor,omitempty"`
	Traits        Traits    `json:"traits"`
	SystemPrompt  string    `json:"prompt"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Traits groups free-form persona attributes used to render a system prompt.
type Traits struct {
	Profession         string            `json:"profession,omitempty"`
	PersonalityPrompt  string            `json:"personality_prompt,omitempty"`
	CoreTraits         []string          `json:"core_traits,omitempty"`
	CommunicationStyle string            `json:"communication_style,omitempty"`
	Guidelines         []string          `json:"guidelines,omitempty"`
	Avoid              []string          `json:"avoid,omitempty"`
	TypicalResponses   map[string]string `json:"typical_responses,omitempty"`
}

// ModelInfo describes a completion model offered to users.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Cost string `json:"cost"`
}
