// Package characters loads persona cards and serves them with a built-in fallback.
package characters

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/easeaico/chat-characters/internal/prompt"
	"github.com/easeaico/chat-characters/internal/types"
)

// ErrUnrecognizedCard is returned for JSON that is neither a simple nor a detailed card.
var ErrUnrecognizedCard = errors.New("unrecognized character card")

var (
	defaultInterests   = []string{"Music", "Art", "Fashion"}
	defaultDescription = "Creative and confident personality"
	defaultPersonality = "Creative and confident"
	defaultOccupation  = "Creative Professional"
	defaultLookingFor  = "Someone who appreciates creativity and authenticity"
)

// card is the union of the simple and detailed file formats.
type card struct {
	Name          string   `json:"name"`
	Age           int      `json:"age"`
	Occupation    string   `json:"occupation"`
	Location      string   `json:"location"`
	Description   string   `json:"description"`
	Avatar        string   `json:"avatar"`
	ProfileImages []string `json:"profileImages"`
	Interests     []string `json:"interests"`
	Personality   string   `json:"personality"`
	LookingFor    string   `json:"lookingFor"`
	Prompt        string   `json:"prompt"`

	PersonalityTraits *struct {
		Interests          []string `json:"interests"`
		CoreTraits         []string `json:"core_traits"`
		Profession         string   `json:"profession"`
		CommunicationStyle string   `json:"communication_style"`
	} `json:"personality_traits"`
	AIInstructions *struct {
		PersonalityPrompt      string   `json:"personality_prompt"`
		ConversationGuidelines []string `json:"conversation_guidelines"`
		Avoid                  []string `json:"avoid"`
	} `json:"ai_instructions"`
	ChatBehavior *struct {
		TypicalResponses map[string]string `json:"typical_responses"`
	} `json:"chat_behavior"`
	BiblePersonality *struct {
		Description string `json:"description"`
		PrimaryType string `json:"primary_type"`
	} `json:"bible_personality"`
}

// ParseCard decodes a card in either format. Detailed cards get their system
// prompt rendered from their traits.
func ParseCard(id string, data []byte) (*types.Character, error) {
	var c card
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode character %s: %w", id, err)
	}
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("character %s: %w: missing name", id, ErrUnrecognizedCard)
	}

	switch {
	case c.Prompt != "":
		return c.simple(id), nil
	case c.AIInstructions != nil:
		return c.detailed(id)
	default:
		return nil, fmt.Errorf("character %s: %w: needs prompt or ai_instructions", id, ErrUnrecognizedCard)
	}
}

func (c card) simple(id string) *types.Character {
	return &types.Character{
		ID:            id,
		Name:          c.Name,
		Age:           c.Age,
		Occupation:    c.Occupation,
		Location:      c.Location,
		Description:   c.Description,
		Avatar:        c.Avatar,
		ProfileImages: c.ProfileImages,
		Interests:     c.Interests,
		Personality:   c.Personality,
		LookingFor:    c.LookingFor,
		SystemPrompt:  c.Prompt,
	}
}

func (c card) detailed(id string) (*types.Character, error) {
	character := c.simple(id)
	traits := types.Traits{
		PersonalityPrompt: c.AIInstructions.PersonalityPrompt,
		Guidelines:        c.AIInstructions.ConversationGuidelines,
		Avoid:             c.AIInstructions.Avoid,
	}
	if pt := c.PersonalityTraits; pt != nil {
		traits.Profession = pt.Profession
		traits.CoreTraits = pt.CoreTraits
		traits.CommunicationStyle = pt.CommunicationStyle
		if len(pt.Interests) > 0 {
			character.Interests = pt.Interests
		}
	}
	if c.ChatBehavior != nil {
		traits.TypicalResponses = c.ChatBehavior.TypicalResponses
	}
	if bp := c.BiblePersonality; bp != nil {
		if bp.Description != "" {
			character.Description = bp.Description
		}
		if bp.PrimaryType != "" {
			character.Personality = bp.PrimaryType
		}
	}

	if len(character.Interests) == 0 {
		character.Interests = defaultInterests
	}
	if character.Description == "" {
		character.Description = defaultDescription
	}
	if character.Personality == "" {
		character.Personality = defaultPersonality
	}
	if character.Occupation == "" {
		character.Occupation = traits.Profession
	}
	if character.Occupation == "" {
		character.Occupation = defaultOccupation
	}
	if character.LookingFor == "" {
		character.LookingFor = defaultLookingFor
	}
	character.Traits = traits

	systemPrompt, err := prompt.BuildPersonaPrompt(character)
	if err != nil {
		return nil, fmt.Errorf("character %s: %w", id, err)
	}
	character.SystemPrompt = systemPrompt
	return character, nil
}
