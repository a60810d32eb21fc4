// Package prompt renders persona cards into system prompts.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/easeaico/chat-characters/internal/types"
	"github.com/easeaico/chat-characters/internal/utils"
)

const (
	defaultProfession = "creative professional"
	defaultGreeting   = "Hello there!"
	defaultCompliment = "Thank you!"
	defaultFlirty     = "You're sweet!"
)

const personaTemplateText = `You are {{.Name}}, a {{.Profession}}.{{if .PersonalityPrompt}} {{.PersonalityPrompt}}{{end}}

Personality: {{.Description}}
Core traits: {{join .CoreTraits ", "}}
Communication style: {{.CommunicationStyle}}
Interests: {{join .Interests ", "}}

Conversation guidelines: {{join .Guidelines ". "}}
{{- if .Avoid}}
Never: {{join .Avoid "; "}}
{{- end}}

Typical responses:
- Greeting: "{{.Greeting}}"
- When complimented: "{{.Compliment}}"
- Flirty response: "{{.Flirty}}"

Keep responses engaging and under 100 words unless diving deep into creative topics.`

var personaTemplate = template.Must(template.New("persona").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(personaTemplateText))

// BuildPersonaPrompt renders the system prompt of a detailed character card.
func BuildPersonaPrompt(character *types.Character) (string, error) {
	if character == nil || character.Name == "" {
		return "", fmt.Errorf("character name is required")
	}

	traits := character.Traits
	data := struct {
		Name               string
		Profession         string
		PersonalityPrompt  string
		Description        string
		CoreTraits         []string
		CommunicationStyle string
		Interests          []string
		Guidelines         []string
		Avoid              []string
		Greeting           string
		Compliment         string
		Flirty             string
	}{
		Name:               character.Name,
		Profession:         orDefault(traits.Profession, defaultProfession),
		PersonalityPrompt:  strings.TrimSpace(utils.NormalizePromptText(traits.PersonalityPrompt, character.Name, "user")),
		Description:        character.Description,
		CoreTraits:         traits.CoreTraits,
		CommunicationStyle: traits.CommunicationStyle,
		Interests:          character.Interests,
		Guidelines:         traits.Guidelines,
		Avoid:              traits.Avoid,
		Greeting:           orDefault(traits.TypicalResponses["greeting"], defaultGreeting),
		Compliment:         orDefault(traits.TypicalResponses["compliment_received"], defaultCompliment),
		Flirty:             orDefault(traits.TypicalResponses["flirty_message"], defaultFlirty),
	}

	var buf bytes.Buffer
	if err := personaTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build persona prompt: %w", err)
	}
	return buf.String(), nil
}

// SystemPrompt returns the character's own prompt when it has one, otherwise
// the rendered persona prompt.
func SystemPrompt(character *types.Character) (string, error) {
	if character == nil {
		return "", fmt.Errorf("character is required")
	}
	if text := strings.TrimSpace(character.SystemPrompt); text != "" {
		return utils.NormalizePromptText(text, character.Name, "user"), nil
	}
	return BuildPersonaPrompt(character)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
