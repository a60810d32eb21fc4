package memory

import "time"

// Config holds the tunables of memory selection and decay.
type Config struct {
	// PoolSize is how many ranked exchanges are fetched per turn.
	PoolSize int
	// RecentMessages is the size of the verbatim window in messages; every
	// exchange contributes a user and an assistant message.
	RecentMessages int
	// InclusionThreshold is the score an exchange must exceed to be listed
	// in the memory context block.
	InclusionThreshold float64
	// PreviewChars bounds the assistant reply preview in the memory block.
	PreviewChars int
	// DecayAge is the minimum age of an exchange before a turn decays it.
	DecayAge time.Duration
	// DecayFactor multiplies the weight of decay-eligible exchanges once per turn.
	DecayFactor float64
	// RetentionDays retires exchanges older than this many days; 0 keeps them forever.
	RetentionDays int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PoolSize:           15,
		RecentMessages:     6,
		InclusionThreshold: 0.3,
		PreviewChars:       100,
		DecayAge:           time.Hour,
		DecayFactor:        0.95,
		RetentionDays:      94,
	}
}

// withDefaults fills zero or invalid fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PoolSize <= 0 {
		c.PoolSize = def.PoolSize
	}
	if c.RecentMessages < 0 {
		c.RecentMessages = def.RecentMessages
	}
	if c.InclusionThreshold < 0 {
		c.InclusionThreshold = def.InclusionThreshold
	}
	if c.PreviewChars <= 0 {
		c.PreviewChars = def.PreviewChars
	}
	if c.DecayAge <= 0 {
		c.DecayAge = def.DecayAge
	}
	if !(c.DecayFactor > 0 && c.DecayFactor < 1) {
		c.DecayFactor = def.DecayFactor
	}
	if c.RetentionDays < 0 {
		c.RetentionDays = 0
	}
	return c
}

// Normalized returns c with invalid fields replaced by defaults.
func (c Config) Normalized() Config {
	return c.withDefaults()
}
