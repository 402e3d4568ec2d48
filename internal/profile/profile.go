// Package profile holds the learner's self-reported attributes used to
// personalize module prompts.
package profile

import (
	"fmt"
	"strings"
)

// Level is the learner's self-assessed English speaking level.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// ParseLevel maps a string to a Level, defaulting to Beginner for
// unrecognized values.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return Level(s)
	}
	return LevelBeginner
}

// UserProfile describes the learner. Incomplete fields are never an
// error: Sanitized substitutes placeholder text so prompt construction
// cannot fail.
type UserProfile struct {
	Name          string `json:"name"`
	Age           int    `json:"age"`
	Profession    string `json:"profession"`
	Nationality   string `json:"nationality"`
	MotherTongue  string `json:"mother_tongue"`
	SpeakingLevel Level  `json:"speaking_level"`
}

// Placeholder defaults used when a field was left blank.
const (
	DefaultName         = "User"
	DefaultProfession   = "Unknown"
	DefaultNationality  = "Unknown"
	DefaultAge          = "Not Specified"
	DefaultMotherTongue = "Any Language"
)

// Sanitized returns a copy with placeholder defaults filled in for
// missing fields.
func (p UserProfile) Sanitized() UserProfile {
	if p.Name == "" {
		p.Name = DefaultName
	}
	if p.Profession == "" {
		p.Profession = DefaultProfession
	}
	if p.Nationality == "" {
		p.Nationality = DefaultNationality
	}
	if p.MotherTongue == "" {
		p.MotherTongue = DefaultMotherTongue
	}
	if p.SpeakingLevel == "" {
		p.SpeakingLevel = LevelBeginner
	}
	return p
}

// Summary renders the one-line user description embedded into system
// prompts.
func (p UserProfile) Summary() string {
	p = p.Sanitized()
	age := DefaultAge
	if p.Age > 0 {
		age = fmt.Sprintf("%d", p.Age)
	}
	return fmt.Sprintf("Name: %s, Profession: %s, Nationality: %s, Age: %s",
		p.Name, p.Profession, p.Nationality, age)
}

// SpeaksEnglish reports whether the learner's mother tongue is English,
// in which case reply translation is skipped entirely.
func (p UserProfile) SpeaksEnglish() bool {
	return strings.EqualFold(strings.TrimSpace(p.MotherTongue), "english")
}
