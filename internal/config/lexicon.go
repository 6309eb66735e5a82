package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the keyword lists the flow rules match against raw text.
// Profanity and conduct terms match on word boundaries; safety and
// complaint phrases match as substrings.
type Lexicon struct {
	Profanity       []string `yaml:"profanity"`
	Safety          []string `yaml:"safety"`
	OutageSafety    []string `yaml:"outage_safety"`
	Complaint       []string `yaml:"complaint"`
	Conduct         []string `yaml:"conduct"`
	Affirmative     []string `yaml:"affirmative"`
	SafetyConfirm   []string `yaml:"safety_confirm"`
	NoDetails       []string `yaml:"no_details"`
	InjectionFilter []string `yaml:"injection_filter"`
}

// DefaultLexicon returns the built-in keyword policy.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Profanity: []string{
			"fuck", "shit", "damn", "bastard", "asshole", "crap",
			"screw", "piss", "bloody", "motherfucker", "cunt",
		},
		Safety: []string{
			"sparking", "sparks", "smoke", "gas", "smell of gas", "downed line",
			"downed wire", "live wire", "electrical", "on fire", "fire", "dangerous",
			"could kill", "killed", "injury", "shock", "electrocute",
		},
		OutageSafety: []string{
			"sparking", "sparks", "smoke", "gas", "smell of gas", "downed line",
			"downed wire", "live wire", "electrical", "on fire", "fire", "dangerous",
			"could kill", "killed", "injury", "shock", "electrocute",
		},
		Complaint: []string{
			"poor customer service", "bad service", "rude", "unprofessional",
			"didn't help", "hung up", "was rude", "customer service was",
		},
		Conduct: []string{
			"rude", "unprofessional", "hung up", "insult", "rude behavior",
			"didn't care", "didn't help", "yelled",
		},
		Affirmative:   []string{"yes", "y", "ok", "okay", "sure", "sounds good"},
		SafetyConfirm: []string{"yes", "y"},
		NoDetails:     []string{"no", "n", "none"},
		InjectionFilter: []string{
			`(?i)ignore\s+previous\s+instructions`,
			`(?i)disregard\s+all\s+prior`,
			`(?i)you\s+are\s+now\s+.*system`,
			`(?i)pretend\s+to\s+be`,
			`(?i)execute\s+shell\s+command`,
			`(?i)call\s+tool`,
		},
	}
}

// LoadLexicon reads the YAML policy at path. An empty path yields the
// defaults; lists missing from the file keep their default values.
func LoadLexicon(path string) (Lexicon, error) {
	lex := DefaultLexicon()
	if path == "" {
		return lex, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon %s: %w", path, err)
	}

	var override Lexicon
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon %s: %w", path, err)
	}

	lex.apply(override)
	return lex, nil
}

func (l *Lexicon) apply(o Lexicon) {
	replace := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	replace(&l.Profanity, o.Profanity)
	replace(&l.Safety, o.Safety)
	replace(&l.OutageSafety, o.OutageSafety)
	replace(&l.Complaint, o.Complaint)
	replace(&l.Conduct, o.Conduct)
	replace(&l.Affirmative, o.Affirmative)
	replace(&l.SafetyConfirm, o.SafetyConfirm)
	replace(&l.NoDetails, o.NoDetails)
	replace(&l.InjectionFilter, o.InjectionFilter)
}
