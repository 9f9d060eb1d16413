package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	BadgerFilepath            string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath             string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel                  string        `env:"LOG_LEVEL,required=true"`
	DebugPort                 int           `env:"DEBUG_PORT,default=8090"`
	PageSize                  int           `env:"PAGE_SIZE,default=20"`
	ModerationCharReplacement string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	CensoredWords             string        `env:"CENSORED_WORDS"`
	EnrollmentBackoff         time.Duration `env:"ENROLLMENT_RETRY_BACKOFF,default=10ms"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

// WordList splits a comma-separated env value into trimmed entries.
func WordList(str string) []string {
	var words []string
	for _, word := range strings.Split(str, ",") {
		if word = strings.TrimSpace(word); word != "" {
			words = append(words, word)
		}
	}
	return words
}
