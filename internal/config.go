package internal

import (
	"fmt"
	"time"
)

// Config is loaded from the environment by the entrypoint. Values
// without a default are mandatory; a missing one fails startup.
type Config struct {
	Host     string `env:"HOST,required=true"`
	Port     int    `env:"PORT,required=true"`
	LogLevel string `env:"LOG_LEVEL,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	QueueKey      string `env:"QUEUE_KEY"`

	AuthTokenSecret   string        `env:"AUTH_TOKEN_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	PersistMaxAttempts int           `env:"PERSIST_MAX_ATTEMPTS,default=3"`
	PersistRetryDelay  time.Duration `env:"PERSIST_RETRY_DELAY,default=500ms"`

	CensoredWords   []string `env:"CENSORED_WORDS,separator=|"`
	CharReplacement string   `env:"CHARACTER_REPLACEMENT,default=*"`

	TimelineCapacity int `env:"TIMELINE_CAPACITY,default=100"`
	DebugPort        int `env:"DEBUG_PORT"`
}

// CharacterRune rejects multi-rune replacement strings early, at
// startup rather than on the first censored message.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
