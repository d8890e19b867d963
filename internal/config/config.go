package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Env var names for the three required credentials.
const (
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

// Credentials holds the secrets the bot cannot run without.
// They are read from the environment once at startup and never reloaded.
type Credentials struct {
	PracticumToken string
	TelegramToken  string
	ChatID         int64
}

// MissingEnvError reports which required environment variables are absent.
type MissingEnvError struct {
	Names []string
}

func (e *MissingEnvError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Names, ", ")
}

// FromEnv reads the required credentials from the process environment.
// It fails if any of the three is unset or empty, naming every missing one.
func FromEnv() (Credentials, error) {
	var missing []string

	practicum := strings.TrimSpace(os.Getenv(EnvPracticumToken))
	if practicum == "" {
		missing = append(missing, EnvPracticumToken)
	}
	telegram := strings.TrimSpace(os.Getenv(EnvTelegramToken))
	if telegram == "" {
		missing = append(missing, EnvTelegramToken)
	}
	chatRaw := strings.TrimSpace(os.Getenv(EnvTelegramChatID))
	if chatRaw == "" {
		missing = append(missing, EnvTelegramChatID)
	}

	if len(missing) > 0 {
		return Credentials{}, &MissingEnvError{Names: missing}
	}

	chatID, err := strconv.ParseInt(chatRaw, 10, 64)
	if err != nil {
		return Credentials{}, fmt.Errorf("%s must be a numeric chat id: %w", EnvTelegramChatID, err)
	}

	return Credentials{
		PracticumToken: practicum,
		TelegramToken:  telegram,
		ChatID:         chatID,
	}, nil
}
