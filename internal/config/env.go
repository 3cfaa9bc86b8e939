package config

import (
	"os"
	"strings"
)

// Environment variables that override file values when set.
const (
	EnvFaceAPIKey        = "FACE_API_KEY"
	EnvFaceEndpoint      = "FACE_API_ENDPOINT"
	EnvFacePersonGroup   = "FACE_PERSON_GROUP"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvGoogleCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvElevenLabsAPIKey  = "ELEVENLABS_API_KEY"
	EnvLogLevel          = "COMMENTATOR_LOG_LEVEL"
)

func (c *Config) applyEnv() {
	setFromEnv(&c.Face.APIKey, EnvFaceAPIKey)
	setFromEnv(&c.Face.Endpoint, EnvFaceEndpoint)
	setFromEnv(&c.Face.PersonGroup, EnvFacePersonGroup)
	setFromEnv(&c.TTS.OpenAIAPIKey, EnvOpenAIAPIKey)
	setFromEnv(&c.TTS.GoogleCredentials, EnvGoogleCredentials)
	setFromEnv(&c.TTS.ElevenLabsAPIKey, EnvElevenLabsAPIKey)
	setFromEnv(&c.Logging.Level, EnvLogLevel)
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
