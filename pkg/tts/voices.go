package tts

// ElevenLabsVoices maps preset names to ElevenLabs voice IDs.
var ElevenLabsVoices = map[string]string{
	"charlotte": "XB0fDUnXU5powFXDhCwa",
	"aria":      "9BWtsMINqrJLrRacOk9x",
	"sarah":     "EXAVITQu4vr4xnSDxMaL",
	"lily":      "pFZP5JQG7iQjIQuC4Bku",
	"rachel":    "21m00Tcm4TlvDq8ikWAM",
	"josh":      "TxGEqnHWrfWFTfGW9XjX",
	"adam":      "pNInz6obpgDQGcFmaJgB",
}

// ResolveElevenLabsVoice returns the voice ID for a preset name,
// or the input unchanged if it's already a voice ID.
func ResolveElevenLabsVoice(name string) string {
	if id, ok := ElevenLabsVoices[name]; ok {
		return id
	}
	return name
}

// OpenAIVoices lists the built-in OpenAI voices.
var OpenAIVoices = []string{VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer}

// IsOpenAIVoice reports whether name is a built-in OpenAI voice.
func IsOpenAIVoice(name string) bool {
	for _, v := range OpenAIVoices {
		if v == name {
			return true
		}
	}
	return false
}
