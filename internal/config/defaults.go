package config

const (
	defaultConfigPath             = "~/.config/commentator/config.toml"
	defaultPersonGroup            = "commentator"
	defaultDetectionModel         = "detection_01"
	defaultRecognitionModel       = "recognition_04"
	defaultConfidenceThreshold    = 0.5
	defaultFaceTimeoutSeconds     = 15
	defaultFaceMaxRetries         = 2
	defaultThrottleWaitMs         = 5000
	defaultPostCommentDelayMs     = 4000
	defaultCommentCooldownSeconds = 60
	defaultPresencePollMs         = 200
	defaultFaceDetectIntervalMs   = 3000
	defaultAskTimeoutSeconds      = 15
	defaultName                   = "stranger"
	defaultMotionThreshold        = 0.02
	defaultEnterSamples           = 3
	defaultLeaveSamples           = 25
	defaultCameraSource           = "webcam"
	defaultPeerName               = "commentator"
	defaultJPEGQuality            = 85
	defaultOpenAIVoice            = "nova"
	defaultElevenLabsVoice        = "charlotte"
	defaultGoogleVoice            = "en-US-Neural2-F"
	defaultLanguageCode           = "en-US"
	defaultTTSTimeoutSeconds      = 30
	defaultSoundsDir              = "~/.local/share/commentator/sounds"
	defaultSettingsBackend        = "json"
	defaultSettingsPath           = "~/.local/share/commentator/settings.json"
	defaultWebBind                = "127.0.0.1:8420"
	defaultLogFormat              = "text"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Face: Face{
			PersonGroup:         defaultPersonGroup,
			DetectionModel:      defaultDetectionModel,
			RecognitionModel:    defaultRecognitionModel,
			ConfidenceThreshold: defaultConfidenceThreshold,
			TimeoutSeconds:      defaultFaceTimeoutSeconds,
			MaxRetries:          defaultFaceMaxRetries,
		},
		Commentator: Commentator{
			ThrottleWaitMs:         defaultThrottleWaitMs,
			PostCommentDelayMs:     defaultPostCommentDelayMs,
			CommentCooldownSeconds: defaultCommentCooldownSeconds,
			PresencePollMs:         defaultPresencePollMs,
			FaceDetectIntervalMs:   defaultFaceDetectIntervalMs,
			AskTimeoutSeconds:      defaultAskTimeoutSeconds,
			DefaultName:            defaultName,
		},
		Presence: Presence{
			MotionThreshold: defaultMotionThreshold,
			EnterSamples:    defaultEnterSamples,
			LeaveSamples:    defaultLeaveSamples,
		},
		Camera: Camera{
			Source:      defaultCameraSource,
			PeerName:    defaultPeerName,
			JPEGQuality: defaultJPEGQuality,
		},
		TTS: TTS{
			Providers:       []string{"openai", "google"},
			OpenAIVoice:     defaultOpenAIVoice,
			GoogleVoice:     defaultGoogleVoice,
			ElevenLabsVoice: defaultElevenLabsVoice,
			LanguageCode:    defaultLanguageCode,
			Player:          []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-i", "pipe:0"},
			TimeoutSeconds:  defaultTTSTimeoutSeconds,
		},
		Sounds: Sounds{
			Dir: defaultSoundsDir,
		},
		Settings: Settings{
			Backend: defaultSettingsBackend,
			Path:    defaultSettingsPath,
		},
		Web: Web{
			Enabled: true,
			Bind:    defaultWebBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
