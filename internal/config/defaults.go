package config

const (
	defaultStateDir                = "~/.local/share/clmeval"
	defaultLogDir                  = "~/.local/share/clmeval/logs"
	defaultLogRetentionDays        = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLanguageCode            = "en-US"
	defaultBaseModel               = "WideBand"
	defaultTranscriptionBackend    = BackendAWS
	defaultPollInitialSeconds      = 15
	defaultPollMaxSeconds          = 60
	defaultTrainingPollMaxSeconds  = 90
	defaultJobTimeoutSeconds       = 4 * 60 * 60
	defaultTrainingTimeoutSeconds  = 24 * 60 * 60
	defaultWhisperXModel           = "large-v3"
	defaultWhisperXTimeoutSeconds  = 2 * 60 * 60
	defaultScoringEngine           = EngineWER
	defaultWERBinary               = "wer"
	defaultKeywordExtractor        = ExtractorComprehend
	defaultTrainingDataBaseURL     = "https://en.wikipedia.org/wiki/"
	defaultTrainingDataUserAgent   = "clmeval/dev (training data acquisition)"
	defaultTrainingDataTimeoutSecs = 30
	defaultNtfyTimeoutSeconds      = 10
)

// Backend, engine and extractor names accepted in configuration.
const (
	BackendAWS          = "aws"
	BackendWhisperX     = "whisperx"
	EngineWER           = "wer"
	EngineDiff          = "diff"
	ExtractorComprehend = "comprehend"
	ExtractorPassthru   = "passthrough"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		CLM: CLM{
			LanguageCode: defaultLanguageCode,
			BaseModel:    defaultBaseModel,
		},
		Transcription: Transcription{
			Backend:                defaultTranscriptionBackend,
			PollInitialSeconds:     defaultPollInitialSeconds,
			PollMaxSeconds:         defaultPollMaxSeconds,
			TrainingPollMaxSeconds: defaultTrainingPollMaxSeconds,
			JobTimeoutSeconds:      defaultJobTimeoutSeconds,
			TrainingTimeoutSeconds: defaultTrainingTimeoutSeconds,
			WhisperXModel:          defaultWhisperXModel,
			WhisperXTimeoutSeconds: defaultWhisperXTimeoutSeconds,
		},
		Scoring: Scoring{
			Engine:    defaultScoringEngine,
			WERBinary: defaultWERBinary,
		},
		Keywords: Keywords{
			Extractor: defaultKeywordExtractor,
		},
		TrainingData: TrainingData{
			Enabled:               true,
			BaseURL:               defaultTrainingDataBaseURL,
			UserAgent:             defaultTrainingDataUserAgent,
			RequestTimeoutSeconds: defaultTrainingDataTimeoutSecs,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
