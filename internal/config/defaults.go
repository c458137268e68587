package config

const (
	defaultDataDir            = "~/.local/share/bosstitler"
	defaultLogDir             = "~/.local/share/bosstitler/logs"
	defaultRateLimitDelay     = 2
	defaultYouTubeBaseURL     = "https://www.googleapis.com/youtube/v3"
	defaultSheetsBaseURL      = "https://sheets.googleapis.com/v4"
	defaultVisionBaseURL      = "https://api.openai.com/v1/chat/completions"
	defaultVisionModel        = "gpt-4o"
	defaultVisionMaxTokens    = 100
	defaultVisionTimeout      = 60
	defaultBossCacheMinutes   = 60
	defaultFrameQuality       = "worst"
	defaultClipSeconds        = 90
	defaultRetryMaxAttempts   = 3
	defaultRetryBaseDelay     = 2
	defaultRetryMaxDelay      = 60
	defaultCacheExpiryDays    = 30
	defaultParallelWorkers    = 3
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
)

var defaultFrameTimestamps = []int{10, 20, 30, 45, 60}

// Games that get the "Melee" tag in formatted titles. Overridable in config.
var defaultSoulslikeGames = []string{
	"bloodborne",
	"dark souls",
	"demon's souls",
	"demons souls",
	"elden ring",
	"sekiro",
	"lords of the fallen",
	"lies of p",
	"nioh",
	"mortal shell",
	"salt and sanctuary",
	"hollow knight",
	"the surge",
	"remnant",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		YouTube: YouTube{
			APIToken:       "${YOUTUBE_API_TOKEN}",
			BaseURL:        defaultYouTubeBaseURL,
			SheetsBaseURL:  defaultSheetsBaseURL,
			RateLimitDelay: defaultRateLimitDelay,
		},
		Vision: Vision{
			APIKey:         "${OPENAI_API_KEY}",
			BaseURL:        defaultVisionBaseURL,
			Model:          defaultVisionModel,
			MaxTokens:      defaultVisionMaxTokens,
			TimeoutSeconds: defaultVisionTimeout,
		},
		BossList: BossList{
			CacheExpiryMinutes: defaultBossCacheMinutes,
		},
		Processing: Processing{
			Frames: Frames{
				Timestamps:  append([]int(nil), defaultFrameTimestamps...),
				Quality:     defaultFrameQuality,
				ClipSeconds: defaultClipSeconds,
			},
			Retry: Retry{
				MaxAttempts:      defaultRetryMaxAttempts,
				BaseDelaySeconds: defaultRetryBaseDelay,
				MaxDelaySeconds:  defaultRetryMaxDelay,
			},
			Cache: Cache{
				Enabled:    true,
				ExpiryDays: defaultCacheExpiryDays,
			},
			Parallel: Parallel{
				Enabled: false,
				Workers: defaultParallelWorkers,
			},
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		SoulslikeGames: append([]string(nil), defaultSoulslikeGames...),
	}
}
