// Package config merges flags, environment, an optional YAML file and
// built-in defaults into one Config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"opencode/internal/audio"
)

const EnvPrefix = "OPENCODE"

type Config struct {
	ModelPath string
	Language  string
	Threads   int

	SampleRate       int
	FrameSize        int
	QueueSize        int
	SilenceThreshold float64
	SilenceHold      time.Duration
	MaxUtterance     time.Duration

	WakePhrases   []string
	CommandWindow time.Duration
	PollTimeout   time.Duration

	TTS           string
	PiperBin      string
	PiperModel    string
	SpeechFile    string
	SpeechTimeout time.Duration
	Chime         string
	Duck          bool

	DockerBin  string
	BrowserURL string
	ReportDir  string

	LogFile  string
	LogLevel string

	Input  string
	Socket string
	BusURL string

	NLUFallback bool
	OpenAIKey   string
	Proxy       string

	// positional arguments left after flag parsing
	Args []string
}

// legacy environment names still honoured
var aliases = map[string]string{
	"model_path":     "WHISPER_MODEL_PATH",
	"bus_url":        "BUS_URL",
	"openai_api_key": "OPENAI_API_KEY",
}

// Flags registers every option on fs. The flag defaults are the defaults.
func Flags(fs *cli.FlagSet) {
	fs.StringP("env", "e", ".env", "Env file path")
	fs.StringP("config", "c", "", "YAML config file")

	fs.String("model-path", "/models/ggml-base.en.bin", "Whisper model path")
	fs.String("language", "en", "Recognition language")
	fs.Int("threads", 0, "Recognizer threads (0 = all cores)")

	fs.Int("sample-rate", audio.SampleRate, "Capture sample rate")
	fs.Int("frame-size", audio.FrameSize, "Samples per captured frame")
	fs.Int("queue-size", 64, "Frame queue capacity")
	fs.Float64("silence-threshold", 0.015, "RMS level separating speech from silence")
	fs.Duration("silence-hold", time.Second, "Trailing silence that ends an utterance")
	fs.Duration("max-utterance", 15*time.Second, "Longest utterance before a forced cut")

	fs.StringSlice("wake-phrases", []string{"hey opencode", "hey open code"}, "Wake phrases")
	fs.Duration("command-window", 10*time.Second, "Time allowed to speak a command")
	fs.Duration("poll-timeout", time.Second, "Frame queue poll timeout")

	fs.String("tts", "piper", "Speech engine: piper, espeak or console")
	fs.String("piper-bin", "piper", "Piper executable")
	fs.String("piper-model", "/models/en_US-libritts_r-medium.onnx", "Piper voice model")
	fs.String("speech-file", "/tmp/speech.wav", "Synthesized speech file")
	fs.Duration("speech-timeout", 10*time.Second, "Synthesis and playback timeout")
	fs.String("chime", "", "Sound played when armed (wav or mp3)")
	fs.Bool("duck", false, "Lower other audio while listening")

	fs.String("docker-bin", "docker", "Docker CLI")
	fs.String("browser-url", "https://google.com", "Page opened by the browser command")
	fs.String("report-dir", "/app/logs", "Diagnostics report directory")

	fs.String("log-file", "/app/logs/opencode.log", "Log file (empty disables)")
	fs.StringP("log", "l", "info", "Log level")

	fs.StringP("input", "i", "", "Replay an audio file instead of the microphone")
	fs.String("socket", "/tmp/opencode.sock", "Control socket path")
	fs.String("bus-url", "", "Websocket event bus URL")

	fs.Bool("nlu-fallback", false, "Classify unrecognized commands with an LLM")
	fs.String("openai-api-key", "", "LLM API key")
	fs.StringP("proxy", "p", "", "SOCKS5 proxy for the LLM client")
}

// Load parses args and resolves the configuration.
// Precedence: flag > environment > config file > default.
func Load(name string, args []string) (Config, error) {
	fs := cli.NewFlagSet(name, cli.ContinueOnError)
	Flags(fs)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	envFile, _ := fs.GetString("env")
	// a missing .env is normal
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *cli.Flag) {
		if f.Name == "env" || f.Name == "config" {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
	})
	for key, env := range aliases {
		bindErr = errors.Join(bindErr, v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), env))
	}
	if bindErr != nil {
		return Config{}, fmt.Errorf("bind config: %w", bindErr)
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		ModelPath: v.GetString("model_path"),
		Language:  v.GetString("language"),
		Threads:   v.GetInt("threads"),

		SampleRate:       v.GetInt("sample_rate"),
		FrameSize:        v.GetInt("frame_size"),
		QueueSize:        v.GetInt("queue_size"),
		SilenceThreshold: v.GetFloat64("silence_threshold"),
		SilenceHold:      v.GetDuration("silence_hold"),
		MaxUtterance:     v.GetDuration("max_utterance"),

		WakePhrases:   list(v.Get("wake_phrases")),
		CommandWindow: v.GetDuration("command_window"),
		PollTimeout:   v.GetDuration("poll_timeout"),

		TTS:           strings.ToLower(v.GetString("tts")),
		PiperBin:      v.GetString("piper_bin"),
		PiperModel:    v.GetString("piper_model"),
		SpeechFile:    v.GetString("speech_file"),
		SpeechTimeout: v.GetDuration("speech_timeout"),
		Chime:         v.GetString("chime"),
		Duck:          v.GetBool("duck"),

		DockerBin:  v.GetString("docker_bin"),
		BrowserURL: v.GetString("browser_url"),
		ReportDir:  v.GetString("report_dir"),

		LogFile:  v.GetString("log_file"),
		LogLevel: v.GetString("log"),

		Input:  v.GetString("input"),
		Socket: v.GetString("socket"),
		BusURL: v.GetString("bus_url"),

		NLUFallback: v.GetBool("nlu_fallback"),
		OpenAIKey:   v.GetString("openai_api_key"),
		Proxy:       v.GetString("proxy"),

		Args: fs.Args(),
	}

	return cfg, cfg.Validate()
}

// list accepts a YAML sequence, a pflag slice or a comma separated string.
func list(raw any) []string {
	var items []string

	switch val := raw.(type) {
	case []string:
		items = val
	case []any:
		for _, it := range val {
			items = append(items, fmt.Sprint(it))
		}
	case string:
		val = strings.TrimSuffix(strings.TrimPrefix(val, "["), "]")
		items = strings.Split(val, ",")
	}

	var out []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func (c Config) Validate() error {
	var errs []error

	positive := func(name string, ok bool) {
		if !ok {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	positive("sample_rate", c.SampleRate > 0)
	positive("frame_size", c.FrameSize > 0)
	positive("queue_size", c.QueueSize > 0)
	positive("command_window", c.CommandWindow > 0)
	positive("poll_timeout", c.PollTimeout > 0)
	positive("silence_hold", c.SilenceHold > 0)
	positive("speech_timeout", c.SpeechTimeout > 0)

	if c.Threads < 0 {
		errs = append(errs, errors.New("threads must not be negative"))
	}
	if c.SilenceThreshold <= 0 || c.SilenceThreshold >= 1 {
		errs = append(errs, errors.New("silence_threshold must be between 0 and 1"))
	}
	if len(c.WakePhrases) == 0 {
		errs = append(errs, errors.New("at least one wake phrase is required"))
	}

	switch c.TTS {
	case "piper", "espeak", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown tts engine %q", c.TTS))
	}

	if c.NLUFallback && c.OpenAIKey == "" {
		errs = append(errs, errors.New("nlu_fallback requires openai_api_key"))
	}

	return errors.Join(errs...)
}
