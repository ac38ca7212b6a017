package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Platform   *string          `json:"platform"`
	Audio      *jsoncAudio      `json:"audio"`
	Capture    *jsoncCapture    `json:"capture"`
	Analysis   *jsoncAnalysis   `json:"analysis"`
	Waveform   *jsoncWaveform   `json:"waveform"`
	Random     *jsoncRandom     `json:"random"`
	Permission *jsoncPermission `json:"permission"`
	Indicator  *jsoncIndicator  `json:"indicator"`
	Clipboard  *jsoncClipboard  `json:"clipboard"`
}

type jsoncAudio struct {
	Input            *string `json:"input"`
	Fallback         *string `json:"fallback"`
	SampleRate       *int    `json:"sample_rate"`
	EchoCancellation *bool   `json:"echo_cancellation"`
	NoiseSuppression *bool   `json:"noise_suppression"`
	AutoGain         *bool   `json:"auto_gain"`
}

type jsoncCapture struct {
	WindowMinMS *int `json:"window_min_ms"`
	WindowMaxMS *int `json:"window_max_ms"`
}

type jsoncAnalysis struct {
	WindowMS *int `json:"window_ms"`
}

type jsoncWaveform struct {
	FPS *int `json:"fps"`
}

type jsoncRandom struct {
	Seed *uint64 `json:"seed"`
}

type jsoncPermission struct {
	Store *string `json:"store"`
}

type jsoncIndicator struct {
	Enable          *bool   `json:"enable"`
	Backend         *string `json:"backend"`
	DesktopAppName  *string `json:"desktop_app_name"`
	SoundEnable     *bool   `json:"sound_enable"`
	SoundStartFile  *string `json:"sound_start_file"`
	SoundStopFile   *string `json:"sound_stop_file"`
	SoundResultFile *string `json:"sound_result_file"`
	SoundCancelFile *string `json:"sound_cancel_file"`
	ErrorTimeoutMS  *int    `json:"error_timeout_ms"`
}

type jsoncClipboard struct {
	Enable *bool   `json:"enable"`
	Cmd    *string `json:"cmd"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Platform != nil {
		cfg.Platform = strings.ToLower(strings.TrimSpace(*payload.Platform))
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
		if payload.Audio.SampleRate != nil {
			cfg.Audio.SampleRate = *payload.Audio.SampleRate
		}
		if payload.Audio.EchoCancellation != nil {
			cfg.Audio.EchoCancellation = *payload.Audio.EchoCancellation
		}
		if payload.Audio.NoiseSuppression != nil {
			cfg.Audio.NoiseSuppression = *payload.Audio.NoiseSuppression
		}
		if payload.Audio.AutoGain != nil {
			cfg.Audio.AutoGain = *payload.Audio.AutoGain
		}
	}

	if payload.Capture != nil {
		if payload.Capture.WindowMinMS != nil {
			cfg.Capture.WindowMinMS = *payload.Capture.WindowMinMS
		}
		if payload.Capture.WindowMaxMS != nil {
			cfg.Capture.WindowMaxMS = *payload.Capture.WindowMaxMS
		}
	}

	if payload.Analysis != nil && payload.Analysis.WindowMS != nil {
		cfg.Analysis.WindowMS = *payload.Analysis.WindowMS
	}

	if payload.Waveform != nil && payload.Waveform.FPS != nil {
		cfg.Waveform.FPS = *payload.Waveform.FPS
	}

	if payload.Random != nil && payload.Random.Seed != nil {
		cfg.Random.Seed = *payload.Random.Seed
	}

	if payload.Permission != nil && payload.Permission.Store != nil {
		cfg.Permission.StorePath = strings.TrimSpace(*payload.Permission.Store)
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.Backend != nil {
			cfg.Indicator.Backend = strings.ToLower(strings.TrimSpace(*payload.Indicator.Backend))
		}
		if payload.Indicator.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*payload.Indicator.DesktopAppName)
		}
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.SoundStartFile != nil {
			cfg.Indicator.SoundStartFile = strings.TrimSpace(*payload.Indicator.SoundStartFile)
		}
		if payload.Indicator.SoundStopFile != nil {
			cfg.Indicator.SoundStopFile = strings.TrimSpace(*payload.Indicator.SoundStopFile)
		}
		if payload.Indicator.SoundResultFile != nil {
			cfg.Indicator.SoundResultFile = strings.TrimSpace(*payload.Indicator.SoundResultFile)
		}
		if payload.Indicator.SoundCancelFile != nil {
			cfg.Indicator.SoundCancelFile = strings.TrimSpace(*payload.Indicator.SoundCancelFile)
		}
		if payload.Indicator.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *payload.Indicator.ErrorTimeoutMS
		}
	}

	if payload.Clipboard != nil {
		if payload.Clipboard.Enable != nil {
			cfg.Clipboard.Enable = *payload.Clipboard.Enable
		}
		if payload.Clipboard.Cmd != nil {
			cmd, err := ParseCommand(*payload.Clipboard.Cmd)
			if err != nil {
				return nil, fmt.Errorf("invalid clipboard.cmd: %w", err)
			}
			cfg.Clipboard.Cmd = cmd
		}
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
