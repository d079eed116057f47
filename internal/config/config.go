package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/chojs23/seqmerge/internal/log"
	"github.com/chojs23/seqmerge/internal/markers"
	"github.com/chojs23/seqmerge/internal/merge"
	"github.com/chojs23/seqmerge/internal/seqdiff"
)

const (
	// FileName is the config file looked up in the search directories,
	// with any extension viper understands.
	FileName  = ".seqmerge"
	EnvPrefix = "SEQMERGE"
)

// Config is the effective configuration after defaults, file, environment
// and flags are layered.
type Config struct {
	Markers     merge.Markers   `mapstructure:"markers" yaml:"markers"`
	Diff        seqdiff.Options `mapstructure:"diff" yaml:"diff"`
	Engine      string          `mapstructure:"engine" yaml:"engine"`
	Style       string          `mapstructure:"style" yaml:"style"`
	LogLevel    string          `mapstructure:"log-level" yaml:"log-level"`
	Backup      bool            `mapstructure:"backup" yaml:"backup"`
	Concurrency int             `mapstructure:"concurrency" yaml:"concurrency"`
	UndoDepth   int             `mapstructure:"undo-depth" yaml:"undo-depth"`
	Theme       Theme           `mapstructure:"theme" yaml:"theme"`
}

// Theme holds terminal colors (ANSI 256 codes or #rrggbb) for the review UI.
type Theme struct {
	Title      string `mapstructure:"title" yaml:"title"`
	Header     string `mapstructure:"header" yaml:"header"`
	Footer     string `mapstructure:"footer" yaml:"footer"`
	Local      string `mapstructure:"local" yaml:"local"`
	Latest     string `mapstructure:"latest" yaml:"latest"`
	Base       string `mapstructure:"base" yaml:"base"`
	Selected   string `mapstructure:"selected" yaml:"selected"`
	Resolved   string `mapstructure:"resolved" yaml:"resolved"`
	Unresolved string `mapstructure:"unresolved" yaml:"unresolved"`
}

func Defaults() Config {
	return Config{
		Markers:     merge.DefaultMarkers(),
		Engine:      seqdiff.EngineMyers,
		Style:       merge.StyleModifiedLatest.String(),
		LogLevel:    "warn",
		Concurrency: 4,
		UndoDepth:   100,
		Theme: Theme{
			Title:      "170",
			Header:     "62",
			Footer:     "236",
			Local:      "24",
			Latest:     "52",
			Base:       "237",
			Selected:   "226",
			Resolved:   "42",
			Unresolved: "196",
		},
	}
}

// New returns a viper instance with every key defaulted and environment
// overrides (SEQMERGE_MARKERS_START, SEQMERGE_LOG_LEVEL, ...) enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("markers.start", d.Markers.Start)
	v.SetDefault("markers.base", d.Markers.Base)
	v.SetDefault("markers.separator", d.Markers.Separator)
	v.SetDefault("markers.end", d.Markers.End)
	v.SetDefault("markers.eol", d.Markers.EOL)
	v.SetDefault("diff.ignore-all-space", d.Diff.IgnoreAllWhitespace)
	v.SetDefault("diff.ignore-space-change", d.Diff.IgnoreWhitespaceChange)
	v.SetDefault("diff.ignore-eol-style", d.Diff.IgnoreEOLStyle)
	v.SetDefault("engine", d.Engine)
	v.SetDefault("style", d.Style)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("backup", d.Backup)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("undo-depth", d.UndoDepth)
	v.SetDefault("theme.title", d.Theme.Title)
	v.SetDefault("theme.header", d.Theme.Header)
	v.SetDefault("theme.footer", d.Theme.Footer)
	v.SetDefault("theme.local", d.Theme.Local)
	v.SetDefault("theme.latest", d.Theme.Latest)
	v.SetDefault("theme.base", d.Theme.Base)
	v.SetDefault("theme.selected", d.Theme.Selected)
	v.SetDefault("theme.resolved", d.Theme.Resolved)
	v.SetDefault("theme.unresolved", d.Theme.Unresolved)
	return v
}

// Load reads the config file into v and decodes the layered result. An
// explicit file must exist; otherwise FileName is searched in dirs and a
// missing file is not an error.
func Load(v *viper.Viper, file string, dirs ...string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := merge.ParseStyle(c.Style); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := seqdiff.ByName(c.Engine); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("config: concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.UndoDepth < 1 {
		return fmt.Errorf("config: undo-depth must be >= 1, got %d", c.UndoDepth)
	}
	if c.Markers.Start == "" || c.Markers.Separator == "" || c.Markers.End == "" {
		return errors.New("config: markers.start, markers.separator and markers.end must be set")
	}
	return nil
}

// Merger builds a merger from the configuration.
func (c Config) Merger(logger *zap.Logger) (*merge.Merger, error) {
	style, err := merge.ParseStyle(c.Style)
	if err != nil {
		return nil, err
	}
	differ, err := seqdiff.ByName(c.Engine)
	if err != nil {
		return nil, err
	}
	return merge.New(
		merge.WithMarkers(c.Markers),
		merge.WithDiffOptions(c.Diff),
		merge.WithDiffer(differ),
		merge.WithStyle(style),
		merge.WithLogger(logger),
	), nil
}

// MarkerSet returns the prefixes used to find conflicts written with the
// configured markers.
func (c Config) MarkerSet() markers.Set {
	return markers.SetFromLines(c.Markers.Start, c.Markers.Base, c.Markers.Separator, c.Markers.End)
}

// Logger builds the logger for the configured level.
func (c Config) Logger(w io.Writer) (*zap.Logger, error) {
	return log.New(c.LogLevel, w)
}

// YAML renders the configuration as a config file would hold it.
func (c Config) YAML() ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	// Block scalars cannot hold a lone line break, so the marker EOL is
	// written as an escaped string.
	if eol := mappingValue(mappingValue(&doc, "markers"), "eol"); eol != nil {
		eol.Value = c.Markers.EOL
		eol.Style = yaml.DoubleQuotedStyle
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
