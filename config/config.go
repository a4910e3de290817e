package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/blotter/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del backtest.
type Config struct {
	Strategy StrategyConfig `yaml:"strategy"`
	Assets   []AssetConfig  `yaml:"assets"`
	Output   OutputConfig   `yaml:"output"`
	Runner   RunnerConfig   `yaml:"runner"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// StrategyConfig son los parámetros de la estrategia, comunes a todos los activos.
type StrategyConfig struct {
	Alpha1 float64 `yaml:"alpha1"` // desplazamiento de la entrada sobre el cierre previo
	N1     int     `yaml:"n1"`     // sesiones de vida de la entrada
	Alpha2 float64 `yaml:"alpha2"` // objetivo de la salida sobre el precio de entrada
	N2     int     `yaml:"n2"`     // sesiones de vida de la salida limitada
}

// AssetConfig asocia un instrumento a su CSV de precios.
type AssetConfig struct {
	Symbol string `yaml:"symbol"`
	Prices string `yaml:"prices"`
}

// OutputConfig controla los artefactos y la salida por consola.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	WriteCSV bool   `yaml:"write_csv"`
	Table    bool   `yaml:"table"`    // false = una línea por activo
	MaxRows  int    `yaml:"max_rows"` // filas por tabla en consola; 0 = todas
}

// RunnerConfig controla el paralelismo del backtest.
type RunnerConfig struct {
	Workers int `yaml:"workers"` // 0 = NumCPU
}

// StorageConfig controla dónde se persisten los runs.
type StorageConfig struct {
	DSN           string `yaml:"dsn"`            // ruta al archivo SQLite, ":memory:", o vacío para no persistir
	RetentionDays int    `yaml:"retention_days"` // 0 = conservar todo
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default devuelve la configuración por defecto: un único activo IVV.
func Default() *Config {
	return &Config{
		Strategy: StrategyConfig{
			Alpha1: domain.DefaultAlpha1,
			N1:     domain.DefaultN1,
			Alpha2: domain.DefaultAlpha2,
			N2:     domain.DefaultN2,
		},
		Assets:  []AssetConfig{{Symbol: "IVV", Prices: "data/IVV.csv"}},
		Output:  OutputConfig{Dir: "out", WriteCSV: true, Table: true, MaxRows: 20},
		Storage: StorageConfig{DSN: "blotter.db"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las claves ausentes del YAML conservan el valor por defecto; las variables de
// entorno sobreescriben ambos. path vacío = solo defaults y entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Validate comprueba la configuración y devuelve un *domain.ConfigurationError.
func (c *Config) Validate() error {
	if len(c.Assets) == 0 {
		return &domain.ConfigurationError{Field: "assets", Value: 0, Reason: "at least one asset is required"}
	}
	seen := make(map[string]bool, len(c.Assets))
	for i, a := range c.Assets {
		field := fmt.Sprintf("assets[%d]", i)
		switch {
		case a.Symbol == "":
			return &domain.ConfigurationError{Field: field + ".symbol", Value: a.Symbol, Reason: "must not be empty"}
		case a.Prices == "":
			return &domain.ConfigurationError{Field: field + ".prices", Value: a.Prices, Reason: "must not be empty"}
		case seen[a.Symbol]:
			return &domain.ConfigurationError{Field: field + ".symbol", Value: a.Symbol, Reason: "duplicate asset"}
		}
		seen[a.Symbol] = true
	}

	if err := c.Params(c.Assets[0].Symbol).Validate(); err != nil {
		return err
	}

	if c.Runner.Workers < 0 {
		return &domain.ConfigurationError{Field: "runner.workers", Value: c.Runner.Workers, Reason: "must be >= 0"}
	}
	if c.Output.MaxRows < 0 {
		return &domain.ConfigurationError{Field: "output.max_rows", Value: c.Output.MaxRows, Reason: "must be >= 0"}
	}
	if c.Storage.RetentionDays < 0 {
		return &domain.ConfigurationError{Field: "storage.retention_days", Value: c.Storage.RetentionDays, Reason: "must be >= 0"}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &domain.ConfigurationError{Field: "log.level", Value: c.Log.Level, Reason: "want debug, info, warn or error"}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return &domain.ConfigurationError{Field: "log.format", Value: c.Log.Format, Reason: "want text or json"}
	}
	return nil
}

// Params devuelve los parámetros de la estrategia para un activo.
func (c *Config) Params(asset string) domain.StrategyParams {
	return domain.StrategyParams{
		Asset:  asset,
		Alpha1: c.Strategy.Alpha1,
		N1:     c.Strategy.N1,
		Alpha2: c.Strategy.Alpha2,
		N2:     c.Strategy.N2,
	}
}

// Symbols devuelve los activos configurados, en el orden del archivo.
func (c *Config) Symbols() []string {
	out := make([]string, 0, len(c.Assets))
	for _, a := range c.Assets {
		out = append(out, a.Symbol)
	}
	return out
}

// PricePaths devuelve el mapa activo → CSV de precios.
func (c *Config) PricePaths() map[string]string {
	out := make(map[string]string, len(c.Assets))
	for _, a := range c.Assets {
		out[a.Symbol] = a.Prices
	}
	return out
}

// Retention devuelve la antigüedad máxima de los runs guardados (0 = sin límite).
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v, ok := os.LookupEnv("BLOTTER_DSN"); ok {
		cfg.Storage.DSN = v // vacío desactiva la persistencia
	}
	if v := os.Getenv("BLOTTER_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("BLOTTER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &domain.ConfigurationError{Field: "BLOTTER_WORKERS", Value: v, Reason: "not an integer"}
		}
		cfg.Runner.Workers = n
	}
	return nil
}

// setDefaults rellena los valores que el YAML dejó explícitamente vacíos.
func setDefaults(cfg *Config) {
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "out"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
