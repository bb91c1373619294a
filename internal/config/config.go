// Package config defines the JSON-serializable configuration model for the
// pipeline. Field names in Go mirror the JSON structure used in pipeline
// files under configs/*.json. Secrets (card salt, database DSN) are never
// required to live in the file; environment overrides take precedence so a
// deployment can keep them out of version control.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultCardSalt is the salt used when none is configured. It exists so
// local runs and tests work out of the box; a production deployment must
// supply CARD_SALT. Validate flags it as a warning.
const DefaultCardSalt = "etl_grupo_salt"

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job identifies the run for logs and metrics labels.
	Job string `mapstructure:"job" json:"job"`

	Input      Input      `mapstructure:"input" json:"input"`
	Output     Output     `mapstructure:"output" json:"output"`
	Cleaning   Cleaning   `mapstructure:"cleaning" json:"cleaning"`
	Validation Validation `mapstructure:"validation" json:"validation"`
	Storage    Storage    `mapstructure:"storage" json:"storage"`
	Metrics    Metrics    `mapstructure:"metrics" json:"metrics"`
	Runtime    Runtime    `mapstructure:"runtime" json:"runtime"`
}

// Input locates the raw CSV extracts.
type Input struct {
	// Dir is scanned for Clientes-YYYY-MM-DD.csv / Tarjetas-YYYY-MM-DD.csv.
	Dir string `mapstructure:"dir" json:"dir"`
}

// Output locates the generated files.
type Output struct {
	// CleanedDir receives one <stem>.cleaned.csv per accepted input batch.
	CleanedDir string `mapstructure:"cleaned_dir" json:"cleaned_dir"`

	// RejectedDir receives rows_rejected_clientes.csv and
	// rows_rejected_tarjetas.csv, regenerated on every run.
	RejectedDir string `mapstructure:"rejected_dir" json:"rejected_dir"`
}

// Cleaning configures the field cleaners.
type Cleaning struct {
	// CardSalt is the secret salt for the card-number digest.
	// Override with env CARD_SALT.
	CardSalt string `mapstructure:"card_salt" json:"card_salt"`

	// MaskRejectedIDs controls whether the national id in rejected customer
	// rows is masked like the valid output. Leaving the raw value in place
	// eases triage but exposes PII; the safe default is true.
	MaskRejectedIDs bool `mapstructure:"mask_rejected_ids" json:"mask_rejected_ids"`
}

// Validation configures the rule validators.
type Validation struct {
	// StrictIDChecksum enables verification of the national id checksum
	// letter against the 23-letter table. When false only the structural
	// 8-digits-plus-letter format is checked.
	StrictIDChecksum bool `mapstructure:"strict_id_checksum" json:"strict_id_checksum"`
}

// Storage configures the destination store. An empty DSN disables the load
// stage entirely (transform-only run).
type Storage struct {
	// DSN is the pgx connection string. Override with env PIPELINE_DSN.
	DSN string `mapstructure:"dsn" json:"dsn"`

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "pushgateway" or "none".
	Backend string `mapstructure:"backend" json:"backend"`

	// PushgatewayURL is the base URL, e.g. http://localhost:9091.
	PushgatewayURL string `mapstructure:"pushgateway_url" json:"pushgateway_url"`
}

// Runtime controls per-file concurrency. Input files are independent up to
// the card consolidation barrier, so they may be processed in parallel.
type Runtime struct {
	FileWorkers int `mapstructure:"file_workers" json:"file_workers"`
}

// Load reads the pipeline file at path (JSON), applies defaults, and then
// environment overrides: CARDPIPE_* for any key, plus the two well-known
// secret variables CARD_SALT and PIPELINE_DSN.
func Load(path string) (Pipeline, error) {
	v := viper.New()
	v.SetConfigType("json")

	v.SetDefault("job", "cardpipe")
	v.SetDefault("input.dir", "data/raw")
	v.SetDefault("output.cleaned_dir", "data/output")
	v.SetDefault("output.rejected_dir", "errors")
	v.SetDefault("cleaning.card_salt", DefaultCardSalt)
	v.SetDefault("cleaning.mask_rejected_ids", true)
	v.SetDefault("validation.strict_id_checksum", true)
	v.SetDefault("storage.connect_timeout", 5*time.Second)
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("runtime.file_workers", 4)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Pipeline{}, err
		}
	}

	v.SetEnvPrefix("CARDPIPE")
	v.AutomaticEnv()
	_ = v.BindEnv("cleaning.card_salt", "CARD_SALT")
	_ = v.BindEnv("storage.dsn", "PIPELINE_DSN")

	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}
