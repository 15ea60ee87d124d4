/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PROJECT_NAME = "Replay"
	DEFAULT_LOG_LEVEL    = "warn"
	DEFAULT_FORMAT       = "csv"
	DEFAULT_KAFKA_TOPIC  = "account_snapshots"
	DEFAULT_MAX_RETRIES  = 3
)

var ConfigStore atomic.Value

var (
	outputFormats = []interface{}{"csv", "json", "table"}
	logLevels     = []interface{}{"panic", "fatal", "error", "warn", "warning", "info", "debug", "trace"}
)

// OutputConfig controls how final accounts are written.
type OutputConfig struct {
	Format string `json:"format" envconfig:"FORMAT"`
	Sort   bool   `json:"sort" envconfig:"SORT"`
}

// KafkaConfig enables snapshot publishing when at least one broker is set.
type KafkaConfig struct {
	Brokers    []string `json:"brokers" envconfig:"BROKERS"`
	Topic      string   `json:"topic" envconfig:"TOPIC"`
	MaxRetries *int     `json:"max_retries" envconfig:"MAX_RETRIES"`
}

// Retries returns the configured publish retry budget. Zero disables retries;
// an unset value falls back to DEFAULT_MAX_RETRIES.
func (k KafkaConfig) Retries() int {
	if k.MaxRetries == nil {
		return DEFAULT_MAX_RETRIES
	}
	return *k.MaxRetries
}

// Configuration holds every setting of a replay run.
type Configuration struct {
	ProjectName string       `json:"project_name" envconfig:"PROJECT_NAME"`
	LogLevel    string       `json:"log_level" envconfig:"LOG_LEVEL"`
	Output      OutputConfig `json:"output" envconfig:"OUTPUT"`
	Kafka       KafkaConfig  `json:"kafka" envconfig:"KAFKA"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		logrus.Debugf("config file %s not found, using environment variables", file)
	} else {
		return fmt.Errorf("error reading config file %s: %w", file, err)
	}

	// override config from environment variables
	err = envconfig.Process("replay", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

// InitConfig loads configFile (optional) and the REPLAY_* environment, then
// configures logging from the result.
func InitConfig(configFile string) error {
	err := loadConfigFromFile(configFile)
	if err != nil {
		return err
	}
	cnf, err := Fetch()
	if err != nil {
		return err
	}
	return SetupLogger(cnf.LogLevel)
}

// Fetch returns the configuration stored by InitConfig or MockConfig.
func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.LogLevel = strings.ToLower(strings.TrimSpace(cnf.LogLevel))
	cnf.Output.Format = strings.ToLower(strings.TrimSpace(cnf.Output.Format))
	cnf.Kafka.Topic = strings.TrimSpace(cnf.Kafka.Topic)

	if cnf.ProjectName == "" {
		cnf.ProjectName = DEFAULT_PROJECT_NAME
	}
	if cnf.LogLevel == "" {
		cnf.LogLevel = DEFAULT_LOG_LEVEL
	}
	if cnf.Output.Format == "" {
		cnf.Output.Format = DEFAULT_FORMAT
	}
	if cnf.Kafka.Topic == "" {
		cnf.Kafka.Topic = DEFAULT_KAFKA_TOPIC
	}
	if cnf.Kafka.MaxRetries == nil {
		retries := DEFAULT_MAX_RETRIES
		cnf.Kafka.MaxRetries = &retries
	}

	brokers := cnf.Kafka.Brokers[:0]
	for _, broker := range cnf.Kafka.Brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	cnf.Kafka.Brokers = brokers

	return cnf.Validate()
}

// Validate checks the values a run depends on.
func (cnf *Configuration) Validate() error {
	return validation.ValidateStruct(cnf,
		validation.Field(&cnf.LogLevel, validation.Required, validation.In(logLevels...)),
		validation.Field(&cnf.Output, validation.By(func(value interface{}) error {
			output := value.(OutputConfig)
			return validation.ValidateStruct(&output,
				validation.Field(&output.Format, validation.Required, validation.In(outputFormats...)),
			)
		})),
		validation.Field(&cnf.Kafka, validation.By(func(value interface{}) error {
			kafka := value.(KafkaConfig)
			return validation.ValidateStruct(&kafka,
				validation.Field(&kafka.MaxRetries, validation.Min(0)),
			)
		})),
	)
}

// PublishingEnabled reports whether snapshots should be sent to Kafka.
func (cnf *Configuration) PublishingEnabled() bool {
	return len(cnf.Kafka.Brokers) > 0
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

// SetupLogger routes logrus and the standard library logger to stderr at level.
func SetupLogger(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(lvl)
	log.SetOutput(logrus.StandardLogger().WriterLevel(logrus.DebugLevel))
	return nil
}
