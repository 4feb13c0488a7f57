// mtsched configuration

// The configuration is loaded from a YAML file, with the following structure:
//
//  mtsched_config:
//    log_config:
//      ...
//    scheduler_config:
//      ...
//
// The "mtsched_config" section maps to the MtschedConfig structure defined in
// this package. There is no second, caller-owned section the way the
// teacher's "generators" section works — this package has nothing else to
// configure — but LoadConfig keeps the same two-section document-walk shape
// so that an embedding application can still pass its own config struct
// through unchanged, named by toSectionName.

package mtsched_internal

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	MTSCHED_CONFIG_SECTION_NAME = "mtsched_config"
)

type MtschedConfig struct {
	// Specific components configuration.
	LoggerConfig    *LoggerConfig    `yaml:"log_config"`
	SchedulerConfig *SchedulerConfig `yaml:"scheduler_config"`
}

func DefaultMtschedConfig() *MtschedConfig {
	return &MtschedConfig{
		LoggerConfig:    DefaultLoggerConfig(),
		SchedulerConfig: DefaultSchedulerConfig(),
	}
}

// LoadConfig loads the configuration from the specified YAML file (or buffer,
// for testing) as follows:
//   - the mtsched_config section is returned as a *MtschedConfig structure
//   - if toSectionName is non-empty and toCfg is non-nil, the matching
//     top-level section is decoded into toCfg (an embedding application's own
//     config, primed with its own defaults beforehand)
//
// Additionally an error is returned if the configuration could not be
// loaded or parsed.
func LoadConfig(cfgFile string, toSectionName string, toCfg any, buf []byte) (*MtschedConfig, error) {
	if buf == nil {
		// Normal case, buf is pre-populated only for testing.
		f, err := os.Open(cfgFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		buf, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
		}
	}

	docNode := yaml.Node{}
	err := yaml.Unmarshal(buf, &docNode)
	if err != nil {
		return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
	}

	mtschedConfig := DefaultMtschedConfig()
	if docNode.Kind == yaml.DocumentNode && len(docNode.Content) > 0 {
		rootNode := docNode.Content[0]
		if rootNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("file: %q: invalid YAML root node %q", cfgFile, rootNode.Tag)
		}
		var decodeInto any = nil
		for _, n := range rootNode.Content {
			if n.Kind == yaml.ScalarNode {
				switch n.Value {
				case MTSCHED_CONFIG_SECTION_NAME:
					decodeInto = mtschedConfig
				case toSectionName:
					if toSectionName != "" && toCfg != nil {
						decodeInto = toCfg
					}
				}
				continue
			}
			if n.Kind == yaml.MappingNode && decodeInto != nil {
				if err = n.Decode(decodeInto); err != nil {
					return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
				}
			}
			decodeInto = nil
		}
	}

	return mtschedConfig, nil
}
