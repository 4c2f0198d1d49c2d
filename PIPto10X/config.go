package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

/*configYaml raw layout of the chemistry config file.
barcodes and spacers are keyed maps (bc1..bc4, spacer1..spacer3) so the
file stays self documenting; keys are sorted before use */
type configYaml struct {
	Barcodes   map[string]string `yaml:"barcodes"`
	Spacers    map[string]string `yaml:"spacers"`
	Parameters *configParams     `yaml:"parameters"`
}

type configParams struct {
	UmiLen int `yaml:"umi_len"`
}

/*RunConfig resolved chemistry configuration */
type RunConfig struct {
	BarcodeFiles [nbBarcodes]string
	Spacers      [nbSpacers]string
	UmiLen       int
}

/*loadConfig load and validate the yaml chemistry config */
func loadConfig(fname string) *RunConfig {
	content, err := os.ReadFile(fname)

	if err != nil {
		log.Fatal(fmt.Sprintf("#### cannot read config file %s: %s\n", fname, err))
	}

	raw := configYaml{}

	if err = yaml.Unmarshal(content, &raw); err != nil {
		log.Fatal(fmt.Sprintf("#### config file %s not conform: %s\n", fname, err))
	}

	if len(raw.Barcodes) != nbBarcodes {
		log.Fatal(fmt.Sprintf("#### config file %s should define %d barcode files (found %d)\n",
			fname, nbBarcodes, len(raw.Barcodes)))
	}

	if len(raw.Spacers) != nbSpacers {
		log.Fatal(fmt.Sprintf("#### config file %s should define %d spacers (found %d)\n",
			fname, nbSpacers, len(raw.Spacers)))
	}

	config := &RunConfig{}

	for i, key := range sortedKeys(raw.Barcodes) {
		config.BarcodeFiles[i] = raw.Barcodes[key]
	}

	for i, key := range sortedKeys(raw.Spacers) {
		spacer := strings.ToUpper(strings.TrimSpace(raw.Spacers[key]))

		if spacer == "" {
			log.Fatal(fmt.Sprintf("#### empty spacer %s in config file %s\n", key, fname))
		}

		for _, char := range spacer {
			switch char {
			case 'A', 'C', 'G', 'T':
			default:
				log.Fatal(fmt.Sprintf("#### spacer %s contains invalid base %c\n",
					key, char))
			}
		}

		config.Spacers[i] = spacer
	}

	if raw.Parameters != nil {
		config.UmiLen = raw.Parameters.UmiLen
	}

	return config
}

func sortedKeys(dict map[string]string) []string {
	keys := make([]string, 0, len(dict))

	for key := range dict {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
