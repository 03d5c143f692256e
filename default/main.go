// Package defaults provides embedded default assets (prompt template, config, vocabulary).
package defaults

import _ "embed"

//go:embed default_prompt.tmpl
var DefaultPrompt string

//go:embed default_config.toml
var DefaultConfigTOML []byte

//go:embed vocabulary.yaml
var VocabularyYAML []byte
