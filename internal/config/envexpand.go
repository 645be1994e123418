package config

import "os"

// ExpandEnv expands ${VAR} / $VAR references in YAML content using the
// process environment, so config.yaml can keep secrets out of version
// control while .env supplies them (spec.md section 6.1 supplement).
// Missing variables expand to the empty string; validation catches
// required fields left empty this way.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
