package configmodel

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Serialize renders an RfConfig to the self-describing text form
// carried over the wire by configureRfConfig/getRfConfig (spec.md §6).
// YAML is used because it is how the teacher corpus's own
// configuration records serialize (config.go's struct tags), and
// because a YAML document tolerates field reordering and the later
// addition of new optional fields without breaking old readers -
// exactly the forward-compatibility spec.md §4.2 requires.
func (c RfConfig) Serialize() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("serialize RfConfig: %w", err)
	}
	return string(out), nil
}

// DeserializeRfConfig is the exact inverse of Serialize for every
// field in §3. Unknown keys (from a newer writer) are ignored rather
// than rejected, preserving forward compatibility.
func DeserializeRfConfig(text string) (RfConfig, error) {
	var c RfConfig
	if err := yaml.Unmarshal([]byte(text), &c); err != nil {
		return RfConfig{}, fmt.Errorf("deserialize RfConfig: %w", err)
	}
	return c, nil
}
