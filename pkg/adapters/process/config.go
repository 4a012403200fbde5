package process

// ProcessConfig declares an allow-listed external command.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name" mapstructure:"name"`
	Command     string            `yaml:"command" json:"command" mapstructure:"command"`
	Args        []string          `yaml:"args" json:"args" mapstructure:"args"`
	Environment map[string]string `yaml:"env" json:"env" mapstructure:"env"`
	Description string            `yaml:"description" json:"description" mapstructure:"description"`
}
