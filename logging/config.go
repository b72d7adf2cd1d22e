package logging

import "time"

type Config struct {
	EnabledSinks    []string
	BufferSize      int
	MinimumSeverity Severity
	// CategorySeverity raises or lowers the floor for one category. Network
	// events are chatty at debug level and default to warn.
	CategorySeverity map[string]Severity
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	DropWarnInterval time.Duration
}

type JSONConfig struct {
	FilePath      string
	MaxBatch      int
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:    []string{"console"},
		BufferSize:      1024,
		MinimumSeverity: SeverityInfo,
		CategorySeverity: map[string]Severity{
			CategoryNetwork: SeverityWarn,
		},
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			MaxBatch:      32,
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// MinimumFor returns the severity floor for a category.
func (c Config) MinimumFor(category string) Severity {
	if level, ok := c.CategorySeverity[category]; ok {
		return level
	}
	return c.MinimumSeverity
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}

func (c Config) cloneCategories() map[string]Severity {
	if len(c.CategorySeverity) == 0 {
		return nil
	}
	cloned := make(map[string]Severity, len(c.CategorySeverity))
	for k, v := range c.CategorySeverity {
		cloned[k] = v
	}
	return cloned
}
