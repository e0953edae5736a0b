package shm_runtime

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"shm_runtime/msg"
)

// Config 可序列化的运行时配置，零值字段取包默认值。
type Config struct {
	Signal          int         `json:"signal" yaml:"signal"`
	MaxSpawnRetries int         `json:"maxSpawnRetries" yaml:"maxSpawnRetries"`
	SpawnLogEvery   int         `json:"spawnLogEvery" yaml:"spawnLogEvery"`
	Verbosity       int         `json:"verbosity" yaml:"verbosity"`
	SmapsPath       string      `json:"smapsPath" yaml:"smapsPath"`
	Arena           ArenaConfig `json:"arena" yaml:"arena"`
}

// ArenaConfig 后端 arena 的位置与大小，Path 为空用匿名映射。
type ArenaConfig struct {
	Path string `json:"path" yaml:"path"`
	Size int64  `json:"size" yaml:"size"`
}

// DefaultConfig 默认配置。
func DefaultConfig() *Config {
	return &Config{
		Signal:          int(msg.SigDump),
		MaxSpawnRetries: msg.MaxSpawnRetries,
		SpawnLogEvery:   msg.SpawnLogEvery,
		SmapsPath:       msg.SmapsRollup,
		Arena: ArenaConfig{
			Size: 64 << 20,
		},
	}
}

// withDefaults 返回副本，零值字段用 DefaultConfig 填充。nil 得到默认配置。
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Signal == 0 {
		out.Signal = d.Signal
	}
	if out.MaxSpawnRetries == 0 {
		out.MaxSpawnRetries = d.MaxSpawnRetries
	}
	if out.SpawnLogEvery == 0 {
		out.SpawnLogEvery = d.SpawnLogEvery
	}
	if out.SmapsPath == "" {
		out.SmapsPath = d.SmapsPath
	}
	if out.Arena.Size == 0 {
		out.Arena.Size = d.Arena.Size
	}
	return &out
}

// Validate 检查取值范围。
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Signal <= 0 || c.Signal > 64 {
		return fmt.Errorf("signal must be in (0, 64]: %d: %w", c.Signal, ErrBadArgument)
	}
	if c.MaxSpawnRetries <= 0 {
		return fmt.Errorf("maxSpawnRetries must be > 0: %w", ErrBadArgument)
	}
	if c.SpawnLogEvery <= 0 {
		return fmt.Errorf("spawnLogEvery must be > 0: %w", ErrBadArgument)
	}
	if c.Verbosity < 0 {
		return fmt.Errorf("verbosity must be >= 0: %w", ErrBadArgument)
	}
	if c.Arena.Size <= 0 {
		return fmt.Errorf("arena.size must be > 0: %w", ErrBadArgument)
	}
	return nil
}

// LoadConfig 读取 YAML 文件，未出现的字段保留默认值。
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
