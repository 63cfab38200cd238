package api

import (
	"sort"
	"strings"
	"sync"
)

// CfgType is the type of a configuration variable.
type CfgType int

const (
	CfgTypeBool CfgType = iota
	CfgTypeUlong
	CfgTypeText
)

// CfgFlag restricts when a variable may change.
type CfgFlag uint8

const (
	CfgFlagNone CfgFlag = 1 << iota
	CfgFlagReadOnlyAfterStartup
	CfgFlagReadOnly
)

// ConfigVar represents a configuration variable.
type ConfigVar struct {
	Name     string
	Type     CfgType
	Flag     CfgFlag
	MinValue uint64
	MaxValue uint64
	Value    any
}

// Configuration variable names.
const (
	CfgMaxReserveBytes = "btree_max_reserve_bytes"
	CfgReservePercent  = "btree_reserve_percent"
	CfgLogLevel        = "log_level"
	CfgMetricsEnabled  = "metrics_enabled"
	CfgVersion         = "version"
)

// Config is the engine's variable registry.
type Config struct {
	mu      sync.RWMutex
	vars    map[string]*ConfigVar
	started bool
}

// NewConfig returns a registry holding the default variables.
func NewConfig() *Config {
	cfg := &Config{vars: map[string]*ConfigVar{}}
	cfg.registerDefaults()
	return cfg
}

// GetType returns the type for a configuration variable.
func (c *Config) GetType(name string) (CfgType, ErrCode) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfgVar := c.vars[keyName(name)]
	if cfgVar == nil {
		return 0, DB_NOT_FOUND
	}
	return cfgVar.Type, DB_SUCCESS
}

// Set updates a configuration variable.
func (c *Config) Set(name string, value any) ErrCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfgVar := c.vars[keyName(name)]
	if cfgVar == nil {
		return DB_NOT_FOUND
	}
	if cfgVar.Flag&CfgFlagReadOnly != 0 {
		return DB_READONLY
	}
	if c.started && cfgVar.Flag&CfgFlagReadOnlyAfterStartup != 0 {
		return DB_READONLY
	}
	assigned, err := assignConfigValue(cfgVar, value)
	if err != DB_SUCCESS {
		return err
	}
	cfgVar.Value = assigned
	return DB_SUCCESS
}

// Get retrieves a configuration variable into the provided pointer.
func (c *Config) Get(name string, out any) ErrCode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfgVar := c.vars[keyName(name)]
	if cfgVar == nil {
		return DB_NOT_FOUND
	}
	return assignConfigOut(cfgVar, out)
}

// GetAll returns all config variable names.
func (c *Config) GetAll() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.vars))
	for _, cfgVar := range c.vars {
		names = append(names, cfgVar.Name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) setStarted(started bool) {
	c.mu.Lock()
	c.started = started
	c.mu.Unlock()
}

func (c *Config) registerDefaults() {
	c.registerVar(&ConfigVar{
		Name:     CfgMaxReserveBytes,
		Type:     CfgTypeUlong,
		Flag:     CfgFlagReadOnlyAfterStartup,
		MinValue: 1 << 12,
		MaxValue: 1 << 40,
		Value:    uint64(10 << 20),
	})
	c.registerVar(&ConfigVar{
		Name:     CfgReservePercent,
		Type:     CfgTypeUlong,
		Flag:     CfgFlagReadOnlyAfterStartup,
		MinValue: 1,
		MaxValue: 50,
		Value:    uint64(5),
	})
	c.registerVar(&ConfigVar{
		Name:  CfgLogLevel,
		Type:  CfgTypeText,
		Flag:  CfgFlagReadOnlyAfterStartup,
		Value: "INFO",
	})
	c.registerVar(&ConfigVar{
		Name:  CfgMetricsEnabled,
		Type:  CfgTypeBool,
		Flag:  CfgFlagReadOnlyAfterStartup,
		Value: true,
	})
	c.registerVar(&ConfigVar{
		Name:  CfgVersion,
		Type:  CfgTypeText,
		Flag:  CfgFlagReadOnly,
		Value: "hfs-go",
	})
}

func (c *Config) registerVar(cfgVar *ConfigVar) {
	c.vars[keyName(cfgVar.Name)] = cfgVar
}

func keyName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func assignConfigValue(cfgVar *ConfigVar, value any) (any, ErrCode) {
	switch cfgVar.Type {
	case CfgTypeBool:
		b, ok := toBool(value)
		if !ok {
			return nil, DB_INVALID_INPUT
		}
		return b, DB_SUCCESS
	case CfgTypeUlong:
		u, ok := toUint64(value)
		if !ok {
			return nil, DB_INVALID_INPUT
		}
		if !inRange(u, cfgVar.MinValue, cfgVar.MaxValue) {
			return nil, DB_INVALID_INPUT
		}
		return u, DB_SUCCESS
	case CfgTypeText:
		s, ok := toString(value)
		if !ok {
			return nil, DB_INVALID_INPUT
		}
		return s, DB_SUCCESS
	default:
		return nil, DB_ERROR
	}
}

func assignConfigOut(cfgVar *ConfigVar, out any) ErrCode {
	switch cfgVar.Type {
	case CfgTypeBool:
		ptr, ok := out.(*bool)
		if !ok {
			return DB_INVALID_INPUT
		}
		*ptr = cfgVar.Value.(bool)
	case CfgTypeUlong:
		switch ptr := out.(type) {
		case *uint64:
			*ptr = cfgVar.Value.(uint64)
		case *uint32:
			*ptr = uint32(cfgVar.Value.(uint64))
		default:
			return DB_INVALID_INPUT
		}
	case CfgTypeText:
		ptr, ok := out.(*string)
		if !ok {
			return DB_INVALID_INPUT
		}
		*ptr = cfgVar.Value.(string)
	default:
		return DB_ERROR
	}
	return DB_SUCCESS
}

func inRange(value, min, max uint64) bool {
	if min == 0 && max == 0 {
		return true
	}
	return min <= value && value <= max
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case uint:
		return v != 0, true
	default:
		return false, false
	}
}

func toUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint32:
		return uint64(v), true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

func toString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
