package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigFileEnv names a TOML file whose values sit between the built-in
// defaults and the environment.
const ConfigFileEnv = "PATHANALYSIS_CONFIG"

type Runtime struct {
	HTTPAddr      string   `toml:"http_addr"`
	CacheMaxItems int      `toml:"cache_max_items"`
	ObsBuffer     int      `toml:"obs_buffer"`
	Analysis      Analysis `toml:"analysis"`
}

// Analysis holds request defaults applied when a caller leaves a field unset.
type Analysis struct {
	TopN           int     `toml:"top_n"`
	MaxThickness   float64 `toml:"max_thickness"`
	Threshold      float64 `toml:"threshold"`
	MinVisits      int     `toml:"min_visits"`
	DropAutofilled bool    `toml:"drop_autofilled"`
	MinSequenceLen int     `toml:"min_sequence_len"`
	Policy         string  `toml:"thickness_policy"`
	UniqueStudents bool    `toml:"unique_students"`
}

func Default() Runtime {
	return Runtime{
		HTTPAddr:      ":8080",
		CacheMaxItems: 256,
		ObsBuffer:     4096,
		Analysis: Analysis{
			TopN:         5,
			MaxThickness: 10,
			Policy:       "count",
		},
	}
}

// Load reads the environment over the defaults.
func Load() Runtime {
	return FromEnv(Default())
}

// Resolve layers defaults, the TOML file at path (or $PATHANALYSIS_CONFIG
// when path is empty) and the environment, in that order.
func Resolve(path string) (Runtime, error) {
	base := Default()
	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		var err error
		if base, err = LoadFile(path, base); err != nil {
			return Runtime{}, err
		}
	}
	return FromEnv(base), nil
}

// LoadFile decodes the TOML file at path over base. Keys absent from the
// file keep base's values.
func LoadFile(path string, base Runtime) (Runtime, error) {
	out := base
	md, err := toml.DecodeFile(path, &out)
	if err != nil {
		return Runtime{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Runtime{}, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return out, nil
}

// FromEnv overrides base with any valid environment values.
func FromEnv(base Runtime) Runtime {
	a := base.Analysis
	return Runtime{
		HTTPAddr:      getenv("HTTP_ADDR", base.HTTPAddr),
		CacheMaxItems: getenvInt("ANALYSIS_CACHE_MAX_ITEMS", base.CacheMaxItems, 1),
		ObsBuffer:     getenvInt("ANALYSIS_OBS_BUFFER", base.ObsBuffer, 1),
		Analysis: Analysis{
			TopN:           getenvInt("ANALYSIS_TOP_N", a.TopN, 0),
			MaxThickness:   getenvFloat("ANALYSIS_MAX_THICKNESS", a.MaxThickness, 0),
			Threshold:      getenvFloat("ANALYSIS_THRESHOLD", a.Threshold, 0),
			MinVisits:      getenvInt("ANALYSIS_MIN_VISITS", a.MinVisits, 0),
			DropAutofilled: getenvBool("ANALYSIS_DROP_AUTOFILLED", a.DropAutofilled),
			MinSequenceLen: getenvInt("ANALYSIS_MIN_SEQUENCE_LEN", a.MinSequenceLen, 0),
			Policy:         getenv("ANALYSIS_THICKNESS_POLICY", a.Policy),
			UniqueStudents: getenvBool("ANALYSIS_UNIQUE_STUDENTS", a.UniqueStudents),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback, min int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return fallback
	}
	return v
}

func getenvFloat(key string, fallback, min float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < min {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
