package settings

import (
	"dbdump/internal/job"

	"gopkg.in/yaml.v3"
)

// valuesOf maps setting names to the current values of cfg
func valuesOf(cfg job.Config) map[string]interface{} {
	out := map[string]interface{}{}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return out
	}
	_ = yaml.Unmarshal(data, &out)
	return out
}

func isEmpty(cfg job.Config, setting string) bool {
	switch v := valuesOf(cfg)[setting].(type) {
	case nil:
		return true
	case string:
		return v == ""
	case int:
		return v == 0
	case bool:
		return !v
	case []interface{}:
		return len(v) == 0
	default:
		return false
	}
}
