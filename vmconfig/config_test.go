package vmconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"corevm/vmconfig"
)

func TestConfigDefaults(t *testing.T) {
	c := vmconfig.New()
	assert.Equal(t, 100, c.GetInt("heap.initial_collect_limit"))
	assert.True(t, c.GetBool("verify.strict"))
	assert.Equal(t, "def_macro", c.GetString("macro.def_macro_name"))
}

func TestConfigSetOverridesDefault(t *testing.T) {
	c := vmconfig.New()
	c.SetInt("heap.initial_collect_limit", 4096)
	assert.Equal(t, 4096, c.GetInt("heap.initial_collect_limit"))
}

func TestConfigTypeMismatchPanics(t *testing.T) {
	c := vmconfig.New()
	assert.Panics(t, func() { c.GetBool("heap.initial_collect_limit") })
}

func TestConfigReassignDifferentTypePanics(t *testing.T) {
	c := vmconfig.New()
	assert.Panics(t, func() { c.SetBool("heap.initial_collect_limit", true) })
}

func TestConfigMissingKeyPanics(t *testing.T) {
	c := vmconfig.New()
	assert.Panics(t, func() { c.GetInt("nonexistent.path") })
}
