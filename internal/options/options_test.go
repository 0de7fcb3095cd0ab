package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testConfig struct {
	name  string
	count int
}

func withName(n string) Option {
	return func(cfg interface{}) { cfg.(*testConfig).name = n }
}

func withCount(c int) Option {
	return func(cfg interface{}) { cfg.(*testConfig).count = c }
}

func TestApplyRunsEveryOptionInOrder(t *testing.T) {
	cfg := &testConfig{}
	Apply(cfg, withName("a"), withCount(3), withName("b"))

	assert.Equal(t, "b", cfg.name)
	assert.Equal(t, 3, cfg.count)
}

func TestApplyNoOptionsLeavesZeroValue(t *testing.T) {
	cfg := &testConfig{}
	Apply(cfg)

	assert.Equal(t, testConfig{}, *cfg)
}
