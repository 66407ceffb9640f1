package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForList(t *testing.T) {
	assert.Equal(t, Available, ForList(nil))
	assert.Equal(t, Available, ForList([]string{}))
	assert.Equal(t, []string{"Working", "For Repair"}, ForList([]string{"Working", "For Repair"}))
}

func TestForDetail(t *testing.T) {
	assert.Nil(t, ForDetail(nil))
	zero := uint(0)
	assert.Nil(t, ForDetail(&zero))

	two := uint(2)
	got := ForDetail(&two)
	if assert.NotNil(t, got) {
		assert.Equal(t, uint(2), *got)
	}
	assert.NotSame(t, &two, got)
}
