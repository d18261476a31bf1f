package mbti

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentFormatter(t *testing.T) {
	f, err := NewPercentFormatter("en")
	require.NoError(t, err)
	assert.Equal(t, "12.35%", f.Format(12.345678))
	assert.Equal(t, "7.00%", f.Format(7))
	assert.Equal(t, "0.50", f.Value(0.5))

	def, err := NewPercentFormatter("")
	require.NoError(t, err)
	assert.Equal(t, "3.14%", def.Format(3.14159))

	_, err = NewPercentFormatter("!!")
	assert.Error(t, err)
}
