package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPressDigit(t *testing.T) {
	t.Run("appends digits", func(t *testing.T) {
		code, ok := PressDigit("12", '3')
		assert.True(t, ok)
		assert.Equal(t, "123", code)
	})

	t.Run("rejects non digits", func(t *testing.T) {
		code, ok := PressDigit("12", 'x')
		assert.False(t, ok)
		assert.Equal(t, "12", code)
	})

	t.Run("rejects the eleventh digit", func(t *testing.T) {
		full := strings.Repeat("9", MaxCodeLength)
		code, ok := PressDigit(full, '1')
		assert.False(t, ok)
		assert.Equal(t, full, code)
	})
}

func TestDeleteDigit(t *testing.T) {
	assert.Equal(t, "12", DeleteDigit("123"))
	assert.Equal(t, "", DeleteDigit("1"))
	assert.Equal(t, "", DeleteDigit(""))
}

func TestView(t *testing.T) {
	t.Run("empty code shows placeholder", func(t *testing.T) {
		view := View("", "")
		assert.Contains(t, view.Text, msgEnterCode)
		assert.Contains(t, view.Text, "_ _ _ _ _")
	})

	t.Run("digits are spaced", func(t *testing.T) {
		view := View("4201", "")
		assert.Contains(t, view.Text, "4 2 0 1")
	})

	t.Run("hint is appended", func(t *testing.T) {
		view := View("", msgCodeRejected)
		assert.True(t, strings.HasSuffix(view.Text, msgCodeRejected))
	})

	t.Run("layout", func(t *testing.T) {
		view := View("", "")
		require.Len(t, view.Rows, 4)
		for _, row := range view.Rows {
			assert.Len(t, row, 3)
		}
		assert.Equal(t, "otp:1", view.Rows[0][0].Action)
		assert.Equal(t, ActionDelete, view.Rows[3][0].Action)
		assert.Equal(t, "otp:0", view.Rows[3][1].Action)
		assert.Equal(t, ActionSubmit, view.Rows[3][2].Action)
	})
}

func TestKeypad_Render(t *testing.T) {
	ctx := context.Background()
	surface := new(mockSurface)
	keypad := NewKeypad(surface)

	surface.On("RenderKeypad", ctx, int64(5), View("12", ""), 0).Return(77, nil).Once()
	surface.On("RenderKeypad", ctx, int64(5), View("123", ""), 77).Return(77, nil).Once()

	id, err := keypad.Render(ctx, 5, "12", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 77, id)

	id, err = keypad.Render(ctx, 5, "123", "", id)
	require.NoError(t, err)
	assert.Equal(t, 77, id)

	surface.AssertExpectations(t)
	surface.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}
