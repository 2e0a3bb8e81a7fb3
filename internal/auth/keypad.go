package auth

import (
	"context"
	"strings"
)

// MaxCodeLength caps the digits a user can enter on the keypad.
const MaxCodeLength = 10

// Callback actions carried by keypad buttons.
const (
	ActionStart       = "auth:start"
	ActionDigitPrefix = "otp:"
	ActionDelete      = "otp:del"
	ActionSubmit      = "otp:ok"
)

type Key struct {
	Label  string
	Action string
}

// KeypadView is the front-end independent description of the code entry
// message: a prompt plus rows of buttons.
type KeypadView struct {
	Text string
	Rows [][]Key
}

var keypadRows = [][]Key{
	{digitKey('1'), digitKey('2'), digitKey('3')},
	{digitKey('4'), digitKey('5'), digitKey('6')},
	{digitKey('7'), digitKey('8'), digitKey('9')},
	{{Label: "⌫", Action: ActionDelete}, digitKey('0'), {Label: "✅", Action: ActionSubmit}},
}

func digitKey(d byte) Key {
	return Key{Label: string(d), Action: ActionDigitPrefix + string(d)}
}

// PressDigit appends digit to code. It returns false without changing code
// when digit is not 0-9 or code is already MaxCodeLength long.
func PressDigit(code string, digit byte) (string, bool) {
	if digit < '0' || digit > '9' || len(code) >= MaxCodeLength {
		return code, false
	}
	return code + string(digit), true
}

// DeleteDigit drops the last digit of code, if any.
func DeleteDigit(code string) string {
	if code == "" {
		return code
	}
	return code[:len(code)-1]
}

// View builds the keypad for the digits entered so far. hint is shown under
// the prompt when non-empty.
func View(code, hint string) KeypadView {
	var b strings.Builder
	b.WriteString(msgEnterCode)
	b.WriteString("\n\n")
	if code == "" {
		b.WriteString("_ _ _ _ _")
	} else {
		for i := 0; i < len(code); i++ {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte(code[i])
		}
	}
	if hint != "" {
		b.WriteString("\n\n")
		b.WriteString(hint)
	}
	return KeypadView{Text: b.String(), Rows: keypadRows}
}

// Keypad renders the code entry surface, editing the previous message in
// place when its id is known.
type Keypad struct {
	surface Surface
}

func NewKeypad(surface Surface) *Keypad {
	return &Keypad{surface: surface}
}

// Render shows code to userID and returns the id of the rendered message.
// existingID of 0 sends a fresh message.
func (k *Keypad) Render(ctx context.Context, userID int64, code, hint string, existingID int) (int, error) {
	return k.surface.RenderKeypad(ctx, userID, View(code, hint), existingID)
}
