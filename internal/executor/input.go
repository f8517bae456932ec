package executor

import (
	"os"
	"unicode"

	"github.com/aegisline/corectl/internal/xerr"
)

// InputType enumerates the simulate-input surface's allow-listed
// categories. Grounded in execution_logic.rs's ALLOWED_INPUT_TYPES,
// extended with the broader keyboard/mouse/touch/gamepad/network
// categories SPEC_FULL's contract names.
type InputType string

const (
	InputMouseMove  InputType = "mouse_move"
	InputMouseClick InputType = "mouse_click"
	InputTypeText   InputType = "type_text"
	InputKeyPress   InputType = "key_press"
	InputKeyboard   InputType = "keyboard"
	InputMouse      InputType = "mouse"
	InputTouch      InputType = "touch"
	InputGamepad    InputType = "gamepad"
	InputNetwork    InputType = "network"
)

var allowedInputTypes = map[InputType]bool{
	InputMouseMove: true, InputMouseClick: true, InputTypeText: true, InputKeyPress: true,
	InputKeyboard: true, InputMouse: true, InputTouch: true, InputGamepad: true, InputNetwork: true,
}

const (
	defaultScreenWidth  = 1920
	defaultScreenHeight = 1080
	maxTypeTextLen       = 1000
)

var namedKeys = map[string]bool{
	"enter": true, "return": true, "space": true, "tab": true,
	"escape": true, "esc": true, "backspace": true, "delete": true,
}

// InputParams carries the union of fields any simulate-input call might
// populate; callers set only the fields relevant to InputType.
type InputParams struct {
	X, Y   int
	Button string
	Text   string
	Key    string
}

// SimulateInput validates typ and params against the allow-list and
// per-type constraints, then reports whether the call is a no-op because
// the process is running containerized (detected via /.dockerenv, as in
// the source's check_input_permissions). It does not perform the actual
// OS-level input injection; that is a platform concern left to the
// caller once validation succeeds.
func SimulateInput(typ InputType, params InputParams) (noop bool, err error) {
	if !allowedInputTypes[typ] {
		return false, xerr.Newf(xerr.InvalidArgument, "input type %q is not allowed", typ)
	}

	if err := validateInputParams(typ, params); err != nil {
		return false, err
	}

	if isContainerized() {
		return true, nil
	}
	return false, nil
}

func validateInputParams(typ InputType, p InputParams) error {
	switch typ {
	case InputMouseMove:
		if p.X < 0 || p.X >= defaultScreenWidth || p.Y < 0 || p.Y >= defaultScreenHeight {
			return xerr.New(xerr.InvalidArgument, "mouse_move coordinates are outside screen bounds")
		}
	case InputMouseClick:
		button := p.Button
		if button == "" {
			button = "left"
		}
		if button != "left" && button != "right" && button != "middle" {
			return xerr.Newf(xerr.InvalidArgument, "mouse_click button %q is not allowed", button)
		}
	case InputTypeText:
		if len([]rune(p.Text)) > maxTypeTextLen {
			return xerr.Newf(xerr.InvalidArgument, "type_text exceeds maximum length of %d characters", maxTypeTextLen)
		}
	case InputKeyPress:
		key := p.Key
		if namedKeys[key] {
			return nil
		}
		r := []rune(key)
		if len(r) == 1 && r[0] <= unicode.MaxASCII && unicode.IsPrint(r[0]) {
			return nil
		}
		return xerr.Newf(xerr.InvalidArgument, "key_press key %q is not a named key or printable ASCII character", key)
	}
	return nil
}

// isContainerized mirrors the source's check_input_permissions: the
// presence of /.dockerenv signals a containerized environment where
// input simulation has no real display to act on.
func isContainerized() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}
