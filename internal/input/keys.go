package input

// KeyState is the set of keys currently held by one player. Press and
// Release are idempotent so repeated key-down events are harmless.
type KeyState struct {
	held map[string]struct{}
}

func NewKeyState() *KeyState {
	return &KeyState{held: make(map[string]struct{})}
}

func (k *KeyState) Press(code string) {
	k.held[code] = struct{}{}
}

func (k *KeyState) Release(code string) {
	delete(k.held, code)
}

// Set applies a key event.
func (k *KeyState) Set(code string, down bool) {
	if down {
		k.Press(code)
	} else {
		k.Release(code)
	}
}

func (k *KeyState) Held(code string) bool {
	_, ok := k.held[code]
	return ok
}

// Clear releases everything, e.g. when the controlling client disconnects.
func (k *KeyState) Clear() {
	clear(k.held)
}

func (k *KeyState) Len() int { return len(k.held) }

func (k *KeyState) Each(fn func(code string)) {
	if k == nil {
		return
	}
	for code := range k.held {
		fn(code)
	}
}
