package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/shared"
)

// Action is the kind of an inline button press.
type Action int

const (
	ActionNoop Action = iota
	ActionSelect
	ActionCancel
)

// NoopData marks header rows that do nothing when pressed.
const NoopData = "NOOP"

// Callback is decoded inline button data.
type Callback struct {
	Action  Action
	Catalog models.Catalog
	Token   string
	Index   int
}

// SelectData encodes a result button: SEL:<catalog>:<token>:<index>.
func SelectData(c models.Catalog, token string, index int) string {
	return fmt.Sprintf("SEL:%s:%s:%d", c.Code(), token, index)
}

// CancelData encodes the cancel button: CANCEL:<token>.
func CancelData(token string) string {
	return "CANCEL:" + token
}

// ParseCallback decodes button data produced by [SelectData], [CancelData], or [NoopData].
func ParseCallback(data string) (Callback, error) {
	if data == NoopData {
		return Callback{Action: ActionNoop}, nil
	}

	parts := strings.Split(data, ":")
	switch {
	case parts[0] == "CANCEL" && len(parts) == 2 && parts[1] != "":
		return Callback{Action: ActionCancel, Token: parts[1]}, nil
	case parts[0] == "SEL" && len(parts) == 4:
		c, err := models.ParseCatalog(parts[1])
		if err != nil {
			return Callback{}, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		index, err := strconv.Atoi(parts[3])
		if err != nil || index < 0 {
			return Callback{}, fmt.Errorf("%w: bad index %q", shared.ErrInvalidInput, parts[3])
		}
		if parts[2] == "" {
			return Callback{}, fmt.Errorf("%w: empty token", shared.ErrInvalidInput)
		}
		return Callback{Action: ActionSelect, Catalog: c, Token: parts[2], Index: index}, nil
	default:
		return Callback{}, fmt.Errorf("%w: unrecognized callback %q", shared.ErrInvalidInput, data)
	}
}
