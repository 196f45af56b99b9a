package scene

import (
	"encoding/json"
	"fmt"
)

// Command is one JSON-encoded store operation, as sent by a browser canvas.
type Command struct {
	Op       string          `json:"op"`
	ID       string          `json:"id,omitempty"`
	Kind     Kind            `json:"kind,omitempty"`
	Patch    Patch           `json:"patch,omitempty"`
	X        float64         `json:"x,omitempty"`
	Y        float64         `json:"y,omitempty"`
	Order    []string        `json:"order,omitempty"`
	Meta     *Meta           `json:"meta,omitempty"`
	Template json.RawMessage `json:"template,omitempty"`
}

// State is the store as seen after a command.
type State struct {
	Template Template `json:"template"`
	Selected []string `json:"selected"`
	CanUndo  bool     `json:"canUndo"`
	CanRedo  bool     `json:"canRedo"`
	// Changed is false for commands that turned out to be no-ops.
	Changed bool `json:"changed"`
}

// Dispatch runs cmd against s and returns the resulting state.
func Dispatch(s *Store, cmd Command) (State, error) {
	changed := true
	var err error

	switch cmd.Op {
	case "load":
		var t Template
		if err := json.Unmarshal(cmd.Template, &t); err != nil {
			return State{}, fmt.Errorf("failed to decode template: %w", err)
		}
		s.LoadTemplate(t)
	case "add":
		_, err = s.AddElement(cmd.Kind, cmd.Patch)
	case "update":
		err = s.UpdateElement(cmd.ID, cmd.Patch)
	case "move":
		err = s.MoveElement(cmd.ID, cmd.X, cmd.Y)
	case "endDrag":
		s.EndDrag()
	case "toggleLock":
		err = s.ToggleLock(cmd.ID)
	case "select":
		err = s.SelectElement(cmd.ID)
	case "delete":
		changed = s.DeleteSelected() > 0
	case "duplicate":
		changed = len(s.DuplicateSelected()) > 0
	case "up":
		changed, err = s.MoveElementUp(cmd.ID)
	case "down":
		changed, err = s.MoveElementDown(cmd.ID)
	case "reorder":
		err = s.ReorderElements(cmd.Order)
	case "meta":
		if cmd.Meta == nil {
			return State{}, fmt.Errorf("meta command without meta")
		}
		s.UpdateMeta(*cmd.Meta)
	case "undo":
		changed = s.Undo()
	case "redo":
		changed = s.Redo()
	case "state":
		changed = false
	default:
		return State{}, fmt.Errorf("unknown scene command %q", cmd.Op)
	}
	if err != nil {
		return State{}, err
	}

	selected := s.SelectedIDs()
	if selected == nil {
		selected = []string{}
	}
	return State{
		Template: s.Template(),
		Selected: selected,
		CanUndo:  s.CanUndo(),
		CanRedo:  s.CanRedo(),
		Changed:  changed,
	}, nil
}
