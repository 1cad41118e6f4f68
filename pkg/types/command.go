package types

import "time"

// Command is one actuation request.
type Command struct {
	Kind ActionKind `json:"action"`
	// Force bypasses the controller's automatic watering schedule.
	Force bool `json:"force,omitempty"`
	// State is the explicit target light state. Ignored for water.
	State *bool `json:"state,omitempty"`
}

// WaterCommand returns the manual-override watering command.
func WaterCommand() Command {
	return Command{Kind: ActionWater, Force: true}
}

// LightCommand returns a command that switches the grow light to on.
func LightCommand(on bool) Command {
	return Command{Kind: ActionLight, State: &on}
}

// Ack is the actuator's confirmation of an executed command.
type Ack struct {
	RequestID string     `json:"request_id"`
	Kind      ActionKind `json:"action"`
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	State     *bool      `json:"state,omitempty"`
	At        time.Time  `json:"at"`
}
