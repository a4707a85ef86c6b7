package parser

import (
	"fmt"
	"strings"

	"github.com/gravitysim/gravity/internal/geo"
)

// Defaults taken from the keyboard controls: one key press is a 0.0025
// impulse or a 10 degree turn.
const (
	DefaultBody   = "ship"
	DefaultThrust = 0.0025
	DefaultTurn   = 10.0
)

// SpeedMode selects how a speed command changes the clock.
type SpeedMode string

// Speed modes.
const (
	SpeedSet     SpeedMode = "set"
	SpeedUp      SpeedMode = "up"
	SpeedDown    SpeedMode = "down"
	SpeedDefault SpeedMode = "default"
)

// ThrustCommand applies DeltaV along the body's facing rotated by ExtraDeg.
type ThrustCommand struct {
	Body     string
	DeltaV   float64
	ExtraDeg float64
}

// TurnCommand rotates the body's facing.
type TurnCommand struct {
	Body    string
	Degrees float64
}

// StateCommand places a body at a position with a velocity. It is used for
// both reset and add.
type StateCommand struct {
	Body   string
	X, Y   float64
	VX, VY float64
}

// BodyCommand names a body.
type BodyCommand struct {
	Body string
}

// SpeedCommand changes the clock speed.
type SpeedCommand struct {
	Mode  SpeedMode
	Value float64
}

// SessionCommand starts a recording session.
type SessionCommand struct {
	Name string
	Tag  string
}

// ParseThrust parses [body] [deltaV] [extraDeg].
func (p *Parser) ParseThrust(args []string) (ThrustCommand, error) {
	body, rest := p.bodyAndRest(args)
	cmd := ThrustCommand{Body: body, DeltaV: DefaultThrust}
	var err error
	if len(rest) > 0 {
		if cmd.DeltaV, err = parseFloat("deltaV", rest[0]); err != nil {
			return ThrustCommand{}, err
		}
	}
	if len(rest) > 1 {
		if cmd.ExtraDeg, err = parseFloat("extraDeg", rest[1]); err != nil {
			return ThrustCommand{}, err
		}
	}
	return cmd, nil
}

// ParseTurn parses [body] [degrees]. Positive degrees turn right.
func (p *Parser) ParseTurn(args []string) (TurnCommand, error) {
	body, rest := p.bodyAndRest(args)
	cmd := TurnCommand{Body: body, Degrees: DefaultTurn}
	if len(rest) > 0 {
		v, err := parseFloat("degrees", rest[0])
		if err != nil {
			return TurnCommand{}, err
		}
		cmd.Degrees = v
	}
	return cmd, nil
}

// ParseState parses [body] x y vx vy, or [body] "x,y" "vx,vy".
func (p *Parser) ParseState(args []string) (StateCommand, error) {
	body, rest := p.bodyAndRest(args)
	cmd := StateCommand{Body: body}

	switch {
	case len(rest) >= 4:
		vals := make([]float64, 4)
		for i, name := range []string{"x", "y", "vx", "vy"} {
			v, err := parseFloat(name, rest[i])
			if err != nil {
				return StateCommand{}, err
			}
			vals[i] = v
		}
		cmd.X, cmd.Y, cmd.VX, cmd.VY = vals[0], vals[1], vals[2], vals[3]
	case len(rest) == 2:
		var err error
		if cmd.X, cmd.Y, err = geo.XYFromString(rest[0]); err != nil {
			return StateCommand{}, fmt.Errorf("position %q: %w", rest[0], err)
		}
		if cmd.VX, cmd.VY, err = geo.XYFromString(rest[1]); err != nil {
			return StateCommand{}, fmt.Errorf("velocity %q: %w", rest[1], err)
		}
	default:
		return StateCommand{}, fmt.Errorf("%w: need x y vx vy, got %d values", ErrMissingArgs, len(rest))
	}
	return cmd, nil
}

// ParseBody parses [body].
func (p *Parser) ParseBody(args []string) BodyCommand {
	body, _ := p.bodyAndRest(args)
	return BodyCommand{Body: body}
}

// ParseSpeed parses up, down, default, "+", "-", "=" or a number.
func (p *Parser) ParseSpeed(args []string) (SpeedCommand, error) {
	if len(args) == 0 {
		return SpeedCommand{}, fmt.Errorf("%w: speed", ErrMissingArgs)
	}
	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "up", "+", "faster":
		return SpeedCommand{Mode: SpeedUp}, nil
	case "down", "-", "slower":
		return SpeedCommand{Mode: SpeedDown}, nil
	case "default", "=", "reset":
		return SpeedCommand{Mode: SpeedDefault}, nil
	}
	v, err := parseFloat("speed", args[0])
	if err != nil {
		return SpeedCommand{}, err
	}
	if v < 0 {
		return SpeedCommand{}, fmt.Errorf("%w: negative speed %g", ErrInvalidNumber, v)
	}
	return SpeedCommand{Mode: SpeedSet, Value: v}, nil
}

// ParseSession parses name [tag]. Remaining words are joined into the tag.
func (p *Parser) ParseSession(args []string) (SessionCommand, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return SessionCommand{}, fmt.Errorf("%w: session name", ErrMissingArgs)
	}
	cmd := SessionCommand{Name: args[0]}
	if len(args) > 1 {
		cmd.Tag = strings.Join(args[1:], " ")
	}
	p.logger.Debug("Parsed session command", "name", cmd.Name, "tag", cmd.Tag)
	return cmd, nil
}
