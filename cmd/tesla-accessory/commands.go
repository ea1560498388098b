package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/teslamotors/vehicle-accessory/pkg/accessory"
	"github.com/teslamotors/vehicle-accessory/pkg/protocol"
	"github.com/teslamotors/vehicle-accessory/pkg/session"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
)

type Argument struct {
	name string
	help string
}

// Target is what commands act on.
type Target struct {
	accessory *accessory.Accessory
	session   *session.Session
	out       io.Writer
	watching  atomic.Bool
}

func NewTarget(a *accessory.Accessory, s *session.Session, out io.Writer) *Target {
	t := &Target{accessory: a, session: s, out: out}
	a.Subscribe(func(u accessory.Update) {
		if t.watching.Load() {
			fmt.Fprintf(t.out, "%s -> %v\n", u.Feature, u.Value)
		}
	})
	return t
}

type Handler func(ctx context.Context, t *Target, args map[string]string) error

type Command struct {
	help     string
	args     []Argument
	optional []Argument
	handler  Handler
}

func execute(ctx context.Context, t *Target, args []string) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}
	info, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}

	var err error
	if len(args)-1 < len(info.args) || len(args)-1 > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command line arguments: %d (%d required, %d optional).", len(args)-1, len(info.args), len(info.optional))
		err = ErrCommandLineArgs
	} else {
		keywords := make(map[string]string)
		for i, argInfo := range info.args {
			keywords[argInfo.name] = args[i+1]
		}
		index := len(info.args) + 1
		for _, argInfo := range info.optional {
			if index >= len(args) {
				break
			}
			keywords[argInfo.name] = args[index]
			index++
		}
		err = info.handler(ctx, t, keywords)
	}

	// Print command-specific help
	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(t.out, args[0])
	}
	return err
}

func (c *Command) Usage(w io.Writer, name string) {
	fmt.Fprintf(w, "Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Fprintf(w, " %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(w, " [")
	}
	for _, arg := range c.optional {
		fmt.Fprintf(w, " %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(w, " ]")
	}
	fmt.Fprintf(w, "\n%s\n", c.help)
	maxLength++
	for _, arg := range c.args {
		fmt.Fprintf(w, "    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
	for _, arg := range c.optional {
		fmt.Fprintf(w, "    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

func commandNames() []string {
	var names []string
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var commands = map[string]*Command{
	"features": &Command{
		help: "List accessory features",
		handler: func(ctx context.Context, t *Target, args map[string]string) error {
			names := t.accessory.Features()
			maxLength := 0
			for _, name := range names {
				if len(name) > maxLength {
					maxLength = len(name)
				}
			}
			for _, name := range names {
				f, err := t.accessory.Feature(name)
				if err != nil {
					return err
				}
				mode := "ro"
				if f.Writable() {
					mode = "rw"
				}
				fmt.Fprintf(t.out, "  %s%s %s  %s\n", name, strings.Repeat(" ", maxLength-len(name)), mode, f.Description)
			}
			return nil
		},
	},
	"get": &Command{
		help: "Read a feature. Reports a safe default if the vehicle is asleep.",
		args: []Argument{
			Argument{name: "FEATURE", help: "feature name (see features)"},
		},
		handler: func(ctx context.Context, t *Target, args map[string]string) error {
			value, err := t.accessory.Get(ctx, args["FEATURE"])
			if err != nil {
				return err
			}
			fmt.Fprintf(t.out, "%s: %v\n", args["FEATURE"], value)
			return nil
		},
	},
	"set": &Command{
		help: "Write a feature",
		args: []Argument{
			Argument{name: "FEATURE", help: "feature name (see features)"},
			Argument{name: "VALUE", help: "on/off, locked/unlocked, off/heat/cool/auto, or a temperature in Celsius"},
		},
		handler: func(ctx context.Context, t *Target, args map[string]string) error {
			f, err := t.accessory.Feature(args["FEATURE"])
			if err != nil {
				return err
			}
			if !f.Writable() {
				return fmt.Errorf("%w: %s", protocol.ErrReadOnly, f.Name)
			}
			value, err := f.Parse(args["VALUE"])
			if err != nil {
				return err
			}
			return t.accessory.Set(ctx, f.Name, value)
		},
	},
	"state": &Command{
		help: "Print whether the vehicle is asleep or online",
		handler: func(ctx context.Context, t *Target, args map[string]string) error {
			state, err := t.session.State(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(t.out, state)
			return nil
		},
	},
	"wake": &Command{
		help: "Wake up the vehicle",
		handler: func(ctx context.Context, t *Target, args map[string]string) error {
			return t.accessory.Set(ctx, accessory.Connection, true)
		},
	},
	"snapshot": &Command{
		help: "Print the vehicle data document. The vehicle must be awake.",
		handler: func(ctx context.Context, t *Target, args map[string]string) error {
			data, err := t.session.SnapshotDeduped(ctx)
			if err != nil {
				return err
			}
			encoded, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(t.out, string(encoded))
			return nil
		},
	},
	"watch": &Command{
		help: "Print feature updates as they happen",
		optional: []Argument{
			Argument{name: "on|off", help: "defaults to on"},
		},
		handler: func(ctx context.Context, t *Target, args map[string]string) error {
			on := true
			if text, ok := args["on|off"]; ok {
				value, err := accessory.ParseBool(text)
				if err != nil {
					return fmt.Errorf("%w: %w", ErrCommandLineArgs, err)
				}
				on = value.(bool)
			}
			t.watching.Store(on)
			return nil
		},
	},
}
