package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/catalogio"
)

const menuText = `
IMEI tool menu:
1. Import prefix file
2. Generate IMEI
3. Validate IMEI
4. Add prefix
5. Quit
`

// runMenu is a prompt loop over Stdin. Each choice maps to one service call;
// the loop keeps no state between choices. End of input quits.
func runMenu(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("menu", "")
	if err := parse(fs, args); err != nil {
		return err
	}
	if e.Stdin == nil {
		return errors.New("menu needs an input stream")
	}
	m := &menu{env: e, in: bufio.NewScanner(e.Stdin)}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(e.stdout(), menuText)
		choice, ok := m.ask("Choice: ")
		if !ok {
			fmt.Fprintln(e.stdout())
			return m.in.Err()
		}
		switch choice {
		case "1":
			m.importFile(ctx)
		case "2":
			m.generate(ctx)
		case "3":
			m.validate(ctx)
		case "4":
			m.add(ctx)
		case "5", "q", "quit":
			return nil
		default:
			fmt.Fprintln(e.stdout(), "Invalid choice, try again.")
		}
	}
}

type menu struct {
	env *Env
	in  *bufio.Scanner
}

// ask prints prompt and returns the next trimmed input line. ok is false at
// end of input.
func (m *menu) ask(prompt string) (string, bool) {
	fmt.Fprint(m.env.stdout(), prompt)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *menu) say(format string, a ...any) {
	fmt.Fprintf(m.env.stdout(), format+"\n", a...)
}

func (m *menu) importFile(ctx context.Context) {
	path, ok := m.ask("Prefix file path: ")
	if !ok || path == "" {
		return
	}
	paths, err := catalogio.Expand([]string{path})
	if err != nil {
		m.say("Cannot open %s: %v", path, err)
		return
	}
	if _, err := importFiles(ctx, m.env, paths, false); err != nil {
		m.say("Import failed: %v", err)
	}
}

func (m *menu) generate(ctx context.Context) {
	model, ok := m.ask("Device model (empty for any): ")
	if !ok {
		return
	}
	out, err := m.env.Service.Generate(ctx, model, 1)
	switch {
	case errors.Is(err, app.ErrNoPrefixAvailable):
		m.say("No prefix found for that model.")
	case err != nil:
		m.say("Generate failed: %v", err)
	default:
		m.say("Generated IMEI: %s", out[0].IMEI)
	}
}

func (m *menu) validate(ctx context.Context) {
	candidate, ok := m.ask("IMEI to validate: ")
	if !ok {
		return
	}
	validateOne(ctx, m.env, candidate)
}

func (m *menu) add(ctx context.Context) {
	prefix, ok := m.ask("Prefix (8 digits): ")
	if !ok {
		return
	}
	model, ok := m.ask("Model: ")
	if !ok {
		return
	}
	rec, err := m.env.Service.AddPrefix(ctx, prefix, model)
	switch {
	case errors.Is(err, app.ErrDuplicatePrefix):
		m.say("Prefix %s already exists.", prefix)
	case err != nil:
		m.say("Add failed: %v", err)
	default:
		m.say("Added %s %s", rec.Prefix, rec.Model)
	}
}
