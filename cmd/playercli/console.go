package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"
)

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(usages)+1)
	for _, u := range usages {
		if u.name == "rate" {
			choices := rateChoices()
			rates := make([]readline.PrefixCompleterInterface, 0, len(choices))
			for _, r := range choices {
				rates = append(rates, readline.PcItem(r))
			}
			items = append(items, readline.PcItem(u.name, rates...))
			continue
		}
		items = append(items, readline.PcItem(u.name))
	}
	items = append(items, readline.PcItem("quit"))
	return readline.NewPrefixCompleter(items...)
}

// console reads commands until quit, EOF or interrupt.
func (c *cli) console(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "nostrbeat> ",
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return errors.Wrap(err, "failed to start console")
	}
	defer rl.Close()
	c.out = rl.Stdout()

	fmt.Fprintln(c.out, "Type help for commands.")
	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to read line")
		}

		name, args := splitLine(line)
		switch name {
		case "":
			continue
		case "quit", "exit":
			return nil
		}
		if err := c.exec(ctx, name, args); err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
	return nil
}

// splitLine splits a console line into a command and its arguments.
// Double quotes group words.
func splitLine(line string) (string, []string) {
	var (
		fields  []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range strings.TrimSpace(line) {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case r == ' ' && !quoted:
			if started {
				fields = append(fields, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		fields = append(fields, current.String())
	}
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}
