package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"

	"github.com/CSmithy89/hyyve/internal/agents"
)

// Session binds a conversation to an output and the persona catalog.
type Session struct {
	conv     *Conversation
	catalog  agents.Catalog
	out      io.Writer
	stream   bool
	useColor bool

	// routeFallback is set when each prompt is routed to a persona first.
	routeFallback string

	// selectPersona picks a persona interactively; replaced in tests.
	selectPersona func(agents.Catalog) (agents.Persona, error)
}

// NewSession creates a session. With stream set, responses are printed
// fragment by fragment as they arrive.
func NewSession(conv *Conversation, catalog agents.Catalog, out io.Writer, stream, useColor bool) *Session {
	return &Session{
		conv:          conv,
		catalog:       catalog,
		out:           out,
		stream:        stream,
		useColor:      useColor,
		selectPersona: promptPersona,
	}
}

// EnableRouting makes every prompt pick its persona first, falling back to
// the given persona ID when the model names none.
func (s *Session) EnableRouting(fallback string) {
	s.routeFallback = fallback
}

// Ask sends one user turn and prints the response with its cost.
func (s *Session) Ask(ctx context.Context, text string) error {
	if s.routeFallback != "" {
		if _, err := s.conv.Route(ctx, s.catalog, text, s.routeFallback); err != nil {
			return err
		}
	}
	WriteResponseHeader(s.out, s.conv.ModelID(), s.conv.Persona(), s.useColor)

	if s.stream {
		result, err := s.conv.SendStream(ctx, text, s.out)
		fmt.Fprintln(s.out)
		if err != nil {
			return err
		}
		WriteCostLine(s.out, result, s.useColor)
		return nil
	}

	result, err := s.conv.Send(ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, result.Content)
	WriteCostLine(s.out, result, s.useColor)
	return nil
}

// SlashCommand represents a command that starts with /
type SlashCommand struct {
	Name        string
	Description string
	Handler     func(s *Session, args []string) bool // Returns true if should exit
}

// getSlashCommands returns all available slash commands
func getSlashCommands() []SlashCommand {
	return []SlashCommand{
		{
			Name:        "help",
			Description: "Show available commands",
			Handler: func(s *Session, _ []string) bool {
				showInteractiveHelp(s.out)
				return false
			},
		},
		{
			Name:        "agent",
			Description: "Switch persona (/agent <id>, or pick from a list)",
			Handler: func(s *Session, args []string) bool {
				s.routeFallback = ""
				switchPersona(s, args)
				return false
			},
		},
		{
			Name:        "agents",
			Description: "List available personas",
			Handler: func(s *Session, _ []string) bool {
				for _, id := range s.catalog.IDs() {
					p := s.catalog[id]
					fmt.Fprintf(s.out, "  %-8s %s", id, p.Description)
					if len(p.Capabilities) > 0 {
						fmt.Fprintf(s.out, " (%s)", strings.Join(p.Capabilities, ", "))
					}
					fmt.Fprintln(s.out)
				}
				return false
			},
		},
		{
			Name:        "cost",
			Description: "Show token usage and spend for this session",
			Handler: func(s *Session, _ []string) bool {
				t := s.conv.Totals()
				fmt.Fprintf(s.out, "%d calls · %d input / %d output tokens · $%.6f\n",
					t.Calls, t.Usage.InputTokens, t.Usage.OutputTokens, t.Cost.TotalCost)
				return false
			},
		},
		{
			Name:        "history",
			Description: "Show the conversation so far",
			Handler: func(s *Session, _ []string) bool {
				history := s.conv.History()
				if len(history) == 0 {
					fmt.Fprintln(s.out, "No conversation history.")
					return false
				}
				for _, m := range history {
					fmt.Fprintf(s.out, "%s: %s\n", m.Role, m.Content)
				}
				return false
			},
		},
		{
			Name:        "clear",
			Description: "Clear conversation history and start fresh",
			Handler: func(s *Session, _ []string) bool {
				s.conv.Clear()
				fmt.Fprintln(s.out, "Conversation history cleared.")
				return false
			},
		},
		{
			Name:        "quit",
			Description: "Exit the interactive session",
			Handler: func(s *Session, _ []string) bool {
				fmt.Fprintln(s.out, "Goodbye!")
				return true
			},
		},
		{
			Name:        "exit",
			Description: "Exit the interactive session (alias for quit)",
			Handler: func(s *Session, _ []string) bool {
				fmt.Fprintln(s.out, "Goodbye!")
				return true
			},
		},
	}
}

// handleSlashCommand processes commands that start with /
// Returns true if the command requests program exit, false otherwise
func handleSlashCommand(input string, s *Session) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}

	commandName := strings.TrimPrefix(parts[0], "/")
	commands := getSlashCommands()

	for _, cmd := range commands {
		if cmd.Name == commandName {
			return cmd.Handler(s, parts[1:])
		}
	}

	fmt.Fprintf(s.out, "Unknown command: /%s\n", commandName)
	fmt.Fprintln(s.out, "Available commands:")
	for _, cmd := range commands {
		fmt.Fprintf(s.out, "  /%s - %s\n", cmd.Name, cmd.Description)
	}
	return false
}

func switchPersona(s *Session, args []string) {
	var (
		p   agents.Persona
		err error
	)
	if len(args) > 0 {
		p, err = s.catalog.Get(args[0])
	} else {
		p, err = s.selectPersona(s.catalog)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Cannot switch persona: %v\n", err)
		return
	}
	s.conv.SetPersona(p)
	fmt.Fprintf(s.out, "Now talking to %s.\n", p.Name)
}

// promptPersona shows an interactive persona selector using promptui
func promptPersona(catalog agents.Catalog) (agents.Persona, error) {
	ids := catalog.IDs()
	items := make([]agents.Persona, 0, len(ids))
	for _, id := range ids {
		items = append(items, catalog[id])
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .Name | cyan }} - {{ .Description | faint }}",
		Inactive: "  {{ .Name | cyan }} - {{ .Description | faint }}",
		Selected: "{{ .Name | cyan }}",
		Details: `
--------- Persona ----------
{{ "Personality:" | faint }}	{{ .Personality }}`,
	}

	searcher := func(input string, index int) bool {
		name := strings.ToLower(items[index].Name)
		return strings.Contains(name, strings.ToLower(strings.TrimSpace(input)))
	}

	prompt := promptui.Select{
		Label:     "Choose an agent",
		Items:     items,
		Templates: templates,
		Size:      len(items),
		Searcher:  searcher,
	}

	i, _, err := prompt.Run()
	if err != nil {
		return agents.Persona{}, errors.Wrap(err, "persona selection")
	}
	return items[i], nil
}

// StartInteractiveMode runs the readline-based REPL
func StartInteractiveMode(ctx context.Context, s *Session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:              "> ",
		AutoComplete:        createAutoCompleter(s),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		HistoryLimit:        2000,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize interactive mode")
	}
	defer rl.Close()

	fmt.Fprintf(s.out, "Model: %s\n", s.conv.ModelID())
	if persona := s.conv.Persona(); persona != "" {
		fmt.Fprintf(s.out, "Agent: %s\n", persona)
	}
	fmt.Fprintln(s.out, "Commands start with '/', everything else goes to the model. Type /help for more.")
	fmt.Fprintln(s.out, strings.Repeat("=", 60))

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if handleSlashCommand(input, s) {
				return nil
			}
			continue
		}

		// Ctrl+C during a call cancels the call, not the session.
		execCtx, cancel := context.WithCancel(ctx)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT)
		go func() {
			select {
			case <-sigChan:
				fmt.Fprintln(s.out)
				cancel()
			case <-execCtx.Done():
			}
		}()

		askErr := s.Ask(execCtx, input)
		wasCanceled := errors.Is(execCtx.Err(), context.Canceled)

		signal.Stop(sigChan)
		cancel()

		if askErr != nil {
			if wasCanceled {
				fmt.Fprintln(s.out, "Canceled.")
			} else {
				fmt.Fprintf(s.out, "Error: %v\n", askErr)
			}
		}
	}
}

// createAutoCompleter completes slash commands and persona IDs
func createAutoCompleter(s *Session) *readline.PrefixCompleter {
	var personaItems []readline.PrefixCompleterInterface
	for _, id := range s.catalog.IDs() {
		personaItems = append(personaItems, readline.PcItem(id))
	}

	var pcItems []readline.PrefixCompleterInterface
	for _, cmd := range getSlashCommands() {
		if cmd.Name == "agent" {
			pcItems = append(pcItems, readline.PcItem("/"+cmd.Name, personaItems...))
			continue
		}
		pcItems = append(pcItems, readline.PcItem("/"+cmd.Name))
	}
	return readline.NewPrefixCompleter(pcItems...)
}

// filterInput filters input runes to handle special keys
func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showInteractiveHelp(w io.Writer) {
	fmt.Fprintln(w, "\nInteractive Commands:")
	for _, cmd := range getSlashCommands() {
		fmt.Fprintf(w, "  /%-15s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Fprintln(w, "\nKeys:")
	fmt.Fprintln(w, "  Ctrl+C           - Cancel the running request, or exit at an empty prompt")
	fmt.Fprintln(w, "  Ctrl+R           - Search this session's input history")
	fmt.Fprintln(w, "  Tab              - Complete commands and persona names")
}
