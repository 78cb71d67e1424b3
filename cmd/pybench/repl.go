package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"pybench/internal/session"
	"pybench/internal/workspace"
)

// runREPL drives an interactive console against one session. Each line
// is a command; `call` dispatches a tool with JSON arguments.
func runREPL(s *session.Session, logger zerolog.Logger) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pybench> ",
		AutoComplete:    replCompleter(s),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize readline")
	}
	defer rl.Close()

	fmt.Println("Pybench workspace console")
	fmt.Println("Commands: tools, schema <tool>, call <tool> <json-args>, tree, help, exit")
	fmt.Println()

	for {
		line, err := rl.Readline()
		if err != nil {
			logger.Debug().Msg("Readline interrupted")
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		logger.Info().Str("user_input", line).Msg("User input received")
		if handleCommand(s, line) {
			break
		}
	}

	logger.Info().Msg("Session ended")
}

// handleCommand executes one console command; returns true on exit.
func handleCommand(s *session.Session, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "exit", "quit":
		return true
	case "help":
		fmt.Println("tools              list registered tools by category")
		fmt.Println("schema <tool>      show a tool's parameter schema")
		fmt.Println("call <tool> <json> execute a tool, e.g. call read_file {\"path\":\"main.py\"}")
		fmt.Println("tree               print the workspace tree")
		fmt.Println("exit               quit")
	case "tools":
		printTools(s)
	case "schema":
		printSchema(s, rest)
	case "call":
		runCall(s, rest)
	case "tree":
		printTree(s.Tree())
	default:
		fmt.Printf("Unknown command %q, try help\n", cmd)
	}
	return false
}

func printTools(s *session.Session) {
	cats := s.Registry().Categories()
	for _, category := range sortedKeys(cats) {
		fmt.Printf("%s:\n", category)
		for _, name := range cats[category] {
			tool, _ := s.Registry().Get(name)
			fmt.Printf("  %-24s %s\n", name, tool.Description)
		}
	}
}

func printSchema(s *session.Session, name string) {
	if name == "" {
		fmt.Println("Usage: schema <tool>")
		return
	}
	tool, ok := s.Registry().Get(name)
	if !ok {
		fmt.Printf("No tool named %q\n", name)
		return
	}
	data, err := json.MarshalIndent(tool.Declaration(), "", "  ")
	if err != nil {
		fmt.Printf("Failed to render schema: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func runCall(s *session.Session, rest string) {
	name, rawArgs, _ := strings.Cut(rest, " ")
	if name == "" {
		fmt.Println("Usage: call <tool> <json-args>")
		return
	}
	args := map[string]any{}
	rawArgs = strings.TrimSpace(rawArgs)
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			fmt.Printf("Invalid JSON arguments: %v\n", err)
			return
		}
	}
	res := s.Execute(context.Background(), name, args)
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fmt.Printf("Failed to render result: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printTree(tree []*workspace.Node) {
	if len(tree) == 0 {
		fmt.Println("(empty workspace)")
		return
	}
	workspace.Walk(tree, func(path string, n *workspace.Node) {
		depth := strings.Count(path, "/")
		suffix := ""
		if n.IsFolder() {
			suffix = "/"
		}
		fmt.Printf("%s%s%s\n", strings.Repeat("  ", depth), n.Name, suffix)
	})
}

// replCompleter offers command and tool-name completion.
func replCompleter(s *session.Session) *readline.PrefixCompleter {
	names := s.Registry().Names()
	toolItems := make([]readline.PrefixCompleterInterface, len(names))
	for i, name := range names {
		toolItems[i] = readline.PcItem(name)
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("tools"),
		readline.PcItem("schema", toolItems...),
		readline.PcItem("call", toolItems...),
		readline.PcItem("tree"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
