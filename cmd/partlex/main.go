package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ozparts/partlex/internal/config"
	"github.com/ozparts/partlex/internal/embed"
	"github.com/ozparts/partlex/internal/feedback"
	"github.com/ozparts/partlex/internal/ingest"
	"github.com/ozparts/partlex/internal/kb"
	"github.com/ozparts/partlex/internal/nlp"
	"github.com/ozparts/partlex/internal/parse"
	"github.com/ozparts/partlex/internal/store"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "parse":
		err = runParse(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	case "correct":
		err = runCorrect(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "kb":
		err = runKB(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("partlex %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags are the runtime-selection flags shared by every command.
type commonFlags struct {
	configPath string
	dbPath     string
	kbPath     string
	embedFlag  string
	rest       []string
}

// splitFlags separates --config/--db/--kb/--embed from positional args.
func splitFlags(args []string) (commonFlags, error) {
	var f commonFlags
	targets := map[string]*string{
		"--config": &f.configPath,
		"--db":     &f.dbPath,
		"--kb":     &f.kbPath,
		"--embed":  &f.embedFlag,
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		dst, ok := targets[arg]
		if !ok {
			f.rest = append(f.rest, arg)
			continue
		}
		if i+1 >= len(args) {
			return f, fmt.Errorf("flag %s needs a value", arg)
		}
		i++
		*dst = args[i]
	}
	return f, nil
}

func resolve(f commonFlags) (config.ResolvedConfig, error) {
	return config.ResolveConfig(config.ResolveOptions{
		ConfigPath: f.configPath,
		CLIDBPath:  f.dbPath,
		CLIKBPath:  f.kbPath,
		CLIEmbed:   f.embedFlag,
	})
}

// buildEngine loads the knowledge base and assembles the parser with
// whatever optional capabilities the configuration enables.
func buildEngine(cfg config.ResolvedConfig) (*parse.Engine, error) {
	k, seeded, err := kb.LoadOrSeed(cfg.KBPath.Value)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}
	if seeded {
		fmt.Fprintf(os.Stderr, "Initialized knowledge base at %s\n", cfg.KBPath.Value)
	}

	var caps parse.Capabilities
	if cfg.TokenizerPath.Value != "" {
		tok, err := nlp.Load(cfg.TokenizerPath.Value)
		if err != nil {
			return nil, err
		}
		caps.Tokenizer = tok
	}
	if cfg.EmbedProvider.Value != "" {
		embedCfg, err := embed.ParseFlag(embedSpec(cfg))
		if err != nil {
			return nil, err
		}
		if cfg.EmbedEndpoint.Value != "" {
			embedCfg.Endpoint = cfg.EmbedEndpoint.Value
		}
		if cfg.EmbedAPIKey.Value != "" {
			embedCfg.APIKey = cfg.EmbedAPIKey.Value
		}
		client, err := embed.NewClient(embedCfg)
		if err != nil {
			return nil, err
		}
		caps.Embedder = client
	}

	return parse.New(k, caps)
}

// embedSpec reassembles "provider/model" from the resolved config. The
// --embed flag may already carry both halves.
func embedSpec(cfg config.ResolvedConfig) string {
	spec := cfg.EmbedProvider.Value
	if strings.Contains(spec, "/") {
		return spec
	}
	model := cfg.EmbedModel.Value
	if model == "" {
		model = "nomic-embed-text"
	}
	return spec + "/" + model
}

func dbPath(cfg config.ResolvedConfig) string {
	if cfg.DBPath.Value != "" {
		return cfg.DBPath.Value
	}
	return store.DefaultDBPath
}

func runParse(args []string) error {
	f, err := splitFlags(args)
	if err != nil {
		return err
	}
	stdin := false
	var lines []string
	for _, arg := range f.rest {
		if arg == "--stdin" {
			stdin = true
			continue
		}
		lines = append(lines, arg)
	}
	if !stdin && len(lines) == 0 {
		return fmt.Errorf("usage: partlex parse <description>... [--stdin]")
	}

	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	emit := func(line string) error {
		rec, err := engine.Parse(ctx, line)
		if err != nil {
			return fmt.Errorf("parsing %q: %w", line, err)
		}
		if rec == nil {
			return nil
		}
		return out.Encode(rec)
	}

	for _, line := range lines {
		if err := emit(line); err != nil {
			return err
		}
	}
	if stdin {
		sc := bufio.NewScanner(os.Stdin)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			if err := emit(sc.Text()); err != nil {
				return err
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}
	return nil
}

func runImport(args []string) error {
	f, err := splitFlags(args)
	if err != nil {
		return err
	}
	if len(f.rest) == 0 {
		return fmt.Errorf("usage: partlex import <file> [--db <path>]")
	}

	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	s, err := store.Open(dbPath(cfg))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	im := &ingest.Importer{Engine: engine, Store: s}
	ctx := context.Background()

	for _, path := range f.rest {
		fmt.Printf("Importing %s...\n", path)
		result, err := im.ImportFile(ctx, path)
		if err != nil {
			return err
		}
		fmt.Printf("  %d parts imported, %d lines skipped\n", result.Imported, result.Skipped)
	}
	return nil
}

func runCorrect(args []string) error {
	f, err := splitFlags(args)
	if err != nil {
		return err
	}
	if len(f.rest) < 2 {
		return fmt.Errorf("usage: partlex correct <part-id> <field>=<value>...")
	}

	var partID int64
	if _, err := fmt.Sscanf(f.rest[0], "%d", &partID); err != nil {
		return fmt.Errorf("invalid part id %q", f.rest[0])
	}

	corrections := map[string]string{}
	for _, arg := range f.rest[1:] {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return fmt.Errorf("corrections take the form field=value, got %q", arg)
		}
		if !store.CorrectableField(field) {
			return fmt.Errorf("field %q is not correctable", field)
		}
		corrections[field] = value
	}

	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	s, err := store.Open(dbPath(cfg))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	loop := &feedback.Loop{Store: s, Engine: engine, KBPath: cfg.KBPath.Value}
	if err := loop.Apply(context.Background(), partID, corrections); err != nil {
		return err
	}
	fmt.Printf("Corrected part %d (%d fields)\n", partID, len(corrections))
	return nil
}

func runStats(args []string) error {
	f, err := splitFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	s, err := store.Open(dbPath(cfg))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	st, err := s.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Total parts: %d\n", st.TotalParts)
	fmt.Printf("Total corrections: %d\n\n", st.TotalCorrections)
	printGroup("By make", st.PartsByMake)
	printGroup("By model", st.PartsByModel)
	printGroup("By category", st.PartsByCategory)
	printGroup("By decade", st.PartsByDecade)
	printGroup("Confidence", st.ConfidenceDistribution)
	printGroup("Extraction methods", st.ExtractionMethods)
	printGroup("Corrections by field", st.CorrectionsByField)
	return nil
}

func printGroup(title string, m map[string]int64) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	fmt.Printf("%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-30s %d\n", k, m[k])
	}
	fmt.Println()
}

func runKB(args []string) error {
	f, err := splitFlags(args)
	if err != nil {
		return err
	}
	if len(f.rest) == 0 {
		return fmt.Errorf("usage: partlex kb <init|path>")
	}

	cfg, err := resolve(f)
	if err != nil {
		return err
	}

	switch f.rest[0] {
	case "init":
		if _, err := os.Stat(cfg.KBPath.Value); err == nil {
			return fmt.Errorf("knowledge base already exists at %s", cfg.KBPath.Value)
		}
		k := kb.Seed()
		if err := k.Save(cfg.KBPath.Value); err != nil {
			return err
		}
		fmt.Printf("Knowledge base initialized at %s (%d makes, %d models, %d categories)\n",
			cfg.KBPath.Value, len(k.CarMakes), len(k.CarModels), len(k.PartCategories))
		return nil
	case "path":
		fmt.Println(cfg.KBPath.Value)
		return nil
	default:
		return fmt.Errorf("unknown kb subcommand: %s", f.rest[0])
	}
}

func runConfig(args []string) error {
	f, err := splitFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	cfg.EmbedAPIKey.Value = redact(cfg.EmbedAPIKey.Value)
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	return out.Encode(cfg)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func printUsage() {
	fmt.Printf(`partlex %s — Hebrew car-part description parser

Usage:
  partlex <command> [arguments]

Commands:
  parse <description>   Parse part descriptions and print extracted records
  import <file>         Parse every line of a file into the parts database
  correct <id> f=v...   Correct a stored part and teach the parser
  stats                 Show inventory statistics
  kb init               Write the built-in knowledge base seed to disk
  kb path               Print the knowledge base location
  config                Print the resolved configuration
  version               Print version

Parse Flags:
  --stdin               Also read descriptions from standard input

Flags:
  --config <path>       Config file (default ~/.partlex/config.yaml)
  --db <path>           Parts database (default %s)
  --kb <path>           Knowledge base JSON
  --embed <spec>        Embedding backend, e.g. ollama/nomic-embed-text
  -h, --help            Show this help message
  -v, --version         Print version
`, version, store.DefaultDBPath)
}
