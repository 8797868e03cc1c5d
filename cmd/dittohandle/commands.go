package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/marmos91/dittohandle/pkg/config"
	"github.com/marmos91/dittohandle/pkg/handle"
)

// errUsage reports bad arguments; the flag set has already printed usage.
var errUsage = errors.New("usage error")

// pairList collects repeated KEY=VALUE flags in order.
type pairList []string

func (p *pairList) String() string { return strings.Join(*p, ",") }

func (p *pairList) Set(v string) error {
	if _, _, ok := strings.Cut(v, "="); !ok {
		return fmt.Errorf("expected KEY=VALUE, got %q", v)
	}
	*p = append(*p, v)
	return nil
}

// stringList collects repeated string flags.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// parsePairs turns KEY=VALUE arguments into ordered changes. Only the first
// '=' separates key and value.
func parsePairs(args []string) (handle.Changes, error) {
	var changes handle.Changes
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", arg)
		}
		changes = changes.Set(key, value)
	}
	return changes, nil
}

// newFlagSet creates a subcommand flag set that prints to stderr.
func newFlagSet(e *env, name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(e.stderr, "Usage: dittohandle %s [flags] %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses flags and checks the positional argument count.
func parse(fs *flag.FlagSet, args []string, minArgs int) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() < minArgs {
		fs.Usage()
		return errUsage
	}
	return nil
}

func runInit(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "init", "")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	if err := parse(fs, args, 0); err != nil {
		return err
	}

	path := e.configPath
	if path == "" {
		p, err := config.InitConfig(*force)
		if err != nil {
			return err
		}
		path = p
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(e.stdout, "Configuration written to %s\n", path)
	return nil
}

func runGet(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "get", "<handle>")
	key := fs.String("key", "", "Print only the value of this type")
	flat := fs.Bool("flat", false, "Print the record as a type to value map")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	name := fs.Arg(0)

	if *key != "" {
		value, ok, err := e.client.GetValue(ctx, name, *key)
		if err != nil {
			return err
		}
		if !ok {
			return handle.NewNotFoundError(name, fmt.Sprintf("no value of type %s", *key))
		}
		if value.IsAdmin() {
			return printJSON(e, value)
		}
		_, _ = fmt.Fprintln(e.stdout, value.String())
		return nil
	}

	if *flat {
		rec, err := e.client.RetrieveRecord(ctx, name)
		if err != nil {
			return err
		}
		if rec == nil {
			return handle.NewNotFoundError(name, "")
		}
		return printJSON(e, rec)
	}

	rec, err := e.client.RetrieveRecordJSON(ctx, name)
	if err != nil {
		return err
	}
	if rec == nil {
		return handle.NewNotFoundError(name, "")
	}
	return printJSON(e, rec)
}

// registerFlags are shared by register and generate.
type registerFlags struct {
	location  *string
	checksum  *string
	overwrite *bool
	extra     pairList
}

func addRegisterFlags(fs *flag.FlagSet) *registerFlags {
	rf := &registerFlags{
		location:  fs.String("url", "", "Location (URL entry, index 1)"),
		checksum:  fs.String("checksum", "", "Checksum (CHECKSUM entry)"),
		overwrite: fs.Bool("overwrite", false, "Replace an existing record"),
	}
	fs.Var(&rf.extra, "kv", "Extra KEY=VALUE entry (repeatable)")
	return rf
}

func runRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "register", "<handle>")
	rf := addRegisterFlags(fs)
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	extra, err := parsePairs(rf.extra)
	if err != nil {
		return err
	}

	name, err := e.client.Register(ctx, fs.Arg(0), *rf.location, *rf.checksum, extra, *rf.overwrite)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(e.stdout, name)
	return nil
}

func runGenerate(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "generate", "<prefix>")
	rf := addRegisterFlags(fs)
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	extra, err := parsePairs(rf.extra)
	if err != nil {
		return err
	}

	name, err := e.client.GenerateAndRegister(ctx, fs.Arg(0), *rf.location, *rf.checksum, extra, *rf.overwrite)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(e.stdout, name)
	return nil
}

func runModify(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "modify", "<handle> KEY=VALUE...")
	ttl := fs.Int("ttl", 0, "TTL of added entries (0 = configured default)")
	noAdd := fs.Bool("no-add", false, "Only change types that already exist")
	if err := parse(fs, args, 2); err != nil {
		return err
	}
	changes, err := parsePairs(fs.Args()[1:])
	if err != nil {
		return err
	}

	return e.client.ModifyValues(ctx, fs.Arg(0), changes, ttlFlag(*ttl), !*noAdd)
}

func runAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "add", "<handle> KEY=VALUE...")
	ttl := fs.Int("ttl", 0, "TTL of added entries (0 = configured default)")
	if err := parse(fs, args, 2); err != nil {
		return err
	}
	changes, err := parsePairs(fs.Args()[1:])
	if err != nil {
		return err
	}

	return e.client.AddValues(ctx, fs.Arg(0), changes, ttlFlag(*ttl))
}

func runDelete(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "delete", "<handle>")
	var keys stringList
	fs.Var(&keys, "key", "Type to delete (repeatable); without it the whole handle is deleted")
	if err := parse(fs, args, 1); err != nil {
		return err
	}

	if len(keys) == 0 {
		return e.client.DeleteHandle(ctx, fs.Arg(0))
	}
	return e.client.DeleteValues(ctx, fs.Arg(0), keys...)
}

func runSearch(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "search", "KEY=PATTERN...")
	prefix := fs.String("prefix", "", "Only return handles under this prefix")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	pairs, err := parsePairs(fs.Args())
	if err != nil {
		return err
	}

	names, err := e.client.Search(ctx, *prefix, pairs)
	if err != nil {
		return err
	}
	printLines(e, names)
	return nil
}

func runList(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "list", "")
	prefix := fs.String("prefix", "", "Only list handles under this prefix")
	if err := parse(fs, args, 0); err != nil {
		return err
	}

	names, err := e.client.ListHandles(ctx, *prefix)
	if err != nil {
		return err
	}
	printLines(e, names)
	return nil
}

func ttlFlag(ttl int) *int {
	if ttl <= 0 {
		return nil
	}
	return &ttl
}

func printLines(e *env, lines []string) {
	for _, l := range lines {
		_, _ = fmt.Fprintln(e.stdout, l)
	}
}

func printJSON(e *env, v any) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
