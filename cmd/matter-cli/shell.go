package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"
	"gopkg.in/yaml.v3"
)

const defaultEventLimit = 20

// shell runs matter-cli commands against the API.
type shell struct {
	c   *client
	out io.Writer
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("clusters"),
	readline.PcItem("attrs"),
	readline.PcItem("nodes"),
	readline.PcItem("write"),
	readline.PcItem("events"),
	readline.PcItem("quit"),
)

// run is the interactive loop.
func (s *shell) run(ctx context.Context, rl *readline.Instance) {
	s.printHelp()
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return
		}
		if s.exec(ctx, line) {
			return
		}
	}
}

// exec runs one command line and reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) bool {
	fields := tokenize(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()
	case "clusters", "c":
		err = s.cmdClusters(ctx)
	case "attrs", "a":
		err = s.cmdAttrs(ctx, args)
	case "nodes", "n":
		err = s.cmdNodes(ctx)
	case "write", "w":
		err = s.cmdWrite(ctx, args)
	case "events", "e":
		// The filter is the raw remainder of the line.
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		err = s.cmdEvents(ctx, rest)
	case "quit", "exit", "q":
		return true
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

func (s *shell) printHelp() {
	fmt.Fprint(s.out, `Commands:
  clusters                                  list clusters
  attrs <cluster>                           list writable attributes
  nodes                                     list nodes
  write <node> <ep> <cluster> <attr> [timed=<ms>] <value> | <name>=<value>...
                                            write an attribute and wait for the status
  events [filter]                           show recent events, e.g. events Cluster == "Switch"
  quit                                      exit
`)
}

func (s *shell) cmdClusters(ctx context.Context) error {
	cs, err := s.c.clusters(ctx)
	if err != nil {
		return err
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tATTRS\tWRITABLE\tEVENTS")
	for _, c := range cs {
		fmt.Fprintf(tw, "0x%04X\t%s\t%d\t%d\t%d\n", c.ID, c.Name, c.Attributes, c.Writable, c.Events)
	}
	return tw.Flush()
}

func (s *shell) cmdAttrs(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: attrs <cluster>")
	}
	ds, err := s.c.writable(ctx, args[0])
	if err != nil {
		return err
	}
	if len(ds) == 0 {
		fmt.Fprintf(s.out, "%s has no writable attributes\n", args[0])
		return nil
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tATTRIBUTE\tPARAMS\tTIMED")
	for _, d := range ds {
		params := make([]string, 0, len(d.Params))
		for _, p := range d.Params {
			params = append(params, p.Name+":"+describeRef(p))
		}
		timed := "-"
		if d.TimedTimeout > 0 {
			timed = d.TimedTimeout.String()
		}
		fmt.Fprintf(tw, "0x%04X\t%s\t%s\t%s\n", d.AttributeID, d.Attribute, strings.Join(params, ", "), timed)
	}
	return tw.Flush()
}

func describeRef(p paramView) string {
	name := p.Ref.Type.TypeName()
	switch {
	case p.Ref.Struct != "" && p.Ref.Elem != 0:
		name = "list<" + p.Ref.Struct + ">"
	case p.Ref.Struct != "":
		name = p.Ref.Struct
	case p.Ref.Elem != 0:
		name = "list<" + p.Ref.Elem.TypeName() + ">"
	}
	if p.Ref.Nullable {
		name += "?"
	}
	return name
}

func (s *shell) cmdNodes(ctx context.Context) error {
	ns, err := s.c.nodes(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tLABEL\tEVENTS\tLAST SEEN")
	for _, n := range ns {
		fmt.Fprintf(tw, "%016X\t%s\t%d\t%s\n", n.ID, n.Label, n.EventCount, n.LastSeen.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (s *shell) cmdWrite(ctx context.Context, args []string) error {
	if len(args) < 5 {
		return errors.New("usage: write <node> <ep> <cluster> <attr> [timed=<ms>] <value> | <name>=<value>...")
	}
	ep, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q", args[1])
	}
	req := writeRequest{
		Endpoint:  uint16(ep),
		Cluster:   args[2],
		Attribute: args[3],
		Wait:      true,
	}
	if err := parseWriteArgs(args[4:], &req); err != nil {
		return err
	}

	resp, err := s.c.write(ctx, args[0], req)
	if err != nil {
		return err
	}
	switch {
	case resp.Error != "":
		fmt.Fprintf(s.out, "%s: %s\n", resp.RequestID, resp.Error)
	case resp.Status != "":
		fmt.Fprintf(s.out, "%s: %s\n", resp.RequestID, resp.Status)
	default:
		fmt.Fprintf(s.out, "%s: sent\n", resp.RequestID)
	}
	return nil
}

// parseWriteArgs fills the value or argument bag of req. A lone token is the
// value; name=value tokens build the bag. timed=<ms> requests a timed write.
func parseWriteArgs(tokens []string, req *writeRequest) error {
	var single []string
	for _, tok := range tokens {
		name, lit, ok := strings.Cut(tok, "=")
		if !ok || name == "" || strings.ContainsAny(name, `"'{[ `) {
			single = append(single, tok)
			continue
		}
		if name == "timed" {
			ms, err := strconv.ParseUint(lit, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid timed value %q", lit)
			}
			v := uint32(ms)
			req.TimedMs = &v
			continue
		}
		if req.Args == nil {
			req.Args = map[string]any{}
		}
		req.Args[name] = parseLiteral(lit)
	}

	switch {
	case len(single) > 1:
		return fmt.Errorf("expected one value, got %d", len(single))
	case len(single) == 1 && req.Args != nil:
		return errors.New("mix of value and name=value arguments")
	case len(single) == 1:
		req.Value = parseLiteral(single[0])
	case req.Args == nil:
		return errors.New("missing value")
	}
	return nil
}

// parseLiteral reads a YAML scalar or flow collection: 12, true, null,
// "text", {a: 1}, [1, 2]. Anything unparseable is taken as a string.
func parseLiteral(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	if v == nil {
		return nullValue{}
	}
	return v
}

// tokenize splits on whitespace, keeping quoted and bracketed runs together.
func tokenize(line string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune
		depth int
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '{' || r == '[':
			depth++
		case (r == '}' || r == ']') && depth > 0:
			depth--
		case (r == ' ' || r == '\t') && depth == 0:
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return out
}

func (s *shell) cmdEvents(ctx context.Context, filterExpr string) error {
	evs, err := s.c.events(ctx, filterExpr, defaultEventLimit)
	if err != nil {
		return err
	}
	if len(evs) == 0 {
		fmt.Fprintln(s.out, "no events")
		return nil
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTIME\tNODE\tEP\tEVENT\tPRIORITY\tFIELDS")
	// Newest first from the API; print oldest first.
	for i := len(evs) - 1; i >= 0; i-- {
		e := evs[i].Event
		fmt.Fprintf(tw, "%d\t%s\t%016X\t%d\t%s.%s\t%s\t%s\n", evs[i].Seq,
			e.Timestamp.Local().Format(time.TimeOnly), e.Node, e.Endpoint,
			e.Cluster, e.Event, e.Priority, formatFields(e.Fields))
	}
	return tw.Flush()
}

func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}
