// Package interactive provides the interactive command-line interface
// for the Gizmo configurator.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/gizmo-config/gizmo-go/pkg/accessory"
	"github.com/gizmo-config/gizmo-go/pkg/directory"
	"github.com/gizmo-config/gizmo-go/pkg/inspect"
	"github.com/gizmo-config/gizmo-go/pkg/model"
	"github.com/gizmo-config/gizmo-go/pkg/persistence"
	"github.com/gizmo-config/gizmo-go/pkg/transport"
)

// Lookup errors.
var (
	ErrNoMatch   = errors.New("no match")
	ErrAmbiguous = errors.New("ambiguous reference")
)

// Env is the configurator state the commands operate on.
type Env struct {
	Directory *directory.Directory
	Registry  *accessory.Registry
	Central   *transport.Central

	// Peers remembers manually added peers. Nil without a state directory.
	Peers *persistence.PeerStore
}

// Controller handles interactive mode for gizmo-config.
type Controller struct {
	env       Env
	out       io.Writer
	formatter *inspect.Formatter
	rl        *readline.Instance
}

// New creates a readline-backed controller. Call Attach before Run.
func New() (*Controller, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gizmo> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Controller{
		out:       rl.Stdout(),
		formatter: inspect.NewFormatter(),
		rl:        rl,
	}, nil
}

// NewWithWriter creates a controller without a terminal that writes its
// output to w. Commands are fed through Execute.
func NewWithWriter(env Env, w io.Writer) *Controller {
	return &Controller{
		env:       env,
		out:       w,
		formatter: inspect.NewFormatter(),
	}
}

// Attach sets the state the commands operate on.
func (c *Controller) Attach(env Env) {
	c.env = env
}

// Stdout returns a writer that properly coordinates with the readline input.
func (c *Controller) Stdout() io.Writer {
	return c.out
}

// Stderr returns a writer for log output that does not interfere with the
// command prompt.
func (c *Controller) Stderr() io.Writer {
	if c.rl == nil {
		return c.out
	}
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Controller) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if !c.Execute(line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the user asked to
// quit.
func (c *Controller) Execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "schemas":
		c.cmdSchemas()

	case "schema":
		c.cmdSchema(args)

	case "import":
		c.cmdImport(args)

	case "export":
		c.cmdExport(args)

	case "unregister":
		c.cmdUnregister(args)

	case "peers":
		c.cmdPeers()

	case "peer":
		c.cmdPeer(args)

	case "devices", "list", "ls":
		c.cmdDevices()

	case "connect", "c":
		c.cmdConnect(args)

	case "disconnect":
		c.cmdDisconnect(args)

	case "show", "inspect", "i":
		c.cmdShow(args)

	case "get", "read", "r":
		c.cmdGet(args)

	case "set", "write", "w":
		c.cmdSet(args)

	case "push":
		c.cmdPush(args)

	case "reset":
		c.cmdReset(args)

	case "status":
		c.cmdStatus()

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Controller) printHelp() {
	fmt.Fprintln(c.out, `
Gizmo Configurator Commands:
  Schemas:
    schemas                  - List registered schemas
    schema <schema>          - Show the parameters of a schema
    import <file>            - Import a schema file (.json, .yaml)
    export <schema> <file>   - Export a schema to a file
    unregister <schema>      - Remove a schema from the directory

  Peripherals:
    peers                    - List known peripherals
    peer <id> <host:port> <caps> [name] - Add a peripheral by address
    devices                  - List recognized accessories
    connect <id>             - Connect and read the configuration
    disconnect <id>          - Drop the connection

  Configuration:
    show <id> [group/]       - Show the configuration (or one group)
    get <id> <path>          - Read a parameter
    set <id> <path> <value>  - Edit a parameter
    push <id>                - Write the edited parameters
    reset <id>               - Discard edits

  General:
    status                   - Show configurator status
    help                     - Show this help
    quit                     - Exit the configurator

  References:
    <schema> and <id> accept a name or a unique prefix of the id.
    <path> is [group/]parameter, e.g. time/timezone or 2AF9`)
}

func (c *Controller) cmdSchemas() {
	devices := c.env.Directory.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(c.out, "No schemas registered")
		return
	}

	fmt.Fprintf(c.out, "\nSchemas (%d):\n", len(devices))
	fmt.Fprintln(c.out, "-------------------------------------------")
	for _, dev := range devices {
		fmt.Fprintf(c.out, "  %s  %s\n", shortID(dev.ID), dev.Name)
		fmt.Fprintf(c.out, "      Capabilities: %s\n", strings.Join(dev.CapabilityIDs, ", "))
		fmt.Fprintf(c.out, "      Parameters: %d in %d groups\n", len(dev.Parameters()), len(dev.Groups))
		fmt.Fprintf(c.out, "      Fingerprint: %s\n", shortFingerprint(dev))
	}
}

func (c *Controller) cmdSchema(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: schema <schema>")
		return
	}
	dev, err := c.findSchema(strings.Join(args, " "))
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprint(c.out, inspect.FormatSchema(dev, c.formatter))
}

func (c *Controller) cmdImport(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: import <file>")
		return
	}
	dev, err := model.LoadDevice(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Import failed: %v\n", err)
		return
	}
	stored, err := c.env.Directory.Register(dev)
	if err != nil {
		fmt.Fprintf(c.out, "Import failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Registered %s (%s)\n", stored.Name, shortID(stored.ID))
}

func (c *Controller) cmdExport(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: export <schema> <file>")
		return
	}
	file := args[len(args)-1]
	dev, err := c.findSchema(strings.Join(args[:len(args)-1], " "))
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if err := model.SaveDevice(file, dev); err != nil {
		fmt.Fprintf(c.out, "Export failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Exported %s to %s\n", dev.Name, file)
}

func (c *Controller) cmdUnregister(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: unregister <schema>")
		return
	}
	dev, err := c.findSchema(strings.Join(args, " "))
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if err := c.env.Directory.Unregister(dev.ID); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Removed %s\n", dev.Name)
}

func (c *Controller) cmdPeers() {
	peers := c.env.Central.Peers()
	if len(peers) == 0 {
		fmt.Fprintln(c.out, "No peripherals found")
		return
	}

	fmt.Fprintf(c.out, "\nPeripherals (%d):\n", len(peers))
	fmt.Fprintln(c.out, "-------------------------------------------")
	for _, p := range peers {
		name := p.Name
		if name == "" {
			name = accessory.NoName
		}
		fmt.Fprintf(c.out, "  %s  %s\n", p.InstanceID, name)
		fmt.Fprintf(c.out, "      Address: %s\n", p.Address)
		fmt.Fprintf(c.out, "      Capabilities: %s\n", strings.Join(p.CapabilityIDs, ", "))
	}
}

func (c *Controller) cmdPeer(args []string) {
	if len(args) < 3 {
		fmt.Fprintln(c.out, "Usage: peer <id> <host:port> <cap,cap,...> [name]")
		fmt.Fprintln(c.out, "  Example: peer clock-1 192.168.1.20:7890 185C,185D Hall Clock")
		return
	}
	p := transport.Peer{
		InstanceID:    args[0],
		Address:       args[1],
		CapabilityIDs: strings.Split(args[2], ","),
		Name:          strings.Join(args[3:], " "),
	}
	c.env.Central.AddPeer(p)
	if c.env.Peers != nil {
		rec := persistence.PeerRecord{
			InstanceID:    p.InstanceID,
			Name:          p.Name,
			Address:       p.Address,
			CapabilityIDs: p.CapabilityIDs,
			LastSeenAt:    time.Now(),
		}
		if err := c.env.Peers.Upsert(rec); err != nil {
			fmt.Fprintf(c.out, "Warning: peer not saved: %v\n", err)
		}
	}
	if c.env.Registry.Accessory(p.InstanceID) == nil {
		fmt.Fprintf(c.out, "Added %s (no matching schema)\n", p.InstanceID)
		return
	}
	fmt.Fprintf(c.out, "Added %s\n", p.InstanceID)
}

func (c *Controller) cmdDevices() {
	accs := c.env.Registry.Accessories()
	if len(accs) == 0 {
		fmt.Fprintln(c.out, "No accessories")
		return
	}

	fmt.Fprintf(c.out, "\nAccessories (%d):\n", len(accs))
	fmt.Fprintln(c.out, "-------------------------------------------")
	for _, a := range accs {
		schema := "?"
		if dev, err := a.Schema(); err == nil {
			schema = dev.Name
		}
		marker := ""
		if a.IsModified() {
			marker = " [modified]"
		}
		fmt.Fprintf(c.out, "  %s  %s%s\n", a.ID(), a.Name(), marker)
		fmt.Fprintf(c.out, "      Schema: %s\n", schema)
		fmt.Fprintf(c.out, "      State: %s\n", a.State())
		if pending := a.Pending(); len(pending) > 0 {
			fmt.Fprintf(c.out, "      Pending writes: %s\n", strings.Join(pending, ", "))
		}
	}
}

func (c *Controller) cmdConnect(args []string) {
	a, ok := c.accessoryArg("connect <id>", args)
	if !ok {
		return
	}
	if err := a.Connect(); err != nil {
		fmt.Fprintf(c.out, "Connect failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Connecting to %s...\n", a.ID())
}

func (c *Controller) cmdDisconnect(args []string) {
	a, ok := c.accessoryArg("disconnect <id>", args)
	if !ok {
		return
	}
	if err := a.Disconnect(); err != nil {
		fmt.Fprintf(c.out, "Disconnect failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Disconnected %s\n", a.ID())
}

func (c *Controller) cmdShow(args []string) {
	a, ok := c.accessoryArg("show <id> [group/]", args)
	if !ok {
		return
	}
	in := inspect.NewInspector(a)

	if len(args) > 1 {
		path, err := inspect.ParsePath(strings.Join(args[1:], " "))
		if err != nil {
			fmt.Fprintf(c.out, "Invalid path: %v\n", err)
			return
		}
		if !path.IsPartial {
			c.printParameter(in, path)
			return
		}
		tree, err := in.InspectAccessory()
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		var groups []inspect.GroupInfo
		for _, g := range tree.Groups {
			if inspect.SameName(g.Name, path.Group) {
				groups = append(groups, g)
			}
		}
		if len(groups) == 0 {
			fmt.Fprintf(c.out, "Error: %v: %s\n", inspect.ErrGroupNotFound, path.Group)
			return
		}
		tree.Groups = groups
		fmt.Fprint(c.out, in.FormatAccessoryTree(tree, c.formatter))
		return
	}

	tree, err := in.InspectAccessory()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprint(c.out, in.FormatAccessoryTree(tree, c.formatter))
}

func (c *Controller) cmdGet(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: get <id> <path>")
		fmt.Fprintln(c.out, "  Example: get clock time/timezone")
		return
	}
	a, ok := c.accessoryArg("get <id> <path>", args)
	if !ok {
		return
	}
	path, err := inspect.ParsePath(args[1])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid path: %v\n", err)
		return
	}
	c.printParameter(inspect.NewInspector(a), path)
}

func (c *Controller) printParameter(in *inspect.Inspector, path *inspect.Path) {
	value, d, err := in.ReadParameter(path)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s = %s\n", d.Name, c.formatter.FormatValue(value))
}

func (c *Controller) cmdSet(args []string) {
	if len(args) < 3 {
		fmt.Fprintln(c.out, "Usage: set <id> <path> <value>")
		fmt.Fprintln(c.out, "  Example: set clock wi-fi/ssid \"Home Network\"")
		return
	}
	a, ok := c.accessoryArg("set <id> <path> <value>", args)
	if !ok {
		return
	}
	path, err := inspect.ParsePath(args[1])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid path: %v\n", err)
		return
	}

	text := strings.Trim(strings.Join(args[2:], " "), "\"'")
	d, err := inspect.NewInspector(a).WriteParameter(path, text)
	if err != nil {
		fmt.Fprintf(c.out, "Set failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s edited (push to apply)\n", d.Name)
}

func (c *Controller) cmdPush(args []string) {
	a, ok := c.accessoryArg("push <id>", args)
	if !ok {
		return
	}
	writes, err := a.Push()
	dev, _ := a.Schema()
	for _, w := range writes {
		name := w.WireID
		if dev != nil {
			if d, found := dev.DatumByWireID(w.WireID); found {
				name = d.Name
			}
		}
		fmt.Fprintf(c.out, "  wrote %s [%s] %s\n", name, w.WireID, inspect.FormatBytes(w.Data))
	}
	if err != nil {
		fmt.Fprintf(c.out, "Push failed: %v\n", err)
		return
	}
	if len(writes) == 0 {
		fmt.Fprintln(c.out, "Nothing to push")
		return
	}
	fmt.Fprintf(c.out, "Pushed %d parameter(s)\n", len(writes))
}

func (c *Controller) cmdReset(args []string) {
	a, ok := c.accessoryArg("reset <id>", args)
	if !ok {
		return
	}
	a.Reset()
	fmt.Fprintln(c.out, "Edits discarded")
}

func (c *Controller) cmdStatus() {
	states := make(map[accessory.State]int)
	modified := 0
	for _, a := range c.env.Registry.Accessories() {
		states[a.State()]++
		if a.IsModified() {
			modified++
		}
	}

	fmt.Fprintln(c.out, "\nConfigurator Status:")
	fmt.Fprintln(c.out, "-------------------------------------------")
	fmt.Fprintf(c.out, "  Schemas:        %d\n", c.env.Directory.Len())
	fmt.Fprintf(c.out, "  Browsing for:   %s\n", strings.Join(c.env.Central.Filter(), ", "))
	fmt.Fprintf(c.out, "  Peripherals:    %d\n", len(c.env.Central.Peers()))
	for _, s := range []accessory.State{
		accessory.StateDisconnected,
		accessory.StateConnecting,
		accessory.StateConnected,
		accessory.StatePopulated,
	} {
		fmt.Fprintf(c.out, "  %-15s %d\n", s.String()+":", states[s])
	}
	fmt.Fprintf(c.out, "  Modified:       %d\n", modified)
}

// accessoryArg resolves args[0] to an accessory, printing usage or the
// lookup error otherwise.
func (c *Controller) accessoryArg(usage string, args []string) (*accessory.Accessory, bool) {
	if len(args) < 1 {
		fmt.Fprintf(c.out, "Usage: %s\n", usage)
		return nil, false
	}
	a, err := c.findAccessory(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return nil, false
	}
	return a, true
}

// findAccessory resolves an instance id, a unique id prefix or a unique
// name.
func (c *Controller) findAccessory(ref string) (*accessory.Accessory, error) {
	if a := c.env.Registry.Accessory(ref); a != nil {
		return a, nil
	}
	var matches []*accessory.Accessory
	for _, a := range c.env.Registry.Accessories() {
		if strings.HasPrefix(a.ID(), ref) || inspect.SameName(a.Name(), ref) {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: accessory %q", ErrNoMatch, ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d accessories", ErrAmbiguous, ref, len(matches))
	}
}

// findSchema resolves a schema id, a unique id prefix or a unique name.
func (c *Controller) findSchema(ref string) (*model.Device, error) {
	if dev, ok := c.env.Directory.Device(ref); ok {
		return dev, nil
	}
	var matches []*model.Device
	for _, dev := range c.env.Directory.Devices() {
		if strings.HasPrefix(dev.ID, ref) || inspect.SameName(dev.Name, ref) {
			matches = append(matches, dev)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: schema %q", ErrNoMatch, ref)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, dev := range matches {
			names = append(names, dev.Name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguous, ref, strings.Join(names, ", "))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func shortFingerprint(dev *model.Device) string {
	fp := dev.Fingerprint()
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}
