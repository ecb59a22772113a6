package console

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
	"github.com/dmxlan/dmxbridge-console/internal/config"
)

// Action tells the shell what to do after a command ran. Most commands
// only produce output; a few switch modes or terminate the session.
type Action int

const (
	ActionNone Action = iota
	ActionClear
	ActionExit
	ActionEnterTail
	ActionEnterView
	ActionEnterEvents
	ActionEnterWatch
)

// Result is the outcome of one executed command line.
type Result struct {
	Output string
	Action Action

	// Mode parameters for the enter-mode actions.
	Level    string
	Logger   string
	Pattern  string
	Regex    bool
	Target   string
	Interval time.Duration
}

// tableBudget caps table rendering for one-shot commands. The main buffer
// scrolls, so the budget only guards against pathological responses.
const tableBudget = 1000

// DefaultTestPayload is sent by "devices test" when no payload is given.
var DefaultTestPayload = map[string]any{"r": 255, "g": 255, "b": 255}

// watchTargets are the subjects "watch" accepts.
var watchTargets = map[string]bool{
	"devices":   true,
	"mappings":  true,
	"dashboard": true,
	"logs":      true,
}

// Commander executes normal-mode command lines against the bridge. It
// owns the active client so "connect" can rebind it; the shell reads
// Client after every execution.
type Commander struct {
	Client   *bridge.Client
	Registry *config.Registry

	width int
}

// NewCommander wires a command executor to a client and profile registry.
func NewCommander(client *bridge.Client, registry *config.Registry) *Commander {
	return &Commander{Client: client, Registry: registry, width: 80}
}

// SetWidth updates the render width used for tables.
func (c *Commander) SetWidth(width int) {
	if width > 0 {
		c.width = width
	}
}

// Execute parses and runs one command line. The returned error is user
// input trouble or a surfaced bridge failure; either way the shell prints
// it and the session continues.
func (c *Commander) Execute(line string) (Result, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return Result{}, bridge.NewInputError(fmt.Sprintf("bad quoting: %v", err))
	}
	if len(tokens) == 0 {
		return Result{}, nil
	}

	verb, args := tokens[0], tokens[1:]
	switch verb {
	case "help", "?":
		return Result{Output: c.helpText(args)}, nil
	case "connect":
		return c.cmdConnect(args)
	case "disconnect":
		return c.cmdDisconnect()
	case "health":
		out, err := RenderHealth(c.Client)
		return Result{Output: out}, err
	case "status":
		out, err := RenderStats(c.Client)
		return Result{Output: out}, err
	case "devices":
		return c.cmdDevices(args)
	case "mappings":
		return c.cmdMappings(args)
	case "channels":
		return c.cmdChannels(args)
	case "monitor":
		return c.cmdMonitor(args)
	case "logs":
		return c.cmdLogs(args)
	case "watch":
		return c.cmdWatch(args)
	case "reload":
		result, err := c.Client.Reload()
		if err != nil {
			return Result{}, err
		}
		return Result{Output: RenderSuccess(fmt.Sprintf("reload: %s", result.Status))}, nil
	case "clear":
		return Result{Action: ActionClear}, nil
	case "exit", "quit":
		return Result{Action: ActionExit}, nil
	default:
		return Result{}, bridge.NewInputError(fmt.Sprintf("unknown command %q, try help", verb))
	}
}

func (c *Commander) cmdConnect(args []string) (Result, error) {
	url := config.DefaultServerURL
	if len(args) > 0 {
		url = args[0]
	}

	apiKey := ""
	if c.Registry != nil {
		profile := c.Registry.EnsureServer(url)
		c.Registry.SetActive(url)
		apiKey = config.ResolveAPIKey(profile)
		if err := c.Registry.Save(); err != nil {
			return Result{}, err
		}
	}

	c.Client = bridge.NewClient(url, apiKey)
	health, err := c.Client.Health()
	if err != nil {
		return Result{Output: RenderError(fmt.Sprintf("connected to %s but health check failed: %s", url, bridge.ShortMessage(err)))}, nil
	}
	return Result{Output: RenderSuccess(fmt.Sprintf("connected to %s (%s)", url, health.Status))}, nil
}

func (c *Commander) cmdDisconnect() (Result, error) {
	url := c.Client.BaseURL
	c.Client = bridge.NewClient(config.DefaultServerURL, "")
	return Result{Output: SubtleTextStyle.Render(fmt.Sprintf("disconnected from %s", url))}, nil
}

func (c *Commander) cmdDevices(args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, bridge.NewInputError("usage: devices list|show|enable|disable|test|command|add")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		out, err := RenderDevices(c.Client, c.width)
		return Result{Output: out}, err

	case "show":
		if len(rest) != 1 {
			return Result{}, bridge.NewInputError("usage: devices show ID")
		}
		out, err := RenderDeviceDetail(c.Client, rest[0])
		return Result{Output: out}, err

	case "enable", "disable":
		if len(rest) != 1 {
			return Result{}, bridge.NewInputError(fmt.Sprintf("usage: devices %s ID", sub))
		}
		enabled := sub == "enable"
		device, err := c.Client.UpdateDevice(rest[0], map[string]any{"enabled": enabled})
		if err != nil {
			return Result{}, err
		}
		return Result{Output: RenderSuccess(fmt.Sprintf("device %s enabled=%t", device.ID, device.Enabled))}, nil

	case "test":
		if len(rest) < 1 {
			return Result{}, bridge.NewInputError("usage: devices test ID [JSON]")
		}
		payload := DefaultTestPayload
		if len(rest) > 1 {
			payload = map[string]any{}
			if err := json.Unmarshal([]byte(strings.Join(rest[1:], " ")), &payload); err != nil {
				return Result{}, bridge.NewInputError(fmt.Sprintf("bad test payload: %v", err))
			}
		}
		result, err := c.Client.TestDevice(rest[0], payload)
		if err != nil {
			return Result{}, err
		}
		return Result{Output: RenderSuccess(fmt.Sprintf("test sent to %s: %s", result.DeviceID, result.Status))}, nil

	case "command":
		if len(rest) < 2 {
			return Result{}, bridge.NewInputError("usage: devices command ID JSON")
		}
		var body map[string]any
		if err := json.Unmarshal([]byte(strings.Join(rest[1:], " ")), &body); err != nil {
			return Result{}, bridge.NewInputError(fmt.Sprintf("bad command body: %v", err))
		}
		result, err := c.Client.CommandDevice(rest[0], body)
		if err != nil {
			return Result{}, err
		}
		return Result{Output: RenderSuccess(fmt.Sprintf("command sent to %s: %s", result.DeviceID, result.Status))}, nil

	case "add":
		body, err := parseJSONObject(rest, "usage: devices add JSON")
		if err != nil {
			return Result{}, err
		}
		device, err := c.Client.CreateDevice(body)
		if err != nil {
			return Result{}, err
		}
		return Result{Output: RenderSuccess(fmt.Sprintf("device %s created", device.ID))}, nil

	default:
		return Result{}, bridge.NewInputError(fmt.Sprintf("unknown devices subcommand %q", sub))
	}
}

// parseJSONObject joins the remaining arguments back into one JSON document
// and decodes it. Quoted JSON survives shlex as a single argument; unquoted
// JSON arrives split on spaces.
func parseJSONObject(args []string, usage string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, bridge.NewInputError(usage)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(strings.Join(args, " ")), &body); err != nil {
		return nil, bridge.NewInputError(fmt.Sprintf("bad JSON body: %v", err))
	}
	return body, nil
}

func (c *Commander) cmdMappings(args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, bridge.NewInputError("usage: mappings list|show|add|update|delete")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		out, err := RenderMappings(c.Client, c.width)
		return Result{Output: out}, err

	case "show":
		if len(rest) != 1 {
			return Result{}, bridge.NewInputError("usage: mappings show ID")
		}
		id, err := strconv.Atoi(rest[0])
		if err != nil {
			return Result{}, bridge.NewInputError("mapping ID must be a number")
		}
		out, err := RenderMappingDetail(c.Client, id)
		return Result{Output: out}, err

	case "delete":
		if len(rest) != 1 {
			return Result{}, bridge.NewInputError("usage: mappings delete ID")
		}
		id, err := strconv.Atoi(rest[0])
		if err != nil {
			return Result{}, bridge.NewInputError("mapping ID must be a number")
		}
		if err := c.Client.DeleteMapping(id); err != nil {
			return Result{}, err
		}
		return Result{Output: RenderSuccess(fmt.Sprintf("mapping %d deleted", id))}, nil

	case "add":
		body, err := parseJSONObject(rest, "usage: mappings add JSON")
		if err != nil {
			return Result{}, err
		}
		mapping, err := c.Client.CreateMapping(body)
		if err != nil {
			return Result{}, err
		}
		return Result{Output: RenderSuccess(fmt.Sprintf("mapping %d created (universe %d channel %d)", mapping.ID, mapping.Universe, mapping.Channel))}, nil

	case "update":
		if len(rest) < 2 {
			return Result{}, bridge.NewInputError("usage: mappings update ID JSON")
		}
		id, err := strconv.Atoi(rest[0])
		if err != nil {
			return Result{}, bridge.NewInputError("mapping ID must be a number")
		}
		body, err := parseJSONObject(rest[1:], "usage: mappings update ID JSON")
		if err != nil {
			return Result{}, err
		}
		mapping, err := c.Client.UpdateMapping(id, body)
		if err != nil {
			return Result{}, err
		}
		return Result{Output: RenderSuccess(fmt.Sprintf("mapping %d updated", mapping.ID))}, nil

	default:
		return Result{}, bridge.NewInputError(fmt.Sprintf("unknown mappings subcommand %q", sub))
	}
}

func (c *Commander) cmdChannels(args []string) (Result, error) {
	if len(args) == 0 || args[0] != "list" {
		return Result{}, bridge.NewInputError("usage: channels list [universe...]")
	}

	universes := []int{1}
	if len(args) > 1 {
		universes = universes[:0]
		for _, arg := range args[1:] {
			u, err := strconv.Atoi(arg)
			if err != nil || u < 0 {
				return Result{}, bridge.NewInputError(fmt.Sprintf("bad universe %q", arg))
			}
			universes = append(universes, u)
		}
	}

	out, err := RenderChannels(c.Client, universes, c.width)
	return Result{Output: out}, err
}

func (c *Commander) cmdMonitor(args []string) (Result, error) {
	sub := "dashboard"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "dashboard":
		out, err := RenderDashboard(c.Client, c.width)
		return Result{Output: out}, err
	case "devices":
		out, err := RenderMonitorDevices(c.Client, c.width)
		return Result{Output: out}, err
	case "stats":
		out, err := RenderStats(c.Client)
		return Result{Output: out}, err
	default:
		return Result{}, bridge.NewInputError(fmt.Sprintf("unknown monitor subcommand %q", sub))
	}
}

func (c *Commander) cmdLogs(args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, bridge.NewInputError("usage: logs view|tail|search|events")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "view":
		opts, err := parseLogFlags(rest, false)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: ActionEnterView, Level: opts.level, Logger: opts.logger}, nil

	case "tail":
		opts, err := parseLogFlags(rest, false)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: ActionEnterTail, Level: opts.level, Logger: opts.logger}, nil

	case "search":
		opts, err := parseLogFlags(rest, true)
		if err != nil {
			return Result{}, err
		}
		if opts.pattern == "" {
			return Result{}, bridge.NewInputError("usage: logs search PATTERN [--regex] [--level L] [--logger NAME]")
		}
		return Result{
			Action:  ActionEnterView,
			Level:   opts.level,
			Logger:  opts.logger,
			Pattern: opts.pattern,
			Regex:   opts.regex,
		}, nil

	case "events":
		return Result{Action: ActionEnterEvents}, nil

	default:
		return Result{}, bridge.NewInputError(fmt.Sprintf("unknown logs subcommand %q", sub))
	}
}

func (c *Commander) cmdWatch(args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, bridge.NewInputError("usage: watch devices|mappings|dashboard|logs [interval]")
	}
	target := args[0]
	if !watchTargets[target] {
		return Result{}, bridge.NewInputError(fmt.Sprintf("cannot watch %q", target))
	}

	interval := DefaultWatchInterval
	if len(args) > 1 {
		secs, err := strconv.ParseFloat(args[1], 64)
		if err != nil || secs <= 0 {
			return Result{}, bridge.NewInputError(fmt.Sprintf("bad interval %q", args[1]))
		}
		interval = time.Duration(secs * float64(time.Second))
	}

	return Result{Action: ActionEnterWatch, Target: target, Interval: interval}, nil
}

// WatchRenderer builds the render function Watch mode drives for a
// target. Renderers return their text; nothing writes to the main buffer.
func (c *Commander) WatchRenderer(target string) RenderFunc {
	switch target {
	case "devices":
		return func() (string, error) { return RenderMonitorDevices(c.Client, c.width) }
	case "mappings":
		return func() (string, error) { return RenderMappings(c.Client, c.width) }
	case "logs":
		return func() (string, error) { return RenderRecentLogs(c.Client, c.width) }
	default:
		return func() (string, error) { return RenderDashboard(c.Client, c.width) }
	}
}

// logFlags are the shared --level/--logger (and search) options.
type logFlags struct {
	level   string
	logger  string
	pattern string
	regex   bool
}

func parseLogFlags(args []string, wantPattern bool) (logFlags, error) {
	var out logFlags
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--level":
			if i+1 >= len(args) {
				return out, bridge.NewInputError("--level needs a value")
			}
			i++
			out.level = strings.ToUpper(args[i])
		case "--logger":
			if i+1 >= len(args) {
				return out, bridge.NewInputError("--logger needs a value")
			}
			i++
			out.logger = args[i]
		case "--regex":
			if !wantPattern {
				return out, bridge.NewInputError("--regex only applies to logs search")
			}
			out.regex = true
		default:
			if wantPattern && out.pattern == "" && !strings.HasPrefix(args[i], "--") {
				out.pattern = args[i]
				continue
			}
			return out, bridge.NewInputError(fmt.Sprintf("unknown option %q", args[i]))
		}
	}
	return out, nil
}

// helpTopics maps each verb to its usage summary.
var helpTopics = map[string]string{
	"help":       "help [command] - show commands or one command's usage",
	"connect":    "connect [url] - connect to a bridge (default " + config.DefaultServerURL + ")",
	"disconnect": "disconnect - drop the active server binding",
	"health":     "health - bridge health and subsystem states",
	"status":     "status - raw bridge status dump",
	"devices":    "devices list | show ID | enable ID | disable ID | test ID [JSON] | command ID JSON | add JSON",
	"mappings":   "mappings list | show ID | add JSON | update ID JSON | delete ID",
	"channels":   "channels list [universe...] - DMX channel assignments (default universe 1)",
	"monitor":    "monitor dashboard | devices | stats",
	"logs":       "logs view|tail [--level L] [--logger NAME] | search PATTERN [--regex] | events",
	"watch":      "watch devices|mappings|dashboard|logs [interval-seconds]",
	"reload":     "reload - ask the bridge to reload its configuration",
	"clear":      "clear - wipe the output buffer",
	"exit":       "exit - leave the console (also: quit, ctrl+d)",
}

var helpOrder = []string{
	"help", "connect", "disconnect", "health", "status",
	"devices", "mappings", "channels", "monitor",
	"logs", "watch", "reload", "clear", "exit",
}

func (c *Commander) helpText(args []string) string {
	if len(args) > 0 {
		topic := args[0]
		if topic == "quit" {
			topic = "exit"
		}
		if usage, ok := helpTopics[topic]; ok {
			return usage
		}
		return RenderError(fmt.Sprintf("no help for %q", args[0]))
	}

	var b strings.Builder
	b.WriteString(ModeTitleStyle.Render("Commands") + "\n")
	for _, verb := range helpOrder {
		b.WriteString("  " + helpTopics[verb] + "\n")
	}
	b.WriteString(SubtleTextStyle.Render("Keys: ctrl+l clear, ctrl+t follow, pgup/pgdn scroll, ctrl+d exit"))
	return b.String()
}

// deviceStatus reduces a device's flags to one display word.
func deviceStatus(d bridge.Device) string {
	switch {
	case d.Offline:
		return "offline"
	case !d.Configured:
		return "unconfigured"
	case !d.Enabled:
		return "disabled"
	case d.Stale:
		return "stale"
	default:
		return "online"
	}
}

// RenderHealth fetches and formats GET /health.
func RenderHealth(client *bridge.Client) (string, error) {
	health, err := client.Health()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if health.OK() {
		b.WriteString(RenderSuccess("bridge status: " + health.Status))
	} else {
		b.WriteString(RenderError("bridge status: " + health.Status))
	}

	names := make([]string, 0, len(health.Subsystems))
	for name := range health.Subsystems {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sub := health.Subsystems[name]
		line := fmt.Sprintf("\n  %-12s %s", name, sub.Status)
		if sub.Message != "" {
			line += "  " + SubtleTextStyle.Render(sub.Message)
		}
		b.WriteString(line)
	}
	return b.String(), nil
}

// RenderStats fetches GET /status and dumps it as sorted key/value lines,
// with nested sections indented one level.
func RenderStats(client *bridge.Client) (string, error) {
	status, err := client.Status()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(ModeTitleStyle.Render("Bridge status"))
	keys := make([]string, 0, len(status))
	for key := range status {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := status[key]
		if section, ok := value.(map[string]any); ok {
			b.WriteString("\n" + key + ":")
			subKeys := make([]string, 0, len(section))
			for k := range section {
				subKeys = append(subKeys, k)
			}
			sort.Strings(subKeys)
			for _, k := range subKeys {
				b.WriteString(fmt.Sprintf("\n  %-20s %v", k, section[k]))
			}
			continue
		}
		b.WriteString(fmt.Sprintf("\n%-22s %v", key, value))
	}
	return b.String(), nil
}

// RenderDevices fetches and formats the device table.
func RenderDevices(client *bridge.Client, width int) (string, error) {
	devices, err := client.ListDevices()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return SubtleTextStyle.Render("no devices"), nil
	}

	sortDevices(devices)
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{
			d.ID, d.DeviceType, d.ModelNumber, d.IP, deviceStatus(d), d.Description,
		})
	}
	table := Table([]string{"ID", "TYPE", "MODEL", "IP", "STATUS", "DESCRIPTION"}, rows, width, tableBudget)
	return table + "\n" + deviceSummary(devices), nil
}

// RenderDeviceDetail fetches one device and formats its full record.
func RenderDeviceDetail(client *bridge.Client, id string) (string, error) {
	d, err := client.GetDevice(id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(ModeTitleStyle.Render("Device "+d.ID) + "\n")
	field := func(name, value string) {
		if value != "" {
			b.WriteString(fmt.Sprintf("  %-14s %s\n", name, value))
		}
	}
	field("type", d.DeviceType)
	field("model", d.ModelNumber)
	field("ip", d.IP)
	field("description", d.Description)
	field("status", deviceStatus(*d))
	field("enabled", strconv.FormatBool(d.Enabled))
	field("configured", strconv.FormatBool(d.Configured))
	field("discovered", strconv.FormatBool(d.Discovered))
	if d.Manual {
		field("manual", "true")
	}
	if d.LEDCount > 0 {
		field("led count", strconv.Itoa(d.LEDCount))
	}
	if d.SegmentCount > 0 {
		field("segments", strconv.Itoa(d.SegmentCount))
	}
	if d.LengthMeters > 0 {
		field("length", fmt.Sprintf("%.1fm", d.LengthMeters))
	}
	var caps []string
	if d.Capabilities.Color {
		caps = append(caps, "color")
	}
	if d.Capabilities.Brightness {
		caps = append(caps, "brightness")
	}
	if d.Capabilities.Temperature {
		caps = append(caps, "temperature")
	}
	if len(caps) > 0 {
		field("capabilities", strings.Join(caps, ", "))
	}
	field("last seen", d.LastSeen)
	field("first seen", d.FirstSeen)
	return strings.TrimRight(b.String(), "\n"), nil
}

// RenderMappings fetches and formats the mapping table.
func RenderMappings(client *bridge.Client, width int) (string, error) {
	mappings, err := client.ListMappings()
	if err != nil {
		return "", err
	}
	if len(mappings) == 0 {
		return SubtleTextStyle.Render("no mappings"), nil
	}

	sort.Slice(mappings, func(i, j int) bool {
		if mappings[i].Universe != mappings[j].Universe {
			return mappings[i].Universe < mappings[j].Universe
		}
		return mappings[i].Channel < mappings[j].Channel
	})

	rows := make([][]string, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, []string{
			strconv.Itoa(m.ID),
			m.DeviceID,
			strconv.Itoa(m.Universe),
			strconv.Itoa(m.Channel),
			strconv.Itoa(m.Length),
			mappingFieldsLabel(m),
		})
	}
	table := Table([]string{"ID", "DEVICE", "UNIVERSE", "CHANNEL", "LENGTH", "FIELDS"}, rows, width, tableBudget)
	return table + "\n" + SubtleTextStyle.Render(fmt.Sprintf("Total: %d mapping(s)", len(mappings))), nil
}

// RenderMappingDetail fetches one mapping and formats its record.
func RenderMappingDetail(client *bridge.Client, id int) (string, error) {
	m, err := client.GetMapping(id)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(ModeTitleStyle.Render(fmt.Sprintf("Mapping %d", m.ID)) + "\n")
	b.WriteString(fmt.Sprintf("  %-10s %s\n", "device", m.DeviceID))
	b.WriteString(fmt.Sprintf("  %-10s %d\n", "universe", m.Universe))
	b.WriteString(fmt.Sprintf("  %-10s %d\n", "channel", m.Channel))
	b.WriteString(fmt.Sprintf("  %-10s %d\n", "length", m.Length))
	b.WriteString(fmt.Sprintf("  %-10s %s", "fields", mappingFieldsLabel(*m)))
	return b.String(), nil
}

func mappingFieldsLabel(m bridge.Mapping) string {
	if len(m.Fields) > 0 {
		return strings.Join(m.Fields, "+")
	}
	if m.Field != "" {
		return m.Field
	}
	return m.MappingType
}

// templateFunctions names the per-channel functions for known field
// templates; the key is the lowercased concatenation of the fields list.
var templateFunctions = map[string][]string{
	"rgb":        {"Red", "Green", "Blue"},
	"rgbw":       {"Red", "Green", "Blue", "White"},
	"rgbww":      {"Red", "Green", "Blue", "Warm White", "Cool White"},
	"brightness": {"Dimmer"},
	"dimmer":     {"Dimmer"},
	"cct":        {"Color Temp", "Dimmer"},
	"rgbcct":     {"Red", "Green", "Blue", "Color Temp", "Dimmer"},
}

// fieldDisplay maps single field names to display names when no template
// matches.
var fieldDisplay = map[string]string{
	"r":           "Red",
	"g":           "Green",
	"b":           "Blue",
	"w":           "White",
	"brightness":  "Dimmer",
	"temperature": "Color Temp",
	"ct":          "Color Temp",
}

// channelFunctions expands a mapping's fields into one function name per
// channel. Unknown shapes fall back to Ch1..ChN.
func channelFunctions(m bridge.Mapping) []string {
	fields := m.Fields
	if len(fields) == 0 && m.Field != "" {
		fields = []string{m.Field}
	}

	key := strings.ToLower(strings.Join(fields, ""))
	if functions, ok := templateFunctions[key]; ok {
		return functions
	}
	if len(fields) > 0 {
		functions := make([]string, len(fields))
		for i, f := range fields {
			if display, ok := fieldDisplay[strings.ToLower(f)]; ok {
				functions[i] = display
			} else {
				functions[i] = strings.ToUpper(f[:1]) + f[1:]
			}
		}
		return functions
	}
	functions := make([]string, m.Length)
	for i := range functions {
		functions[i] = fmt.Sprintf("Ch%d", i+1)
	}
	return functions
}

// channelRow is one populated DMX channel.
type channelRow struct {
	universe  int
	channel   int
	deviceID  string
	function  string
	mappingID int
}

// RenderChannels derives the channel assignment table for the given
// universes from the mapping and device lists.
func RenderChannels(client *bridge.Client, universes []int, width int) (string, error) {
	mappings, err := client.ListMappings()
	if err != nil {
		return "", err
	}
	devices, err := client.ListDevices()
	if err != nil {
		return "", err
	}

	wanted := make(map[int]bool, len(universes))
	for _, u := range universes {
		wanted[u] = true
	}
	deviceByID := make(map[string]bridge.Device, len(devices))
	for _, d := range devices {
		deviceByID[d.ID] = d
	}

	var channels []channelRow
	for _, m := range mappings {
		if !wanted[m.Universe] {
			continue
		}
		functions := channelFunctions(m)
		for i := 0; i < m.Length; i++ {
			num := m.Channel + i
			if num < 1 || num > 512 {
				continue
			}
			function := fmt.Sprintf("Ch%d", i+1)
			if i < len(functions) {
				function = functions[i]
			}
			channels = append(channels, channelRow{
				universe:  m.Universe,
				channel:   num,
				deviceID:  m.DeviceID,
				function:  function,
				mappingID: m.ID,
			})
		}
	}

	sorted := make([]int, 0, len(wanted))
	for u := range wanted {
		sorted = append(sorted, u)
	}
	sort.Ints(sorted)
	labels := make([]string, len(sorted))
	for i, u := range sorted {
		labels[i] = strconv.Itoa(u)
	}
	universeLabel := strings.Join(labels, ", ")

	if len(channels) == 0 {
		return SubtleTextStyle.Render("no channels populated for universe(s) " + universeLabel), nil
	}

	sort.Slice(channels, func(i, j int) bool {
		if channels[i].universe != channels[j].universe {
			return channels[i].universe < channels[j].universe
		}
		return channels[i].channel < channels[j].channel
	})

	rows := make([][]string, 0, len(channels))
	minCh, maxCh := channels[0].channel, channels[0].channel
	for _, ch := range channels {
		if ch.channel < minCh {
			minCh = ch.channel
		}
		if ch.channel > maxCh {
			maxCh = ch.channel
		}
		ip := ""
		if d, ok := deviceByID[ch.deviceID]; ok {
			ip = d.IP
		}
		rows = append(rows, []string{
			strconv.Itoa(ch.universe),
			strconv.Itoa(ch.channel),
			ch.deviceID,
			ip,
			ch.function,
			strconv.Itoa(ch.mappingID),
		})
	}

	var b strings.Builder
	b.WriteString(ModeTitleStyle.Render("Art-Net channels, universe "+universeLabel) + "\n")
	b.WriteString(Table([]string{"UNIVERSE", "CHANNEL", "DEVICE", "IP", "FUNCTION", "MAPPING"}, rows, width, tableBudget))
	b.WriteString("\n" + SubtleTextStyle.Render(fmt.Sprintf("Total: %d populated channel(s)", len(channels))))
	b.WriteString("\n" + SubtleTextStyle.Render(fmt.Sprintf("Channel range: %d - %d", minCh, maxCh)))
	return b.String(), nil
}

// RenderDashboard formats the monitor dashboard: health plus device and
// mapping summaries.
func RenderDashboard(client *bridge.Client, width int) (string, error) {
	var b strings.Builder
	b.WriteString(ModeTitleStyle.Render("Bridge dashboard") + "\n")

	health, err := client.Health()
	if err != nil {
		return "", err
	}
	if health.OK() {
		b.WriteString(RenderSuccess("health: "+health.Status) + "\n")
	} else {
		b.WriteString(RenderError("health: "+health.Status) + "\n")
	}
	names := make([]string, 0, len(health.Subsystems))
	for name := range health.Subsystems {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(fmt.Sprintf("  %-12s %s\n", name, health.Subsystems[name].Status))
	}

	devices, err := client.ListDevices()
	if err != nil {
		return "", err
	}
	mappings, err := client.ListMappings()
	if err != nil {
		return "", err
	}

	online := 0
	for _, d := range devices {
		if !d.Offline {
			online++
		}
	}
	b.WriteString(fmt.Sprintf("\nDevices: %d total, %d online, %d offline\n",
		len(devices), online, len(devices)-online))
	b.WriteString(fmt.Sprintf("Mappings: %d configured\n", len(mappings)))

	if len(devices) > 0 {
		sortDevices(devices)
		rows := make([][]string, 0, len(devices))
		for _, d := range devices {
			rows = append(rows, []string{d.ID, d.DeviceType, deviceStatus(d)})
		}
		b.WriteString(Table([]string{"ID", "TYPE", "STATUS"}, rows, width, tableBudget))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// RenderMonitorDevices formats the device monitor table with totals.
func RenderMonitorDevices(client *bridge.Client, width int) (string, error) {
	devices, err := client.ListDevices()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return SubtleTextStyle.Render("no devices"), nil
	}

	sortDevices(devices)
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{d.ID, d.IP, deviceStatus(d), d.LastSeen})
	}
	table := Table([]string{"ID", "IP", "STATUS", "LAST SEEN"}, rows, width, tableBudget)
	return table + "\n" + deviceSummary(devices), nil
}

// RenderRecentLogs fetches the newest page of logs for watch mode.
func RenderRecentLogs(client *bridge.Client, width int) (string, error) {
	page, err := client.GetLogs(bridge.LogQuery{Limit: 20})
	if err != nil {
		return "", err
	}
	if len(page.Logs) == 0 {
		return SubtleTextStyle.Render("no log entries"), nil
	}
	recent := page.Logs
	if page.Total > len(recent) {
		// Newest entries live at the tail of the backlog
		last, err := client.GetLogs(bridge.LogQuery{Limit: 20, Offset: page.Total - 20})
		if err == nil && len(last.Logs) > 0 {
			recent = last.Logs
		}
	}
	return RenderLogTable(recent, width, tableBudget), nil
}

// sortDevices orders online devices first, then by ID.
func sortDevices(devices []bridge.Device) {
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Offline != devices[j].Offline {
			return !devices[i].Offline
		}
		return devices[i].ID < devices[j].ID
	})
}

func deviceSummary(devices []bridge.Device) string {
	online, offline := 0, 0
	for _, d := range devices {
		if d.Offline {
			offline++
		} else {
			online++
		}
	}
	return SubtleTextStyle.Render(fmt.Sprintf("Total: %d devices | %d online | %d offline",
		len(devices), online, offline))
}
