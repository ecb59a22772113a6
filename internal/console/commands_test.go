package console

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
)

// bridgeServer fakes the subset of the REST surface the commands hit.
func bridgeServer(t *testing.T) *httptest.Server {
	t.Helper()

	devices := []bridge.Device{
		{ID: "AA:BB:01", DeviceType: "strip", ModelNumber: "H6159", IP: "10.0.0.11",
			Enabled: true, Configured: true},
		{ID: "AA:BB:02", DeviceType: "bulb", ModelNumber: "H6003", IP: "10.0.0.12",
			Enabled: true},
		{ID: "AA:BB:03", DeviceType: "strip", IP: "10.0.0.13", Offline: true},
	}
	mappings := []bridge.Mapping{
		{ID: 1, DeviceID: "AA:BB:01", Universe: 1, Channel: 1, Length: 3,
			MappingType: "template", Fields: []string{"r", "g", "b"}},
		{ID: 2, DeviceID: "AA:BB:02", Universe: 1, Channel: 4, Length: 1,
			MappingType: "single", Field: "brightness"},
		{ID: 3, DeviceID: "AA:BB:03", Universe: 2, Channel: 1, Length: 4,
			MappingType: "template", Fields: []string{"r", "g", "b", "w"}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			id, _ := body["id"].(string)
			json.NewEncoder(w).Encode(bridge.Device{ID: id, Enabled: true})
			return
		}
		json.NewEncoder(w).Encode(devices)
	})
	mux.HandleFunc("/devices/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/test"), strings.HasSuffix(r.URL.Path, "/command"):
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			json.NewEncoder(w).Encode(bridge.CommandResult{Status: "sent", DeviceID: "AA:BB:01"})
		case r.Method == http.MethodPatch:
			json.NewEncoder(w).Encode(bridge.Device{ID: "AA:BB:03", Enabled: true})
		default:
			json.NewEncoder(w).Encode(devices[0])
		}
	})
	mux.HandleFunc("/mappings", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			created := bridge.Mapping{ID: 4, Universe: 3, Channel: 1}
			if u, ok := body["universe"].(float64); ok {
				created.Universe = int(u)
			}
			if ch, ok := body["channel"].(float64); ok {
				created.Channel = int(ch)
			}
			json.NewEncoder(w).Encode(created)
			return
		}
		json.NewEncoder(w).Encode(mappings)
	})
	mux.HandleFunc("/mappings/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(mappings[0])
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(bridge.Health{
			Status: "ok",
			Subsystems: map[string]bridge.Subsystem{
				"artnet": {Status: "ok"},
				"dmx":    {Status: "ok"},
			},
		})
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"uptime_seconds": 321,
			"artnet":         map[string]any{"packets": 1000, "universes": 2},
		})
	})
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(bridge.LogsPage{
			Logs:  []bridge.LogEntry{{Level: "INFO", Message: "hello"}},
			Total: 1,
		})
	})
	mux.HandleFunc("/reload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(bridge.ReloadResult{Status: "reloaded"})
	})
	return httptest.NewServer(mux)
}

func testCommander(t *testing.T) (*Commander, *httptest.Server) {
	srv := bridgeServer(t)
	t.Cleanup(srv.Close)
	return NewCommander(bridge.NewClient(srv.URL, ""), nil), srv
}

func TestExecuteUnknownVerb(t *testing.T) {
	c, _ := testCommander(t)
	_, err := c.Execute("frobnicate all")
	if !bridge.IsInputError(err) {
		t.Fatalf("want input error, got %v", err)
	}
}

func TestExecuteEmptyLine(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute("   ")
	if err != nil || result.Output != "" || result.Action != ActionNone {
		t.Fatalf("empty line should be a no-op, got %+v, %v", result, err)
	}
}

func TestExecuteQuoting(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute(`devices command AA:BB:01 '{"brightness": 50}'`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, "command sent") {
		t.Fatalf("output = %q", result.Output)
	}

	if _, err := c.Execute(`devices command AA:BB:01 '{"unterminated`); !bridge.IsInputError(err) {
		t.Fatalf("unterminated quote should be an input error, got %v", err)
	}
}

func TestMonitorDevicesSummary(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute("monitor devices")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Total: 3 devices", "2 online", "1 offline"} {
		if !strings.Contains(result.Output, want) {
			t.Fatalf("output missing %q:\n%s", want, result.Output)
		}
	}
	// Online devices sort before the offline one
	if strings.Index(result.Output, "AA:BB:03") < strings.Index(result.Output, "AA:BB:01") {
		t.Fatal("offline device should sort last")
	}
}

func TestChannelsTemplateExpansion(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute("channels list")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Red", "Green", "Blue", "Dimmer", "Total: 4 populated channel(s)", "Channel range: 1 - 4"} {
		if !strings.Contains(result.Output, want) {
			t.Fatalf("output missing %q:\n%s", want, result.Output)
		}
	}
	// Universe 2 not requested
	if strings.Contains(result.Output, "AA:BB:03") {
		t.Fatal("universe 2 mapping should be filtered out")
	}
}

func TestChannelsMultipleUniverses(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute("channels list 1 2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, "universe 1, 2") {
		t.Fatalf("missing universe label:\n%s", result.Output)
	}
	if !strings.Contains(result.Output, "White") {
		t.Fatal("rgbw template should expand a White channel")
	}
	if !strings.Contains(result.Output, "Total: 8 populated channel(s)") {
		t.Fatalf("want 8 channels across universes:\n%s", result.Output)
	}
}

func TestChannelFunctionsFallbacks(t *testing.T) {
	got := channelFunctions(bridge.Mapping{Fields: []string{"r", "x"}})
	if got[0] != "Red" || got[1] != "X" {
		t.Fatalf("fallback expansion = %v", got)
	}

	got = channelFunctions(bridge.Mapping{Length: 2})
	if got[0] != "Ch1" || got[1] != "Ch2" {
		t.Fatalf("bare mapping expansion = %v", got)
	}

	got = channelFunctions(bridge.Mapping{Field: "brightness", Length: 1})
	if got[0] != "Dimmer" {
		t.Fatalf("single field expansion = %v", got)
	}
}

func TestHealthCommand(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute("health")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"bridge status: ok", "artnet", "dmx"} {
		if !strings.Contains(result.Output, want) {
			t.Fatalf("output missing %q:\n%s", want, result.Output)
		}
	}
}

func TestStatusCommand(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute("status")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"uptime_seconds", "321", "packets", "1000"} {
		if !strings.Contains(result.Output, want) {
			t.Fatalf("output missing %q:\n%s", want, result.Output)
		}
	}
}

func TestDevicesList(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute("devices list")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"AA:BB:01", "H6159", "online", "offline", "unconfigured"} {
		if !strings.Contains(result.Output, want) {
			t.Fatalf("output missing %q:\n%s", want, result.Output)
		}
	}
}

func TestDevicesShow(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute("devices show AA:BB:01")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Device AA:BB:01", "strip", "10.0.0.11"} {
		if !strings.Contains(result.Output, want) {
			t.Fatalf("output missing %q:\n%s", want, result.Output)
		}
	}
}

func TestMappingsDelete(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute("mappings delete 2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, "mapping 2 deleted") {
		t.Fatalf("output = %q", result.Output)
	}

	if _, err := c.Execute("mappings delete two"); !bridge.IsInputError(err) {
		t.Fatalf("non-numeric ID should be an input error, got %v", err)
	}
}

func TestMappingsAddAndUpdate(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute(`mappings add '{"device_id": "AA:BB:02", "universe": 2, "channel": 10, "length": 3}'`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, "mapping 4 created (universe 2 channel 10)") {
		t.Fatalf("output = %q", result.Output)
	}

	result, err = c.Execute(`mappings update 1 '{"channel": 20}'`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, "mapping 1 updated") {
		t.Fatalf("output = %q", result.Output)
	}

	if _, err := c.Execute("mappings add not-json"); !bridge.IsInputError(err) {
		t.Fatalf("malformed body should be an input error, got %v", err)
	}
	if _, err := c.Execute("mappings update 1"); !bridge.IsInputError(err) {
		t.Fatalf("missing body should be an input error, got %v", err)
	}
}

func TestDevicesAdd(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute(`devices add '{"id": "AA:BB:04", "device_type": "strip", "ip": "10.0.0.14"}'`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, "device AA:BB:04 created") {
		t.Fatalf("output = %q", result.Output)
	}
}

func TestReloadCommand(t *testing.T) {
	c, _ := testCommander(t)
	result, err := c.Execute("reload")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, "reload: reloaded") {
		t.Fatalf("output = %q", result.Output)
	}
}

func TestLogsModeEntry(t *testing.T) {
	c, _ := testCommander(t)

	result, err := c.Execute("logs tail --level error --logger artnet.rx")
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != ActionEnterTail || result.Level != "ERROR" || result.Logger != "artnet.rx" {
		t.Fatalf("tail result = %+v", result)
	}

	result, err = c.Execute("logs view")
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != ActionEnterView || result.Pattern != "" {
		t.Fatalf("view result = %+v", result)
	}

	result, err = c.Execute(`logs search "universe 0" --regex`)
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != ActionEnterView || result.Pattern != "universe 0" || !result.Regex {
		t.Fatalf("search result = %+v", result)
	}

	if _, err := c.Execute("logs search"); !bridge.IsInputError(err) {
		t.Fatalf("search without pattern should be an input error, got %v", err)
	}

	result, err = c.Execute("logs events")
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != ActionEnterEvents {
		t.Fatalf("events result = %+v", result)
	}
}

func TestWatchCommand(t *testing.T) {
	c, _ := testCommander(t)

	result, err := c.Execute("watch devices 1.5")
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != ActionEnterWatch || result.Target != "devices" {
		t.Fatalf("watch result = %+v", result)
	}
	if result.Interval != 1500*time.Millisecond {
		t.Fatalf("interval = %s, want 1.5s", result.Interval)
	}

	result, err = c.Execute("watch dashboard")
	if err != nil {
		t.Fatal(err)
	}
	if result.Interval != DefaultWatchInterval {
		t.Fatalf("default interval = %s", result.Interval)
	}

	if _, err := c.Execute("watch everything"); !bridge.IsInputError(err) {
		t.Fatalf("bad target should be an input error, got %v", err)
	}
	if _, err := c.Execute("watch devices fast"); !bridge.IsInputError(err) {
		t.Fatalf("bad interval should be an input error, got %v", err)
	}
}

func TestWatchRendererUsesReturnValues(t *testing.T) {
	c, _ := testCommander(t)
	render := c.WatchRenderer("devices")
	out, err := render()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Total: 3 devices") {
		t.Fatalf("watch render output:\n%s", out)
	}
}

func TestHelpCommand(t *testing.T) {
	c, _ := testCommander(t)

	result, err := c.Execute("help")
	if err != nil {
		t.Fatal(err)
	}
	for _, verb := range helpOrder {
		if !strings.Contains(result.Output, verb) {
			t.Fatalf("help missing %q", verb)
		}
	}

	result, err = c.Execute("help watch")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, "watch devices|mappings|dashboard|logs") {
		t.Fatalf("help watch = %q", result.Output)
	}
}

func TestApiErrorSurfacesImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "universe overflow", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewCommander(bridge.NewClient(srv.URL, ""), nil)
	_, err := c.Execute("devices list")
	if !bridge.IsAPIError(err) {
		t.Fatalf("want API error, got %v", err)
	}
	if !strings.Contains(bridge.ShortMessage(err), "universe overflow") {
		t.Fatalf("error should carry the body: %v", err)
	}
}
