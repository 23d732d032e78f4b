package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"stm32io/protocol"
)

func TestDictionary(t *testing.T) {
	reg := NewCommandRegistry()
	dict := NewDictionary(reg)

	dict.AddConstant("TEST_CONST", uint32(42))
	dict.AddConstant("TEST_STR", "hello")
	dict.AddEnumeration("test_pins", []string{"PA0", "", "PA2"})
	reg.Register("identify_response", "offset=%u data=%*s", nil)
	reg.Register("test_cmd", "arg=%u", func(data *[]byte) error { return nil })

	output := dict.Generate()
	t.Log("Generated dictionary:\n" + string(output))

	var parsed struct {
		Version      string                    `json:"version"`
		Config       map[string]string         `json:"config"`
		Commands     map[string]int            `json:"commands"`
		Responses    map[string]int            `json:"responses"`
		Enumerations map[string]map[string]int `json:"enumerations"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		t.Fatalf("dictionary is not valid JSON: %v", err)
	}

	if parsed.Version != "stm32io-"+protocol.Version {
		t.Errorf("version = %q", parsed.Version)
	}
	if parsed.Config["TEST_CONST"] != "42" || parsed.Config["TEST_STR"] != "hello" {
		t.Errorf("config = %v", parsed.Config)
	}
	if parsed.Commands["test_cmd arg=%u"] != 1 {
		t.Errorf("commands = %v", parsed.Commands)
	}
	if id, ok := parsed.Responses["identify_response offset=%u data=%*s"]; !ok || id != 0 {
		t.Errorf("responses = %v", parsed.Responses)
	}
	pins := parsed.Enumerations["test_pins"]
	if pins["PA0"] != 0 || pins["PA2"] != 2 || len(pins) != 2 {
		t.Errorf("test_pins = %v", pins)
	}
}

func TestDictionaryEscapes(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	dict.AddConstant("QUOTED", `a"b\c`)

	var parsed struct {
		Config map[string]string `json:"config"`
	}
	if err := json.Unmarshal(dict.Generate(), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Config["QUOTED"] != `a"b\c` {
		t.Errorf("QUOTED = %q", parsed.Config["QUOTED"])
	}
}

func TestDictionaryCache(t *testing.T) {
	reg := NewCommandRegistry()
	dict := NewDictionary(reg)
	dict.BuildDictionary()
	built := dict.Generate()

	// Registration after the build is not visible until the cache is
	// invalidated.
	reg.Register("late_cmd", "", func(*[]byte) error { return nil })
	if !bytes.Equal(dict.Generate(), built) {
		t.Error("cached dictionary changed without a rebuild")
	}

	dict.AddConstant("X", 1)
	if !strings.Contains(string(dict.Generate()), "late_cmd") {
		t.Error("cache not invalidated by AddConstant")
	}
}

func TestDictionaryChunks(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	dict.AddConstant("TEST", uint32(123))
	full := dict.Generate()

	var rebuilt []byte
	for offset := uint32(0); ; {
		chunk := dict.GetChunk(offset, 10)
		if len(chunk) == 0 {
			break
		}
		if len(chunk) > 10 {
			t.Fatalf("chunk too large: %d bytes", len(chunk))
		}
		rebuilt = append(rebuilt, chunk...)
		offset += uint32(len(chunk))
	}
	if !bytes.Equal(rebuilt, full) {
		t.Error("chunks do not reassemble to the dictionary")
	}

	if chunk := dict.GetChunk(uint32(len(full)+100), 10); len(chunk) != 0 {
		t.Error("Chunk beyond end should be empty")
	}
}

func TestIdentifyServesChunks(t *testing.T) {
	h := newHarness(t)

	full := GetGlobalDictionary().Generate()
	h.mustRun("identify", 0, 40)

	raw := h.out.Result()
	payload := raw[protocol.MessageHeaderSize : int(raw[0])-protocol.MessageTrailerSize]
	id, _ := protocol.DecodeVLQUint(&payload)
	offset, _ := protocol.DecodeVLQUint(&payload)
	data, err := protocol.DecodeVLQBytes(&payload)
	if err != nil {
		t.Fatalf("decode identify_response: %v", err)
	}
	if id != 0 || offset != 0 {
		t.Errorf("id=%d offset=%d", id, offset)
	}
	if !bytes.Equal(data, full[:40]) {
		t.Errorf("chunk = %q, want %q", data, full[:40])
	}
}

func TestInitCoreCommands(t *testing.T) {
	required := []string{
		"identify", "get_uptime", "get_clock", "get_config", "config_reset",
		"finalize_config", "allocate_oids", "emergency_stop", "reset",
		"config_digital_out", "queue_digital_out", "update_digital_out",
		"set_digital_out_pwm_cycle", "config_digital_in", "query_digital_in",
		"config_gpio_port", "set_gpio_port", "query_gpio_port",
	}
	for _, name := range required {
		cmd, ok := GetGlobalRegistry().GetCommandByName(name)
		if !ok || cmd.Handler == nil {
			t.Errorf("command not registered: %s", name)
		}
	}
	for _, name := range []string{"identify_response", "clock", "uptime", "config", "shutdown", "digital_in_state", "gpio_port_state"} {
		cmd, ok := GetGlobalRegistry().GetCommandByName(name)
		if !ok || cmd.Handler != nil {
			t.Errorf("response not registered: %s", name)
		}
	}

	dictStr := string(GetGlobalDictionary().Generate())
	if !strings.Contains(dictStr, `"STATS_SUMSQ_BASE":"256"`) {
		t.Error("STATS_SUMSQ_BASE constant not registered")
	}
	if !strings.Contains(dictStr, `"Command request":0`) {
		t.Error("static_string_id enumeration missing")
	}
}

func TestClockAndUptime(t *testing.T) {
	h := newHarness(t)

	SetTime(0xFFFFFF00)
	SetTime(0x10) // counter wrapped
	h.mustRun("get_clock")
	h.mustRun("get_uptime")

	r := h.responses()
	if len(r) != 2 {
		t.Fatalf("got %d responses", len(r))
	}
	if r[0].name != "clock" || r[0].args[0] != 0x10 {
		t.Errorf("clock = %+v", r[0])
	}
	if r[1].name != "uptime" || r[1].args[0] != 1 || r[1].args[1] != 0x10 {
		t.Errorf("uptime = %+v", r[1])
	}
}
