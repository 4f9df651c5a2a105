package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/warden/internal/host"
)

// Scenario is one scripted run.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Host is the application state before the engine loads.
	Host HostSetup `yaml:"host"`

	// Stored is the persisted state blob the engine starts from.
	Stored map[string]any `yaml:"stored,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// HostSetup describes the subject and its surroundings.
type HostSetup struct {
	Member            int64            `yaml:"member"`
	Name              string           `yaml:"name"`
	Money             *int64           `yaml:"money,omitempty"`
	Arousal           *int64           `yaml:"arousal,omitempty"`
	LoadedBeforeLogin bool             `yaml:"loaded_before_login,omitempty"`
	Markers           []string         `yaml:"markers,omitempty"`
	Access            map[int64]string `yaml:"access,omitempty"`
	Room              *RoomStep        `yaml:"room,omitempty"`
	Settings          map[string]any   `yaml:"settings,omitempty"`
	Items             []ItemStep       `yaml:"items,omitempty"`
}

// Step is one action. Exactly one field other than Expect is set.
type Step struct {
	AddRule    string         `yaml:"add_rule,omitempty"`
	RemoveRule string         `yaml:"remove_rule,omitempty"`
	SetActive  *SetActiveStep `yaml:"set_active,omitempty"`
	Configure  *ConfigureStep `yaml:"configure,omitempty"`
	Advance    string         `yaml:"advance,omitempty"`
	Sweep      int            `yaml:"sweep,omitempty"`
	Call       *CallStep      `yaml:"call,omitempty"`
	Whisper    *WhisperStep   `yaml:"whisper,omitempty"`
	Money      *int64         `yaml:"money,omitempty"`
	Arousal    *int64         `yaml:"arousal,omitempty"`
	Room       *RoomStep      `yaml:"room,omitempty"`
	LeaveRoom  bool           `yaml:"leave_room,omitempty"`
	Wear       *ItemStep      `yaml:"wear,omitempty"`
	Remove     string         `yaml:"remove,omitempty"`
	Setting    *SettingStep   `yaml:"setting,omitempty"`

	// Expect is "error" when the step must fail.
	Expect string `yaml:"expect,omitempty"`
}

// SetActiveStep toggles a rule. With Actor it goes through the
// permission check a remote member is subject to.
type SetActiveStep struct {
	Rule   string `yaml:"rule"`
	Active bool   `yaml:"active"`
	Actor  *int64 `yaml:"actor,omitempty"`
}

// ConfigureStep writes rule configuration.
type ConfigureStep struct {
	Rule    string         `yaml:"rule"`
	Data    map[string]any `yaml:"data,omitempty"`
	Enforce *bool          `yaml:"enforce,omitempty"`
	Log     *bool          `yaml:"log,omitempty"`
}

// CallStep invokes an intercepted host operation. Which fields matter
// depends on the operation.
type CallStep struct {
	Op     string `yaml:"op"`
	Member int64  `yaml:"member,omitempty"`
	Ruined bool   `yaml:"ruined,omitempty"`
	Group  string `yaml:"group,omitempty"`
	Asset  string `yaml:"asset,omitempty"`
	// RemoveIn is the requested timer, relative to now.
	RemoveIn string `yaml:"remove_in,omitempty"`
	Actor    int64  `yaml:"actor,omitempty"`
}

// WhisperStep delivers a whisper to the subject.
type WhisperStep struct {
	From int64  `yaml:"from"`
	Text string `yaml:"text"`
}

// RoomStep places the subject in a chat room.
type RoomStep struct {
	Name    string  `yaml:"name"`
	Public  bool    `yaml:"public,omitempty"`
	Members []int64 `yaml:"members,omitempty"`
}

// ItemStep puts on a timer-locked item.
type ItemStep struct {
	Group       string `yaml:"group"`
	Asset       string `yaml:"asset"`
	RemoveIn    string `yaml:"remove_in"`
	MaxDuration string `yaml:"max_duration,omitempty"`
}

// SettingStep changes a host setting. Value is a bool or an integer.
type SettingStep struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

// Assertion checks the outcome of a scenario.
type Assertion struct {
	Type string `yaml:"type"`

	Rule  string   `yaml:"rule,omitempty"`
	Kind  string   `yaml:"kind,omitempty"`
	Text  string   `yaml:"text,omitempty"`
	Count *int     `yaml:"count,omitempty"`
	Rules []string `yaml:"rules,omitempty"`

	// rule_state fields.
	Active       *bool          `yaml:"active,omitempty"`
	InEffect     *bool          `yaml:"in_effect,omitempty"`
	CustomData   map[string]any `yaml:"custom_data,omitempty"`
	InternalData any            `yaml:"internal_data,omitempty"`

	// setting fields.
	Key   string `yaml:"key,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertTriggerCount    = "trigger_count"
	AssertTriggerContains = "trigger_contains"
	AssertTriggerOrder    = "trigger_order"
	AssertMessageContains = "message_contains"
	AssertRuleState       = "rule_state"
	AssertSetting         = "setting"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Host.Member <= 0 {
		return fmt.Errorf("host.member is required")
	}
	if s.Host.Name == "" {
		return fmt.Errorf("host.name is required")
	}
	for member, level := range s.Host.Access {
		if _, err := host.ParseAccessLevel(level); err != nil {
			return fmt.Errorf("host.access[%d]: %w", member, err)
		}
	}
	for i, item := range s.Host.Items {
		if err := validateItem(item); err != nil {
			return fmt.Errorf("host.items[%d]: %w", i, err)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Steps {
		if err := validateStep(&s.Steps[i]); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// kind names the action a step sets, or "" when it sets none or several.
func (s *Step) kind() string {
	set := map[string]bool{
		"add_rule":    s.AddRule != "",
		"remove_rule": s.RemoveRule != "",
		"set_active":  s.SetActive != nil,
		"configure":   s.Configure != nil,
		"advance":     s.Advance != "",
		"sweep":       s.Sweep > 0,
		"call":        s.Call != nil,
		"whisper":     s.Whisper != nil,
		"money":       s.Money != nil,
		"arousal":     s.Arousal != nil,
		"room":        s.Room != nil,
		"leave_room":  s.LeaveRoom,
		"wear":        s.Wear != nil,
		"remove":      s.Remove != "",
		"setting":     s.Setting != nil,
	}
	found := ""
	for name, ok := range set {
		if !ok {
			continue
		}
		if found != "" {
			return ""
		}
		found = name
	}
	return found
}

func validateStep(s *Step) error {
	kind := s.kind()
	if kind == "" {
		return fmt.Errorf("exactly one action is required")
	}
	if s.Expect != "" && s.Expect != "ok" && s.Expect != "error" {
		return fmt.Errorf("expect must be ok or error, got %q", s.Expect)
	}
	switch kind {
	case "advance":
		if d, err := time.ParseDuration(s.Advance); err != nil || d < 0 {
			return fmt.Errorf("advance: invalid duration %q", s.Advance)
		}
	case "set_active":
		if s.SetActive.Rule == "" {
			return fmt.Errorf("set_active: rule is required")
		}
	case "configure":
		if s.Configure.Rule == "" {
			return fmt.Errorf("configure: rule is required")
		}
	case "call":
		if s.Call.Op == "" {
			return fmt.Errorf("call: op is required")
		}
		if s.Call.RemoveIn != "" {
			if _, err := time.ParseDuration(s.Call.RemoveIn); err != nil {
				return fmt.Errorf("call: invalid remove_in %q", s.Call.RemoveIn)
			}
		}
	case "wear":
		return validateItem(*s.Wear)
	case "setting":
		switch s.Setting.Value.(type) {
		case bool, int:
		default:
			return fmt.Errorf("setting: value must be a bool or an integer")
		}
	}
	return nil
}

func validateItem(item ItemStep) error {
	if item.Group == "" {
		return fmt.Errorf("group is required")
	}
	if _, err := time.ParseDuration(item.RemoveIn); err != nil {
		return fmt.Errorf("invalid remove_in %q", item.RemoveIn)
	}
	if item.MaxDuration != "" {
		if _, err := time.ParseDuration(item.MaxDuration); err != nil {
			return fmt.Errorf("invalid max_duration %q", item.MaxDuration)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	switch a.Type {
	case AssertTriggerCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: a non-negative count is required for trigger_count", index)
		}
	case AssertTriggerContains:
		if a.Rule == "" || a.Text == "" {
			return fmt.Errorf("assertions[%d]: rule and text are required for trigger_contains", index)
		}
	case AssertTriggerOrder:
		if len(a.Rules) == 0 {
			return fmt.Errorf("assertions[%d]: rules list is required for trigger_order", index)
		}
	case AssertMessageContains:
		if a.Kind == "" || a.Text == "" {
			return fmt.Errorf("assertions[%d]: kind and text are required for message_contains", index)
		}
	case AssertRuleState:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for rule_state", index)
		}
	case AssertSetting:
		if a.Key == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: key and value are required for setting", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
