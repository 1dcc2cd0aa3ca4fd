package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:           60,
		ShutdownBudgetSeconds:  90,
		APIPort:                8080,
		ClaudeAPIKey:           "sk-test-key",
		ClaudeModel:            "claude-3-5-haiku-latest",
		ClassifyTimeoutSeconds: 30,
		Workers:                4,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.ClaudeModel != "claude-3-5-haiku-latest" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-3-5-haiku-latest")
	}
	if c.ClassifyTimeoutSeconds != 30 {
		t.Errorf("ClassifyTimeoutSeconds = %d, want 30", c.ClassifyTimeoutSeconds)
	}
	if c.Workers != 4 {
		t.Errorf("Workers = %d, want 4", c.Workers)
	}
	if c.APIToken != "" {
		t.Errorf("APIToken = %q, want empty default", c.APIToken)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-claude-api-key", "sk-override",
		"-claude-model", "claude-sonnet-4-20250514",
		"-classify-timeout-seconds", "15",
		"-workers", "8",
		"-database-url", "postgres://localhost/sift",
		"-api-token", "tok",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.ClaudeAPIKey != "sk-override" {
		t.Errorf("ClaudeAPIKey = %q, want %q", c.ClaudeAPIKey, "sk-override")
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-sonnet-4-20250514")
	}
	if c.ClassifyTimeoutSeconds != 15 {
		t.Errorf("ClassifyTimeoutSeconds = %d, want 15", c.ClassifyTimeoutSeconds)
	}
	if c.Workers != 8 {
		t.Errorf("Workers = %d, want 8", c.Workers)
	}
	if c.DatabaseURL != "postgres://localhost/sift" {
		t.Errorf("DatabaseURL = %q, want %q", c.DatabaseURL, "postgres://localhost/sift")
	}
	if c.APIToken != "tok" {
		t.Errorf("APIToken = %q, want %q", c.APIToken, "tok")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	invalid := func(mutate func(*Config)) Config {
		c := validBase()
		mutate(&c)
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "defaults are valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name: "minimum valid values",
			cfg: Config{
				DrainSeconds: 1, ShutdownBudgetSeconds: 2, APIPort: 1,
				ClaudeAPIKey: "k", ClaudeModel: "m", ClassifyTimeoutSeconds: 1, Workers: 1,
			},
			wantErr: false,
		},
		{
			name: "maximum valid values",
			cfg: Config{
				DrainSeconds: 299, ShutdownBudgetSeconds: 300, APIPort: 65535,
				ClaudeAPIKey: "k", ClaudeModel: "m", ClassifyTimeoutSeconds: 300, Workers: 64,
			},
			wantErr: false,
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			cfg:       invalid(func(c *Config) { c.DrainSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain negative",
			cfg:       invalid(func(c *Config) { c.DrainSeconds = -1 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			cfg:       invalid(func(c *Config) { c.DrainSeconds = 301; c.ShutdownBudgetSeconds = 302 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget zero",
			cfg:       invalid(func(c *Config) { c.ShutdownBudgetSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget above max",
			cfg:       invalid(func(c *Config) { c.ShutdownBudgetSeconds = 301 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		// Cross-field: budget vs drain
		{
			name:      "budget equals drain",
			cfg:       invalid(func(c *Config) { c.ShutdownBudgetSeconds = 60 }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:      "budget less than drain",
			cfg:       invalid(func(c *Config) { c.ShutdownBudgetSeconds = 30 }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:    "budget is drain plus one",
			cfg:     invalid(func(c *Config) { c.ShutdownBudgetSeconds = 61 }),
			wantErr: false,
		},
		// APIPort boundaries
		{
			name:      "port zero",
			cfg:       invalid(func(c *Config) { c.APIPort = 0 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			cfg:       invalid(func(c *Config) { c.APIPort = 65536 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// Required strings
		{
			name:      "empty claude api key",
			cfg:       invalid(func(c *Config) { c.ClaudeAPIKey = "" }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_API_KEY"},
		},
		{
			name:      "empty claude model",
			cfg:       invalid(func(c *Config) { c.ClaudeModel = "" }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MODEL"},
		},
		// Optional strings
		{
			name:    "empty database url uses in-memory store",
			cfg:     invalid(func(c *Config) { c.DatabaseURL = "" }),
			wantErr: false,
		},
		{
			name:    "empty api token disables auth",
			cfg:     invalid(func(c *Config) { c.APIToken = "" }),
			wantErr: false,
		},
		// Classification knobs
		{
			name:      "classify timeout zero",
			cfg:       invalid(func(c *Config) { c.ClassifyTimeoutSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"CLASSIFY_TIMEOUT_SECONDS"},
		},
		{
			name:      "classify timeout above max",
			cfg:       invalid(func(c *Config) { c.ClassifyTimeoutSeconds = 301 }),
			wantErr:   true,
			errSubstr: []string{"CLASSIFY_TIMEOUT_SECONDS"},
		},
		{
			name:      "workers zero",
			cfg:       invalid(func(c *Config) { c.Workers = 0 }),
			wantErr:   true,
			errSubstr: []string{"WORKERS"},
		},
		{
			name:      "workers above max",
			cfg:       invalid(func(c *Config) { c.Workers = 65 }),
			wantErr:   true,
			errSubstr: []string{"WORKERS"},
		},
		// Error accumulation: all fields invalid
		{
			name:      "all fields invalid",
			cfg:       Config{},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "CLAUDE_API_KEY", "CLAUDE_MODEL", "CLASSIFY_TIMEOUT_SECONDS", "WORKERS"},
		},
		// Extreme values
		{
			name:      "extreme negative values",
			cfg:       Config{DrainSeconds: math.MinInt32, ShutdownBudgetSeconds: math.MinInt32, APIPort: math.MinInt32},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port, timeout, workers int
		key, model                            string
	}{
		{60, 90, 8080, 30, 4, "sk-test", "claude-3-5-haiku"},
		{1, 2, 1, 1, 1, "k", "m"},
		{299, 300, 65535, 300, 64, "k", "m"},
		{0, 0, 0, 0, 0, "", ""},
		{-1, -1, -1, -1, -1, "", ""},
		{300, 300, 65535, 30, 4, "k", "m"},
		{301, 302, 65536, 301, 65, "", ""},
		{150, 100, 8080, 30, 4, "k", "m"},
		{math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, "", ""},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, "", ""},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.timeout, s.workers, s.key, s.model)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, timeout, workers int, key, model string) {
		c := Config{
			DrainSeconds:           drain,
			ShutdownBudgetSeconds:  budget,
			APIPort:                port,
			ClaudeAPIKey:           key,
			ClaudeModel:            model,
			ClassifyTimeoutSeconds: timeout,
			Workers:                workers,
		}
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		keyOK := key != ""
		modelOK := model != ""
		timeoutOK := timeout >= 1 && timeout <= 300
		workersOK := workers >= 1 && workers <= 64

		allValid := drainOK && budgetOK && portOK && crossOK && keyOK && modelOK && timeoutOK && workersOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
