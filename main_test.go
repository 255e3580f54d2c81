package main

import "testing"

func TestNewCheckerPrecedence(t *testing.T) {
	crazy, err := LookupProfile(ProfileCrazy)
	if err != nil {
		t.Fatalf("LookupProfile() error = %v", err)
	}
	engine, err := LookupProfile(ProfileEngine)
	if err != nil {
		t.Fatalf("LookupProfile() error = %v", err)
	}

	tests := []struct {
		name     string
		profile  Profile
		settings bool
		opts     runOptions
		want     bool
	}{
		{"crazy default is off", crazy, true, runOptions{}, false},
		{"crazy with --web-check", crazy, true, runOptions{webCheck: true}, true},
		{"--web-check beats settings switch", crazy, false, runOptions{webCheck: true}, true},
		{"--no-web-check beats --web-check", crazy, true, runOptions{webCheck: true, noWebCheck: true}, false},
		{"engine default is on", engine, true, runOptions{}, true},
		{"engine with settings switch off", engine, false, runOptions{}, false},
		{"engine with --no-web-check", engine, true, runOptions{noWebCheck: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{WebCheck: tt.settings, GoogleAPIKey: "k", GoogleCSEID: "c"}
			opts := tt.opts
			checker := newChecker(cfg, tt.profile, &opts, nil)
			if got := checker.Enabled(); got != tt.want {
				t.Errorf("newChecker().Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewCheckerWithoutCredentials(t *testing.T) {
	crazy, err := LookupProfile(ProfileCrazy)
	if err != nil {
		t.Fatalf("LookupProfile() error = %v", err)
	}
	checker := newChecker(&Config{WebCheck: true}, crazy, &runOptions{webCheck: true}, nil)
	if checker.Enabled() {
		t.Error("checker without API key should stay disabled")
	}
}
