package model

import (
	"errors"
	"strings"
	"testing"
)

func testParams(t *testing.T) *Params {
	t.Helper()
	return NewParams([]ParamDesc{
		{Name: "H0", Symbol: "H_0", Default: 70, Lower: 10, Upper: 500},
		{Name: "w", Symbol: "w", Default: -1, Lower: -3, Upper: -1.0 / 3.0},
	})
}

func TestParams_Defaults(t *testing.T) {
	p := testParams(t)
	if got := p.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	if got := p.Get(0); got != 70 {
		t.Errorf("Get(0) = %g, want default 70", got)
	}
	if got, err := p.GetByName("w"); err != nil || got != -1 {
		t.Errorf("GetByName(w) = %g, %v, want -1", got, err)
	}
}

func TestParams_SetBounds(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		value   float64
		wantErr error
	}{
		{"in range", "H0", 67.36, nil},
		{"at lower bound", "H0", 10, nil},
		{"at upper bound", "w", -1.0 / 3.0, nil},
		{"below lower", "H0", 9.99, ErrBounds},
		{"above upper", "w", 0, ErrBounds},
		{"unknown name", "Omegaq", 0.5, ErrUnknownParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams(t)
			err := p.SetByName(tt.param, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetByName(%s, %g) error = %v, want %v", tt.param, tt.value, err, tt.wantErr)
			}
			if tt.wantErr == nil {
				if got, _ := p.GetByName(tt.param); got != tt.value {
					t.Errorf("after set, %s = %g, want %g", tt.param, got, tt.value)
				}
			}
		})
	}
}

func TestParams_SetIndexOutOfRange(t *testing.T) {
	p := testParams(t)
	if err := p.Set(5, 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("Set(5) error = %v, want ErrUnknownParam", err)
	}
	if err := p.Set(-1, 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("Set(-1) error = %v, want ErrUnknownParam", err)
	}
}

func TestParams_StateCounter(t *testing.T) {
	p := testParams(t)
	s0 := p.State()
	if err := p.SetByName("H0", 68); err != nil {
		t.Fatalf("SetByName: %v", err)
	}
	if p.State() == s0 {
		t.Error("state did not change after a successful set")
	}
	s1 := p.State()
	// A rejected set must not bump the state.
	if err := p.SetByName("H0", 1e9); err == nil {
		t.Fatal("expected bounds error")
	}
	if p.State() != s1 {
		t.Error("state changed after a rejected set")
	}
}

func TestParams_Vector(t *testing.T) {
	p := testParams(t)
	p.AddVector(ParamDesc{Name: "massnu", Symbol: "m_nu", Default: 0.06, Lower: 0, Upper: 10}, 3)

	if got := p.VectorLen("massnu"); got != 3 {
		t.Fatalf("VectorLen = %d, want 3", got)
	}
	if got := p.VectorLen("nosuch"); got != 0 {
		t.Errorf("VectorLen(nosuch) = %d, want 0", got)
	}
	if got, err := p.GetVectorComp("massnu", 1); err != nil || got != 0.06 {
		t.Errorf("GetVectorComp = %g, %v, want default 0.06", got, err)
	}
	if err := p.SetVectorComp("massnu", 2, 0.1); err != nil {
		t.Fatalf("SetVectorComp: %v", err)
	}
	if got, _ := p.GetVectorComp("massnu", 2); got != 0.1 {
		t.Errorf("component 2 = %g, want 0.1", got)
	}
	if err := p.SetVectorComp("massnu", 3, 0.1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("out-of-range component error = %v, want ErrUnknownParam", err)
	}
	if err := p.SetVectorComp("massnu", 0, -1); !errors.Is(err, ErrBounds) {
		t.Errorf("below-bounds component error = %v, want ErrBounds", err)
	}
	if err := p.SetVector("massnu", []float64{0.01, 0.02, 0.03}); err != nil {
		t.Fatalf("SetVector: %v", err)
	}
	if got, _ := p.GetVectorComp("massnu", 0); got != 0.01 {
		t.Errorf("after SetVector, component 0 = %g, want 0.01", got)
	}
}

func TestParams_Snapshot(t *testing.T) {
	p := testParams(t)
	p.AddVector(ParamDesc{Name: "massnu", Symbol: "m_nu", Default: 0, Lower: 0, Upper: 10}, 2)
	if err := p.SetVectorComp("massnu", 1, 0.06); err != nil {
		t.Fatalf("SetVectorComp: %v", err)
	}

	snap := p.Snapshot()
	want := map[string]float64{"H0": 70, "w": -1, "massnu[0]": 0, "massnu[1]": 0.06}
	if len(snap) != len(want) {
		t.Fatalf("snapshot has %d entries, want %d: %v", len(snap), len(want), snap)
	}
	for k, v := range want {
		if snap[k] != v {
			t.Errorf("snapshot[%q] = %g, want %g", k, snap[k], v)
		}
	}

	keys := SortedKeys(snap)
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("SortedKeys not sorted: %v", keys)
		}
	}
}

func TestParams_LogAll(t *testing.T) {
	p := testParams(t)
	var sb strings.Builder
	p.LogAll(&sb)
	out := sb.String()
	if !strings.HasPrefix(out, "# Model parameters:") {
		t.Errorf("LogAll output missing comment prefix: %q", out)
	}
	if !strings.Contains(out, "H_0") || !strings.Contains(out, " w ") {
		t.Errorf("LogAll output missing symbols: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("LogAll output missing trailing newline: %q", out)
	}
}

type stubModel struct{ p *Params }

func (s *stubModel) Name() string    { return "stub" }
func (s *stubModel) Params() *Params { return s.p }

func TestRegistry(t *testing.T) {
	Register("stub-registry-test", func(opts Options) (Model, error) {
		p := NewParams([]ParamDesc{{Name: "a", Default: 1, Lower: 0, Upper: 2}})
		if n := opts.VectorLens["v"]; n > 0 {
			p.AddVector(ParamDesc{Name: "v", Symbol: "v", Upper: 1}, n)
		}
		return &stubModel{p: p}, nil
	})

	m, err := NewFromName("stub-registry-test")
	if err != nil {
		t.Fatalf("NewFromName: %v", err)
	}
	if got, _ := m.Params().GetByName("a"); got != 1 {
		t.Errorf("constructed model default = %g, want 1", got)
	}
	if m.Params().VectorLen("v") != 0 {
		t.Error("vector present without option")
	}

	m, err = NewFromName("stub-registry-test", WithVectorLen("v", 2))
	if err != nil {
		t.Fatalf("NewFromName with option: %v", err)
	}
	if got := m.Params().VectorLen("v"); got != 2 {
		t.Errorf("VectorLen = %d, want 2", got)
	}

	if _, err := NewFromName("never-registered"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("unknown model error = %v, want ErrUnknownModel", err)
	}

	found := false
	for _, name := range Names() {
		if name == "stub-registry-test" {
			found = true
		}
	}
	if !found {
		t.Errorf("Names() = %v, missing registered stub", Names())
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("stub-dup-test", func(Options) (Model, error) { return nil, nil })
	Register("stub-dup-test", func(Options) (Model, error) { return nil, nil })
}
