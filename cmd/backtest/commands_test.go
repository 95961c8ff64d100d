package main

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Svanik-yan/trading-backtest/internal/config"
)

func TestParamsFlag(t *testing.T) {
	p := paramsFlag{}
	for _, v := range []string{"short=3", "long=10.5"} {
		if err := p.Set(v); err != nil {
			t.Fatalf("Set(%q): %v", v, err)
		}
	}
	if got := p.String(); got != "long=10.5,short=3" {
		t.Errorf("String() = %q", got)
	}
	for _, bad := range []string{"short", "=3", "short=x"} {
		if err := p.Set(bad); err == nil {
			t.Errorf("Set(%q) succeeded, want error", bad)
		}
	}
}

func TestRunFlagsApply(t *testing.T) {
	f := newRunFlags("run")
	err := f.fs.Parse([]string{"-symbol", "600519", "-commission", "0", "-param", "short=2", "-param", "long=4"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	b := config.BacktestConfig{
		InitialCapital: 5000,
		CommissionRate: 0.001,
		Strategy:       "ma-trend",
		Market:         "cn",
		Params:         map[string]float64{"short": 9},
	}
	f.apply(&b)

	want := config.BacktestConfig{
		InitialCapital: 5000,
		CommissionRate: 0,
		Strategy:       "ma-trend",
		Market:         "cn",
		Symbol:         "600519",
		Params:         map[string]float64{"short": 2, "long": 4},
	}
	if !reflect.DeepEqual(b, want) {
		t.Errorf("apply = %+v, want %+v", b, want)
	}
	if req, err := b.Request(); err != nil || req.Symbol != "600519.SH" {
		t.Errorf("Request() symbol = %q (err %v), want 600519.SH", req.Symbol, err)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" sma-cross, ,macd,")
	if !reflect.DeepEqual(got, []string{"sma-cross", "macd"}) {
		t.Errorf("splitList = %v", got)
	}
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %v, want nil", got)
	}
}

func TestWriteFile(t *testing.T) {
	if err := writeFile("", func(io.Writer) error { t.Fatal("called for empty path"); return nil }); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.txt")
	err := writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	})
	if err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Errorf("file = %q, %v", data, err)
	}
}
