package chesscam

import (
	"testing"

	"go.viam.com/test"
)

func TestAnalyzerConfigValidate(t *testing.T) {
	for _, depth := range []int{0, 1, 14, 30} {
		cfg := AnalyzerConfig{Depth: depth}
		_, _, err := cfg.Validate("")
		test.That(t, err, test.ShouldBeNil)
	}

	for _, depth := range []int{-1, 31, 100} {
		cfg := AnalyzerConfig{Depth: depth}
		_, _, err := cfg.Validate("")
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestAnalyzerEnginePath(t *testing.T) {
	cfg := AnalyzerConfig{EnginePath: "/opt/engines/stockfish"}
	test.That(t, cfg.enginePath(), test.ShouldEqual, "/opt/engines/stockfish")

	t.Setenv("STOCKFISH_PATH", "/usr/local/bin/stockfish")
	cfg = AnalyzerConfig{}
	test.That(t, cfg.enginePath(), test.ShouldEqual, "/usr/local/bin/stockfish")

	// explicit config beats the environment
	cfg = AnalyzerConfig{EnginePath: "/opt/engines/stockfish"}
	test.That(t, cfg.enginePath(), test.ShouldEqual, "/opt/engines/stockfish")

	t.Setenv("STOCKFISH_PATH", "")
	cfg = AnalyzerConfig{}
	test.That(t, cfg.enginePath(), test.ShouldEqual, "stockfish")
}

func TestAnalyzerDepthDefault(t *testing.T) {
	cfg := AnalyzerConfig{}
	test.That(t, cfg.depth(), test.ShouldEqual, defaultSearchDepth)

	cfg = AnalyzerConfig{Depth: 20}
	test.That(t, cfg.depth(), test.ShouldEqual, 20)
}
