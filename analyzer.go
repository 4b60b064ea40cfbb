package chesscam

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/corentings/chess/v2/uci"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/multierr"

	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	generic "go.viam.com/rdk/services/generic"
)

var AnalyzerModel = family.WithModel("analyzer")

const (
	defaultSearchDepth = 14
	maxSearchDepth     = 30
)

func init() {
	resource.RegisterService(
		generic.API,
		AnalyzerModel,
		resource.Registration[resource.Resource, *AnalyzerConfig]{
			Constructor: newAnalyzer,
		})
}

type AnalyzerConfig struct {
	EnginePath string `json:"engine-path"`
	Depth      int
}

func (cfg *AnalyzerConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Depth < 0 || cfg.Depth > maxSearchDepth {
		return nil, nil, fmt.Errorf("depth %d outside [0, %d]", cfg.Depth, maxSearchDepth)
	}
	return nil, nil, nil
}

// enginePath resolves the UCI binary: explicit config first, then
// $STOCKFISH_PATH, then whatever "stockfish" means on PATH.
func (cfg *AnalyzerConfig) enginePath() string {
	if cfg.EnginePath != "" {
		return cfg.EnginePath
	}
	if p := os.Getenv("STOCKFISH_PATH"); p != "" {
		return p
	}
	return "stockfish"
}

func (cfg *AnalyzerConfig) depth() int {
	if cfg.Depth <= 0 {
		return defaultSearchDepth
	}
	return cfg.Depth
}

func newAnalyzer(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (resource.Resource, error) {
	conf, err := resource.NativeConfig[*AnalyzerConfig](rawConf)
	if err != nil {
		return nil, err
	}

	return NewAnalyzer(ctx, deps, rawConf.ResourceName(), conf, logger)
}

func NewAnalyzer(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *AnalyzerConfig, logger logging.Logger) (resource.Resource, error) {
	path := conf.enginePath()

	eng, err := uci.New(path)
	if err != nil {
		return nil, fmt.Errorf("can't start engine %s: %v", path, err)
	}

	err = eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame)
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("engine %s didn't finish handshake: %v", path, err), eng.Close())
	}

	return &analyzer{
		name:   name,
		logger: logger,
		conf:   conf,
		engine: eng,
	}, nil
}

type analyzer struct {
	resource.AlwaysRebuild

	name resource.Name

	logger logging.Logger
	conf   *AnalyzerConfig

	// one engine process, one search at a time
	mu     sync.Mutex
	engine *uci.Engine
}

func (a *analyzer) Name() resource.Name {
	return a.name
}

type AnalyzeCmd struct {
	Fen   string
	Depth int
}

type analyzerCmd struct {
	Analyze *AnalyzeCmd
}

func (a *analyzer) DoCommand(ctx context.Context, cmdMap map[string]interface{}) (map[string]interface{}, error) {
	var cmd analyzerCmd
	err := mapstructure.Decode(cmdMap, &cmd)
	if err != nil {
		return nil, err
	}

	if cmd.Analyze != nil {
		return a.Analyze(ctx, cmd.Analyze.Fen, cmd.Analyze.Depth)
	}

	return nil, fmt.Errorf("bad cmd %v", cmdMap)
}

// Analyze feeds a recognized position to the engine and reports its best
// move and score. A depth of 0 uses the configured default.
func (a *analyzer) Analyze(ctx context.Context, fen string, depth int) (map[string]interface{}, error) {
	if depth <= 0 {
		depth = a.conf.depth()
	}
	if depth > maxSearchDepth {
		depth = maxSearchDepth
	}

	pos, err := ParsePosition(fen)
	if err != nil {
		return nil, err
	}

	white, black := KingsPresent(pos.Board())
	if !white || !black {
		return nil, fmt.Errorf("position %s is missing a king", fen)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	err = a.engine.Run(uci.CmdPosition{Position: pos}, uci.CmdGo{Depth: depth})
	if err != nil {
		return nil, fmt.Errorf("engine search failed: %v", err)
	}

	res := a.engine.SearchResults()

	out := map[string]interface{}{
		"best-move": fmt.Sprintf("%v", res.BestMove),
		"depth":     depth,
	}

	score := res.Info.Score
	if score.Mate != 0 {
		out["mate"] = score.Mate
	} else {
		out["cp"] = score.CP
	}

	return out, nil
}

func (a *analyzer) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.engine == nil {
		return nil
	}

	err := multierr.Combine(a.engine.Run(uci.CmdStop), a.engine.Close())
	a.engine = nil
	return err
}
