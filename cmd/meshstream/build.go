package main

import (
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/meshstream/agent"
	"github.com/hupe1980/meshstream/config"
	"github.com/hupe1980/meshstream/internal/demo"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/planner"
	"github.com/hupe1980/meshstream/planner/anthropic"
	"github.com/hupe1980/meshstream/planner/openai"
	"github.com/hupe1980/meshstream/supervisor"
	"github.com/hupe1980/meshstream/transport"
	"github.com/hupe1980/meshstream/worker"
)

// builder turns a configuration into runtimes and adapters.
type builder struct {
	cfg    *config.Config
	logger logging.Logger
}

// planner builds the named planner. fallback supplies the deterministic
// routing planner used by the "scripted" provider.
func (b *builder) planner(name string, fallback func() (planner.Planner, error)) (planner.Planner, error) {
	pc, ok := b.cfg.Planners[name]
	if !ok {
		return nil, fmt.Errorf("unknown planner %q", name)
	}

	var p planner.Planner
	switch pc.Provider {
	case "openai":
		p = openai.New(func(o *openai.Options) {
			if pc.Model != "" {
				o.Model = pc.Model
			}
			if pc.Temperature != 0 {
				o.Temperature = pc.Temperature
			}
			o.APIKey = pc.APIKey
			o.BaseURL = pc.BaseURL
		})
	case "anthropic":
		p = anthropic.New(func(o *anthropic.Options) {
			if pc.Model != "" {
				o.Model = anthropicsdk.Model(pc.Model)
			}
			if pc.Temperature != 0 {
				o.Temperature = pc.Temperature
			}
			o.APIKey = pc.APIKey
			o.BaseURL = pc.BaseURL
		})
	case "scripted":
		var err error
		if p, err = fallback(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("planner %q: unknown provider %q", name, pc.Provider)
	}

	if pc.RequestsPerMinute > 0 {
		p = planner.RateLimited(p, pc.RequestsPerMinute)
	}
	return p, nil
}

// localRuntime builds the runtime of a local worker declaration.
func (b *builder) localRuntime(wc config.WorkerConfig) (*agent.Runtime, error) {
	if wc.IsRemote() {
		return nil, fmt.Errorf("worker %q is remote (%s)", wc.Name, wc.URL)
	}
	p, err := b.planner(wc.Planner, func() (planner.Planner, error) { return demo.Planner(wc.Local) })
	if err != nil {
		return nil, err
	}
	return demo.NewWorker(wc.Local, wc.Name, p, func(o *agent.Options) {
		o.Logger = logging.With(b.logger, "worker", wc.Name)
	})
}

// adapter builds the adapter of one worker declaration.
func (b *builder) adapter(wc config.WorkerConfig) (worker.Adapter, error) {
	if !wc.IsRemote() {
		rt, err := b.localRuntime(wc)
		if err != nil {
			return nil, err
		}
		return worker.NewLocal(rt, func(o *worker.LocalOptions) { o.Logger = b.logger }), nil
	}

	codec, err := transport.CodecByName(wc.Codec)
	if err != nil {
		return nil, err
	}
	return worker.NewRemote(wc.Name, wc.URL, func(o *worker.RemoteOptions) {
		if wc.Timeout.Duration > 0 {
			o.Timeout = wc.Timeout.Duration
		}
		o.Codec = codec
		o.Logger = b.logger
	})
}

// supervisor builds the supervisor with every configured worker registered.
func (b *builder) supervisor() (*supervisor.Supervisor, error) {
	sc := b.cfg.Supervisor

	kinds := make(map[string]string, len(b.cfg.Workers))
	for _, wc := range b.cfg.Workers {
		kinds[wc.Name] = wc.Local
	}

	p, err := b.planner(sc.Planner, func() (planner.Planner, error) { return demo.SupervisorPlanner(kinds), nil })
	if err != nil {
		return nil, err
	}

	instruction, err := agent.NewInstructionFromTemplate(sc.Instructions)
	if err != nil {
		return nil, err
	}

	s, err := supervisor.New(sc.Name, p, func(o *supervisor.Options) {
		o.Instruction = instruction
		if sc.MaxSteps > 0 {
			o.MaxSteps = sc.MaxSteps
		}
		o.FanOut = sc.FanOut
		o.MaxParallel = sc.MaxParallel
		o.HandoffBackMessages = sc.HandoffBackMessages
		o.ForwardHistory = sc.ForwardHistory
		o.Logger = b.logger
	})
	if err != nil {
		return nil, err
	}

	adapters := make([]worker.Adapter, 0, len(b.cfg.Workers))
	for _, wc := range b.cfg.Workers {
		a, err := b.adapter(wc)
		if err != nil {
			return nil, fmt.Errorf("worker %s: %w", wc.Name, err)
		}
		adapters = append(adapters, a)
	}
	if err := s.Register(adapters...); err != nil {
		return nil, err
	}
	return s, nil
}

func newBuilder() *builder {
	return &builder{cfg: globalConfig, logger: globalLogger}
}
